package commands

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reservas-dev/reservas/internal/guard"
)

func TestPageOf(t *testing.T) {
	personas := NewPersonasCmd()
	ls, _, err := personas.Find([]string{"ls"})
	require.NoError(t, err)

	page, ok := PageOf(ls)
	require.True(t, ok)
	assert.Equal(t, "/personas", page.Path)
	assert.True(t, page.Requirement.RequiresAuth)
	assert.True(t, page.Requirement.RequiresAdmin)

	page, ok = PageOf(NewLoginCmd())
	require.True(t, ok)
	assert.Equal(t, guard.LoginPath, page.Path)
	assert.False(t, page.Requirement.RequiresAuth)

	page, ok = PageOf(NewDashboardCmd())
	require.True(t, ok)
	assert.Equal(t, guard.DefaultPath, page.Path)
	assert.True(t, page.Requirement.RequiresAuth)
	assert.False(t, page.Requirement.RequiresAdmin)

	_, ok = PageOf(&cobra.Command{Use: "version"})
	assert.False(t, ok)
	_, ok = PageOf(NewInitCmd())
	assert.False(t, ok)
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁▁▁", sparkline([]int{0, 0, 0}))
	assert.Equal(t, "▁▄█", sparkline([]int{0, 5, 10}))
	assert.Empty(t, sparkline(nil))

	// Negative counts draw as the lowest bar
	assert.Equal(t, "▁▁█", sparkline([]int{-3, 0, 10}))
	assert.Equal(t, "▁▁", sparkline([]int{-1, -5}))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ana@reservas.test",
		"exp": exp.Unix(),
	}).SignedString([]byte("any-secret"))
	require.NoError(t, err)

	got, ok := tokenExpiry(token)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = tokenExpiry(noExp)
	assert.False(t, ok)

	_, ok = tokenExpiry("opaque-token")
	assert.False(t, ok)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42", "sala")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseID(bad, "sala")
		assert.Error(t, err, bad)
	}
}
