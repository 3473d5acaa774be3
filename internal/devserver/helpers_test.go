package devserver

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reservas-dev/reservas/internal/auth"
)

func itoa(i int) string { return strconv.Itoa(i) }

func mustGet(t *testing.T, ts *httptest.Server, path, token string) []byte {
	t.Helper()
	status, body := call(t, ts, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	return body
}

// newIssuerAt returns an issuer signing with the test secret as if the clock read at
func newIssuerAt(t *testing.T, at time.Time) (*auth.TokenIssuer, error) {
	t.Helper()
	issuer, err := auth.NewTokenIssuerWithClock("test-secret", time.Hour, func() time.Time { return at })
	require.NoError(t, err)
	return issuer, nil
}
