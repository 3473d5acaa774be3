package notify

import (
	"bytes"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurface_RendersLevels(t *testing.T) {
	var buf bytes.Buffer
	s := NewSurface(&buf, time.Second, clockwork.NewFakeClock())

	s.Success("saved")
	s.Error("failed")
	s.Warning("careful")
	s.Info("fyi")

	assert.Equal(t, "✓ saved\n✗ failed\n⚠ careful\nℹ fyi\n", buf.String())
}

func TestSurface_ForcedColor(t *testing.T) {
	var buf bytes.Buffer
	on := true
	s := &Surface{Out: &buf, Clock: clockwork.NewFakeClock(), Color: &on}

	s.Error("boom")
	assert.Equal(t, "\x1b[31m✗ boom\x1b[0m\n", buf.String())
}

func TestSurface_AutoDismiss(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSurface(&bytes.Buffer{}, 5*time.Second, clock)

	first := s.Info("one")
	clock.Advance(2 * time.Second)
	second := s.Info("two")

	active := s.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first, active[0].ID)
	assert.Equal(t, second, active[1].ID)

	clock.Advance(3 * time.Second)
	assert.Eventually(t, func() bool { return len(s.Active()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, second, s.Active()[0].ID)

	clock.Advance(2 * time.Second)
	assert.Eventually(t, func() bool { return len(s.Active()) == 0 }, time.Second, time.Millisecond)
}

func TestSurface_DismissEarly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSurface(&bytes.Buffer{}, time.Minute, clock)

	id := s.Warning("dismiss me")
	keep := s.Info("keep me")

	assert.True(t, s.Dismiss(id))
	assert.False(t, s.Dismiss(id))

	active := s.Active()
	require.Len(t, active, 1)
	assert.Equal(t, keep, active[0].ID)
}

func TestSurface_ZeroValueIsUsable(t *testing.T) {
	var s Surface
	s.Out = &bytes.Buffer{}

	id := s.Notify("lazy", LevelSuccess)
	assert.NotEmpty(t, id)
	assert.Equal(t, DefaultTTL, s.TTL)
	assert.Len(t, s.Active(), 1)
}
