package guard

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reservas-dev/reservas/internal/notify"
	"github.com/reservas-dev/reservas/internal/pipeline"
	"github.com/reservas-dev/reservas/internal/session"
)

type recordingNavigator struct {
	mu      sync.Mutex
	current string
	visits  []string
}

func (n *recordingNavigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = path
	n.visits = append(n.visits, path)
}

func (n *recordingNavigator) history() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visits...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	levels   []notify.Level
}

func (r *recordingNotifier) Notify(message string, level notify.Level) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	r.levels = append(r.levels, level)
	return "id"
}

type fakeProfiles struct {
	profile *session.UserProfile
	err     error
	// onCall runs before returning, e.g. to simulate the pipeline handler
	onCall func()
}

func (f *fakeProfiles) Me(ctx context.Context) (*session.UserProfile, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.profile, f.err
}

type unauthorizedErr struct{}

func (unauthorizedErr) Error() string               { return "status 401" }
func (unauthorizedErr) AuthenticationFailure() bool { return true }

var (
	protected = Page{Path: "/salas", Requirement: PageRequirement{RequiresAuth: true}}
	adminOnly = Page{Path: "/personas", Requirement: PageRequirement{RequiresAuth: true, RequiresAdmin: true}}
	loginPage = Page{Path: LoginPath}
)

func newStore(t *testing.T, profile *session.UserProfile) *session.Store {
	t.Helper()
	base, err := url.Parse("http://localhost:8000")
	require.NoError(t, err)
	store := session.NewStore(session.NewMemoryStorage(), base)
	if profile != nil {
		require.NoError(t, store.SetToken("tok"))
		require.NoError(t, store.SetUser(profile))
	}
	return store
}

func TestGuard_NoSessionRedirectsToLogin(t *testing.T) {
	t.Run("protected page redirects to login", func(t *testing.T) {
		nav := &recordingNavigator{current: protected.Path}
		g := New(newStore(t, nil), &fakeProfiles{}, nav, &recordingNotifier{})

		state, err := g.Enter(context.Background(), protected)
		assert.ErrorIs(t, err, ErrRedirected)
		assert.Equal(t, StateDenied, state)
		assert.Equal(t, []string{LoginPath}, nav.history())
		assert.Error(t, g.Context().Err())
	})

	t.Run("login page renders the form", func(t *testing.T) {
		nav := &recordingNavigator{current: LoginPath}
		g := New(newStore(t, nil), &fakeProfiles{}, nav, &recordingNotifier{})

		state, err := g.Enter(context.Background(), loginPage)
		require.NoError(t, err)
		assert.Equal(t, StateDenied, state)
		assert.Empty(t, nav.history())
	})
}

func TestGuard_ValidSessionIsGranted(t *testing.T) {
	profile := &session.UserProfile{ID: 1, Nombre: "Ana", Email: "ana@example.com"}
	nav := &recordingNavigator{current: protected.Path}
	g := New(newStore(t, profile), &fakeProfiles{profile: profile}, nav, &recordingNotifier{})

	state, err := g.Enter(context.Background(), protected)
	require.NoError(t, err)
	assert.Equal(t, StateGranted, state)
	assert.Empty(t, nav.history())
	assert.NoError(t, g.Context().Err())
}

func TestGuard_RevokedTokenRedirectsOnce(t *testing.T) {
	profile := &session.UserProfile{ID: 1}
	store := newStore(t, profile)
	nav := &recordingNavigator{current: protected.Path}
	notifier := &recordingNotifier{}

	profiles := &fakeProfiles{err: unauthorizedErr{}}
	g := New(store, profiles, nav, notifier)
	// The pipeline reports the 401 before Me returns, as it does in production
	profiles.onCall = func() {
		g.HandleAuthFailure(context.Background(), pipeline.Failure{Kind: pipeline.FailureAuthentication, Status: 401})
	}

	state, err := g.Enter(context.Background(), protected)
	assert.ErrorIs(t, err, ErrRedirected)
	assert.Equal(t, StateDenied, state)
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Token())
	assert.Equal(t, []string{LoginPath}, nav.history(), "exactly one redirect")
	assert.Len(t, notifier.messages, 1, "one-time notice")
}

func TestGuard_TransientFailureFailsOpen(t *testing.T) {
	profile := &session.UserProfile{ID: 1}
	store := newStore(t, profile)
	nav := &recordingNavigator{current: protected.Path}
	g := New(store, &fakeProfiles{err: errors.New("connection refused")}, nav, &recordingNotifier{})

	state, err := g.Enter(context.Background(), protected)
	require.NoError(t, err)
	assert.Equal(t, StateGranted, state)
	assert.True(t, store.IsAuthenticated())
	assert.Empty(t, nav.history())
}

func TestGuard_NonAdminIsSentHomeAfterDelay(t *testing.T) {
	profile := &session.UserProfile{ID: 2, Nombre: "Juan"}
	nav := &recordingNavigator{current: adminOnly.Path}
	notifier := &recordingNotifier{}
	clock := clockwork.NewFakeClock()

	g := New(newStore(t, profile), &fakeProfiles{profile: profile}, nav, notifier,
		WithClock(clock), WithAdminRedirectDelay(2*time.Second))

	type result struct {
		state State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		state, err := g.Enter(context.Background(), adminOnly)
		done <- result{state, err}
	}()

	clock.BlockUntil(1)
	assert.Empty(t, nav.history(), "no navigation before the delay")

	clock.Advance(2 * time.Second)
	res := <-done

	assert.ErrorIs(t, res.err, ErrAccessDenied)
	assert.Equal(t, StateDenied, res.state)
	assert.Equal(t, []string{DefaultPath}, nav.history())
	require.Len(t, notifier.levels, 1)
	assert.Equal(t, notify.LevelError, notifier.levels[0])
}

func TestGuard_AdminGateIsStrict(t *testing.T) {
	tests := []struct {
		name    string
		profile *session.UserProfile
		granted bool
	}{
		{"admin", &session.UserProfile{ID: 1, IsAdmin: true}, true},
		{"not admin", &session.UserProfile{ID: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &recordingNavigator{current: adminOnly.Path}
			g := New(newStore(t, tt.profile), &fakeProfiles{profile: tt.profile}, nav, &recordingNotifier{},
				WithAdminRedirectDelay(0))

			state, err := g.Enter(context.Background(), adminOnly)
			if tt.granted {
				require.NoError(t, err)
				assert.Equal(t, StateGranted, state)
			} else {
				assert.ErrorIs(t, err, ErrAccessDenied)
			}
		})
	}
}

func TestGuard_LoginPage(t *testing.T) {
	profile := &session.UserProfile{ID: 1}

	t.Run("valid session moves to default page", func(t *testing.T) {
		nav := &recordingNavigator{current: LoginPath}
		g := New(newStore(t, profile), &fakeProfiles{profile: profile}, nav, &recordingNotifier{})

		state, err := g.Enter(context.Background(), loginPage)
		require.NoError(t, err)
		assert.Equal(t, StateGranted, state)
		assert.Equal(t, []string{DefaultPath}, nav.history())
	})

	t.Run("invalid session stays on login", func(t *testing.T) {
		store := newStore(t, profile)
		nav := &recordingNavigator{current: LoginPath}
		g := New(store, &fakeProfiles{err: unauthorizedErr{}}, nav, &recordingNotifier{})

		state, err := g.Enter(context.Background(), loginPage)
		require.NoError(t, err)
		assert.Equal(t, StateDenied, state)
		assert.Empty(t, nav.history())
		assert.False(t, store.IsAuthenticated())
	})
}

func TestGuard_NoRedirectLoopOnLogin(t *testing.T) {
	store := newStore(t, &session.UserProfile{ID: 1})
	nav := &recordingNavigator{current: LoginPath}
	notifier := &recordingNotifier{}
	g := New(store, &fakeProfiles{}, nav, notifier)

	g.HandleAuthFailure(context.Background(), pipeline.Failure{Kind: pipeline.FailureAuthentication, Status: 401})
	g.HandleAuthFailure(context.Background(), pipeline.Failure{Kind: pipeline.FailureAuthentication, Status: 401})

	assert.Empty(t, nav.history())
	assert.Empty(t, notifier.messages)
	assert.False(t, store.IsAuthenticated())
}

func TestGuard_AuthFailureRedirectsOnce(t *testing.T) {
	nav := &recordingNavigator{current: "/reservas"}
	notifier := &recordingNotifier{}
	g := New(newStore(t, &session.UserProfile{ID: 1}), &fakeProfiles{}, nav, notifier)

	g.HandleAuthFailure(context.Background(), pipeline.Failure{Kind: pipeline.FailureAuthentication, Status: 403, Code: pipeline.CodeAccountInactive})
	g.HandleAuthFailure(context.Background(), pipeline.Failure{Kind: pipeline.FailureAuthentication, Status: 401})

	assert.Equal(t, []string{LoginPath}, nav.history())
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "inactive")
}

func TestGuard_PublicPage(t *testing.T) {
	nav := &recordingNavigator{current: "/version"}
	g := New(newStore(t, nil), &fakeProfiles{}, nav, &recordingNotifier{})

	state, err := g.Enter(context.Background(), Page{Path: "/version"})
	require.NoError(t, err)
	assert.Equal(t, StateGranted, state)
}
