// Package guard decides, once per page, whether the current session may
// see it, and is the only component allowed to navigate because of an error.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/reservas-dev/reservas/internal/notify"
	"github.com/reservas-dev/reservas/internal/pipeline"
	"github.com/reservas-dev/reservas/internal/session"
)

const (
	LoginPath   = "/login"
	DefaultPath = "/"

	DefaultAdminRedirectDelay = 2 * time.Second
)

var (
	// ErrRedirected means the guard navigated away from the page
	ErrRedirected = errors.New("redirected")
	// ErrAccessDenied means an admin-only page was refused
	ErrAccessDenied = errors.New("access denied: administrators only")
)

// State of one page visit
type State int

const (
	StateUnknown State = iota
	StateChecking
	StateGranted
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// PageRequirement is declared statically by every page
type PageRequirement struct {
	RequiresAuth  bool
	RequiresAdmin bool
}

// Page is a navigable destination
type Page struct {
	Path        string
	Requirement PageRequirement
}

// Navigator moves between pages
type Navigator interface {
	Current() string
	Navigate(path string)
}

// Session is the part of the session store the guard needs
type Session interface {
	IsAuthenticated() bool
	IsAdmin() bool
	SetUser(profile *session.UserProfile) error
	Clear() error
}

// Notifier shows user-visible messages
type Notifier interface {
	Notify(message string, level notify.Level) string
}

// Guard runs the per-page state machine
type Guard struct {
	session    Session
	profiles   session.ProfileFetcher
	nav        Navigator
	notifier   Notifier
	clock      clockwork.Clock
	adminDelay time.Duration
	logger     zerolog.Logger

	mu              sync.Mutex
	state           State
	loginRedirected bool
	ctx             context.Context
	cancel          context.CancelFunc
}

// Option configures a Guard
type Option func(*Guard)

// WithClock overrides the time source for the access-denied delay
func WithClock(clock clockwork.Clock) Option {
	return func(g *Guard) { g.clock = clock }
}

// WithAdminRedirectDelay sets how long the access-denied notice shows before
// navigating to the default page.
func WithAdminRedirectDelay(d time.Duration) Option {
	return func(g *Guard) { g.adminDelay = d }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// New creates a guard
func New(sess Session, profiles session.ProfileFetcher, nav Navigator, notifier Notifier, opts ...Option) *Guard {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Guard{
		session:    sess,
		profiles:   profiles,
		nav:        nav,
		notifier:   notifier,
		clock:      clockwork.NewRealClock(),
		adminDelay: DefaultAdminRedirectDelay,
		logger:     zerolog.Nop(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current state
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Context is cancelled as soon as the guard navigates away. Work started for
// the page checks it before rendering.
func (g *Guard) Context() context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctx
}

// Enter runs the guard for page. It returns ErrRedirected when the visit ended
// in a navigation to login and ErrAccessDenied when an admin page was refused.
func (g *Guard) Enter(ctx context.Context, page Page) (State, error) {
	g.mu.Lock()
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.mu.Unlock()

	g.transition(StateChecking)

	if page.Path == LoginPath {
		return g.enterLogin(ctx)
	}

	if !page.Requirement.RequiresAuth {
		g.transition(StateGranted)
		return StateGranted, nil
	}

	if !g.session.IsAuthenticated() {
		g.transition(StateDenied)
		g.redirectToLogin("")
		return StateDenied, ErrRedirected
	}

	// Validate the token live rather than trusting its presence
	profile, err := g.profiles.Me(ctx)
	switch {
	case err == nil:
		if err := g.session.SetUser(profile); err != nil {
			g.logger.Warn().Err(err).Msg("Refreshed profile rejected, keeping cached one")
		}
	case session.IsAuthenticationFailure(err):
		g.clearSession()
		g.transition(StateDenied)
		g.redirectToLogin("Your session has expired. Please log in again.")
		return StateDenied, ErrRedirected
	default:
		// Transient failures keep the cached session usable
		g.logger.Warn().Err(err).Msg("Could not validate session, using cached profile")
	}

	if g.redirected() {
		// The pipeline already handled a credential failure during refresh
		g.transition(StateDenied)
		return StateDenied, ErrRedirected
	}

	g.transition(StateGranted)

	if page.Requirement.RequiresAdmin && !g.session.IsAdmin() {
		return g.denyAdmin(ctx)
	}

	return StateGranted, nil
}

func (g *Guard) enterLogin(ctx context.Context) (State, error) {
	if !g.session.IsAuthenticated() {
		g.transition(StateDenied)
		return StateDenied, nil
	}

	profile, err := g.profiles.Me(ctx)
	if err == nil {
		err = g.session.SetUser(profile)
	}
	if err != nil {
		// Stay on login; redirecting again would loop
		g.logger.Info().Err(err).Msg("Stored session is no longer valid")
		g.clearSession()
		g.transition(StateDenied)
		return StateDenied, nil
	}

	g.transition(StateGranted)
	g.navigate(DefaultPath)
	return StateGranted, nil
}

func (g *Guard) denyAdmin(ctx context.Context) (State, error) {
	g.transition(StateDenied)
	g.notifier.Notify("Access denied. Only administrators can access this section.", notify.LevelError)

	select {
	case <-g.clock.After(g.adminDelay):
		g.navigate(DefaultPath)
	case <-ctx.Done():
		return StateDenied, ctx.Err()
	}

	return StateDenied, ErrAccessDenied
}

// HandleAuthFailure implements pipeline.AuthFailureHandler: the session is
// cleared and, unless already on the login page, the user is sent there once.
func (g *Guard) HandleAuthFailure(_ context.Context, f pipeline.Failure) {
	g.clearSession()

	g.mu.Lock()
	if g.state != StateUnknown {
		g.state = StateDenied
	}
	g.mu.Unlock()

	message := "Your session has expired. Please log in again."
	if f.Status == 403 {
		message = "Your account is inactive or your session expired."
	}
	g.redirectToLogin(message)
}

func (g *Guard) redirected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loginRedirected
}

func (g *Guard) clearSession() {
	if err := g.session.Clear(); err != nil {
		g.logger.Warn().Err(err).Msg("Failed to clear session")
	}
}

// redirectToLogin navigates to login at most once per run and never while
// already there.
func (g *Guard) redirectToLogin(message string) {
	g.mu.Lock()
	if g.loginRedirected || g.nav.Current() == LoginPath {
		g.mu.Unlock()
		return
	}
	g.loginRedirected = true
	g.mu.Unlock()

	if message != "" {
		g.notifier.Notify(message, notify.LevelWarning)
	}
	g.navigate(LoginPath)
}

func (g *Guard) navigate(path string) {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()

	cancel()
	g.logger.Debug().Str("path", path).Msg("Navigating")
	g.nav.Navigate(path)
}

func (g *Guard) transition(next State) {
	g.mu.Lock()
	prev := g.state
	g.state = next
	g.mu.Unlock()

	if prev != next {
		g.logger.Debug().Str("from", prev.String()).Str("to", next.String()).Msg("Guard state change")
	}
}
