package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	tokenKey = "token"
	userKey  = "user"

	// CookieLifetime is how long the token cookie copy stays valid
	CookieLifetime = 24 * time.Hour
)

var ErrEmptyToken = errors.New("session: empty token")

// ProfileFetcher loads the profile of the token holder from the backend
type ProfileFetcher interface {
	Me(ctx context.Context) (*UserProfile, error)
}

// authFailure is implemented by errors that mean the credentials are invalid
type authFailure interface {
	AuthenticationFailure() bool
}

// IsAuthenticationFailure reports whether err (or anything it wraps) says the
// backend rejected the credentials themselves.
func IsAuthenticationFailure(err error) bool {
	var af authFailure
	return errors.As(err, &af) && af.AuthenticationFailure()
}

// Store is the single source of truth for the current session. It merges the
// durable storage and the cookie copy of the token.
type Store struct {
	mu       sync.RWMutex
	storage  Storage
	jar      *CookieJar
	baseURL  *url.URL
	clock    clockwork.Clock
	logger   zerolog.Logger
	token    string
	user     *UserProfile
	admin    bool
	onAdmin  []func(bool)
	onClear  []func()
	recovery chan struct{}
}

// Option configures a Store
type Option func(*Store)

// WithCookieJar mirrors the token into jar
func WithCookieJar(jar *CookieJar) Option {
	return func(s *Store) { s.jar = jar }
}

// WithClock overrides the time source used for cookie expiry
func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a session store for the backend at baseURL
func NewStore(storage Storage, baseURL *url.URL, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		baseURL: baseURL,
		clock:   clockwork.NewRealClock(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the session from storage. The token is read from durable
// storage first and from the cookie copy second. Unreadable or corrupt entries
// are logged and treated as absent. When a token exists without a profile, the
// profile is recovered from the backend in the background; see WaitRecovery.
func (s *Store) Load(ctx context.Context, fetcher ProfileFetcher) {
	token, err := s.storage.Get(tokenKey)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn().Err(err).Msg("Failed to read session token, trying cookie copy")
		token = ""
	}
	if token == "" && s.jar != nil {
		if v, ok := s.jar.Get(TokenCookieName); ok {
			token = v
			s.logger.Debug().Msg("Session token recovered from cookie copy")
		}
	}

	var user *UserProfile
	raw, err := s.storage.Get(userKey)
	switch {
	case err == nil:
		var profile UserProfile
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			s.logger.Warn().Err(err).Msg("Discarding corrupt cached profile")
			if err := s.storage.Delete(userKey); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to delete corrupt cached profile")
			}
		} else {
			user = &profile
		}
	case !errors.Is(err, ErrNotFound):
		s.logger.Warn().Err(err).Msg("Failed to read cached profile")
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	changed, admin := s.recomputeAdminLocked()
	s.mu.Unlock()
	s.notifyAdmin(changed, admin)

	if token != "" && user == nil && fetcher != nil {
		done := make(chan struct{})
		s.mu.Lock()
		s.recovery = done
		s.mu.Unlock()
		go s.recoverProfile(ctx, fetcher, done)
	}
}

func (s *Store) recoverProfile(ctx context.Context, fetcher ProfileFetcher, done chan struct{}) {
	defer close(done)

	profile, err := fetcher.Me(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Could not recover profile from server")
		// Only invalid credentials end the session
		if IsAuthenticationFailure(err) {
			if err := s.Clear(); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to clear session")
			}
		}
		return
	}

	if err := s.SetUser(profile); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to store recovered profile")
	}
}

// WaitRecovery blocks until a profile recovery started by Load has finished
func (s *Store) WaitRecovery(ctx context.Context) error {
	s.mu.RLock()
	done := s.recovery
	s.mu.RUnlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetToken stores the token durably and mirrors it into the cookie jar
func (s *Store) SetToken(token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	if err := s.storage.Set(tokenKey, token); err != nil {
		return err
	}

	if s.jar != nil {
		cookie := TokenCookie(s.baseURL, token, s.clock.Now().Add(CookieLifetime))
		if err := s.jar.Set(cookie); err != nil {
			return fmt.Errorf("failed to save token cookie: %w", err)
		}
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// SetUser stores the profile and recomputes the admin flag immediately
func (s *Store) SetUser(profile *UserProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := s.storage.Set(userKey, string(data)); err != nil {
		return err
	}

	copied := *profile

	s.mu.Lock()
	s.user = &copied
	changed, admin := s.recomputeAdminLocked()
	s.mu.Unlock()
	s.notifyAdmin(changed, admin)

	return nil
}

// Clear removes the session everywhere: durable storage, cookie copy and any
// default Authorization header registered through OnClear.
func (s *Store) Clear() error {
	var errs []error

	if err := s.storage.Delete(tokenKey); err != nil {
		errs = append(errs, err)
	}
	if err := s.storage.Delete(userKey); err != nil {
		errs = append(errs, err)
	}
	if s.jar != nil {
		if err := s.jar.Expire(TokenCookieName); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.token = ""
	s.user = nil
	changed, admin := s.recomputeAdminLocked()
	hooks := append([]func(){}, s.onClear...)
	s.mu.Unlock()

	s.notifyAdmin(changed, admin)
	for _, hook := range hooks {
		hook()
	}

	return errors.Join(errs...)
}

// IsAuthenticated reports whether both a token and a profile are present.
// It is a client-side convenience; the backend stays authoritative.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// Token returns the current token, or "" when logged out
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the cached profile
func (s *Store) User() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	copied := *s.user
	return &copied
}

// IsAdmin returns the derived admin flag (strict is_admin == true)
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin
}

// OnAdminChange registers fn to be called whenever the admin flag flips
func (s *Store) OnAdminChange(fn func(admin bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdmin = append(s.onAdmin, fn)
}

// OnClear registers fn to be called after the session is cleared
func (s *Store) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

func (s *Store) recomputeAdminLocked() (bool, bool) {
	admin := s.user.Admin()
	changed := admin != s.admin
	s.admin = admin
	return changed, admin
}

func (s *Store) notifyAdmin(changed, admin bool) {
	if !changed {
		return
	}
	s.mu.RLock()
	listeners := append([]func(bool){}, s.onAdmin...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(admin)
	}
}
