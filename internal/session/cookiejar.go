package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TokenCookieName is the cookie the backend reads on plain navigations
const TokenCookieName = "token"

type storedCookie struct {
	Value    string        `json:"value"`
	Path     string        `json:"path"`
	Expires  time.Time     `json:"expires"`
	Secure   bool          `json:"secure"`
	HttpOnly bool          `json:"http_only"`
	SameSite http.SameSite `json:"same_site"`
}

// CookieJar holds the cookie copy of the session for one backend host. Its
// contents survive between runs in a JSON file and expired cookies are never
// returned. Only the Session Store writes to it.
type CookieJar struct {
	mu      sync.Mutex
	file    string
	clock   clockwork.Clock
	cookies map[string]storedCookie
}

// NewCookieJar loads the jar from file. An empty file path keeps the jar in
// memory only.
func NewCookieJar(file string, clock clockwork.Clock) (*CookieJar, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	jar := &CookieJar{
		file:    file,
		clock:   clock,
		cookies: make(map[string]storedCookie),
	}

	if file == "" {
		return jar, nil
	}

	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return jar, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	if err := json.Unmarshal(data, &jar.cookies); err != nil {
		// A corrupt jar is dropped rather than blocking every command
		jar.cookies = make(map[string]storedCookie)
	}

	return jar, nil
}

// TokenCookie builds the cookie mirroring the session token. It is Secure and
// SameSite=Strict when the backend is served over https, SameSite=Lax otherwise.
func TokenCookie(baseURL *url.URL, token string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		SameSite: http.SameSiteLaxMode,
	}
	if baseURL.Scheme == "https" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}
	return cookie
}

// Get returns the value of a live cookie
func (j *CookieJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	c, ok := j.cookies[name]
	if !ok {
		return "", false
	}
	if !c.Expires.IsZero() && !c.Expires.After(j.clock.Now()) {
		return "", false
	}
	return c.Value, true
}

// Set stores a cookie and persists the jar
func (j *CookieJar) Set(cookie *http.Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.setLocked(cookie)
	return j.saveLocked()
}

// Expire removes a cookie and persists the jar
func (j *CookieJar) Expire(name string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	delete(j.cookies, name)
	return j.saveLocked()
}

func (j *CookieJar) setLocked(c *http.Cookie) {
	now := j.clock.Now()

	expires := c.Expires
	if c.MaxAge > 0 {
		expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	}

	if c.MaxAge < 0 || (!expires.IsZero() && !expires.After(now)) {
		delete(j.cookies, c.Name)
		return
	}

	j.cookies[c.Name] = storedCookie{
		Value:    c.Value,
		Path:     c.Path,
		Expires:  expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: c.SameSite,
	}
}

func (j *CookieJar) saveLocked() error {
	if j.file == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(j.file), 0700); err != nil {
		return fmt.Errorf("failed to create cookie directory: %w", err)
	}

	data, err := json.MarshalIndent(j.cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := os.WriteFile(j.file, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}
