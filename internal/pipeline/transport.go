// Package pipeline wraps every backend call: the bearer token goes out on
// each request and credential failures coming back are routed to a single
// handler.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 1 << 20
)

// TokenSource yields the current session token, or "" when logged out
type TokenSource interface {
	Token() string
}

// AuthFailureHandler is told about every response classified as an
// authentication failure, exactly once per response.
type AuthFailureHandler interface {
	HandleAuthFailure(ctx context.Context, f Failure)
}

// Transport is an http.RoundTripper injecting credentials and inspecting
// error responses.
type Transport struct {
	base    http.RoundTripper
	tokens  TokenSource
	handler AuthFailureHandler
	logger  zerolog.Logger

	mu          sync.RWMutex
	defaultAuth string
}

// New wraps base. A nil base uses http.DefaultTransport.
func New(base http.RoundTripper, tokens TokenSource, handler AuthFailureHandler, logger zerolog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:    base,
		tokens:  tokens,
		handler: handler,
		logger:  logger,
	}
}

// Install attaches the pipeline to client. Installing twice is a no-op: the
// already installed Transport is returned untouched.
func Install(client *http.Client, tokens TokenSource, handler AuthFailureHandler, logger zerolog.Logger) *Transport {
	if t, ok := client.Transport.(*Transport); ok {
		return t
	}
	t := New(client.Transport, tokens, handler, logger)
	client.Transport = t
	return t
}

// SetDefaultAuthorization sets a token used when the TokenSource has none
func (t *Transport) SetDefaultAuthorization(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.defaultAuth = token
}

// ClearDefaultAuthorization drops the default token
func (t *Transport) ClearDefaultAuthorization() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.defaultAuth = ""
}

func (t *Transport) token() string {
	if t.tokens != nil {
		if tok := t.tokens.Token(); tok != "" {
			return tok
		}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.defaultAuth
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	if tok := t.token(); tok != "" {
		out.Header.Set("Authorization", fmt.Sprintf("Bearer %s", tok))
	}
	if out.Header.Get(requestIDHeader) == "" {
		out.Header.Set(requestIDHeader, uuid.NewString())
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(out)
	if err != nil {
		t.logger.Debug().Err(err).
			Str("method", out.Method).
			Str("path", out.URL.Path).
			Str("request_id", out.Header.Get(requestIDHeader)).
			Msg("HTTP request failed")
		return nil, err
	}

	t.logger.Debug().
		Str("method", out.Method).
		Str("path", out.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", out.Header.Get(requestIDHeader)).
		Msg("HTTP request")

	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	// Buffer the body so the caller can still read the error payload
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if readErr != nil {
		t.logger.Warn().Err(readErr).Msg("Failed to read error response body")
	}

	failure := Classify(resp.StatusCode, out.Method, out.URL.Path, body)
	if failure.Kind == FailureAuthentication && t.handler != nil {
		t.logger.Info().
			Int("status", failure.Status).
			Str("code", failure.Code).
			Str("path", failure.Path).
			Msg("Credentials rejected by backend")
		t.handler.HandleAuthFailure(req.Context(), failure)
	}

	return resp, nil
}
