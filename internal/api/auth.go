package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/reservas-dev/reservas/internal/session"
)

// LoginResponse is the body of a successful login
type LoginResponse struct {
	AccessToken string               `json:"access_token"`
	TokenType   string               `json:"token_type"`
	User        *session.UserProfile `json:"user"`
}

// Login exchanges credentials for a token. Nothing is persisted here: the
// caller stores the token and profile once both are known to be complete.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	const op = "login"

	form := LoginForm{Email: email, Password: password}
	if err := Validate(op, form); err != nil {
		return nil, err
	}

	var resp LoginResponse
	err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/personas/web-login", body: form}, &resp)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && apiErr.Detail == "" {
			apiErr.Detail = "invalid email or password"
		}
		return nil, err
	}

	if resp.AccessToken == "" {
		return nil, &Error{Op: op, Kind: KindMalformedResponse, Detail: "missing access token"}
	}
	if err := resp.User.Validate(); err != nil {
		return nil, &Error{Op: op, Kind: KindMalformedResponse, Err: ErrIncompleteUser}
	}

	return &resp, nil
}

// Me returns the profile of the token holder. It validates the token live.
func (c *Client) Me(ctx context.Context) (*session.UserProfile, error) {
	var profile session.UserProfile
	if err := c.do(ctx, request{op: "me", method: http.MethodGet, path: "/personas/me"}, &profile); err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, &Error{Op: "me", Kind: KindMalformedResponse, Err: err}
	}
	return &profile, nil
}
