package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type recordingHandler struct {
	mu       sync.Mutex
	failures []Failure
}

func (r *recordingHandler) HandleAuthFailure(_ context.Context, f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func (r *recordingHandler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

func TestTransport_InjectsBearerToken(t *testing.T) {
	var headers []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Values("Authorization")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{}
	Install(client, staticToken("abc"), nil, zerolog.Nop())

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{"Bearer abc"}, headers)
}

func TestTransport_NoTokenSendsUnauthenticated(t *testing.T) {
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := &http.Client{}
	Install(client, staticToken(""), nil, zerolog.Nop())

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, header)
}

func TestInstall_Idempotent(t *testing.T) {
	var headers []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Values("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer srv.Close()

	handler := &recordingHandler{}
	client := &http.Client{}
	first := Install(client, staticToken("abc"), handler, zerolog.Nop())
	second := Install(client, staticToken("abc"), handler, zerolog.Nop())
	assert.Same(t, first, second)

	resp, err := client.Get(srv.URL + "/api/v1/salas/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{"Bearer abc"}, headers)
	assert.Equal(t, 1, handler.count())
}

func TestTransport_ErrorBodyStillReadable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"Administrator privileges required","code":"insufficient_privilege"}`))
	}))
	defer srv.Close()

	handler := &recordingHandler{}
	client := &http.Client{}
	Install(client, staticToken("abc"), handler, zerolog.Nop())

	resp, err := client.Get(srv.URL + "/api/v1/personas/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "insufficient_privilege")
	assert.Equal(t, 0, handler.count(), "privilege errors keep the session")
}

func TestTransport_DefaultAuthorization(t *testing.T) {
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := &http.Client{}
	tr := Install(client, staticToken(""), nil, zerolog.Nop())
	tr.SetDefaultAuthorization("fallback")

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer fallback", header)

	tr.ClearDefaultAuthorization()
	resp, err = client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, header)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		path   string
		body   string
		want   FailureKind
	}{
		{"401 always authentication", 401, "/api/v1/salas/", `{"detail":"expired"}`, FailureAuthentication},
		{"401 with non-json body", 401, "/api/v1/salas/", `oops`, FailureAuthentication},
		{"403 inactive code", 403, "/api/v1/salas/", `{"detail":"x","code":"account_inactive"}`, FailureAuthentication},
		{"403 expired code", 403, "/api/v1/salas/", `{"code":"token_expired"}`, FailureAuthentication},
		{"403 privilege code", 403, "/api/v1/me-too/", `{"detail":"inactivo","code":"insufficient_privilege"}`, FailureAuthorization},
		{"403 legacy inactive detail", 403, "/api/v1/salas/", `{"detail":"Usuario inactivo"}`, FailureAuthentication},
		{"403 legacy invalid detail", 403, "/api/v1/salas/", `{"detail":"Token inválido"}`, FailureAuthentication},
		{"403 on me endpoint", 403, "/api/v1/personas/me", `{"detail":"Forbidden"}`, FailureAuthentication},
		{"403 plain privilege", 403, "/api/v1/personas/", `{"detail":"No tienes permisos de administrador"}`, FailureAuthorization},
		{"404 unclassified", 404, "/api/v1/salas/9", `{"detail":"not found"}`, FailureNone},
		{"500 unclassified", 500, "/api/v1/salas/", ``, FailureNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Classify(tt.status, http.MethodGet, tt.path, []byte(tt.body))
			assert.Equal(t, tt.want, f.Kind)
			assert.Equal(t, tt.status, f.Status)
		})
	}
}
