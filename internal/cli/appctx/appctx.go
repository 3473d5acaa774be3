// Package appctx builds the per-run application context: the session, the
// request pipeline, the guard and the notification surface, wired once and
// shared by every command.
package appctx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/reservas-dev/reservas/internal/api"
	"github.com/reservas-dev/reservas/internal/config"
	"github.com/reservas-dev/reservas/internal/guard"
	"github.com/reservas-dev/reservas/internal/notify"
	"github.com/reservas-dev/reservas/internal/pipeline"
	"github.com/reservas-dev/reservas/internal/session"
)

// Context is everything a command needs to talk to the backend
type Context struct {
	Config    *config.Config
	Client    *api.Client
	Session   *session.Store
	Guard     *guard.Guard
	Pipeline  *pipeline.Transport
	Notify    *notify.Surface
	Navigator *TerminalNavigator
	Logger    zerolog.Logger

	Out io.Writer
	Err io.Writer
	In  io.Reader
}

// Options selects the backend and the collaborators of a run. Zero fields
// fall back to the real implementations.
type Options struct {
	Config  *config.Config
	BaseURL string
	Page    string
	Hints   map[string]string

	Storage    session.Storage
	CookieFile string
	Clock      clockwork.Clock
	Logger     zerolog.Logger

	Out io.Writer
	Err io.Writer
	In  io.Reader
}

// New wires a Context and restores the stored session. It waits for any
// background profile recovery so the guard sees the settled session.
func New(ctx context.Context, opts Options) (*Context, error) {
	if opts.Config == nil {
		return nil, errors.New("appctx: config is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}

	client, err := api.New(opts.BaseURL,
		api.WithTimeout(opts.Config.API.Timeout),
		api.WithInsecureTLS(opts.Config.API.InsecureTLS),
		api.WithLogger(opts.Logger),
	)
	if err != nil {
		return nil, err
	}
	base := client.BaseURL()

	storage := opts.Storage
	if storage == nil {
		storage = session.NewKeyringStorage(base.Host)
	}

	jar, err := session.NewCookieJar(opts.CookieFile, opts.Clock)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie jar: %w", err)
	}

	store := session.NewStore(storage, base,
		session.WithCookieJar(jar),
		session.WithClock(opts.Clock),
		session.WithLogger(opts.Logger),
	)

	surface := notify.NewSurface(opts.Err, opts.Config.UI.NotifyTTL, opts.Clock)
	nav := NewTerminalNavigator(opts.Err, opts.Page, opts.Hints)

	g := guard.New(store, client, nav, surface,
		guard.WithClock(opts.Clock),
		guard.WithAdminRedirectDelay(opts.Config.UI.AdminRedirectDelay),
		guard.WithLogger(opts.Logger),
	)

	tr := pipeline.Install(client.HTTPClient(), store, g, opts.Logger)
	store.OnClear(tr.ClearDefaultAuthorization)

	store.Load(ctx, client)
	if err := store.WaitRecovery(ctx); err != nil {
		return nil, err
	}

	return &Context{
		Config:    opts.Config,
		Client:    client,
		Session:   store,
		Guard:     g,
		Pipeline:  tr,
		Notify:    surface,
		Navigator: nav,
		Logger:    opts.Logger,
		Out:       opts.Out,
		Err:       opts.Err,
		In:        opts.In,
	}, nil
}

type contextKey struct{}

// WithContext returns ctx carrying app
func WithContext(ctx context.Context, app *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, app)
}

// FromContext returns the Context stored by WithContext
func FromContext(ctx context.Context) (*Context, error) {
	app, ok := ctx.Value(contextKey{}).(*Context)
	if !ok || app == nil {
		return nil, errors.New("appctx: application context not initialised")
	}
	return app, nil
}
