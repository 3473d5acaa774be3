package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/reservas-dev/reservas/internal/cli/appctx"
	"github.com/reservas-dev/reservas/internal/cli/commands"
	cliconfig "github.com/reservas-dev/reservas/internal/cli/config"
	"github.com/reservas-dev/reservas/internal/cli/serverselect"
	"github.com/reservas-dev/reservas/internal/cli/userconfig"
	"github.com/reservas-dev/reservas/internal/config"
	"github.com/reservas-dev/reservas/internal/guard"
	"github.com/reservas-dev/reservas/internal/logger"
	"github.com/reservas-dev/reservas/internal/session"
)

var version = "dev" // Will be set during build

// Deps are the collaborators of a run. Zero fields use the real ones: the
// environment configuration, the OS keyring and the per-user cookie file.
type Deps struct {
	Config     *config.Config
	Storage    session.Storage
	CookieFile string
	Clock      clockwork.Clock
}

// NewRootCmd builds the command tree
func NewRootCmd(deps Deps) *cobra.Command {
	var server string
	var quiet bool

	rootCmd := &cobra.Command{
		Use:   "reservas",
		Short: "Reservas - room and item reservations",
		Long: `Reservas CLI - administer rooms, items, people and reservations.

Every command is a page: it checks the stored session against the server
before showing anything, and sends you to 'reservas login' when it is gone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, deps, server, quiet)
		},
	}

	rootCmd.PersistentFlags().StringVar(&server, "server", "", "Server alias from reservas.yaml or API URL")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Disable logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reservas version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewDashboardCmd())
	rootCmd.AddCommand(commands.NewPersonasCmd())
	rootCmd.AddCommand(commands.NewSalasCmd())
	rootCmd.AddCommand(commands.NewArticulosCmd())
	rootCmd.AddCommand(commands.NewReservasCmd())

	return rootCmd
}

// setup configures logging and, for page commands, wires the application
// context and runs the guard before the command itself.
func setup(cmd *cobra.Command, deps Deps, server string, quiet bool) error {
	cfg := deps.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	logger.InitWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Enabled && !quiet)
	log := logger.GetLogger()

	page, ok := commands.PageOf(cmd)
	if !ok {
		return nil
	}

	project, err := cliconfig.LoadFromCurrentDir()
	if err != nil {
		if !errors.Is(err, cliconfig.ErrNotFound) {
			return err
		}
		project = nil
	}

	baseURL, err := serverselect.ResolveURL(project, server, cfg.API.URL)
	if err != nil {
		return err
	}

	cookieFile := deps.CookieFile
	if cookieFile == "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid API URL %q: %w", baseURL, err)
		}
		if cookieFile, err = userconfig.CookieJarPath(u.Host); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	app, err := appctx.New(ctx, appctx.Options{
		Config:     cfg,
		BaseURL:    baseURL,
		Page:       page.Path,
		Hints:      commands.Hints,
		Storage:    deps.Storage,
		CookieFile: cookieFile,
		Clock:      deps.Clock,
		Logger:     log,
		Out:        cmd.OutOrStdout(),
		Err:        cmd.ErrOrStderr(),
		In:         cmd.InOrStdin(),
	})
	if err != nil {
		return err
	}
	cmd.SetContext(appctx.WithContext(ctx, app))

	state, err := app.Guard.Enter(ctx, page)
	log.Debug().Str("page", page.Path).Str("state", state.String()).Msg("Page guard finished")
	return err
}

// silent reports whether err was already shown to the user
func silent(err error) bool {
	return errors.Is(err, guard.ErrRedirected) ||
		errors.Is(err, guard.ErrAccessDenied) ||
		errors.Is(err, commands.ErrReported)
}

// Run executes the command tree with args and prints unexpected errors
func Run(ctx context.Context, rootCmd *cobra.Command, args []string, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !silent(err) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return err
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return Run(ctx, NewRootCmd(Deps{}), os.Args[1:], os.Stderr)
}
