package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/reservas-dev/reservas/internal/api"
	"github.com/reservas-dev/reservas/internal/cli/appctx"
	"github.com/reservas-dev/reservas/internal/guard"
)

// passwordReader reads a password without echo. Replaced in tests.
var passwordReader = func(fd int) ([]byte, error) {
	return term.ReadPassword(fd)
}

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the reservations server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			return runLogin(app, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set RESERVAS_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set RESERVAS_PASSWORD, will prompt if not provided)")

	return asPage(cmd, guard.LoginPath, guard.PageRequirement{})
}

func runLogin(app *appctx.Context, email, password string) error {
	// The guard already validated a stored session and moved on
	if app.Guard.State() == guard.StateGranted {
		user := app.Session.User()
		app.Notify.Info(fmt.Sprintf("Already logged in as %s. Run 'reservas logout' to switch accounts.", user.Email))
		return nil
	}

	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("RESERVAS_EMAIL")
	}
	if password == "" {
		password = os.Getenv("RESERVAS_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or RESERVAS_EMAIL env var)")
	}

	if password == "" {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or RESERVAS_PASSWORD env var)")
		}
		fmt.Fprint(app.Err, "Password: ")
		bytePassword, err := passwordReader(fd)
		fmt.Fprintln(app.Err)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(bytePassword)
	}

	app.Logger.Debug().Str("server", app.Client.BaseURL().String()).Msg("Logging in")

	resp, err := app.Client.Login(pageContext(app), email, password)
	if err != nil {
		return reportLoginFailure(app, err)
	}

	if err := saveSession(app, resp); err != nil {
		return err
	}

	app.Notify.Success(fmt.Sprintf("Welcome, %s!", resp.User.Nombre))
	fmt.Fprintf(app.Out, "  User: %s (%s)\n", resp.User.Nombre, resp.User.Email)
	fmt.Fprintf(app.Out, "  Role: %s\n", resp.User.Role())

	app.Navigator.Navigate(guard.DefaultPath)
	return nil
}

// saveSession persists a successful login. A half-written session is cleared
// again so the next run does not start from a token without a profile.
func saveSession(app *appctx.Context, resp *api.LoginResponse) error {
	if err := app.Session.SetToken(resp.AccessToken); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	if err := app.Session.SetUser(resp.User); err != nil {
		if clearErr := app.Session.Clear(); clearErr != nil {
			app.Logger.Warn().Err(clearErr).Msg("Failed to clear partial session")
		}
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// reportLoginFailure shows the backend's message verbatim. Unlike other
// pages, a rejected login is not a session expiry.
func reportLoginFailure(app *appctx.Context, err error) error {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		app.Notify.Error(fmt.Sprintf("Login failed: %v", err))
		return ErrReported
	}

	switch apiErr.Kind {
	case api.KindValidation:
		return report(app, "log in", err)
	case api.KindTransient:
		app.Notify.Error("Login failed: the server is unreachable. Try again later.")
	default:
		app.Notify.Error("Login failed: " + apiErr.Message())
	}
	return ErrReported
}
