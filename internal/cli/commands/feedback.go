package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"

	"github.com/reservas-dev/reservas/internal/api"
	"github.com/reservas-dev/reservas/internal/cli/appctx"
	"github.com/reservas-dev/reservas/internal/guard"
)

// ErrReported means the failure was already shown to the user as a
// notification. The process still exits non-zero.
var ErrReported = errors.New("error already reported")

// report turns a failed action into a notification. Credential failures are
// not shown again: the request pipeline already notified and redirected.
func report(app *appctx.Context, action string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) && app.Guard.Context().Err() != nil {
		return guard.ErrRedirected
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		app.Notify.Error(fmt.Sprintf("Could not %s: %v", action, err))
		return ErrReported
	}

	switch apiErr.Kind {
	case api.KindAuthentication:
		return guard.ErrRedirected
	case api.KindAuthorization:
		app.Notify.Error(fmt.Sprintf("You do not have permission to %s. %s", action, apiErr.Message()))
	case api.KindValidation:
		app.Notify.Warning(fmt.Sprintf("Could not %s, check the input:", action))
		for _, f := range apiErr.Fields {
			app.Notify.Warning("  " + f.String())
		}
		if len(apiErr.Fields) == 0 {
			app.Notify.Warning("  " + apiErr.Message())
		}
	case api.KindTransient:
		app.Notify.Error(fmt.Sprintf("Could not %s: the server is unreachable or failed (%s)", action, apiErr.Message()))
	default:
		app.Notify.Error(fmt.Sprintf("Could not %s: %s", action, apiErr.Message()))
	}

	app.Logger.Debug().Err(err).Str("action", action).Msg("Action failed")
	return ErrReported
}

// confirm asks before a destructive action unless yes is set
func confirm(app *appctx.Context, label string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}

	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     io.NopCloser(app.In),
		Stdout:    nopWriteCloser{app.Err},
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			app.Notify.Info("Cancelled.")
			return false, nil
		}
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return true, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
