package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reservas-dev/reservas/internal/guard"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if err := app.Session.Clear(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}

			app.Notify.Info("Logged out.")
			app.Navigator.Navigate(guard.LoginPath)
			return nil
		},
	}

	return asPage(cmd, "/logout", guard.PageRequirement{})
}
