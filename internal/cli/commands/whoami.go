package commands

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/reservas-dev/reservas/internal/guard"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := beforeRender(app); err != nil {
				return err
			}

			user := app.Session.User()
			w := newTable(app.Out)
			fmt.Fprintf(w, "Server:\t%s\n", app.Client.BaseURL())
			fmt.Fprintf(w, "Name:\t%s\n", user.Nombre)
			fmt.Fprintf(w, "Email:\t%s\n", user.Email)
			fmt.Fprintf(w, "Role:\t%s\n", user.Role())
			if exp, ok := tokenExpiry(app.Session.Token()); ok {
				fmt.Fprintf(w, "Session expires:\t%s (in %s)\n", exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Minute))
			}
			return w.Flush()
		},
	}

	return asPage(cmd, "/whoami", guard.PageRequirement{RequiresAuth: true})
}

// tokenExpiry reads the exp claim without verifying the signature. It is
// for display only; the server decides whether the token is valid.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
