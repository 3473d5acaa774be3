package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reservas-dev/reservas/internal/cli/appctx"
	"github.com/reservas-dev/reservas/internal/guard"
)

const (
	pageAnnotation = "reservas.page"
	authAnnotation = "reservas.auth"

	authUser  = "user"
	authAdmin = "admin"
)

// asPage marks cmd (and its subcommands) as the page at path
func asPage(cmd *cobra.Command, path string, req guard.PageRequirement) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[pageAnnotation] = path
	switch {
	case req.RequiresAdmin:
		cmd.Annotations[authAnnotation] = authAdmin
	case req.RequiresAuth:
		cmd.Annotations[authAnnotation] = authUser
	}
	return cmd
}

// PageOf returns the page a command belongs to, looking at its parents when
// the command itself declares none.
func PageOf(cmd *cobra.Command) (guard.Page, bool) {
	for c := cmd; c != nil; c = c.Parent() {
		path, ok := c.Annotations[pageAnnotation]
		if !ok {
			continue
		}
		auth := c.Annotations[authAnnotation]
		return guard.Page{
			Path: path,
			Requirement: guard.PageRequirement{
				RequiresAuth:  auth == authUser || auth == authAdmin,
				RequiresAdmin: auth == authAdmin,
			},
		}, true
	}
	return guard.Page{}, false
}

// Hints maps every page to the command that shows it
var Hints = map[string]string{
	guard.LoginPath:   "reservas login",
	guard.DefaultPath: "reservas dashboard",
}

// appFrom returns the application context of a guarded command
func appFrom(cmd *cobra.Command) (*appctx.Context, error) {
	return appctx.FromContext(cmd.Context())
}

// pageContext is the context requests of the page run under. It ends as soon
// as the guard navigates away.
func pageContext(app *appctx.Context) context.Context {
	return app.Guard.Context()
}

// beforeRender refuses to draw a page the guard has already left
func beforeRender(app *appctx.Context) error {
	if app.Guard.Context().Err() != nil {
		return guard.ErrRedirected
	}
	return nil
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
