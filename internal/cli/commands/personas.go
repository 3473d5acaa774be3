package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reservas-dev/reservas/internal/api"
	"github.com/reservas-dev/reservas/internal/cli/appctx"
	"github.com/reservas-dev/reservas/internal/guard"
)

// NewPersonasCmd creates the personas command group. Administrators only.
func NewPersonasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "personas",
		Aliases: []string{"persona"},
		Short:   "Manage user accounts (administrators only)",
	}

	cmd.AddCommand(newPersonasListCmd(), newPersonasCreateCmd(), newPersonasUpdateCmd(), newPersonasDeleteCmd())

	return asPage(cmd, "/personas", guard.PageRequirement{RequiresAuth: true, RequiresAdmin: true})
}

func newPersonasListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			return listPersonas(app)
		},
	}
}

func listPersonas(app *appctx.Context) error {
	personas, err := app.Client.ListPersonas(pageContext(app))
	if err != nil {
		return report(app, "load users", err)
	}
	if err := beforeRender(app); err != nil {
		return err
	}

	if len(personas) == 0 {
		fmt.Fprintln(app.Out, "No users found.")
		return nil
	}

	w := newTable(app.Out)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tADMIN\tACTIVE")
	fmt.Fprintln(w, "──\t────\t─────\t─────\t──────")
	for _, p := range personas {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Nombre, p.Email, yesNo(p.IsAdmin), yesNo(p.IsActive))
	}
	return w.Flush()
}

func newPersonasCreateCmd() *cobra.Command {
	var in api.PersonaCreate
	var inactive bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			in.IsActive = !inactive
			p, err := app.Client.CreatePersona(pageContext(app), in)
			if err != nil {
				return report(app, "create the user", err)
			}

			app.Notify.Success(fmt.Sprintf("User %s created (id %d).", p.Nombre, p.ID))
			return listPersonas(app)
		},
	}

	cmd.Flags().StringVar(&in.Nombre, "nombre", "", "Full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Initial password (min 6 characters)")
	cmd.Flags().BoolVar(&in.IsAdmin, "admin", false, "Grant administrator privileges")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the account disabled")

	return cmd
}

func newPersonasUpdateCmd() *cobra.Command {
	var nombre, email, password string
	var admin, active bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}

			var in api.PersonaUpdate
			flags := cmd.Flags()
			if flags.Changed("nombre") {
				in.Nombre = &nombre
			}
			if flags.Changed("email") {
				in.Email = &email
			}
			if flags.Changed("password") {
				in.Password = &password
			}
			if flags.Changed("admin") {
				in.IsAdmin = &admin
			}
			if flags.Changed("active") {
				in.IsActive = &active
			}

			p, err := app.Client.UpdatePersona(pageContext(app), id, in)
			if err != nil {
				return report(app, "update the user", err)
			}

			// Editing oneself may change what the cached profile says
			if me := app.Session.User(); me != nil && me.ID == p.ID {
				if profile, err := app.Client.Me(pageContext(app)); err == nil {
					_ = app.Session.SetUser(profile)
				}
			}

			app.Notify.Success(fmt.Sprintf("User %s updated.", p.Nombre))
			return listPersonas(app)
		},
	}

	cmd.Flags().StringVar(&nombre, "nombre", "", "New full name")
	cmd.Flags().StringVar(&email, "email", "", "New email address")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	cmd.Flags().BoolVar(&admin, "admin", false, "Administrator privileges")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the account is enabled")

	return cmd
}

func newPersonasDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}

			ok, err := confirm(app, fmt.Sprintf("Delete user %d", id), yes)
			if err != nil || !ok {
				return err
			}

			if err := app.Client.DeletePersona(pageContext(app), id); err != nil {
				return report(app, "delete the user", err)
			}

			app.Notify.Success(fmt.Sprintf("User %d deleted.", id))
			return listPersonas(app)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
