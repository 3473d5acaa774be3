package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reservas-dev/reservas/internal/api"
	"github.com/reservas-dev/reservas/internal/cli/appctx"
	"github.com/reservas-dev/reservas/internal/guard"
)

// NewSalasCmd creates the salas command group
func NewSalasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "salas",
		Aliases: []string{"sala"},
		Short:   "Manage rooms",
	}

	cmd.AddCommand(newSalasListCmd(), newSalasCreateCmd(), newSalasUpdateCmd(), newSalasDeleteCmd())

	return asPage(cmd, "/salas", guard.PageRequirement{RequiresAuth: true})
}

func newSalasListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all rooms",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			return listSalas(app)
		},
	}
}

func listSalas(app *appctx.Context) error {
	salas, err := app.Client.ListSalas(pageContext(app))
	if err != nil {
		return report(app, "load rooms", err)
	}
	if err := beforeRender(app); err != nil {
		return err
	}

	if len(salas) == 0 {
		fmt.Fprintln(app.Out, "No rooms found.")
		fmt.Fprintln(app.Out, "\nCreate one with: reservas salas create --nombre <name> --capacidad <n>")
		return nil
	}

	w := newTable(app.Out)
	fmt.Fprintln(w, "ID\tNAME\tCAPACITY")
	fmt.Fprintln(w, "──\t────\t────────")
	for _, s := range salas {
		fmt.Fprintf(w, "%d\t%s\t%d\n", s.ID, s.Nombre, s.Capacidad)
	}
	return w.Flush()
}

func newSalasCreateCmd() *cobra.Command {
	var in api.SalaInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			s, err := app.Client.CreateSala(pageContext(app), in)
			if err != nil {
				return report(app, "create the room", err)
			}

			app.Notify.Success(fmt.Sprintf("Room %s created (id %d).", s.Nombre, s.ID))
			return listSalas(app)
		},
	}

	cmd.Flags().StringVar(&in.Nombre, "nombre", "", "Room name")
	cmd.Flags().IntVar(&in.Capacidad, "capacidad", 0, "Maximum number of people (1-1000)")

	return cmd
}

func newSalasUpdateCmd() *cobra.Command {
	var nombre string
	var capacidad int

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "room")
			if err != nil {
				return err
			}

			var in api.SalaUpdate
			if cmd.Flags().Changed("nombre") {
				in.Nombre = &nombre
			}
			if cmd.Flags().Changed("capacidad") {
				in.Capacidad = &capacidad
			}

			s, err := app.Client.UpdateSala(pageContext(app), id, in)
			if err != nil {
				return report(app, "update the room", err)
			}

			app.Notify.Success(fmt.Sprintf("Room %s updated.", s.Nombre))
			return listSalas(app)
		},
	}

	cmd.Flags().StringVar(&nombre, "nombre", "", "New room name")
	cmd.Flags().IntVar(&capacidad, "capacidad", 0, "New capacity")

	return cmd
}

func newSalasDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a room",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "room")
			if err != nil {
				return err
			}

			ok, err := confirm(app, fmt.Sprintf("Delete room %d", id), yes)
			if err != nil || !ok {
				return err
			}

			if err := app.Client.DeleteSala(pageContext(app), id); err != nil {
				return report(app, "delete the room", err)
			}

			app.Notify.Success(fmt.Sprintf("Room %d deleted.", id))
			return listSalas(app)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
