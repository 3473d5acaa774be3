package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reservas-dev/reservas/internal/api"
	"github.com/reservas-dev/reservas/internal/cli/appctx"
	"github.com/reservas-dev/reservas/internal/guard"
)

// NewArticulosCmd creates the articulos command group
func NewArticulosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "articulos",
		Aliases: []string{"articulo"},
		Short:   "Manage bookable items",
	}

	cmd.AddCommand(
		newArticulosListCmd(),
		newArticulosCreateCmd(),
		newArticulosUpdateCmd(),
		newArticulosToggleCmd(),
		newArticulosDeleteCmd(),
	)

	return asPage(cmd, "/articulos", guard.PageRequirement{RequiresAuth: true})
}

func newArticulosListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all items",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			return listArticulos(app)
		},
	}
}

func listArticulos(app *appctx.Context) error {
	articulos, err := app.Client.ListArticulos(pageContext(app))
	if err != nil {
		return report(app, "load items", err)
	}
	if err := beforeRender(app); err != nil {
		return err
	}

	if len(articulos) == 0 {
		fmt.Fprintln(app.Out, "No items found.")
		return nil
	}

	w := newTable(app.Out)
	fmt.Fprintln(w, "ID\tNAME\tAVAILABLE")
	fmt.Fprintln(w, "──\t────\t─────────")
	for _, a := range articulos {
		fmt.Fprintf(w, "%d\t%s\t%s\n", a.ID, a.Nombre, yesNo(a.Disponible))
	}
	return w.Flush()
}

func newArticulosCreateCmd() *cobra.Command {
	var in api.ArticuloInput
	var unavailable bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			in.Disponible = !unavailable
			a, err := app.Client.CreateArticulo(pageContext(app), in)
			if err != nil {
				return report(app, "create the item", err)
			}

			app.Notify.Success(fmt.Sprintf("Item %s created (id %d).", a.Nombre, a.ID))
			return listArticulos(app)
		},
	}

	cmd.Flags().StringVar(&in.Nombre, "nombre", "", "Item name")
	cmd.Flags().BoolVar(&unavailable, "unavailable", false, "Create the item as not available")

	return cmd
}

func newArticulosUpdateCmd() *cobra.Command {
	var nombre string
	var disponible bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "item")
			if err != nil {
				return err
			}

			var in api.ArticuloUpdate
			if cmd.Flags().Changed("nombre") {
				in.Nombre = &nombre
			}
			if cmd.Flags().Changed("disponible") {
				in.Disponible = &disponible
			}

			a, err := app.Client.UpdateArticulo(pageContext(app), id, in)
			if err != nil {
				return report(app, "update the item", err)
			}

			app.Notify.Success(fmt.Sprintf("Item %s updated.", a.Nombre))
			return listArticulos(app)
		},
	}

	cmd.Flags().StringVar(&nombre, "nombre", "", "New item name")
	cmd.Flags().BoolVar(&disponible, "disponible", true, "Whether the item can be booked")

	return cmd
}

func newArticulosToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the availability of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "item")
			if err != nil {
				return err
			}

			a, err := app.Client.ToggleAvailability(pageContext(app), id)
			if err != nil {
				return report(app, "change the item availability", err)
			}

			state := "not available"
			if a.Disponible {
				state = "available"
			}
			app.Notify.Success(fmt.Sprintf("Item %s is now %s.", a.Nombre, state))
			return listArticulos(app)
		},
	}
}

func newArticulosDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "item")
			if err != nil {
				return err
			}

			ok, err := confirm(app, fmt.Sprintf("Delete item %d", id), yes)
			if err != nil || !ok {
				return err
			}

			if err := app.Client.DeleteArticulo(pageContext(app), id); err != nil {
				return report(app, "delete the item", err)
			}

			app.Notify.Success(fmt.Sprintf("Item %d deleted.", id))
			return listArticulos(app)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
