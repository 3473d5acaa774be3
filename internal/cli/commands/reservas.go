package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/reservas-dev/reservas/internal/api"
	"github.com/reservas-dev/reservas/internal/cli/appctx"
	"github.com/reservas-dev/reservas/internal/guard"
)

// NewReservasCmd creates the reservas command group
func NewReservasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reservas",
		Aliases: []string{"reserva"},
		Short:   "Manage reservations",
	}

	cmd.AddCommand(
		newReservasListCmd(),
		newReservasCreateCmd(),
		newReservasUpdateCmd(),
		newReservasDeleteCmd(),
		newReservaArticulosCmd(),
	)

	return asPage(cmd, "/reservas", guard.PageRequirement{RequiresAuth: true})
}

func newReservasListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all reservations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			return listReservas(app)
		},
	}
}

func listReservas(app *appctx.Context) error {
	reservas, err := app.Client.ListReservas(pageContext(app))
	if err != nil {
		return report(app, "load reservations", err)
	}
	if err := beforeRender(app); err != nil {
		return err
	}

	if len(reservas) == 0 {
		fmt.Fprintln(app.Out, "No reservations found.")
		return nil
	}

	w := newTable(app.Out)
	fmt.Fprintln(w, "ID\tPERSONA\tBOOKS\tSTART\tEND")
	fmt.Fprintln(w, "──\t───────\t─────\t─────\t───")
	for _, r := range reservas {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", r.ID, r.IDPersona, r.Target(), r.FechaHoraInicio, r.FechaHoraFin)
	}
	return w.Flush()
}

// reservaFlags are the flags shared by create and update
type reservaFlags struct {
	persona  int
	sala     int
	articulo int
	inicio   string
	fin      string
}

func (f *reservaFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.persona, "persona", 0, "Id of the person booking")
	cmd.Flags().IntVar(&f.sala, "sala", 0, "Id of the room to book")
	cmd.Flags().IntVar(&f.articulo, "articulo", 0, "Id of the item to book")
	cmd.Flags().StringVar(&f.inicio, "inicio", "", "Start, e.g. 2025-03-01T10:00")
	cmd.Flags().StringVar(&f.fin, "fin", "", "End, e.g. 2025-03-01T12:00")
	cmd.MarkFlagsMutuallyExclusive("sala", "articulo")
}

func parseOptionalTimestamp(cmd *cobra.Command, name, value string) (*api.Timestamp, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	ts, err := api.ParseTimestamp(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &ts, nil
}

func newReservasCreateCmd() *cobra.Command {
	var f reservaFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Book a room or an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			in := api.ReservaInput{IDPersona: f.persona}
			if f.persona == 0 {
				if me := app.Session.User(); me != nil {
					in.IDPersona = me.ID
				}
			}
			if cmd.Flags().Changed("sala") {
				in.IDSala = &f.sala
			}
			if cmd.Flags().Changed("articulo") {
				in.IDArticulo = &f.articulo
			}

			inicio, err := parseOptionalTimestamp(cmd, "inicio", f.inicio)
			if err != nil {
				return err
			}
			fin, err := parseOptionalTimestamp(cmd, "fin", f.fin)
			if err != nil {
				return err
			}
			if inicio != nil {
				in.FechaHoraInicio = *inicio
			}
			if fin != nil {
				in.FechaHoraFin = *fin
			}

			r, err := app.Client.CreateReserva(pageContext(app), in)
			if err != nil {
				return report(app, "create the reservation", err)
			}

			app.Notify.Success(fmt.Sprintf("Reservation %d created for %s.", r.ID, r.Target()))
			return listReservas(app)
		},
	}

	f.register(cmd)
	return cmd
}

func newReservasUpdateCmd() *cobra.Command {
	var f reservaFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "reservation")
			if err != nil {
				return err
			}

			var in api.ReservaUpdate
			if cmd.Flags().Changed("persona") {
				in.IDPersona = &f.persona
			}
			if cmd.Flags().Changed("sala") {
				in.IDSala = &f.sala
			}
			if cmd.Flags().Changed("articulo") {
				in.IDArticulo = &f.articulo
			}
			if in.FechaHoraInicio, err = parseOptionalTimestamp(cmd, "inicio", f.inicio); err != nil {
				return err
			}
			if in.FechaHoraFin, err = parseOptionalTimestamp(cmd, "fin", f.fin); err != nil {
				return err
			}

			r, err := app.Client.UpdateReserva(pageContext(app), id, in)
			if err != nil {
				return report(app, "update the reservation", err)
			}

			app.Notify.Success(fmt.Sprintf("Reservation %d updated.", r.ID))
			return listReservas(app)
		},
	}

	f.register(cmd)
	return cmd
}

func newReservasDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Cancel a reservation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "reservation")
			if err != nil {
				return err
			}

			ok, err := confirm(app, fmt.Sprintf("Delete reservation %d", id), yes)
			if err != nil || !ok {
				return err
			}

			if err := app.Client.DeleteReserva(pageContext(app), id); err != nil {
				return report(app, "delete the reservation", err)
			}

			app.Notify.Success(fmt.Sprintf("Reservation %d deleted.", id))
			return listReservas(app)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// newReservaArticulosCmd manages the items attached to a room reservation
func newReservaArticulosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "articulos",
		Short: "Manage the items attached to a room reservation",
	}

	cmd.AddCommand(newReservaArticulosListCmd(), newReservaArticulosAddCmd(), newReservaArticulosRemoveCmd())
	return cmd
}

func listReservaArticulos(app *appctx.Context, reservaID int) error {
	var items []api.ReservaArticulo
	var reserva *api.Reserva

	g, ctx := errgroup.WithContext(pageContext(app))
	g.Go(func() error {
		var err error
		items, err = app.Client.ListReservaArticulos(ctx, reservaID)
		return err
	})
	g.Go(func() error {
		var err error
		reserva, err = app.Client.GetReserva(ctx, reservaID)
		return err
	})
	if err := g.Wait(); err != nil {
		return report(app, "load the reservation items", err)
	}

	var avail []api.ArticuloDisponibilidad
	if reserva.IDSala != nil {
		var err error
		avail, err = app.Client.ArticuloAvailability(pageContext(app), reserva.FechaHoraInicio, reserva.FechaHoraFin, reservaID)
		if err != nil {
			return report(app, "load item availability", err)
		}
	}
	if err := beforeRender(app); err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Fprintf(app.Out, "Reservation %d has no items.\n", reservaID)
	} else {
		w := newTable(app.Out)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tQUANTITY")
		fmt.Fprintln(w, "──\t────\t────────\t────────")
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", it.ID, it.Nombre, orDash(it.Categoria), it.Cantidad)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if reserva.IDSala == nil {
		return nil
	}

	fmt.Fprintf(app.Out, "\nAvailable to add (%s to %s):\n", reserva.FechaHoraInicio, reserva.FechaHoraFin)
	if len(avail) == 0 {
		fmt.Fprintln(app.Out, "No items available.")
		return nil
	}
	w := newTable(app.Out)
	fmt.Fprintln(w, "ID\tNAME\tADD\tTOTAL")
	for _, a := range avail {
		add := fmt.Sprintf("%d", a.DisponibleParaAgregar)
		if a.DisponibleParaAgregar <= 0 {
			add = "none left"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", a.ID, a.Nombre, add, a.CantidadTotal)
	}
	return w.Flush()
}

// checkStock refuses an attach the reservation's period cannot supply. Items
// missing from the availability list are left for the backend to judge.
func checkStock(app *appctx.Context, reservaID, articuloID, cantidad int, replace bool) error {
	ctx := pageContext(app)
	reserva, err := app.Client.GetReserva(ctx, reservaID)
	if err != nil {
		return err
	}
	if reserva.IDSala == nil {
		return nil
	}

	avail, err := app.Client.ArticuloAvailability(ctx, reserva.FechaHoraInicio, reserva.FechaHoraFin, reservaID)
	if err != nil {
		return err
	}
	for _, a := range avail {
		if a.ID != articuloID {
			continue
		}
		limit := a.DisponibleParaAgregar
		if replace {
			limit = a.CantidadDisponible
		}
		if cantidad > limit {
			return &api.Error{Op: "attach the item", Kind: api.KindValidation, Fields: []api.FieldError{{
				Field:   "cantidad",
				Message: fmt.Sprintf("only %d more unit(s) of %s are free in this period", limit, a.Nombre),
			}}}
		}
	}
	return nil
}

func newReservaArticulosListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls <reserva-id>",
		Aliases: []string{"list"},
		Short:   "List the items of a reservation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "reservation")
			if err != nil {
				return err
			}
			return listReservaArticulos(app, id)
		},
	}
}

func newReservaArticulosAddCmd() *cobra.Command {
	var cantidad int
	var replace bool

	cmd := &cobra.Command{
		Use:   "add <reserva-id> <articulo-id>",
		Short: "Attach an item to a room reservation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			reservaID, err := parseID(args[0], "reservation")
			if err != nil {
				return err
			}
			articuloID, err := parseID(args[1], "item")
			if err != nil {
				return err
			}

			if err := checkStock(app, reservaID, articuloID, cantidad, replace); err != nil {
				return report(app, "attach the item", err)
			}

			msg, err := app.Client.AddReservaArticulo(pageContext(app), reservaID, articuloID, cantidad, replace)
			if err != nil {
				return report(app, "attach the item", err)
			}

			app.Notify.Success(msg.Message)
			return listReservaArticulos(app, reservaID)
		},
	}

	cmd.Flags().IntVar(&cantidad, "cantidad", 1, "Quantity")
	cmd.Flags().BoolVar(&replace, "replace", false, "Set the quantity instead of adding to it")

	return cmd
}

func newReservaArticulosRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <reserva-id> <articulo-id>",
		Aliases: []string{"delete"},
		Short:   "Detach an item from a reservation",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			reservaID, err := parseID(args[0], "reservation")
			if err != nil {
				return err
			}
			articuloID, err := parseID(args[1], "item")
			if err != nil {
				return err
			}

			ok, err := confirm(app, fmt.Sprintf("Remove item %d from reservation %d", articuloID, reservaID), yes)
			if err != nil || !ok {
				return err
			}

			if err := app.Client.RemoveReservaArticulo(pageContext(app), reservaID, articuloID); err != nil {
				return report(app, "remove the item", err)
			}

			app.Notify.Success(fmt.Sprintf("Item %d removed from reservation %d.", articuloID, reservaID))
			return listReservaArticulos(app, reservaID)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
