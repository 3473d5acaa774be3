package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/reservas-dev/reservas/internal/api"
	"github.com/reservas-dev/reservas/internal/cli/appctx"
	"github.com/reservas-dev/reservas/internal/guard"
)

// NewDashboardCmd creates the dashboard command, the default page
func NewDashboardCmd() *cobra.Command {
	var days, forecast int

	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash"},
		Short:   "Show occupancy metrics and totals",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			return runDashboard(app, days, forecast)
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Days to look back (1-365)")
	cmd.Flags().IntVar(&forecast, "forecast", 7, "Days to forecast (1-30)")

	return asPage(cmd, guard.DefaultPath, guard.PageRequirement{RequiresAuth: true})
}

type dashboardData struct {
	metrics   *api.DashboardMetrics
	forecast  *api.Predicciones
	salas     int
	articulos int
	reservas  int
	personas  int
}

func runDashboard(app *appctx.Context, days, forecast int) error {
	var data dashboardData
	admin := app.Session.IsAdmin()

	g, ctx := errgroup.WithContext(pageContext(app))
	g.Go(func() error {
		m, err := app.Client.DashboardMetrics(ctx, days)
		data.metrics = m
		return err
	})
	g.Go(func() error {
		p, err := app.Client.Predictions(ctx, forecast)
		data.forecast = p
		return err
	})
	g.Go(func() error {
		s, err := app.Client.ListSalas(ctx)
		data.salas = len(s)
		return err
	})
	g.Go(func() error {
		a, err := app.Client.ListArticulos(ctx)
		data.articulos = len(a)
		return err
	})
	g.Go(func() error {
		r, err := app.Client.ListReservas(ctx)
		data.reservas = len(r)
		return err
	})
	if admin {
		g.Go(func() error {
			p, err := app.Client.ListPersonas(ctx)
			data.personas = len(p)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return report(app, "load the dashboard", err)
	}
	if err := beforeRender(app); err != nil {
		return err
	}

	user := app.Session.User()
	fmt.Fprintf(app.Out, "Welcome, %s (%s)\n\n", user.Nombre, user.Role())

	w := newTable(app.Out)
	fmt.Fprintf(w, "Rooms:\t%d\n", data.salas)
	fmt.Fprintf(w, "Items:\t%d\n", data.articulos)
	fmt.Fprintf(w, "Reservations:\t%d\n", data.reservas)
	if admin {
		fmt.Fprintf(w, "Users:\t%d\n", data.personas)
	}
	m := data.metrics.Metricas
	fmt.Fprintf(w, "Reservations today:\t%d\n", m.ReservasHoy)
	fmt.Fprintf(w, "Average occupancy (%dd):\t%.1f%%\n", days, m.OcupacionPromedio)
	if err := w.Flush(); err != nil {
		return err
	}

	if len(data.metrics.OcupacionSalas) > 0 {
		fmt.Fprintln(app.Out, "\nOccupancy by room:")
		w = newTable(app.Out)
		fmt.Fprintln(w, "ROOM\tRESERVATIONS\tAVG HOURS")
		for _, o := range data.metrics.OcupacionSalas {
			fmt.Fprintf(w, "%s\t%d\t%.1f\n", o.Sala, o.Reservas, o.HorasPromedio)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if trend := data.metrics.TendenciaReservas; len(trend.Values) > 0 {
		fmt.Fprintf(app.Out, "\nTrend: %s\n", sparkline(trend.Values))
	}

	if len(data.metrics.TopUsuarios) > 0 {
		fmt.Fprintln(app.Out, "\nTop users:")
		for i, u := range data.metrics.TopUsuarios {
			fmt.Fprintf(app.Out, "  %d. %s (%d)\n", i+1, u.Nombre, u.Reservas)
		}
	}

	if len(data.forecast.Predicciones) > 0 {
		fmt.Fprintf(app.Out, "\nForecast (next %d days):\n", forecast)
		w = newTable(app.Out)
		fmt.Fprintln(w, "DATE\tDAY\tEXPECTED\tCONFIDENCE")
		for _, p := range data.forecast.Predicciones {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.0f%%\n", p.Fecha, p.DiaSemana, p.PrediccionReservas, p.Confianza*100)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	return nil
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline draws values as a one-line bar chart
func sparkline(values []int) string {
	maxValue := 0
	for _, v := range values {
		maxValue = max(maxValue, v)
	}

	var b strings.Builder
	for _, v := range values {
		idx := 0
		if maxValue > 0 && v > 0 {
			idx = v * (len(sparkLevels) - 1) / maxValue
		}
		b.WriteRune(sparkLevels[idx])
	}
	return b.String()
}
