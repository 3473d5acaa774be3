package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) ListArticulos(ctx context.Context) ([]Articulo, error) {
	var out []Articulo
	if err := c.do(ctx, request{op: "list articulos", method: http.MethodGet, path: "/articulos/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateArticulo(ctx context.Context, in ArticuloInput) (*Articulo, error) {
	const op = "create articulo"
	if err := Validate(op, in); err != nil {
		return nil, err
	}

	var out Articulo
	if err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/articulos/", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateArticulo(ctx context.Context, id int, in ArticuloUpdate) (*Articulo, error) {
	const op = "update articulo"
	if err := Validate(op, in); err != nil {
		return nil, err
	}

	var out Articulo
	if err := c.do(ctx, request{op: op, method: http.MethodPut, path: fmt.Sprintf("/articulos/%d", id), body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleAvailability flips the disponible flag of an item
func (c *Client) ToggleAvailability(ctx context.Context, id int) (*Articulo, error) {
	var out Articulo
	path := fmt.Sprintf("/articulos/%d/toggle-disponibilidad", id)
	if err := c.do(ctx, request{op: "toggle articulo", method: http.MethodPatch, path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteArticulo(ctx context.Context, id int) error {
	return c.do(ctx, request{op: "delete articulo", method: http.MethodDelete, path: fmt.Sprintf("/articulos/%d", id)}, nil)
}

// ArticuloAvailability returns, for every available item, how many units are
// free between start and end. With excludeReserva > 0 the units already held
// by that reservation are reported apart, so the result says how many more it
// may attach.
func (c *Client) ArticuloAvailability(ctx context.Context, start, end Timestamp, excludeReserva int) ([]ArticuloDisponibilidad, error) {
	const op = "articulo availability"
	if start.IsZero() || end.IsZero() || !end.After(start.Time) {
		return nil, &Error{Op: op, Kind: KindValidation, Fields: []FieldError{{Field: "fecha_fin", Message: "must be after the start"}}}
	}

	query := url.Values{
		"fecha_inicio": {start.Local().Format(TimestampLayout)},
		"fecha_fin":    {end.Local().Format(TimestampLayout)},
	}
	if excludeReserva > 0 {
		query.Set("reserva_id", strconv.Itoa(excludeReserva))
	}

	var out []ArticuloDisponibilidad
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/articulos/disponibilidad", query: query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
