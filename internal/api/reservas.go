package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) ListReservas(ctx context.Context) ([]Reserva, error) {
	var out []Reserva
	if err := c.do(ctx, request{op: "list reservas", method: http.MethodGet, path: "/reservas/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetReserva(ctx context.Context, id int) (*Reserva, error) {
	var out Reserva
	if err := c.do(ctx, request{op: "get reserva", method: http.MethodGet, path: fmt.Sprintf("/reservas/%d", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateReserva(ctx context.Context, in ReservaInput) (*Reserva, error) {
	const op = "create reserva"
	if err := Validate(op, in); err != nil {
		return nil, err
	}

	var out Reserva
	if err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/reservas/", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateReserva(ctx context.Context, id int, in ReservaUpdate) (*Reserva, error) {
	const op = "update reserva"
	if err := Validate(op, in); err != nil {
		return nil, err
	}

	var out Reserva
	if err := c.do(ctx, request{op: op, method: http.MethodPut, path: fmt.Sprintf("/reservas/%d", id), body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteReserva(ctx context.Context, id int) error {
	return c.do(ctx, request{op: "delete reserva", method: http.MethodDelete, path: fmt.Sprintf("/reservas/%d", id)}, nil)
}

// ListReservaArticulos returns the items attached to a room reservation
func (c *Client) ListReservaArticulos(ctx context.Context, reservaID int) ([]ReservaArticulo, error) {
	var out []ReservaArticulo
	path := fmt.Sprintf("/reservas/%d/articulos", reservaID)
	if err := c.do(ctx, request{op: "list reserva articulos", method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddReservaArticulo attaches cantidad units of an item to a room
// reservation. With replace the quantity is set instead of added.
func (c *Client) AddReservaArticulo(ctx context.Context, reservaID, articuloID, cantidad int, replace bool) (*Message, error) {
	const op = "add reserva articulo"
	if cantidad < 1 {
		return nil, &Error{Op: op, Kind: KindValidation, Fields: []FieldError{{Field: "cantidad", Message: "must be at least 1"}}}
	}

	mode := "sumar"
	if replace {
		mode = "reemplazar"
	}
	query := url.Values{"cantidad": {strconv.Itoa(cantidad)}, "modo": {mode}}

	var out Message
	path := fmt.Sprintf("/reservas/%d/articulos/%d", reservaID, articuloID)
	if err := c.do(ctx, request{op: op, method: http.MethodPost, path: path, query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveReservaArticulo detaches an item from a room reservation
func (c *Client) RemoveReservaArticulo(ctx context.Context, reservaID, articuloID int) error {
	path := fmt.Sprintf("/reservas/%d/articulos/%d", reservaID, articuloID)
	return c.do(ctx, request{op: "remove reserva articulo", method: http.MethodDelete, path: path}, nil)
}
