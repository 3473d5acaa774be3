package api

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) ListSalas(ctx context.Context) ([]Sala, error) {
	var out []Sala
	if err := c.do(ctx, request{op: "list salas", method: http.MethodGet, path: "/salas/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSala(ctx context.Context, in SalaInput) (*Sala, error) {
	const op = "create sala"
	if err := Validate(op, in); err != nil {
		return nil, err
	}

	var out Sala
	if err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/salas/", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSala(ctx context.Context, id int, in SalaUpdate) (*Sala, error) {
	const op = "update sala"
	if err := Validate(op, in); err != nil {
		return nil, err
	}

	var out Sala
	if err := c.do(ctx, request{op: op, method: http.MethodPut, path: fmt.Sprintf("/salas/%d", id), body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSala removes a room. The backend refuses rooms with reservations.
func (c *Client) DeleteSala(ctx context.Context, id int) error {
	return c.do(ctx, request{op: "delete sala", method: http.MethodDelete, path: fmt.Sprintf("/salas/%d", id)}, nil)
}
