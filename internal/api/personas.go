package api

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) ListPersonas(ctx context.Context) ([]Persona, error) {
	var out []Persona
	if err := c.do(ctx, request{op: "list personas", method: http.MethodGet, path: "/personas/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPersona(ctx context.Context, id int) (*Persona, error) {
	var out Persona
	if err := c.do(ctx, request{op: "get persona", method: http.MethodGet, path: fmt.Sprintf("/personas/%d", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePersona(ctx context.Context, in PersonaCreate) (*Persona, error) {
	const op = "create persona"
	if err := Validate(op, in); err != nil {
		return nil, err
	}

	var out Persona
	if err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/personas/", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePersona(ctx context.Context, id int, in PersonaUpdate) (*Persona, error) {
	const op = "update persona"
	if err := Validate(op, in); err != nil {
		return nil, err
	}

	var out Persona
	if err := c.do(ctx, request{op: op, method: http.MethodPut, path: fmt.Sprintf("/personas/%d", id), body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePersona(ctx context.Context, id int) error {
	return c.do(ctx, request{op: "delete persona", method: http.MethodDelete, path: fmt.Sprintf("/personas/%d", id)}, nil)
}
