package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// DashboardMetrics returns usage figures for the last days days (1..365)
func (c *Client) DashboardMetrics(ctx context.Context, days int) (*DashboardMetrics, error) {
	const op = "dashboard metrics"
	if days < 1 || days > 365 {
		return nil, &Error{Op: op, Kind: KindValidation, Fields: []FieldError{{Field: "days", Message: "must be between 1 and 365"}}}
	}

	var out DashboardMetrics
	query := url.Values{"days": {strconv.Itoa(days)}}
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/analytics/dashboard-metrics", query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Predictions returns the expected reservations for each of the next days
// days (1..30)
func (c *Client) Predictions(ctx context.Context, days int) (*Predicciones, error) {
	const op = "predictions"
	if days < 1 || days > 30 {
		return nil, &Error{Op: op, Kind: KindValidation, Fields: []FieldError{{Field: "dias", Message: "must be between 1 and 30"}}}
	}

	var out Predicciones
	query := url.Values{"dias": {strconv.Itoa(days)}}
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/predicciones", query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
