package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reservas-dev/reservas/internal/session"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	c, err := New("http://localhost:8000/", WithTimeout(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL().String())
	assert.Equal(t, 3*time.Second, c.HTTPClient().Timeout)
}

func TestLogin_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/personas/web-login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","user":{"id":7,"nombre":"Ana","email":"ana@example.com","is_admin":true,"is_active":true}}`))
	})

	resp, err := c.Login(context.Background(), "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.AccessToken)
	assert.Equal(t, 7, resp.User.ID)
	assert.True(t, resp.User.Admin())
}

func TestLogin_IncompleteUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","user":{"nombre":"Ana"}}`))
	})

	_, err := c.Login(context.Background(), "ana@example.com", "secret123")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformedResponse))
	assert.ErrorIs(t, err, ErrIncompleteUser)
	assert.Contains(t, err.Error(), "incomplete user data")
}

func TestLogin_ErrorDetail(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"detail verbatim", http.StatusUnauthorized, `{"detail":"Email o contraseña incorrectos"}`, "Email o contraseña incorrectos"},
		{"401 without detail", http.StatusUnauthorized, `{}`, "invalid email or password"},
		{"inactive account", http.StatusForbidden, `{"detail":"Usuario inactivo","code":"account_inactive"}`, "Usuario inactivo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Login(context.Background(), "ana@example.com", "secret123")
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.message, apiErr.Message())
			assert.Equal(t, KindAuthentication, apiErr.Kind)
		})
	}
}

func TestLogin_ValidatesBeforeSending(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.Login(context.Background(), "not-an-email", "123")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Len(t, apiErr.Fields, 2)
	assert.False(t, called)
}

func TestMe(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/personas/me", r.URL.Path)
			w.Write([]byte(`{"id":3,"nombre":"Juan","is_admin":"true"}`))
		})

		p, err := c.Me(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, p.ID)
		assert.False(t, p.Admin(), "only literal true grants admin")
	})

	t.Run("401 is an authentication failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := c.Me(context.Background())
		assert.True(t, session.IsAuthenticationFailure(err))
	})

	t.Run("500 is transient", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := c.Me(context.Background())
		assert.True(t, IsKind(err, KindTransient))
		assert.False(t, session.IsAuthenticationFailure(err))
	})
}

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		path   string
		body   string
		kind   Kind
	}{
		{"403 privilege", 403, "/api/v1/personas/", `{"detail":"Se requieren permisos de administrador","code":"insufficient_privilege"}`, KindAuthorization},
		{"403 token expired", 403, "/api/v1/salas/", `{"detail":"x","code":"token_expired"}`, KindAuthentication},
		{"404", 404, "/api/v1/salas/9", `{"detail":"Sala no encontrada"}`, KindRequest},
		{"409", 409, "/api/v1/salas/9", `{"detail":"La sala tiene reservas"}`, KindRequest},
		{"502", 502, "/api/v1/salas/", `bad gateway`, KindTransient},
		{"422", 422, "/api/v1/salas/", `{"detail":[{"loc":["body","capacidad"],"msg":"must be greater than 0","type":"value_error"}]}`, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeError("op", http.MethodGet, tt.path, tt.status, []byte(tt.body))
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.status, e.Status)
		})
	}
}

func TestDecodeError_ValidationFields(t *testing.T) {
	body := `{"detail":[{"loc":["body","nombre"],"msg":"too short"},{"loc":["query","days"],"msg":"out of range"},{"loc":["body","items",0,"id"],"msg":"missing"}]}`
	e := decodeError("create sala", http.MethodPost, "/api/v1/salas/", 422, []byte(body))

	assert.Equal(t, []FieldError{
		{Field: "nombre", Message: "too short"},
		{Field: "days", Message: "out of range"},
		{Field: "items.0.id", Message: "missing"},
	}, e.Fields)
	assert.Equal(t, "nombre: too short; days: out of range; items.0.id: missing", e.Message())
}

func TestDo_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":`))
	})

	_, err := c.ListSalas(context.Background())
	assert.True(t, IsKind(err, KindMalformedResponse))
}

func TestDo_CanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListSalas(ctx)
	assert.True(t, IsCanceled(err))
	assert.True(t, IsKind(err, KindTransient))
}

func TestResources(t *testing.T) {
	type call struct {
		method string
		path   string
		query  string
		body   string
	}
	var calls []call

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, r.URL.RawQuery, string(data)})

		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/v1/salas/" && r.Method == http.MethodGet:
			w.Write([]byte(`[{"id":1,"nombre":"Aula Magna","capacidad":300}]`))
		case r.URL.Path == "/api/v1/reservas/" && r.Method == http.MethodGet:
			w.Write([]byte(`[{"id":4,"id_persona":1,"fecha_hora_inicio":"2025-03-01T10:00:00","fecha_hora_fin":"2025-03-01T12:00:00","id_sala":1,"id_articulo":null}]`))
		case r.URL.Path == "/api/v1/analytics/dashboard-metrics":
			w.Write([]byte(`{"metricas":{"reservas_hoy":2,"ocupacion_promedio":12.5,"salas_disponibles":3}}`))
		default:
			w.Write([]byte(`{"id":1,"message":"ok"}`))
		}
	})
	ctx := context.Background()

	salas, err := c.ListSalas(ctx)
	require.NoError(t, err)
	require.Len(t, salas, 1)
	assert.Equal(t, 300, salas[0].Capacidad)

	reservas, err := c.ListReservas(ctx)
	require.NoError(t, err)
	require.Len(t, reservas, 1)
	assert.Equal(t, "sala 1", reservas[0].Target())
	assert.Equal(t, 10, reservas[0].FechaHoraInicio.Hour())

	_, err = c.ToggleAvailability(ctx, 5)
	require.NoError(t, err)

	_, err = c.AddReservaArticulo(ctx, 4, 5, 2, true)
	require.NoError(t, err)

	require.NoError(t, c.RemoveReservaArticulo(ctx, 4, 5))
	require.NoError(t, c.DeleteSala(ctx, 1))

	metrics, err := c.DashboardMetrics(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.Metricas.ReservasHoy)

	assert.Equal(t, []call{
		{http.MethodGet, "/api/v1/salas/", "", ""},
		{http.MethodGet, "/api/v1/reservas/", "", ""},
		{http.MethodPatch, "/api/v1/articulos/5/toggle-disponibilidad", "", ""},
		{http.MethodPost, "/api/v1/reservas/4/articulos/5", "cantidad=2&modo=reemplazar", ""},
		{http.MethodDelete, "/api/v1/reservas/4/articulos/5", "", ""},
		{http.MethodDelete, "/api/v1/salas/1", "", ""},
		{http.MethodGet, "/api/v1/analytics/dashboard-metrics", "days=30", ""},
	}, calls)
}

func TestCreate_SendsValidatedBody(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":9,"nombre":"Proyector","disponible":true}`))
	})

	a, err := c.CreateArticulo(context.Background(), ArticuloInput{Nombre: "Proyector", Disponible: true})
	require.NoError(t, err)
	assert.Equal(t, 9, a.ID)
	assert.Equal(t, map[string]any{"nombre": "Proyector", "disponible": true}, got)

	_, err = c.CreateSala(context.Background(), SalaInput{Nombre: "A", Capacidad: 0})
	assert.True(t, IsKind(err, KindValidation))
}

func TestError_Unwrap(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := error(&Error{Op: "list salas", Kind: KindTransient, Err: base})
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "list salas: dial tcp: refused", err.Error())
}

func TestPredictions(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/predicciones", r.URL.Path)
		query = r.URL.RawQuery
		w.Write([]byte(`{"predicciones":[{"fecha":"2025-03-02","dia_semana":"Dom","prediccion_reservas":3,"confianza":0.75}]}`))
	})

	p, err := c.Predictions(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "dias=7", query)
	require.Len(t, p.Predicciones, 1)
	assert.Equal(t, 3, p.Predicciones[0].PrediccionReservas)
	assert.Equal(t, "Dom", p.Predicciones[0].DiaSemana)

	_, err = c.Predictions(context.Background(), 31)
	assert.True(t, IsKind(err, KindValidation))
}

func TestArticuloAvailability(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/articulos/disponibilidad", r.URL.Path)
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`[{"id":5,"nombre":"Proyector","cantidad_total":3,"cantidad_reservada_otros":1,"cantidad_asignada_en_reserva":1,"cantidad_disponible":2,"cantidad_disponible_para_agregar":1}]`))
	})

	start, err := ParseTimestamp("2025-03-01T10:00")
	require.NoError(t, err)
	end, err := ParseTimestamp("2025-03-01T12:00")
	require.NoError(t, err)

	items, err := c.ArticuloAvailability(context.Background(), start, end, 4)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].DisponibleParaAgregar)
	assert.Equal(t, 2, items[0].CantidadDisponible)
	assert.Equal(t, map[string]string{
		"fecha_inicio": "2025-03-01T10:00:00",
		"fecha_fin":    "2025-03-01T12:00:00",
		"reserva_id":   "4",
	}, got)

	_, err = c.ArticuloAvailability(context.Background(), start, end, 0)
	require.NoError(t, err)
	assert.NotContains(t, got, "reserva_id")

	_, err = c.ArticuloAvailability(context.Background(), end, start, 0)
	assert.True(t, IsKind(err, KindValidation))
}
