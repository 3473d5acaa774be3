package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, KindValidation, apiErr.Kind)

	out := map[string]string{}
	for _, f := range apiErr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestValidate_Login(t *testing.T) {
	assert.NoError(t, Validate("login", LoginForm{Email: "a@b.com", Password: "123456"}))

	fields := fieldsOf(t, Validate("login", LoginForm{Email: "nope", Password: "12345"}))
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 6 characters", fields["password"])
}

func TestValidate_Sala(t *testing.T) {
	tests := []struct {
		name  string
		in    SalaInput
		field string
	}{
		{"ok", SalaInput{Nombre: "Aula", Capacidad: 10}, ""},
		{"short name", SalaInput{Nombre: "A", Capacidad: 10}, "nombre"},
		{"zero capacity", SalaInput{Nombre: "Aula", Capacidad: 0}, "capacidad"},
		{"too large", SalaInput{Nombre: "Aula", Capacidad: 1001}, "capacidad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("create sala", tt.in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, fieldsOf(t, err), tt.field)
		})
	}
}

func TestValidate_PartialUpdates(t *testing.T) {
	assert.NoError(t, Validate("update sala", SalaUpdate{}))

	short := "x"
	assert.Contains(t, fieldsOf(t, Validate("update persona", PersonaUpdate{Nombre: &short})), "nombre")
}

func TestValidate_Reserva(t *testing.T) {
	start := Timestamp{time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)}
	end := Timestamp{start.Add(2 * time.Hour)}

	t.Run("ok", func(t *testing.T) {
		err := Validate("create reserva", ReservaInput{IDPersona: 1, FechaHoraInicio: start, FechaHoraFin: end, IDSala: intPtr(1)})
		assert.NoError(t, err)
	})

	t.Run("end before start", func(t *testing.T) {
		err := Validate("create reserva", ReservaInput{IDPersona: 1, FechaHoraInicio: end, FechaHoraFin: start, IDSala: intPtr(1)})
		assert.Equal(t, "must be after the start", fieldsOf(t, err)["fecha_hora_fin"])
	})

	t.Run("both targets", func(t *testing.T) {
		err := Validate("create reserva", ReservaInput{IDPersona: 1, FechaHoraInicio: start, FechaHoraFin: end, IDSala: intPtr(1), IDArticulo: intPtr(2)})
		assert.Contains(t, fieldsOf(t, err), "id_sala")
	})

	t.Run("no target", func(t *testing.T) {
		err := Validate("create reserva", ReservaInput{IDPersona: 1, FechaHoraInicio: start, FechaHoraFin: end})
		assert.Contains(t, fieldsOf(t, err), "id_sala")
	})

	t.Run("update with both dates", func(t *testing.T) {
		err := Validate("update reserva", ReservaUpdate{FechaHoraInicio: &end, FechaHoraFin: &start})
		assert.Contains(t, fieldsOf(t, err), "fecha_hora_fin")
	})
}

func TestTimestamp(t *testing.T) {
	for _, in := range []string{"2025-03-01T10:30:00", "2025-03-01T10:30", "2025-03-01 10:30", "2025-03-01T10:30:00.000001"} {
		ts, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.Equal(t, 10, ts.Hour())
		assert.Equal(t, 30, ts.Minute())
	}

	_, err := ParseTimestamp("tomorrow")
	assert.Error(t, err)

	ts, err := ParseTimestamp("2025-03-01T10:30")
	require.NoError(t, err)
	data, err := ts.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-01T10:30:00"`, string(data))

	var zero Timestamp
	require.NoError(t, zero.UnmarshalJSON([]byte("null")))
	assert.True(t, zero.IsZero())
}
