package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// LoginForm is checked before any login request is sent
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterStructValidation(reservaInputRules, ReservaInput{})
		validate.RegisterStructValidation(reservaUpdateRules, ReservaUpdate{})
	})
	return validate
}

func reservaInputRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(ReservaInput)

	if r.FechaHoraInicio.IsZero() {
		sl.ReportError(r.FechaHoraInicio, "fecha_hora_inicio", "FechaHoraInicio", "required", "")
	}
	if r.FechaHoraFin.IsZero() {
		sl.ReportError(r.FechaHoraFin, "fecha_hora_fin", "FechaHoraFin", "required", "")
	} else if !r.FechaHoraInicio.IsZero() && !r.FechaHoraFin.After(r.FechaHoraInicio.Time) {
		sl.ReportError(r.FechaHoraFin, "fecha_hora_fin", "FechaHoraFin", "after_start", "")
	}
	if (r.IDSala == nil) == (r.IDArticulo == nil) {
		sl.ReportError(r.IDSala, "id_sala", "IDSala", "one_target", "")
	}
}

func reservaUpdateRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(ReservaUpdate)

	if r.FechaHoraInicio != nil && r.FechaHoraFin != nil && !r.FechaHoraFin.After(r.FechaHoraInicio.Time) {
		sl.ReportError(r.FechaHoraFin, "fecha_hora_fin", "FechaHoraFin", "after_start", "")
	}
	if r.IDSala != nil && r.IDArticulo != nil {
		sl.ReportError(r.IDSala, "id_sala", "IDSala", "one_target", "")
	}
}

// Validate checks v against its validate tags and returns a KindValidation
// *Error listing every rejected field.
func Validate(op string, v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Op: op, Kind: KindValidation, Err: err}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return &Error{Op: op, Kind: KindValidation, Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "after_start":
		return "must be after the start"
	case "one_target":
		return "exactly one of id_sala and id_articulo must be set"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
