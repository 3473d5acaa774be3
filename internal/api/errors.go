package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/reservas-dev/reservas/internal/pipeline"
	"github.com/reservas-dev/reservas/internal/session"
)

// ErrIncompleteUser is returned when a login response carries no user id
var ErrIncompleteUser = session.ErrIncompleteProfile

// Kind groups errors by how the caller should react
type Kind int

const (
	// KindRequest covers 4xx responses that are neither auth nor validation
	KindRequest Kind = iota
	KindAuthentication
	KindAuthorization
	KindValidation
	KindTransient
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindMalformedResponse:
		return "malformed response"
	default:
		return "request"
	}
}

// FieldError is one rejected input field
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return f.Field + ": " + f.Message
}

// Error is returned by every Client method that reaches the backend or
// validates input.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	Code   string
	Detail string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, "status %d: ", e.Status)
	}
	b.WriteString(e.Message())
	return b.String()
}

// Message is the user-facing part of the error
func (e *Error) Message() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case len(e.Fields) > 0:
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.String()
		}
		return strings.Join(parts, "; ")
	case e.Err != nil:
		return e.Err.Error()
	case e.Status != 0:
		return strings.ToLower(http.StatusText(e.Status))
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// AuthenticationFailure reports whether the backend rejected the credentials
func (e *Error) AuthenticationFailure() bool { return e.Kind == KindAuthentication }

// IsKind reports whether err is an *Error of kind k
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// validationDetail is one entry of a 422 detail list
type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// decodeError builds the Error for a non-2xx response
func decodeError(op, method, path string, status int, body []byte) *Error {
	payload := pipeline.ParsePayload(body)
	e := &Error{
		Op:     op,
		Status: status,
		Code:   payload.Code,
		Detail: payload.DetailString(),
	}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuthentication
	case status == http.StatusForbidden:
		if pipeline.Classify(status, method, path, body).Kind == pipeline.FailureAuthentication {
			e.Kind = KindAuthentication
		} else {
			e.Kind = KindAuthorization
		}
	case status == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
		e.Fields = parseValidationDetail(payload.Detail)
	case status >= 500:
		e.Kind = KindTransient
	default:
		e.Kind = KindRequest
	}

	return e
}

func parseValidationDetail(raw json.RawMessage) []FieldError {
	var details []validationDetail
	if len(raw) == 0 || json.Unmarshal(raw, &details) != nil {
		return nil
	}

	fields := make([]FieldError, 0, len(details))
	for _, d := range details {
		fields = append(fields, FieldError{Field: fieldFromLoc(d.Loc), Message: d.Msg})
	}
	return fields
}

// fieldFromLoc turns ["body", "capacidad"] into "capacidad"
func fieldFromLoc(loc []any) string {
	var parts []string
	for _, p := range loc {
		switch v := p.(type) {
		case string:
			if v == "body" || v == "query" || v == "path" {
				continue
			}
			parts = append(parts, v)
		case float64:
			parts = append(parts, fmt.Sprintf("%d", int(v)))
		}
	}
	return strings.Join(parts, ".")
}
