package pipeline

import (
	"encoding/json"
	"net/http"
	"strings"
)

// FailureKind separates rejected credentials from refused permissions
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureAuthentication
	FailureAuthorization
)

func (k FailureKind) String() string {
	switch k {
	case FailureAuthentication:
		return "authentication"
	case FailureAuthorization:
		return "authorization"
	default:
		return "none"
	}
}

// Error codes the backend attaches to 401/403 payloads
const (
	CodeAccountInactive       = "account_inactive"
	CodeTokenInvalid          = "token_invalid"
	CodeTokenExpired          = "token_expired"
	CodeInsufficientPrivilege = "insufficient_privilege"
)

// Failure describes a classified error response
type Failure struct {
	Kind   FailureKind
	Status int
	Code   string
	Detail string
	Method string
	Path   string
}

// Payload is the error body shape of the backend: {"detail": ..., "code": ...}.
// detail is a string for most errors and a list for validation errors.
type Payload struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
	Error  string          `json:"error"`
}

// DetailString returns detail when it is a plain string, falling back to error
func (p Payload) DetailString() string {
	var s string
	if len(p.Detail) > 0 && json.Unmarshal(p.Detail, &s) == nil {
		return s
	}
	return p.Error
}

// ParsePayload decodes an error body, tolerating non-JSON bodies
func ParsePayload(body []byte) Payload {
	var p Payload
	_ = json.Unmarshal(body, &p)
	return p
}

// legacyAuthMarkers are detail substrings older backends use for account
// level 403s. Kept only for payloads without a code.
var legacyAuthMarkers = []string{"inactivo", "inválido", "inactive", "invalid"}

// Classify decides whether an error response means the credentials are no
// longer valid. 401 always does. 403 does when the enumerated code says so;
// without a code the legacy detail/path heuristic applies. Other statuses are
// not classified.
func Classify(status int, method, path string, body []byte) Failure {
	f := Failure{Status: status, Method: method, Path: path}

	switch status {
	case http.StatusUnauthorized:
		payload := ParsePayload(body)
		f.Code, f.Detail = payload.Code, payload.DetailString()
		f.Kind = FailureAuthentication
	case http.StatusForbidden:
		payload := ParsePayload(body)
		f.Code, f.Detail = payload.Code, payload.DetailString()
		f.Kind = classifyForbidden(f.Code, f.Detail, path)
	}

	return f
}

func classifyForbidden(code, detail, path string) FailureKind {
	switch code {
	case CodeAccountInactive, CodeTokenInvalid, CodeTokenExpired:
		return FailureAuthentication
	case CodeInsufficientPrivilege:
		return FailureAuthorization
	}

	if strings.HasSuffix(strings.TrimSuffix(path, "/"), "/me") {
		return FailureAuthentication
	}

	lower := strings.ToLower(detail)
	for _, marker := range legacyAuthMarkers {
		if strings.Contains(lower, marker) {
			return FailureAuthentication
		}
	}
	return FailureAuthorization
}
