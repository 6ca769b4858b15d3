package authz

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	// ErrUnauthenticated means the request carries no valid session.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrForbidden means the session is valid but lacks the level, role or tenant.
	ErrForbidden = errors.New("authz: forbidden")
)

// Rejection is a terminal authorization failure for one request.
type Rejection struct {
	Kind    error
	Message string
	Details string
}

// Unauthenticated builds a 401 rejection.
func Unauthenticated(message string) *Rejection {
	return &Rejection{Kind: ErrUnauthenticated, Message: message}
}

// Forbidden builds a 403 rejection.
func Forbidden(message, details string) *Rejection {
	return &Rejection{Kind: ErrForbidden, Message: message, Details: details}
}

func (r *Rejection) Error() string {
	if r.Details != "" {
		return r.Kind.Error() + ": " + r.Message + " (" + r.Details + ")"
	}
	return r.Kind.Error() + ": " + r.Message
}

func (r *Rejection) Unwrap() error {
	return r.Kind
}

// Status maps the rejection kind to its HTTP status.
func (r *Rejection) Status() int {
	if errors.Is(r.Kind, ErrUnauthenticated) {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

type rejectionBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WriteRejection renders the rejection as {status, message, details}.
func WriteRejection(w http.ResponseWriter, rej *Rejection) {
	status := rej.Status()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejectionBody{Status: status, Message: rej.Message, Details: rej.Details})
}
