package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

var (
	ErrUnavailable    = errors.New("server unavailable")
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrServer         = errors.New("server error")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Fields  []models.FieldError
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Fields) == 0 {
		return msg
	}

	details := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		details = append(details, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return msg + " (" + strings.Join(details, "; ") + ")"
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusBadRequest:
		return ErrBadRequest
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status >= http.StatusInternalServerError:
		return ErrServer
	default:
		return nil
	}
}
