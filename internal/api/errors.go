package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error kinds shared by every domain package. Domain errors wrap one of
// these so handlers can map them to a status without knowing the package.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrExternalService = errors.New("external service error")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// NewError returns an error reading msg that matches kind under errors.Is.
func NewError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrExternalService):
		return http.StatusBadGateway
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Fail writes err using the taxonomy status. Unclassified errors are
// reported with a generic message so internals don't leak.
func Fail(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, ErrorResponse{Error: msg})
}
