// Package apperr defines the error taxonomy shared by the foodgram handlers
// and maps it onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"gorm.io/gorm"
)

// Error messages, shared with tests.
const (
	ErrMsgNotFound         = "not found"
	ErrMsgAlreadyExists    = "already exists"
	ErrMsgNotPresent       = "does not exist"
	ErrMsgConflict         = "conflicts with existing data"
	ErrMsgSelfSubscription = "you cannot subscribe to yourself"
	ErrMsgForbidden        = "you do not have permission to perform this action"
	ErrMsgFontUnavailable  = "document font is unavailable"
	ErrMsgInternal         = "internal server error"
	ErrMsgInvalidRequest   = "invalid request body"
	ErrMsgAuthRequired     = "authentication credentials were not provided"
)

var (
	// ErrNotFound is returned when a referenced row does not exist
	ErrNotFound = errors.New(ErrMsgNotFound)
	// ErrAlreadyExists is returned when adding a relation that is already present
	ErrAlreadyExists = errors.New(ErrMsgAlreadyExists)
	// ErrNotPresent is returned when removing a relation that is absent
	ErrNotPresent = errors.New(ErrMsgNotPresent)
	// ErrConflict is returned when a write violates a uniqueness invariant
	ErrConflict = errors.New(ErrMsgConflict)
	// ErrSelfSubscription is returned when a user tries to follow themselves
	ErrSelfSubscription = errors.New(ErrMsgSelfSubscription)
	// ErrForbidden is returned when the caller does not own the object
	ErrForbidden = errors.New(ErrMsgForbidden)
	// ErrFontUnavailable is returned when the PDF font cannot be loaded
	ErrFontUnavailable = errors.New(ErrMsgFontUnavailable)
)

// ValidationError collects field-level validation messages.
// Non-field messages are stored under NonFieldErrors.
type ValidationError struct {
	Fields map[string][]string
}

// NonFieldErrors is the key used for messages not tied to a single field
const NonFieldErrors = "non_field_errors"

// NewValidationError creates an empty validation error
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message for a field
func (e *ValidationError) Add(field, format string, args ...interface{}) {
	e.Fields[field] = append(e.Fields[field], fmt.Sprintf(format, args...))
}

// Has reports whether the field has at least one message
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// Empty reports whether no messages were recorded
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns e when it holds messages, nil otherwise
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// FromDB maps gorm errors onto the taxonomy. Other errors pass through unchanged.
func FromDB(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// Status returns the HTTP status code for err
func Status(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrNotPresent), errors.Is(err, ErrSelfSubscription):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// Respond writes err to the client. Validation errors are rendered as a
// field -> messages object, everything else as {"error": message}. The
// message is the caller-supplied one when given, otherwise the error's own
// message for known errors and a generic one for unknown errors.
func Respond(c *gin.Context, err error, message ...string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, verr.Fields)
		return
	}

	status := Status(err)
	msg := ErrMsgInternal
	if len(message) > 0 {
		msg = message[0]
	} else if status != http.StatusInternalServerError {
		msg = err.Error()
	}

	if status == http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}

	c.JSON(status, gin.H{"error": msg})
}
