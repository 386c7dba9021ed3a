package parking

import (
	"errors"
	"net/http"
)

// Error is a ticketing failure that knows how it is reported over HTTP.
type Error struct {
	Code    string
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code, so wrapped copies still match
// the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidRequest      = &Error{Code: "INVALID_REQUEST", Status: http.StatusBadRequest, Message: "Missing required parameters"}
	ErrAlreadyParked       = &Error{Code: "ALREADY_PARKED", Status: http.StatusBadRequest, Message: "Car is already parked in a lot"}
	ErrAllocationExhausted = &Error{Code: "ALLOCATION_EXHAUSTED", Status: http.StatusServiceUnavailable, Message: "Could not allocate a ticket ID"}
	ErrTicketNotFound      = &Error{Code: "TICKET_NOT_FOUND", Status: http.StatusNotFound, Message: "Ticket not found"}
	ErrAlreadyExited       = &Error{Code: "ALREADY_EXITED", Status: http.StatusBadRequest, Message: "Car has already exited"}
	ErrInvalidTimestamps   = &Error{Code: "INVALID_TIMESTAMPS", Status: http.StatusInternalServerError, Message: "Ticket has invalid timestamps"}
	ErrStoreUnavailable    = &Error{Code: "STORE_UNAVAILABLE", Status: http.StatusServiceUnavailable, Message: "Ticket store unavailable"}
)

// ErrTicketExists is a store-level ID collision. It never reaches callers of
// the services; entry retries with a fresh ID instead.
var ErrTicketExists = errors.New("ticket id already exists")

// StoreUnavailable wraps a transient store failure.
func StoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{
		Code:    ErrStoreUnavailable.Code,
		Status:  ErrStoreUnavailable.Status,
		Message: ErrStoreUnavailable.Message,
		cause:   err,
	}
}

// StatusCode maps err to the HTTP status it should be reported with.
func StatusCode(err error) int {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage is the client-facing text for err. Unknown errors are not
// leaked.
func PublicMessage(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return http.StatusText(http.StatusInternalServerError)
}
