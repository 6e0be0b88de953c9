package searchbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

const (
	errorPrefix       = "Sorry, an error occurred: "
	timeoutClause     = "The request took too long. The server might be starting up. Please try again in a moment."
	unreachableClause = "I can't connect to the server. Please check your internet connection."
	unknownServerErr  = "Unknown server error"
)

var (
	ErrTimeout     = errors.New("search request timed out")
	ErrUnreachable = errors.New("search backend unreachable")
	ErrBackend     = errors.New("search backend error")
)

// BackendError is a non-2xx reply. Message is what the user gets to see.
type BackendError struct {
	Status  int
	Message string
	Details any
}

func (e *BackendError) Error() string {
	return e.Message
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

func parseErrorResponse(status int, data []byte) *BackendError {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return &BackendError{
			Status:  status,
			Message: fmt.Sprintf("HTTP Error %d. The server may be busy or starting up.", status),
		}
	}

	message := body.Error
	if message == "" {
		message = body.Message
	}
	if message == "" {
		message = unknownServerErr
	}

	return &BackendError{
		Status:  status,
		Message: message,
		Details: body.Details,
	}
}

func classifyTransport(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	if isUnreachable(err) {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isUnreachable(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func failureClause(err error) string {
	var backendErr *BackendError

	switch {
	case errors.Is(err, ErrTimeout):
		return timeoutClause
	case errors.Is(err, ErrUnreachable):
		return unreachableClause
	case errors.As(err, &backendErr):
		return backendErr.Message
	default:
		return err.Error()
	}
}

func failure(err error, criteria Criteria) *Response {
	return &Response{
		BotMessage: errorPrefix + failureClause(err),
		Results:    []Property{},
		Criteria:   criteria,
		Err:        err,
	}
}
