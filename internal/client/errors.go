package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is returned before any I/O when no credential is
	// available.
	ErrUnauthenticated = errors.New("not authenticated")

	errUpstream = errors.New("upstream server error")
)

type Kind int

const (
	// KindTransport covers connection failures, timeouts and an open breaker.
	KindTransport Kind = iota
	// KindValidation is a 4xx rejection other than auth, e.g. insufficient stock.
	KindValidation
	// KindAuth is a missing or rejected credential.
	KindAuth
	// KindServer is a 5xx response.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the normalized failure of a cart API call.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	Code   string
	// Message is the server-provided error text, if any.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s failure (status %d)", e.Op, e.Kind, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ServerMessage returns the message the server attached to err, if any.
func ServerMessage(err error) (string, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Status != 0 {
		return apiErr.Message, true
	}
	return "", false
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}
