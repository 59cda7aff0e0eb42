package provider

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTimeout is returned when the gateway did not answer within the
	// configured per-request timeout. Kept distinct from ErrUnavailable so
	// operators can tell a slow provider from an unreachable one.
	ErrTimeout = errors.New("dns gateway timeout")

	// ErrUnavailable is returned for transport-level failures and 5xx
	// responses: the request may never have been processed.
	ErrUnavailable = errors.New("dns gateway unavailable")
)

// RejectedError is returned when the gateway processed the request and
// answered success:false. The input was seen and refused; retrying the same
// payload will not help.
type RejectedError struct {
	Action   string
	Messages []string
}

// Error implements the error interface
func (e *RejectedError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("dns gateway rejected action %q", e.Action)
	}
	return fmt.Sprintf("dns gateway rejected action %q: %s", e.Action, strings.Join(e.Messages, "; "))
}

// IsRejected reports whether err is a gateway rejection
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}
