package registration

import (
	"errors"
	"fmt"

	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/reconciler"
)

var (
	// ErrLabelTaken is returned when the label exists locally or at the provider
	ErrLabelTaken = errors.New("label is already registered")

	// ErrPaymentRequired is returned when a billed add-on is requested
	// without a valid payment method on file
	ErrPaymentRequired = errors.New("a valid payment method is required")

	// ErrForbidden is returned when a registration belongs to another owner
	ErrForbidden = errors.New("registration belongs to a different owner")

	// ErrPartialApply is returned when a multi-step record change stopped
	// after a partial provider-side removal. The registration's stored
	// config is unchanged; the caller can retry once the provider recovers.
	ErrPartialApply = errors.New("record change partially applied")
)

// NotViableError is returned when record creation left the domain below its
// minimum usable record set. The provider-side changes have already been
// rolled back when this error surfaces.
type NotViableError struct {
	Delegation dnsspec.DelegationType
	Result     *reconciler.ApplyResult
}

// Error implements the error interface
func (e *NotViableError) Error() string {
	return fmt.Sprintf("record creation failed for roles %v; changes rolled back", e.Result.FailedRoles())
}
