package reconciler

import (
	"errors"

	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/provider"
)

// Failure kinds attached to per-record results so operators can tell
// "your input was bad" from "the provider was unreachable"
const (
	FailureRejected    = "rejected"
	FailureTimeout     = "timeout"
	FailureUnavailable = "unavailable"
	FailureInternal    = "internal"
)

// RecordResult is the outcome of one provider call for one role
type RecordResult struct {
	Role        dnsspec.Role `json:"role"`
	Success     bool         `json:"success"`
	ProviderID  string       `json:"provider_id,omitempty"`
	FailureKind string       `json:"failure_kind,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// ApplyResult aggregates per-record outcomes of a plan execution. A single
// record failure never aborts its siblings; callers inspect PartialSuccess
// and decide whether the partial state is acceptable.
type ApplyResult struct {
	Results        []RecordResult `json:"results"`
	PartialSuccess bool           `json:"partial_success"`
}

// CreatedIDs returns the provider IDs created by this execution, in order.
// Rollback deletes exactly these IDs, never records matched by name.
func (r *ApplyResult) CreatedIDs() []string {
	var ids []string
	for _, res := range r.Results {
		if res.Success && res.ProviderID != "" {
			ids = append(ids, res.ProviderID)
		}
	}
	return ids
}

// FailedRoles returns the roles that could not be applied
func (r *ApplyResult) FailedRoles() []dnsspec.Role {
	var roles []dnsspec.Role
	for _, res := range r.Results {
		if !res.Success {
			roles = append(roles, res.Role)
		}
	}
	return roles
}

func (r *ApplyResult) succeeded(role dnsspec.Role) bool {
	for _, res := range r.Results {
		if res.Role == role && res.Success {
			return true
		}
	}
	return false
}

// Viable reports whether the applied record set makes the domain minimally
// usable: Standard mode needs the main (or forward) record plus the
// platform-verification record; Delegated mode needs at least two NS records.
func (r *ApplyResult) Viable(delegation dnsspec.DelegationType) bool {
	if delegation == dnsspec.DelegationDelegated {
		ns := 0
		for _, res := range r.Results {
			if res.Success && isNSRole(res.Role) {
				ns++
			}
		}
		return ns >= 2
	}

	main := r.succeeded(dnsspec.RoleMainA) ||
		r.succeeded(dnsspec.RoleMainCNAME) ||
		r.succeeded(dnsspec.RoleForwardURL)
	return main && r.succeeded(dnsspec.RoleVerificationCNAME)
}

func isNSRole(role dnsspec.Role) bool {
	for i := 1; i <= 16; i++ {
		if role == dnsspec.NSRole(i) {
			return true
		}
	}
	return false
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, provider.ErrTimeout):
		return FailureTimeout
	case errors.Is(err, provider.ErrUnavailable):
		return FailureUnavailable
	case provider.IsRejected(err):
		return FailureRejected
	default:
		return FailureInternal
	}
}
