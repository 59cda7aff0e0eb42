package events

import (
	"time"

	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/model"
	"github.com/jason-czar/freedomains/internal/reconciler"
)

// statusPayload is what the dashboard receives on a verification transition
type statusPayload struct {
	DomainID   string     `json:"domain_id"`
	Label      string     `json:"label"`
	FQDN       string     `json:"fqdn"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	LastResult string     `json:"last_result,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	CheckedAt  *time.Time `json:"checked_at,omitempty"`
}

// VerificationChanged implements verification.Notifier: every persisted
// state transition is pushed to connected clients as a domain:status event.
// Broadcast failure never affects the verification flow.
func (s *Server) VerificationChanged(reg *model.DomainRegistration, state dnsspec.VerificationState) {
	s.broadcast("domain:status", statusPayload{
		DomainID:   reg.PublicID,
		Label:      reg.Label,
		FQDN:       reg.FQDN(),
		Status:     string(state.Status),
		Attempts:   state.Attempts,
		LastResult: state.LastResult,
		LastError:  state.LastError,
		CheckedAt:  state.LastCheckedAt,
	})
}

// RegistrationDeleted tells clients a domain is gone
func (s *Server) RegistrationDeleted(reg *model.DomainRegistration) {
	s.broadcast("domain:deleted", map[string]interface{}{
		"domain_id": reg.PublicID,
		"label":     reg.Label,
	})
}

type recordOutcome struct {
	Role    string `json:"role"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type reconcilePayload struct {
	DomainID string          `json:"domain_id"`
	Label    string          `json:"label"`
	FQDN     string          `json:"fqdn"`
	Status   string          `json:"status"`
	Records  []recordOutcome `json:"records"`
}

// ReconcileCompleted pushes the per-record summary of a record change so the
// dashboard can show partial failures without polling.
func (s *Server) ReconcileCompleted(reg *model.DomainRegistration, result *reconciler.ApplyResult) {
	status := "reconciled"
	if result.PartialSuccess {
		status = "partial"
	}
	payload := reconcilePayload{
		DomainID: reg.PublicID,
		Label:    reg.Label,
		FQDN:     reg.FQDN(),
		Status:   status,
	}
	for _, r := range result.Results {
		payload.Records = append(payload.Records, recordOutcome{
			Role:    string(r.Role),
			Success: r.Success,
			Error:   r.Error,
		})
	}
	s.broadcast("domain:status", payload)
}
