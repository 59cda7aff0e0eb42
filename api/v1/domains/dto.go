package domains

import (
	"time"

	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/model"
	"github.com/jason-czar/freedomains/internal/reconciler"
)

// CreateRequest represents the request body for registering a domain
type CreateRequest struct {
	Label          string         `json:"label" binding:"required"`
	DelegationType string         `json:"delegationType"`
	Nameservers    []string       `json:"nameservers"`
	EmailEnabled   bool           `json:"emailEnabled"`
	Forwarding     *ForwardingDTO `json:"forwarding"`
}

// ForwardingDTO represents URL forwarding settings
type ForwardingDTO struct {
	TargetURL string `json:"targetUrl" binding:"required"`
	Permanent bool   `json:"permanent"`
}

func (f *ForwardingDTO) toSpec() dnsspec.Forwarding {
	kind := dnsspec.RedirectTemporary
	if f.Permanent {
		kind = dnsspec.RedirectPermanent
	}
	return dnsspec.Forwarding{TargetURL: f.TargetURL, RedirectKind: kind}
}

// DelegateRequest carries the nameservers for a delegation switch
type DelegateRequest struct {
	Nameservers []string `json:"nameservers" binding:"required,min=2"`
}

// AddRecordRequest represents one extra record to create. Name is relative
// to the registration ("www", or empty/@ for the registration itself).
type AddRecordRequest struct {
	Role     string `json:"role" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Name     string `json:"name"`
	Content  string `json:"content" binding:"required"`
	TTL      int    `json:"ttl"`
	Priority int    `json:"priority"`
	Proxied  bool   `json:"proxied"`
}

func (r *AddRecordRequest) toSpec(registrationFQDN string) dnsspec.RecordSpec {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = dnsspec.TTLAutomatic
	}
	return dnsspec.RecordSpec{
		Role:     dnsspec.Role(r.Role),
		Type:     dnsspec.RecordType(r.Type),
		Name:     dnsspec.FQDN(r.Name, registrationFQDN),
		Content:  r.Content,
		TTL:      ttl,
		Priority: r.Priority,
		Proxied:  r.Proxied,
	}
}

// VerificationDTO is the verification slice of a registration response
type VerificationDTO struct {
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastResult    string     `json:"lastResult,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`
}

// RegistrationDTO represents a domain registration in responses
type RegistrationDTO struct {
	ID             string          `json:"id"`
	Label          string          `json:"label"`
	FQDN           string          `json:"fqdn"`
	DelegationType string          `json:"delegationType"`
	Nameservers    []string        `json:"nameservers,omitempty"`
	EmailEnabled   bool            `json:"emailEnabled"`
	Forwarding     *ForwardingDTO  `json:"forwarding,omitempty"`
	Verification   VerificationDTO `json:"verification"`
	IsActive       bool            `json:"isActive"`
	ExpiresAt      time.Time       `json:"expiresAt"`
	ExpiringSoon   bool            `json:"expiringSoon"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func toDTO(reg *model.DomainRegistration) RegistrationDTO {
	cfg := reg.Config.Data()
	dto := RegistrationDTO{
		ID:             reg.PublicID,
		Label:          reg.Label,
		FQDN:           reg.FQDN(),
		DelegationType: string(cfg.DelegationType),
		Nameservers:    cfg.Nameservers,
		EmailEnabled:   cfg.EmailEnabled,
		Verification: VerificationDTO{
			Status:        string(cfg.Verification.Status),
			Attempts:      cfg.Verification.Attempts,
			LastResult:    cfg.Verification.LastResult,
			LastError:     cfg.Verification.LastError,
			LastCheckedAt: cfg.Verification.LastCheckedAt,
		},
		IsActive:     reg.IsActive,
		ExpiresAt:    reg.ExpiresAt,
		ExpiringSoon: time.Until(reg.ExpiresAt) < 30*24*time.Hour,
		CreatedAt:    reg.CreatedAt,
	}
	if cfg.Forwarding != nil {
		dto.Forwarding = &ForwardingDTO{
			TargetURL: cfg.Forwarding.TargetURL,
			Permanent: cfg.Forwarding.RedirectKind == dnsspec.RedirectPermanent,
		}
	}
	return dto
}

// RecordResultDTO reports how one record change went
type RecordResultDTO struct {
	Role    string `json:"role"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ApplyResultDTO reports the per-record outcome of a change
type ApplyResultDTO struct {
	Partial bool              `json:"partial"`
	Records []RecordResultDTO `json:"records"`
}

func toApplyDTO(result *reconciler.ApplyResult) *ApplyResultDTO {
	if result == nil {
		return nil
	}
	dto := &ApplyResultDTO{Partial: result.PartialSuccess}
	for _, r := range result.Results {
		dto.Records = append(dto.Records, RecordResultDTO{
			Role:    string(r.Role),
			Success: r.Success,
			Error:   r.Error,
		})
	}
	return dto
}
