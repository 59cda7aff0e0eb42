package domains

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jason-czar/freedomains/api/v1/middleware"
	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/httpx"
	"github.com/jason-czar/freedomains/internal/planner"
	"github.com/jason-czar/freedomains/internal/provider"
	"github.com/jason-czar/freedomains/internal/registration"
	"github.com/jason-czar/freedomains/internal/store"
)

// RecordLister exposes the raw provider records for a name
type RecordLister interface {
	ListRecords(ctx context.Context, fqdn string) ([]provider.Record, error)
}

// Handler handles domain registration requests
type Handler struct {
	svc     *registration.Service
	records RecordLister
}

// NewHandler creates a new domains handler
func NewHandler(svc *registration.Service, records RecordLister) *Handler {
	return &Handler{svc: svc, records: records}
}

// Create handles POST /api/v1/domains
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}

	input := registration.RegisterInput{
		Label:          req.Label,
		DelegationType: dnsspec.DelegationType(req.DelegationType),
		Nameservers:    req.Nameservers,
		EmailEnabled:   req.EmailEnabled,
	}
	if req.Forwarding != nil {
		fwd := req.Forwarding.toSpec()
		input.Forwarding = &fwd
	}

	reg, result, err := h.svc.Register(c.Request.Context(), middleware.OwnerID(c), input)
	if err != nil {
		failService(c, err)
		return
	}

	httpx.OK(c, gin.H{
		"domain": toDTO(reg),
		"apply":  toApplyDTO(result),
	})
}

// List handles GET /api/v1/domains
func (h *Handler) List(c *gin.Context) {
	regs, err := h.svc.List(middleware.OwnerID(c))
	if err != nil {
		failService(c, err)
		return
	}
	items := make([]RegistrationDTO, 0, len(regs))
	for i := range regs {
		items = append(items, toDTO(&regs[i]))
	}
	httpx.OK(c, gin.H{"items": items, "total": len(items)})
}

// Get handles GET /api/v1/domains/:id
func (h *Handler) Get(c *gin.Context) {
	reg, err := h.svc.Get(middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, toDTO(reg))
}

// CheckAvailable handles GET /api/v1/domains/check?label=
func (h *Handler) CheckAvailable(c *gin.Context) {
	label := c.Query("label")
	if label == "" {
		httpx.FailErr(c, httpx.ErrParamMissing("label is required"))
		return
	}
	available, err := h.svc.CheckAvailable(c.Request.Context(), label)
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, gin.H{"label": label, "available": available})
}

// ListRecords handles GET /api/v1/domains/:id/dns-records
func (h *Handler) ListRecords(c *gin.Context) {
	reg, err := h.svc.Get(middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	records, err := h.records.ListRecords(c.Request.Context(), reg.FQDN())
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, gin.H{"items": records, "total": len(records)})
}

// AddRecord handles POST /api/v1/domains/:id/dns-records
func (h *Handler) AddRecord(c *gin.Context) {
	reg, err := h.svc.Get(middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	var req AddRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}
	result, err := h.svc.AddRecord(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), req.toSpec(reg.FQDN()))
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, toApplyDTO(result))
}

// RemoveRecord handles DELETE /api/v1/domains/:id/dns-records/:role
func (h *Handler) RemoveRecord(c *gin.Context) {
	result, err := h.svc.RemoveRole(c.Request.Context(), middleware.OwnerID(c), c.Param("id"),
		dnsspec.Role(c.Param("role")))
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, toApplyDTO(result))
}

// Delegate handles POST /api/v1/domains/:id/delegate
func (h *Handler) Delegate(c *gin.Context) {
	var req DelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}
	result, err := h.svc.Delegate(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), req.Nameservers)
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, toApplyDTO(result))
}

// Recheck handles POST /api/v1/domains/:id/recheck-verification
func (h *Handler) Recheck(c *gin.Context) {
	state, err := h.svc.Recheck(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, VerificationDTO{
		Status:        string(state.Status),
		Attempts:      state.Attempts,
		LastResult:    state.LastResult,
		LastError:     state.LastError,
		LastCheckedAt: state.LastCheckedAt,
	})
}

// Renew handles POST /api/v1/domains/:id/renew
func (h *Handler) Renew(c *gin.Context) {
	reg, err := h.svc.Renew(middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, toDTO(reg))
}

// EnableEmail handles POST /api/v1/domains/:id/email
func (h *Handler) EnableEmail(c *gin.Context) {
	result, err := h.svc.EnableEmail(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, toApplyDTO(result))
}

// DisableEmail handles DELETE /api/v1/domains/:id/email
func (h *Handler) DisableEmail(c *gin.Context) {
	result, err := h.svc.DisableEmail(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, toApplyDTO(result))
}

// SetForwarding handles PUT /api/v1/domains/:id/forwarding
func (h *Handler) SetForwarding(c *gin.Context) {
	var req ForwardingDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}
	result, err := h.svc.SetForwarding(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), req.toSpec())
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, toApplyDTO(result))
}

// ClearForwarding handles DELETE /api/v1/domains/:id/forwarding
func (h *Handler) ClearForwarding(c *gin.Context) {
	result, err := h.svc.ClearForwarding(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, toApplyDTO(result))
}

// Suspend handles POST /api/v1/domains/:id/suspend
func (h *Handler) Suspend(c *gin.Context) {
	if err := h.svc.Suspend(c.Request.Context(), middleware.OwnerID(c), c.Param("id")); err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, gin.H{"suspended": true})
}

// Delete handles DELETE /api/v1/domains/:id
func (h *Handler) Delete(c *gin.Context) {
	result, err := h.svc.Delete(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	httpx.OK(c, result)
}

// failService maps service errors to the response envelope
func failService(c *gin.Context, err error) {
	var invalid *planner.InvalidConfigError
	var notViable *registration.NotViableError
	var rejected *provider.RejectedError

	switch {
	case errors.As(err, &invalid):
		httpx.FailErr(c, httpx.ErrParamInvalid(invalid.Error()))
	case errors.Is(err, registration.ErrLabelTaken):
		httpx.FailErr(c, httpx.ErrAlreadyExists("label is already registered"))
	case errors.Is(err, registration.ErrPaymentRequired):
		httpx.FailErr(c, httpx.ErrPaymentRequired(""))
	case errors.Is(err, registration.ErrForbidden):
		httpx.FailErr(c, httpx.ErrForbidden(""))
	case errors.Is(err, store.ErrNotFound):
		httpx.FailErr(c, httpx.ErrNotFound("domain not found"))
	case errors.Is(err, store.ErrConflict):
		httpx.FailErr(c, httpx.ErrStateConflict("domain was modified concurrently, retry"))
	case errors.Is(err, registration.ErrPartialApply):
		httpx.FailErr(c, httpx.ErrPartialFailure(err.Error(), nil))
	case errors.As(err, &notViable):
		httpx.FailErr(c, httpx.ErrExternalError(notViable.Error(), nil))
	case errors.As(err, &rejected):
		httpx.FailErr(c, httpx.ErrExternalError(rejected.Error(), nil))
	case errors.Is(err, provider.ErrTimeout), errors.Is(err, provider.ErrUnavailable):
		httpx.FailErr(c, httpx.ErrExternalError("DNS provider unavailable", err))
	default:
		httpx.FailErr(c, httpx.ErrInternalError("", err))
	}
}
