package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/model"
	"github.com/jason-czar/freedomains/internal/planner"
	"github.com/jason-czar/freedomains/internal/reconciler"
	"github.com/jason-czar/freedomains/internal/store"
	"github.com/jason-czar/freedomains/internal/verification"
)

// Store is the persistence surface the service needs
type Store interface {
	Insert(reg *model.DomainRegistration) error
	Get(id int) (*model.DomainRegistration, error)
	GetByPublicID(publicID string) (*model.DomainRegistration, error)
	FindByLabel(label string) (*model.DomainRegistration, error)
	ListByOwner(ownerID int) ([]model.DomainRegistration, error)
	UpdateConfig(id int, merge func(cfg *dnsspec.DomainConfig) error) (*dnsspec.DomainConfig, error)
	SetActive(id int, active bool) error
	Touch(id int, expiresAt time.Time) error
	Delete(id int) error
}

// Availability answers "is this label still unclaimed at the provider".
// The redis-backed decorator in internal/cache satisfies this; Invalidate
// keeps it truthful when a registration claims or frees a label.
type Availability interface {
	CheckAvailable(ctx context.Context, label string) (bool, error)
	Invalidate(ctx context.Context, label string)
}

// Reconciler is the record-management surface the service drives
type Reconciler interface {
	ApplyPlan(ctx context.Context, plan []dnsspec.RecordSpec) *reconciler.ApplyResult
	AddRecords(ctx context.Context, domainID int, specs []dnsspec.RecordSpec) (*reconciler.ApplyResult, error)
	RemoveRecords(ctx context.Context, domainID int, roles []dnsspec.Role) (*reconciler.ApplyResult, error)
	ReplaceRole(ctx context.Context, domainID int, role dnsspec.Role, spec dnsspec.RecordSpec) (*reconciler.ApplyResult, error)
	RollbackByIDs(ctx context.Context, ids []string) error
	Teardown(ctx context.Context, reg *model.DomainRegistration) ([]string, error)
}

// Verifier drives the propagation state machine
type Verifier interface {
	Begin(domainID int) *verification.Handle
	Recheck(domainID int) (dnsspec.VerificationState, error)
}

// PaymentChecker gates record creation that implies billing
type PaymentChecker interface {
	HasValidPaymentMethod(ctx context.Context, ownerID int) (bool, error)
}

// Notifier pushes registration lifecycle events to connected dashboards.
// Emission is best effort: a broadcast failure never fails the flow.
type Notifier interface {
	ReconcileCompleted(reg *model.DomainRegistration, result *reconciler.ApplyResult)
	RegistrationDeleted(reg *model.DomainRegistration)
}

// RecheckLimiter collapses concurrent manual recheck requests for the same
// domain into one provider probe
type RecheckLimiter interface {
	Acquire(ctx context.Context, domainID int) bool
}

// Service orchestrates the registration flows the dashboard calls
type Service struct {
	store        Store
	availability Availability
	reconciler   Reconciler
	verifier     Verifier
	billing      PaymentChecker
	notifier     Notifier
	limiter      RecheckLimiter
	targets      planner.Targets
	parentDomain string
	logger       *logrus.Entry
}

// NewService creates the registration service
func NewService(s Store, avail Availability, rec Reconciler, ver Verifier, billing PaymentChecker,
	targets planner.Targets, parentDomain string, logger *logrus.Entry) *Service {
	return &Service{
		store:        s,
		availability: avail,
		reconciler:   rec,
		verifier:     ver,
		billing:      billing,
		targets:      targets,
		parentDomain: parentDomain,
		logger:       logger.WithField("component", "registration"),
	}
}

// SetNotifier wires the event publisher; nil disables emission
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetRecheckLimiter wires the recheck dedup guard; nil disables deduping
func (s *Service) SetRecheckLimiter(l RecheckLimiter) {
	s.limiter = l
}

func (s *Service) notifyReconcile(reg *model.DomainRegistration, result *reconciler.ApplyResult) {
	if s.notifier != nil && result != nil {
		s.notifier.ReconcileCompleted(reg, result)
	}
}

// RegisterInput is the desired shape of a new registration
type RegisterInput struct {
	Label          string
	DelegationType dnsspec.DelegationType
	Nameservers    []string
	EmailEnabled   bool
	Forwarding     *dnsspec.Forwarding
}

// Register creates a registration end to end: availability, payment gate,
// plan, provider records, database row, verification kickoff. It either
// succeeds, succeeds with verification pending, or fails with the
// provider-side changes rolled back, never an orphaned row or orphaned
// records.
func (s *Service) Register(ctx context.Context, ownerID int, input RegisterInput) (*model.DomainRegistration, *reconciler.ApplyResult, error) {
	if input.DelegationType == "" {
		input.DelegationType = dnsspec.DelegationStandard
	}
	cfg := dnsspec.DomainConfig{
		DelegationType: input.DelegationType,
		Nameservers:    input.Nameservers,
		EmailEnabled:   input.EmailEnabled,
		Forwarding:     input.Forwarding,
		Verification:   dnsspec.VerificationState{Status: dnsspec.VerificationPending},
	}

	// Plan first: a malformed config must never touch the provider
	plan, err := planner.Plan(input.Label, s.parentDomain, cfg, s.targets)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.store.FindByLabel(input.Label); err == nil {
		return nil, nil, ErrLabelTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}
	available, err := s.availability.CheckAvailable(ctx, input.Label)
	if err != nil {
		return nil, nil, fmt.Errorf("availability check failed: %w", err)
	}
	if !available {
		return nil, nil, ErrLabelTaken
	}

	if input.EmailEnabled {
		if err := s.requirePayment(ctx, ownerID); err != nil {
			return nil, nil, err
		}
	}

	result := s.reconciler.ApplyPlan(ctx, plan)
	if !result.Viable(input.DelegationType) {
		if err := s.reconciler.RollbackByIDs(ctx, result.CreatedIDs()); err != nil {
			s.logger.WithField("label", input.Label).Errorf("rollback after non-viable create failed: %v", err)
		}
		return nil, result, &NotViableError{Delegation: input.DelegationType, Result: result}
	}

	cfg.KnownRecordIDs = make(map[dnsspec.Role]string)
	for _, res := range result.Results {
		if res.Success && res.ProviderID != "" {
			cfg.KnownRecordIDs[res.Role] = res.ProviderID
		}
	}
	if input.DelegationType == dnsspec.DelegationDelegated {
		// Nothing to poll once delegated: record management and ownership
		// verification belong to the user's nameservers now
		cfg.Verification.Status = dnsspec.VerificationActive
		cfg.Verification.LastResult = "delegated"
	}

	reg := &model.DomainRegistration{
		PublicID:     uuid.NewString(),
		OwnerID:      ownerID,
		Label:        input.Label,
		ParentDomain: s.parentDomain,
		IsActive:     true,
		ExpiresAt:    time.Now().AddDate(1, 0, 0),
		Config:       datatypes.NewJSONType(cfg),
	}
	if err := s.store.Insert(reg); err != nil {
		// The user must not end up with orphaned DNS records and no row:
		// delete exactly what this call created, by provider ID
		if rbErr := s.reconciler.RollbackByIDs(ctx, result.CreatedIDs()); rbErr != nil {
			s.logger.WithField("label", input.Label).Errorf("rollback after insert failure incomplete: %v", rbErr)
		}
		return nil, result, fmt.Errorf("failed to persist registration: %w", err)
	}

	// The cached availability answer is stale the moment the row exists
	s.availability.Invalidate(ctx, input.Label)

	if input.DelegationType == dnsspec.DelegationStandard {
		s.verifier.Begin(reg.ID)
	}
	s.notifyReconcile(reg, result)

	s.logger.WithFields(logrus.Fields{
		"label":    input.Label,
		"owner_id": ownerID,
		"partial":  result.PartialSuccess,
	}).Info("registration created")
	return reg, result, nil
}

// Get returns a registration owned by ownerID
func (s *Service) Get(ownerID int, publicID string) (*model.DomainRegistration, error) {
	return s.owned(ownerID, publicID)
}

// List returns all registrations owned by ownerID
func (s *Service) List(ownerID int) ([]model.DomainRegistration, error) {
	return s.store.ListByOwner(ownerID)
}

// CheckAvailable reports whether a label can still be registered
func (s *Service) CheckAvailable(ctx context.Context, label string) (bool, error) {
	if _, err := s.store.FindByLabel(label); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	return s.availability.CheckAvailable(ctx, label)
}

// EnableEmail adds the mail record set to an existing registration
func (s *Service) EnableEmail(ctx context.Context, ownerID int, publicID string) (*reconciler.ApplyResult, error) {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return nil, err
	}
	if err := s.requirePayment(ctx, ownerID); err != nil {
		return nil, err
	}

	specs, err := planner.EmailRecords(reg.Label, reg.ParentDomain, s.targets)
	if err != nil {
		return nil, err
	}
	result, err := s.reconciler.AddRecords(ctx, reg.ID, specs)
	if err != nil {
		return nil, err
	}
	if !result.PartialSuccess {
		_, err = s.store.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
			cfg.EmailEnabled = true
			return nil
		})
	}
	s.notifyReconcile(reg, result)
	return result, err
}

// DisableEmail removes the mail record set
func (s *Service) DisableEmail(ctx context.Context, ownerID int, publicID string) (*reconciler.ApplyResult, error) {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return nil, err
	}
	result, err := s.reconciler.RemoveRecords(ctx, reg.ID,
		[]dnsspec.Role{dnsspec.RoleMXPrimary, dnsspec.RoleMXSecondary, dnsspec.RoleSPFTXT})
	if err != nil {
		return nil, err
	}
	if !result.PartialSuccess {
		_, err = s.store.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
			cfg.EmailEnabled = false
			return nil
		})
	}
	s.notifyReconcile(reg, result)
	return result, err
}

// SetForwarding swaps the main record for a URL-forward record
func (s *Service) SetForwarding(ctx context.Context, ownerID int, publicID string, fwd dnsspec.Forwarding) (*reconciler.ApplyResult, error) {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return nil, err
	}

	spec, err := planner.ForwardRecord(reg.Label, reg.ParentDomain, fwd)
	if err != nil {
		return nil, err
	}

	// Drop the main record first so the forward CNAME cannot conflict
	removal, err := s.reconciler.RemoveRecords(ctx, reg.ID,
		[]dnsspec.Role{dnsspec.RoleMainA, dnsspec.RoleMainCNAME})
	if err != nil {
		return removal, err
	}
	if removal.PartialSuccess {
		return removal, fmt.Errorf("could not remove main record before forwarding: %w", ErrPartialApply)
	}

	result, err := s.reconciler.AddRecords(ctx, reg.ID, []dnsspec.RecordSpec{spec})
	if err != nil {
		return result, err
	}
	if !result.PartialSuccess {
		_, err = s.store.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
			f := fwd
			cfg.Forwarding = &f
			return nil
		})
	}
	s.notifyReconcile(reg, result)
	return result, err
}

// ClearForwarding restores the standard main record
func (s *Service) ClearForwarding(ctx context.Context, ownerID int, publicID string) (*reconciler.ApplyResult, error) {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return nil, err
	}

	removal, err := s.reconciler.RemoveRecords(ctx, reg.ID, []dnsspec.Role{dnsspec.RoleForwardURL})
	if err != nil {
		return removal, err
	}
	if removal.PartialSuccess {
		return removal, fmt.Errorf("could not remove forward record: %w", ErrPartialApply)
	}

	main, err := planner.MainRecord(reg.Label, reg.ParentDomain, s.targets)
	if err != nil {
		return nil, err
	}
	result, err := s.reconciler.AddRecords(ctx, reg.ID, []dnsspec.RecordSpec{main})
	if err != nil {
		return result, err
	}
	if !result.PartialSuccess {
		_, err = s.store.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
			cfg.Forwarding = nil
			return nil
		})
	}
	s.notifyReconcile(reg, result)
	return result, err
}

// Delegate switches a registration to user-managed nameservers: every
// platform-managed record is torn down, NS records are created, and
// verification is settled immediately since nothing is left to poll.
func (s *Service) Delegate(ctx context.Context, ownerID int, publicID string, nameservers []string) (*reconciler.ApplyResult, error) {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return nil, err
	}

	specs, err := planner.NSRecords(reg.Label, reg.ParentDomain, nameservers)
	if err != nil {
		return nil, err
	}

	// The old record set must be gone before delegation: a half-removed
	// main record under foreign nameservers is worse than a failed switch
	if leftover, terr := s.reconciler.Teardown(ctx, reg); terr != nil || len(leftover) > 0 {
		s.logger.WithFields(logrus.Fields{
			"label":    reg.Label,
			"leftover": leftover,
		}).Errorf("pre-delegation teardown incomplete: %v", terr)
		return nil, fmt.Errorf("could not remove existing records before delegation: %w", ErrPartialApply)
	}
	if _, err := s.store.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
		cfg.KnownRecordIDs = nil
		return nil
	}); err != nil {
		return nil, err
	}

	result, err := s.reconciler.AddRecords(ctx, reg.ID, specs)
	if err != nil {
		return nil, err
	}
	if !result.Viable(dnsspec.DelegationDelegated) {
		if rbErr := s.reconciler.RollbackByIDs(ctx, result.CreatedIDs()); rbErr != nil {
			s.logger.WithField("label", reg.Label).Errorf("rollback after failed delegation incomplete: %v", rbErr)
		}
		return result, &NotViableError{Delegation: dnsspec.DelegationDelegated, Result: result}
	}

	_, err = s.store.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
		cfg.DelegationType = dnsspec.DelegationDelegated
		cfg.Nameservers = nameservers
		cfg.EmailEnabled = false
		cfg.Forwarding = nil
		cfg.Verification.Status = dnsspec.VerificationActive
		cfg.Verification.LastResult = "delegated"
		cfg.Verification.LastError = ""
		return nil
	})
	s.notifyReconcile(reg, result)
	return result, err
}

// AddRecord creates one extra record for a registration. The reconciler
// rejects conflicts with the tracked record set before any provider call.
func (s *Service) AddRecord(ctx context.Context, ownerID int, publicID string, spec dnsspec.RecordSpec) (*reconciler.ApplyResult, error) {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return nil, err
	}
	result, err := s.reconciler.AddRecords(ctx, reg.ID, []dnsspec.RecordSpec{spec})
	if err != nil {
		return nil, err
	}
	s.notifyReconcile(reg, result)
	return result, nil
}

// RemoveRole deletes the record behind one role
func (s *Service) RemoveRole(ctx context.Context, ownerID int, publicID string, role dnsspec.Role) (*reconciler.ApplyResult, error) {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return nil, err
	}
	result, err := s.reconciler.RemoveRecords(ctx, reg.ID, []dnsspec.Role{role})
	if err != nil {
		return nil, err
	}
	s.notifyReconcile(reg, result)
	return result, nil
}

// Recheck runs one synchronous verification attempt. Concurrent rechecks
// for the same domain are collapsed: the loser gets the stored state.
func (s *Service) Recheck(ctx context.Context, ownerID int, publicID string) (dnsspec.VerificationState, error) {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return dnsspec.VerificationState{}, err
	}
	if s.limiter != nil && !s.limiter.Acquire(ctx, reg.ID) {
		return reg.Config.Data().Verification, nil
	}
	return s.verifier.Recheck(reg.ID)
}

// Renew extends a registration by one year from its current expiry, or from
// now when it has already lapsed.
func (s *Service) Renew(ownerID int, publicID string) (*model.DomainRegistration, error) {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return nil, err
	}
	base := reg.ExpiresAt
	if now := time.Now(); base.Before(now) {
		base = now
	}
	reg.ExpiresAt = base.AddDate(1, 0, 0)
	if err := s.store.Touch(reg.ID, reg.ExpiresAt); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"label":      reg.Label,
		"expires_at": reg.ExpiresAt,
	}).Info("registration renewed")
	return reg, nil
}

// Suspend soft-destroys a registration: the row stays (isActive=false) but
// all provider records are torn down.
func (s *Service) Suspend(ctx context.Context, ownerID int, publicID string) error {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return err
	}
	if err := s.store.SetActive(reg.ID, false); err != nil {
		return err
	}
	leftover, err := s.reconciler.Teardown(ctx, reg)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"label":    reg.Label,
			"leftover": leftover,
		}).Errorf("suspension teardown incomplete: %v", err)
	}
	_, mergeErr := s.store.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
		cfg.KnownRecordIDs = nil
		return nil
	})
	return mergeErr
}

// DeleteResult reports how a hard deletion went
type DeleteResult struct {
	// RemoteCleanupComplete is false when provider records could not all be
	// deleted. Local deletion proceeds regardless; the leftovers are logged.
	RemoteCleanupComplete bool     `json:"remote_cleanup_complete"`
	LeftoverRecordIDs     []string `json:"leftover_record_ids,omitempty"`
}

// Delete hard-deletes a registration. Remote cleanup failure never blocks
// local deletion, but it is logged and reported to the caller.
func (s *Service) Delete(ctx context.Context, ownerID int, publicID string) (*DeleteResult, error) {
	reg, err := s.owned(ownerID, publicID)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{RemoteCleanupComplete: true}
	leftover, err := s.reconciler.Teardown(ctx, reg)
	if err != nil || len(leftover) > 0 {
		result.RemoteCleanupComplete = false
		result.LeftoverRecordIDs = leftover
		s.logger.WithFields(logrus.Fields{
			"label":    reg.Label,
			"leftover": leftover,
		}).Errorf("remote cleanup incomplete, deleting locally anyway: %v", err)
	}

	if err := s.store.Delete(reg.ID); err != nil {
		return result, fmt.Errorf("failed to delete registration: %w", err)
	}
	// The label is claimable again; a cached "taken" answer would block it
	s.availability.Invalidate(ctx, reg.Label)
	if s.notifier != nil {
		s.notifier.RegistrationDeleted(reg)
	}
	return result, nil
}

func (s *Service) requirePayment(ctx context.Context, ownerID int) error {
	ok, err := s.billing.HasValidPaymentMethod(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("payment method check failed: %w", err)
	}
	if !ok {
		return ErrPaymentRequired
	}
	return nil
}

func (s *Service) owned(ownerID int, publicID string) (*model.DomainRegistration, error) {
	reg, err := s.store.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}
	if reg.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return reg, nil
}
