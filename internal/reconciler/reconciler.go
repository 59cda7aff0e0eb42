package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/model"
	"github.com/jason-czar/freedomains/internal/planner"
	"github.com/jason-czar/freedomains/internal/provider"
)

// ProviderAPI is the slice of the gateway client the reconciler drives
type ProviderAPI interface {
	CreateRecord(ctx context.Context, spec dnsspec.RecordSpec) (provider.Record, error)
	UpdateRecord(ctx context.Context, recordID string, spec dnsspec.RecordSpec) (provider.Record, error)
	DeleteRecord(ctx context.Context, recordID string) error
	ListRecords(ctx context.Context, fqdn string) ([]provider.Record, error)
	ApplyZoneSettings(ctx context.Context, settings provider.ZoneSettings) error
}

// ConfigStore is the slice of the store the reconciler records progress in
type ConfigStore interface {
	Get(id int) (*model.DomainRegistration, error)
	UpdateConfig(id int, merge func(cfg *dnsspec.DomainConfig) error) (*dnsspec.DomainConfig, error)
}

// Reconciler turns record plans into provider-side reality and keeps
// KnownRecordIDs truthful about what exists remotely.
type Reconciler struct {
	provider ProviderAPI
	store    ConfigStore
	posture  provider.ZoneSettings
	logger   *logrus.Entry
	// spawn runs fire-and-forget work; tests inject a synchronous runner
	spawn func(func())
}

// New creates a reconciler
func New(p ProviderAPI, s ConfigStore, posture provider.ZoneSettings, logger *logrus.Entry) *Reconciler {
	return &Reconciler{
		provider: p,
		store:    s,
		posture:  posture,
		logger:   logger.WithField("component", "reconciler"),
		spawn:    func(f func()) { go f() },
	}
}

// SetSpawner overrides how background work is launched
func (r *Reconciler) SetSpawner(spawn func(func())) {
	r.spawn = spawn
}

// ApplyPlan executes a plan in order, best effort. An early failure (say the
// main record) does not stop later independent records; every outcome lands
// in the result and the caller decides what a partial success means.
// ApplyPlan touches only the provider: persistence belongs to the caller,
// which lets the registration flow create records before the database row
// exists and roll back precisely if the insert fails.
func (r *Reconciler) ApplyPlan(ctx context.Context, plan []dnsspec.RecordSpec) *ApplyResult {
	result := &ApplyResult{}

	for _, spec := range plan {
		created, err := r.provider.CreateRecord(ctx, spec)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"role": spec.Role,
				"name": spec.Name,
				"kind": failureKind(err),
			}).Warnf("record create failed: %v", err)
			result.Results = append(result.Results, RecordResult{
				Role:        spec.Role,
				FailureKind: failureKind(err),
				Error:       err.Error(),
			})
			result.PartialSuccess = true
			continue
		}
		result.Results = append(result.Results, RecordResult{
			Role:       spec.Role,
			Success:    true,
			ProviderID: created.ID,
		})
	}

	if touchesAddressRecords(plan, result) {
		r.spawn(func() { r.updatePosture() })
	}

	return result
}

// Create applies a plan for an existing registration and records the
// resulting provider IDs in its config.
func (r *Reconciler) Create(ctx context.Context, domainID int, plan []dnsspec.RecordSpec) (*ApplyResult, error) {
	result := r.ApplyPlan(ctx, plan)
	if err := r.rememberIDs(domainID, result); err != nil {
		return result, err
	}
	return result, nil
}

// AddRecords validates specs against the registration's current record set
// and creates them. Conflicts (duplicate role, CNAME against an existing
// address record at the same name) are rejected before any provider call.
func (r *Reconciler) AddRecords(ctx context.Context, domainID int, specs []dnsspec.RecordSpec) (*ApplyResult, error) {
	reg, err := r.store.Get(domainID)
	if err != nil {
		return nil, err
	}

	existing := knownShapes(reg)
	if err := planner.Validate(append(existing, specs...)); err != nil {
		return nil, err
	}

	result := r.ApplyPlan(ctx, specs)
	if err := r.rememberIDs(domainID, result); err != nil {
		return result, err
	}
	return result, nil
}

// RemoveRecords deletes the given roles. A role with no known provider ID is
// a no-op success: deletion is idempotent, calling it twice for the same
// role set succeeds both times.
func (r *Reconciler) RemoveRecords(ctx context.Context, domainID int, roles []dnsspec.Role) (*ApplyResult, error) {
	reg, err := r.store.Get(domainID)
	if err != nil {
		return nil, err
	}
	known := reg.Config.Data().KnownRecordIDs

	result := &ApplyResult{}
	var deleted []dnsspec.Role

	for _, role := range roles {
		recordID, ok := known[role]
		if !ok || recordID == "" {
			// Already gone or never created
			result.Results = append(result.Results, RecordResult{Role: role, Success: true})
			deleted = append(deleted, role)
			continue
		}
		if err := r.provider.DeleteRecord(ctx, recordID); err != nil {
			r.logger.WithField("role", role).Warnf("record delete failed: %v", err)
			result.Results = append(result.Results, RecordResult{
				Role:        role,
				FailureKind: failureKind(err),
				Error:       err.Error(),
			})
			result.PartialSuccess = true
			continue
		}
		result.Results = append(result.Results, RecordResult{Role: role, Success: true, ProviderID: recordID})
		deleted = append(deleted, role)
	}

	// Drop only the entries the provider confirmed gone
	if len(deleted) > 0 {
		_, err = r.store.UpdateConfig(domainID, func(cfg *dnsspec.DomainConfig) error {
			for _, role := range deleted {
				delete(cfg.KnownRecordIDs, role)
			}
			return nil
		})
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// ReplaceRole swaps the record behind a role for a new spec, updating in
// place when the provider ID is known and creating otherwise.
func (r *Reconciler) ReplaceRole(ctx context.Context, domainID int, role dnsspec.Role, spec dnsspec.RecordSpec) (*ApplyResult, error) {
	reg, err := r.store.Get(domainID)
	if err != nil {
		return nil, err
	}

	spec.Role = role
	existing := knownShapes(reg)
	var kept []dnsspec.RecordSpec
	for _, e := range existing {
		if e.Role != role {
			kept = append(kept, e)
		}
	}
	if err := planner.Validate(append(kept, spec)); err != nil {
		return nil, err
	}

	result := &ApplyResult{}
	recordID := reg.Config.Data().KnownRecordIDs[role]

	var record provider.Record
	if recordID != "" {
		record, err = r.provider.UpdateRecord(ctx, recordID, spec)
	} else {
		record, err = r.provider.CreateRecord(ctx, spec)
	}
	if err != nil {
		result.Results = append(result.Results, RecordResult{
			Role:        role,
			FailureKind: failureKind(err),
			Error:       err.Error(),
		})
		result.PartialSuccess = true
		return result, nil
	}

	result.Results = append(result.Results, RecordResult{Role: role, Success: true, ProviderID: record.ID})
	if err := r.rememberIDs(domainID, result); err != nil {
		return result, err
	}

	if spec.Type == dnsspec.RecordTypeA || spec.Type == dnsspec.RecordTypeAAAA || spec.Type == dnsspec.RecordTypeCNAME {
		r.spawn(func() { r.updatePosture() })
	}
	return result, nil
}

// RollbackByIDs deletes exactly the given provider record IDs. Used when a
// store insert fails after records were already created: the user must not
// be left with orphaned DNS records and no registration.
func (r *Reconciler) RollbackByIDs(ctx context.Context, ids []string) error {
	var failed []string
	for _, id := range ids {
		if err := r.provider.DeleteRecord(ctx, id); err != nil {
			r.logger.WithField("record_id", id).Errorf("rollback delete failed: %v", err)
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("rollback left %d records at the provider: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// Teardown removes every provider record belonging to a registration: all
// records listed at its fully qualified name (catching orphans that were
// never tracked), the platform-verification record at its _verify name
// (a different name, easy to miss with a plain list), and any tracked IDs
// the listings did not cover. Returns the provider IDs it could not delete.
func (r *Reconciler) Teardown(ctx context.Context, reg *model.DomainRegistration) ([]string, error) {
	fqdn := reg.FQDN()
	seen := make(map[string]struct{})
	var failed []string
	var firstErr error

	deleteByID := func(id string) {
		if _, done := seen[id]; done || id == "" {
			return
		}
		seen[id] = struct{}{}
		if err := r.provider.DeleteRecord(ctx, id); err != nil {
			r.logger.WithField("record_id", id).Errorf("teardown delete failed: %v", err)
			failed = append(failed, id)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	for _, name := range []string{fqdn, dnsspec.VerifyFQDN(reg.Label, reg.ParentDomain)} {
		records, err := r.provider.ListRecords(ctx, name)
		if err != nil {
			r.logger.WithField("name", name).Errorf("teardown list failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, rec := range records {
			deleteByID(rec.ID)
		}
	}

	// Tracked IDs not covered by the listings (renamed or mislabeled remotely)
	for _, id := range reg.Config.Data().KnownRecordIDs {
		deleteByID(id)
	}

	if len(failed) == 0 && firstErr == nil {
		return nil, nil
	}
	return failed, firstErr
}

// rememberIDs merges successfully created provider IDs into the
// registration's config
func (r *Reconciler) rememberIDs(domainID int, result *ApplyResult) error {
	ids := make(map[dnsspec.Role]string)
	for _, res := range result.Results {
		if res.Success && res.ProviderID != "" {
			ids[res.Role] = res.ProviderID
		}
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := r.store.UpdateConfig(domainID, func(cfg *dnsspec.DomainConfig) error {
		if cfg.KnownRecordIDs == nil {
			cfg.KnownRecordIDs = make(map[dnsspec.Role]string)
		}
		for role, id := range ids {
			cfg.KnownRecordIDs[role] = id
		}
		return nil
	})
	return err
}

// updatePosture pushes the zone-wide defaults (SSL mode, HTTPS redirect,
// minimum TLS, compression, cache TTL). Fire-and-forget relative to record
// operations: a failure is logged, never surfaced.
func (r *Reconciler) updatePosture() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.provider.ApplyZoneSettings(ctx, r.posture); err != nil {
		r.logger.Warnf("zone posture update failed: %v", err)
	}
}

func touchesAddressRecords(plan []dnsspec.RecordSpec, result *ApplyResult) bool {
	for _, spec := range plan {
		switch spec.Type {
		case dnsspec.RecordTypeA, dnsspec.RecordTypeAAAA, dnsspec.RecordTypeCNAME:
			if result.succeeded(spec.Role) {
				return true
			}
		}
	}
	return false
}

// knownShapes reconstructs the record shapes implied by the roles a
// registration currently tracks, for conflict validation without provider
// round trips.
func knownShapes(reg *model.DomainRegistration) []dnsspec.RecordSpec {
	fqdn := reg.FQDN()
	verifyFQDN := dnsspec.VerifyFQDN(reg.Label, reg.ParentDomain)

	var shapes []dnsspec.RecordSpec
	for role := range reg.Config.Data().KnownRecordIDs {
		switch {
		case role == dnsspec.RoleMainA:
			shapes = append(shapes, dnsspec.RecordSpec{Role: role, Type: dnsspec.RecordTypeA, Name: fqdn})
		case role == dnsspec.RoleMainCNAME, role == dnsspec.RoleForwardURL:
			shapes = append(shapes, dnsspec.RecordSpec{Role: role, Type: dnsspec.RecordTypeCNAME, Name: fqdn})
		case role == dnsspec.RoleVerificationCNAME:
			shapes = append(shapes, dnsspec.RecordSpec{Role: role, Type: dnsspec.RecordTypeCNAME, Name: verifyFQDN})
		case role == dnsspec.RoleMXPrimary, role == dnsspec.RoleMXSecondary:
			shapes = append(shapes, dnsspec.RecordSpec{Role: role, Type: dnsspec.RecordTypeMX, Name: fqdn})
		case role == dnsspec.RoleSPFTXT:
			shapes = append(shapes, dnsspec.RecordSpec{Role: role, Type: dnsspec.RecordTypeTXT, Name: fqdn})
		case isNSRole(role):
			shapes = append(shapes, dnsspec.RecordSpec{Role: role, Type: dnsspec.RecordTypeNS, Name: fqdn})
		}
	}
	return shapes
}
