package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)&mode=memory"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.DomainRegistration{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	// Isolate tests sharing the in-memory database
	db.Exec("DELETE FROM domain_registrations")
	return New(db)
}

func newTestRegistration(label string) *model.DomainRegistration {
	return &model.DomainRegistration{
		PublicID:     uuid.NewString(),
		OwnerID:      1,
		Label:        label,
		ParentDomain: "example.com",
		IsActive:     true,
		ExpiresAt:    time.Now().AddDate(1, 0, 0),
	}
}

func TestInsertAndLookups(t *testing.T) {
	s := newTestStore(t)

	reg := newTestRegistration("acme")
	if err := s.Insert(reg); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if reg.ID == 0 {
		t.Fatal("Insert should assign a database ID")
	}

	got, err := s.Get(reg.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Label != "acme" || got.FQDN() != "acme.example.com" {
		t.Errorf("unexpected registration: %+v", got)
	}

	byLabel, err := s.FindByLabel("acme")
	if err != nil {
		t.Fatalf("FindByLabel: %v", err)
	}
	if byLabel.ID != reg.ID {
		t.Errorf("FindByLabel returned wrong row")
	}

	byPublic, err := s.GetByPublicID(reg.PublicID)
	if err != nil {
		t.Fatalf("GetByPublicID: %v", err)
	}
	if byPublic.ID != reg.ID {
		t.Errorf("GetByPublicID returned wrong row")
	}

	if _, err := s.FindByLabel("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateConfigMerges(t *testing.T) {
	s := newTestStore(t)
	reg := newTestRegistration("acme")
	if err := s.Insert(reg); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	_, err := s.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
		cfg.DelegationType = dnsspec.DelegationStandard
		cfg.KnownRecordIDs = map[dnsspec.Role]string{dnsspec.RoleMainA: "rec-1"}
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	// Second merge must see the first one's result, not overwrite it
	cfg, err := s.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
		cfg.Verification.Status = dnsspec.VerificationPending
		cfg.Verification.Attempts = 1
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	if cfg.KnownRecordIDs[dnsspec.RoleMainA] != "rec-1" {
		t.Error("merge dropped KnownRecordIDs written by an earlier update")
	}
	if cfg.Verification.Attempts != 1 {
		t.Error("merge did not apply verification update")
	}

	got, err := s.Get(reg.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("version = %d; want 2 after two updates", got.Version)
	}
}

func TestUpdateConfigRetriesOnceOnConflict(t *testing.T) {
	s := newTestStore(t)
	reg := newTestRegistration("acme")
	if err := s.Insert(reg); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	calls := 0
	_, err := s.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
		calls++
		if calls == 1 {
			// Concurrent writer sneaks in between our read and write
			if _, err := s.UpdateConfig(reg.ID, func(other *dnsspec.DomainConfig) error {
				other.EmailEnabled = true
				return nil
			}); err != nil {
				t.Fatalf("out-of-band update: %v", err)
			}
		}
		cfg.Verification.Status = dnsspec.VerificationActive
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateConfig should succeed on retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("merge fn called %d times; want 2 (initial + one retry)", calls)
	}

	got, _ := s.Get(reg.ID)
	cfg := got.Config.Data()
	if !cfg.EmailEnabled || cfg.Verification.Status != dnsspec.VerificationActive {
		t.Errorf("retry lost a concurrent write: %+v", cfg)
	}
}

func TestUpdateConfigConflictAfterRetry(t *testing.T) {
	s := newTestStore(t)
	reg := newTestRegistration("acme")
	if err := s.Insert(reg); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	_, err := s.UpdateConfig(reg.ID, func(cfg *dnsspec.DomainConfig) error {
		// A writer wins the race on every attempt
		if _, err := s.UpdateConfig(reg.ID, func(other *dnsspec.DomainConfig) error {
			other.Verification.Attempts++
			return nil
		}); err != nil {
			t.Fatalf("out-of-band update: %v", err)
		}
		return nil
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestSetActiveAndDelete(t *testing.T) {
	s := newTestStore(t)
	reg := newTestRegistration("acme")
	if err := s.Insert(reg); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := s.SetActive(reg.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	got, _ := s.Get(reg.ID)
	if got.IsActive {
		t.Error("registration should be suspended")
	}

	if err := s.Delete(reg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(reg.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	if err := s.SetActive(9999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetActive on missing row: expected ErrNotFound, got %v", err)
	}
}

func TestTouchBumpsExpiry(t *testing.T) {
	s := newTestStore(t)
	reg := newTestRegistration("acme")
	if err := s.Insert(reg); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	renewed := reg.ExpiresAt.AddDate(1, 0, 0)
	if err := s.Touch(reg.ID, renewed); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, _ := s.Get(reg.ID)
	if !got.ExpiresAt.Equal(renewed) {
		t.Errorf("ExpiresAt = %v; want %v", got.ExpiresAt, renewed)
	}

	if err := s.Touch(9999, renewed); !errors.Is(err, ErrNotFound) {
		t.Errorf("Touch on missing row: expected ErrNotFound, got %v", err)
	}
}
