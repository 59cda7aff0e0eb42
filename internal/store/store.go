package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/model"
)

var (
	// ErrNotFound is returned when a registration does not exist
	ErrNotFound = errors.New("registration not found")

	// ErrConflict is returned when an optimistic config update lost the
	// race twice in a row. Callers surface this; they do not retry further.
	ErrConflict = errors.New("registration config was modified concurrently")
)

// Store persists domain registrations. Config updates are read-modify-write
// against the latest persisted value, guarded by a version column, so two
// writers (the reconciler and the verification loop) never silently drop
// each other's changes.
type Store struct {
	db *gorm.DB
}

// New creates a store backed by db
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Insert persists a new registration and fills in its database ID
func (s *Store) Insert(reg *model.DomainRegistration) error {
	if err := s.db.Create(reg).Error; err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

// Get fetches a registration by database ID
func (s *Store) Get(id int) (*model.DomainRegistration, error) {
	var reg model.DomainRegistration
	if err := s.db.First(&reg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// GetByPublicID fetches a registration by its API-facing identifier
func (s *Store) GetByPublicID(publicID string) (*model.DomainRegistration, error) {
	var reg model.DomainRegistration
	if err := s.db.Where("public_id = ?", publicID).First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// FindByLabel fetches a registration by label
func (s *Store) FindByLabel(label string) (*model.DomainRegistration, error) {
	var reg model.DomainRegistration
	if err := s.db.Where("label = ?", label).First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// ListByOwner returns all registrations belonging to an owner
func (s *Store) ListByOwner(ownerID int) ([]model.DomainRegistration, error) {
	var regs []model.DomainRegistration
	err := s.db.Where("owner_id = ?", ownerID).Order("id").Find(&regs).Error
	return regs, err
}

// UpdateConfig applies merge to the latest persisted config and writes the
// result back with a version check. A lost race is retried once against the
// re-read value, then surfaced as ErrConflict.
func (s *Store) UpdateConfig(id int, merge func(cfg *dnsspec.DomainConfig) error) (*dnsspec.DomainConfig, error) {
	for attempt := 0; attempt < 2; attempt++ {
		reg, err := s.Get(id)
		if err != nil {
			return nil, err
		}

		cfg := reg.Config.Data()
		if err := merge(&cfg); err != nil {
			return nil, err
		}

		result := s.db.Model(&model.DomainRegistration{}).
			Where("id = ? AND version = ?", id, reg.Version).
			Updates(map[string]interface{}{
				"config":  datatypes.NewJSONType(cfg),
				"version": reg.Version + 1,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected > 0 {
			return &cfg, nil
		}
		// Lost the race; re-read and merge once more
	}
	return nil, ErrConflict
}

// SetActive flips the suspension flag without touching config
func (s *Store) SetActive(id int, active bool) error {
	result := s.db.Model(&model.DomainRegistration{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch bumps ExpiresAt, used on renewal
func (s *Store) Touch(id int, expiresAt time.Time) error {
	result := s.db.Model(&model.DomainRegistration{}).
		Where("id = ?", id).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the registration row. Remote cleanup is the caller's
// concern; a cleanup failure never blocks local deletion.
func (s *Store) Delete(id int) error {
	return s.db.Delete(&model.DomainRegistration{}, id).Error
}
