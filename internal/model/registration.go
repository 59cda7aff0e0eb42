package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/jason-czar/freedomains/internal/dnsspec"
)

// DomainRegistration is a registered subdomain under the shared parent zone.
// Config is mutated only through reconciler operations and the verification
// loop, never by direct field patch, so KnownRecordIDs stays in step with
// what actually exists at the provider.
type DomainRegistration struct {
	BaseModel
	// PublicID is the opaque identifier exposed by the API
	PublicID     string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	OwnerID      int       `gorm:"index;not null" json:"owner_id"`
	Label        string    `gorm:"type:varchar(63);uniqueIndex;not null" json:"label"`
	ParentDomain string    `gorm:"type:varchar(255);not null" json:"parent_domain"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	ExpiresAt    time.Time `json:"expires_at"`
	// Version guards read-modify-write config updates
	Version int                                       `gorm:"default:0" json:"-"`
	Config  datatypes.JSONType[dnsspec.DomainConfig] `json:"config"`
}

// TableName specifies the table name for DomainRegistration model
func (DomainRegistration) TableName() string {
	return "domain_registrations"
}

// FQDN returns the registration's fully qualified name
func (r *DomainRegistration) FQDN() string {
	return dnsspec.FQDN(r.Label, r.ParentDomain)
}
