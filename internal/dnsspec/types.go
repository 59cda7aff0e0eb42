package dnsspec

import (
	"fmt"
	"time"
)

// RecordType represents a DNS record type
type RecordType string

const (
	RecordTypeA     RecordType = "A"
	RecordTypeAAAA  RecordType = "AAAA"
	RecordTypeCNAME RecordType = "CNAME"
	RecordTypeMX    RecordType = "MX"
	RecordTypeTXT   RecordType = "TXT"
	RecordTypeNS    RecordType = "NS"
)

// Role is the logical identity of a record inside a domain's record set.
// Roles are stable across provider record IDs and drive idempotent
// upsert/delete matching.
type Role string

const (
	RoleMainA             Role = "main-A"
	RoleMainCNAME         Role = "main-CNAME"
	RoleForwardURL        Role = "forward-url"
	RoleVerificationCNAME Role = "platform-verification-CNAME"
	RoleMXPrimary         Role = "mx-primary"
	RoleMXSecondary       Role = "mx-secondary"
	RoleSPFTXT            Role = "spf-txt"
)

// NSRole returns the role for the n-th delegated nameserver (1-based)
func NSRole(n int) Role {
	return Role(fmt.Sprintf("ns-%d", n))
}

// TTLAutomatic is the provider sentinel for "let the provider pick a TTL"
const TTLAutomatic = 1

// DelegationType controls who manages records for a registration
type DelegationType string

const (
	// DelegationStandard: the platform manages A/CNAME records directly
	DelegationStandard DelegationType = "standard"
	// DelegationDelegated: NS records point at user nameservers; all
	// further record management is the user's responsibility
	DelegationDelegated DelegationType = "delegated"
)

// RedirectKind represents the redirect semantics of URL forwarding
type RedirectKind string

const (
	RedirectPermanent RedirectKind = "permanent"
	RedirectTemporary RedirectKind = "temporary"
)

// Forwarding holds URL-forwarding settings for a registration
type Forwarding struct {
	TargetURL    string       `json:"target_url"`
	RedirectKind RedirectKind `json:"redirect_kind"`
}

// VerificationStatus represents the propagation-verification state
type VerificationStatus string

const (
	VerificationPending VerificationStatus = "pending"
	VerificationActive  VerificationStatus = "active"
	VerificationFailed  VerificationStatus = "failed"
	VerificationError   VerificationStatus = "error"
)

// Terminal reports whether the automatic verification loop stops in this state
func (s VerificationStatus) Terminal() bool {
	return s == VerificationActive || s == VerificationFailed || s == VerificationError
}

// VerificationState tracks the bounded propagation-polling loop
type VerificationState struct {
	Status        VerificationStatus `json:"status"`
	Attempts      int                `json:"attempts"`
	LastCheckedAt *time.Time         `json:"last_checked_at,omitempty"`
	LastResult    string             `json:"last_result,omitempty"`
	LastError     string             `json:"last_error,omitempty"`
}

// DomainConfig is the desired DNS shape of a registration. It is mutated
// only through reconciler operations so KnownRecordIDs stays truthful about
// what exists remotely.
type DomainConfig struct {
	DelegationType DelegationType    `json:"delegation_type"`
	Nameservers    []string          `json:"nameservers,omitempty"`
	EmailEnabled   bool              `json:"email_enabled"`
	Forwarding     *Forwarding       `json:"forwarding,omitempty"`
	Verification   VerificationState `json:"verification"`
	// KnownRecordIDs maps role -> provider record ID. An entry is removed
	// the moment the provider confirms deletion.
	KnownRecordIDs map[Role]string `json:"known_record_ids,omitempty"`
}

// RecordSpec is a single planned DNS record. Name is always fully
// qualified; relative names never leave the planner.
type RecordSpec struct {
	Role     Role         `json:"role"`
	Type     RecordType   `json:"type"`
	Name     string       `json:"name"`
	Content  string       `json:"content"`
	TTL      int          `json:"ttl"`
	Priority int          `json:"priority,omitempty"` // MX only
	Proxied  bool         `json:"proxied"`
	Redirect RedirectKind `json:"redirect,omitempty"` // forward-url only
}
