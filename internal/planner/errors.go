package planner

import "fmt"

// Validation error codes
const (
	CodeFormat          = "format"
	CodeMinCount        = "min_count"
	CodeInvalidIP       = "invalid_ip"
	CodeInvalidHostname = "invalid_hostname"
	CodeInvalidURL      = "invalid_url"
	CodeDuplicateRole   = "duplicate_role"
	CodeCNAMEConflict   = "cname_conflict"
	CodeProxiedInvalid  = "proxied_invalid"
)

// InvalidConfigError is returned when a desired configuration cannot be
// turned into a valid record plan. It is always raised before any provider
// or store call; a plan is never partially emitted.
type InvalidConfigError struct {
	Field string
	Code  string
}

// Error implements the error interface
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: field=%s, code=%s", e.Field, e.Code)
}

func invalid(field, code string) *InvalidConfigError {
	return &InvalidConfigError{Field: field, Code: code}
}
