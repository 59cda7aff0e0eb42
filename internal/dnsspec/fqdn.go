package dnsspec

import (
	"strings"

	"github.com/go-acme/lego/v4/challenge/dns01"
)

// VerifyPrefix is the host the platform-verification CNAME lives under.
// It sits at a different name than the registration itself, so teardown
// code must sweep it explicitly.
const VerifyPrefix = "_verify"

// FQDN builds the fully qualified name for a registration label under the
// parent zone. Inputs with trailing dots or stray whitespace are normalized;
// a label that already carries the zone suffix is returned as-is.
//
//	FQDN("acme", "example.com") -> "acme.example.com"
//	FQDN("acme.example.com", "example.com") -> "acme.example.com"
func FQDN(label, parentDomain string) string {
	label = dns01.UnFqdn(strings.TrimSpace(label))
	parentDomain = dns01.UnFqdn(strings.TrimSpace(parentDomain))

	if label == "" || label == "@" {
		return parentDomain
	}
	if label == parentDomain || strings.HasSuffix(label, "."+parentDomain) {
		return label
	}
	return label + "." + parentDomain
}

// VerifyFQDN builds the fully qualified name of the platform-verification
// CNAME for a registration label.
//
//	VerifyFQDN("acme", "example.com") -> "_verify.acme.example.com"
func VerifyFQDN(label, parentDomain string) string {
	return VerifyPrefix + "." + FQDN(label, parentDomain)
}
