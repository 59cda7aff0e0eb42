package validator

import (
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
)

// Label rules: 3-63 chars, lowercase alphanumeric and hyphens, no leading
// or trailing hyphen. This is stricter than RFC 1035 on purpose: labels are
// user-facing subdomain names.
var labelRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61}[a-z0-9])$`)

// Hostname: dot-separated labels, each 1-63 chars, alphanumeric and hyphens,
// no leading/trailing hyphen per label.
var hostnameLabelRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)

// IsValidLabel reports whether s is an acceptable subdomain label
func IsValidLabel(s string) bool {
	return labelRe.MatchString(s)
}

// IsValidHostname reports whether s is a syntactically valid DNS hostname
func IsValidHostname(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if s == "" || len(s) > 253 {
		return false
	}
	labels := strings.Split(s, ".")
	for _, l := range labels {
		if len(l) == 0 || len(l) > 63 {
			return false
		}
		if !hostnameLabelRe.MatchString(l) {
			return false
		}
	}
	return true
}

// IsValidIPv4 reports whether s is a valid IPv4 address
func IsValidIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

// IsValidIPv6 reports whether s is a valid IPv6 address
func IsValidIPv6(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() == nil
}

// IsValidURL reports whether s is an absolute http(s) URL
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidEmail reports whether s is a plausible email address
func IsValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
