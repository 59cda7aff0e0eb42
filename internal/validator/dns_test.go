package validator

import "testing"

func TestIsValidLabel(t *testing.T) {
	tests := []struct {
		label string
		valid bool
	}{
		{"acme", true},
		{"my-site", true},
		{"a1b2c3", true},
		{"ab", false},          // too short
		{"-acme", false},       // leading hyphen
		{"acme-", false},       // trailing hyphen
		{"Acme", false},        // uppercase
		{"ac_me", false},       // underscore
		{"acme.sub", false},    // dots are not part of a label
		{"", false},
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false}, // 64 chars
	}

	for _, tt := range tests {
		if got := IsValidLabel(tt.label); got != tt.valid {
			t.Errorf("IsValidLabel(%q) = %v; want %v", tt.label, got, tt.valid)
		}
	}
}

func TestIsValidHostname(t *testing.T) {
	tests := []struct {
		host  string
		valid bool
	}{
		{"ns1.example.com", true},
		{"ns1.example.com.", true},
		{"example.com", true},
		{"xn--bcher-kva.example", true},
		{"-bad.example.com", false},
		{"bad-.example.com", false},
		{"", false},
		{"double..dot.com", false},
	}

	for _, tt := range tests {
		if got := IsValidHostname(tt.host); got != tt.valid {
			t.Errorf("IsValidHostname(%q) = %v; want %v", tt.host, got, tt.valid)
		}
	}
}

func TestIsValidIPv4(t *testing.T) {
	if !IsValidIPv4("76.76.21.21") {
		t.Error("expected 76.76.21.21 to be valid")
	}
	if IsValidIPv4("2001:db8::1") {
		t.Error("IPv6 address should not validate as IPv4")
	}
	if IsValidIPv4("999.1.1.1") {
		t.Error("999.1.1.1 should be invalid")
	}
}

func TestIsValidIPv6(t *testing.T) {
	if !IsValidIPv6("2001:db8::1") {
		t.Error("expected 2001:db8::1 to be valid")
	}
	if IsValidIPv6("76.76.21.21") {
		t.Error("IPv4 address should not validate as IPv6")
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://example.com", true},
		{"http://example.com/path?q=1", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidURL(tt.url); got != tt.valid {
			t.Errorf("IsValidURL(%q) = %v; want %v", tt.url, got, tt.valid)
		}
	}
}
