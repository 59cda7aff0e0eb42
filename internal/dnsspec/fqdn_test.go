package dnsspec

import "testing"

func TestFQDN(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		parent   string
		expected string
	}{
		{
			name:     "label joins parent",
			label:    "acme",
			parent:   "example.com",
			expected: "acme.example.com",
		},
		{
			name:     "already qualified returns as-is",
			label:    "acme.example.com",
			parent:   "example.com",
			expected: "acme.example.com",
		},
		{
			name:     "parent itself returns as-is",
			label:    "example.com",
			parent:   "example.com",
			expected: "example.com",
		},
		{
			name:     "empty label means zone root",
			label:    "",
			parent:   "example.com",
			expected: "example.com",
		},
		{
			name:     "@ means zone root",
			label:    "@",
			parent:   "example.com",
			expected: "example.com",
		},
		{
			name:     "trailing dots are stripped",
			label:    "acme.",
			parent:   "example.com.",
			expected: "acme.example.com",
		},
		{
			name:     "whitespace is trimmed",
			label:    " acme ",
			parent:   " example.com ",
			expected: "acme.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FQDN(tt.label, tt.parent); got != tt.expected {
				t.Errorf("FQDN(%q, %q) = %q; want %q", tt.label, tt.parent, got, tt.expected)
			}
		})
	}
}

func TestVerifyFQDN(t *testing.T) {
	if got := VerifyFQDN("acme", "example.com"); got != "_verify.acme.example.com" {
		t.Errorf("VerifyFQDN() = %q; want %q", got, "_verify.acme.example.com")
	}
}

func TestVerificationStatusTerminal(t *testing.T) {
	tests := []struct {
		status   VerificationStatus
		terminal bool
	}{
		{VerificationPending, false},
		{VerificationActive, true},
		{VerificationFailed, true},
		{VerificationError, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("Terminal(%s) = %v; want %v", tt.status, got, tt.terminal)
		}
	}
}
