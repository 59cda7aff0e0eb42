package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jason-czar/freedomains/internal/dnsspec"
)

var testTargets = Targets{
	HostingIP:    "76.76.21.21",
	VerifyTarget: "cname.platform-dns.com",
	MXPrimary:    "mx1.mailhost.com",
	MXSecondary:  "mx2.mailhost.com",
	SPFText:      "v=spf1 include:_spf.mailhost.com ~all",
}

func TestPlanStandard(t *testing.T) {
	cfg := dnsspec.DomainConfig{DelegationType: dnsspec.DelegationStandard}

	plan, err := Plan("acme", "example.com", cfg, testTargets)
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}

	if len(plan) != 2 {
		t.Fatalf("expected 2 records, got %d", len(plan))
	}

	main := plan[0]
	if main.Role != dnsspec.RoleMainA || main.Type != dnsspec.RecordTypeA {
		t.Errorf("first record should be main-A, got %s/%s", main.Role, main.Type)
	}
	if main.Name != "acme.example.com" {
		t.Errorf("main record name = %q; want fully qualified acme.example.com", main.Name)
	}
	if main.Content != "76.76.21.21" {
		t.Errorf("main record content = %q; want 76.76.21.21", main.Content)
	}
	if !main.Proxied {
		t.Error("main-A should be proxied")
	}

	verify := plan[1]
	if verify.Role != dnsspec.RoleVerificationCNAME || verify.Type != dnsspec.RecordTypeCNAME {
		t.Errorf("second record should be verification CNAME, got %s/%s", verify.Role, verify.Type)
	}
	if verify.Name != "_verify.acme.example.com" {
		t.Errorf("verification record name = %q; want _verify.acme.example.com", verify.Name)
	}
	if verify.Proxied {
		t.Error("verification CNAME must not be proxied")
	}
}

func TestPlanDeterministic(t *testing.T) {
	cfg := dnsspec.DomainConfig{
		DelegationType: dnsspec.DelegationStandard,
		EmailEnabled:   true,
	}

	first, err := Plan("acme", "example.com", cfg, testTargets)
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	second, err := Plan("acme", "example.com", cfg, testTargets)
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs must produce identical ordered plans")
	}
}

func TestPlanMainRoleExclusive(t *testing.T) {
	configs := []dnsspec.DomainConfig{
		{DelegationType: dnsspec.DelegationStandard},
		{DelegationType: dnsspec.DelegationStandard, EmailEnabled: true},
	}
	targets := []Targets{testTargets, func() Targets {
		t := testTargets
		t.HostingIP = "cname.platform-dns.com" // hostname target -> main-CNAME
		return t
	}()}

	for _, cfg := range configs {
		for _, tg := range targets {
			plan, err := Plan("acme", "example.com", cfg, tg)
			if err != nil {
				t.Fatalf("Plan() failed: %v", err)
			}
			mains := 0
			for _, s := range plan {
				if s.Role == dnsspec.RoleMainA || s.Role == dnsspec.RoleMainCNAME {
					mains++
				}
			}
			if mains != 1 {
				t.Errorf("plan must contain exactly one main record, got %d", mains)
			}
		}
	}
}

func TestPlanEmail(t *testing.T) {
	cfg := dnsspec.DomainConfig{
		DelegationType: dnsspec.DelegationStandard,
		EmailEnabled:   true,
	}

	plan, err := Plan("acme", "example.com", cfg, testTargets)
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}

	byRole := make(map[dnsspec.Role]dnsspec.RecordSpec)
	for _, s := range plan {
		byRole[s.Role] = s
	}

	mx1, ok := byRole[dnsspec.RoleMXPrimary]
	if !ok || mx1.Priority != 10 {
		t.Errorf("mx-primary missing or wrong priority: %+v", mx1)
	}
	mx2, ok := byRole[dnsspec.RoleMXSecondary]
	if !ok || mx2.Priority != 20 {
		t.Errorf("mx-secondary missing or wrong priority: %+v", mx2)
	}
	spf, ok := byRole[dnsspec.RoleSPFTXT]
	if !ok || spf.Type != dnsspec.RecordTypeTXT {
		t.Errorf("spf-txt missing or wrong type: %+v", spf)
	}
	for _, r := range []dnsspec.RecordSpec{mx1, mx2, spf} {
		if r.TTL != ttlMail {
			t.Errorf("mail record %s ttl = %d; want %d", r.Role, r.TTL, ttlMail)
		}
	}
}

func TestPlanDelegated(t *testing.T) {
	cfg := dnsspec.DomainConfig{
		DelegationType: dnsspec.DelegationDelegated,
		Nameservers:    []string{"ns1.x.com", "ns2.x.com"},
	}

	plan, err := Plan("acme", "example.com", cfg, testTargets)
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}

	if len(plan) != 2 {
		t.Fatalf("expected 2 NS records, got %d", len(plan))
	}
	for i, s := range plan {
		if s.Type != dnsspec.RecordTypeNS {
			t.Errorf("record %d type = %s; want NS", i, s.Type)
		}
		if s.TTL != ttlNS {
			t.Errorf("NS ttl = %d; want %d", s.TTL, ttlNS)
		}
		if s.Role != dnsspec.NSRole(i+1) {
			t.Errorf("record %d role = %s; want %s", i, s.Role, dnsspec.NSRole(i+1))
		}
	}
}

func TestPlanDelegatedTooFewNameservers(t *testing.T) {
	cfg := dnsspec.DomainConfig{
		DelegationType: dnsspec.DelegationDelegated,
		Nameservers:    []string{"ns1.x.com"},
	}

	_, err := Plan("acme", "example.com", cfg, testTargets)

	var invalidErr *InvalidConfigError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
	if invalidErr.Field != "nameservers" || invalidErr.Code != CodeMinCount {
		t.Errorf("got {field=%s, code=%s}; want {field=nameservers, code=min_count}",
			invalidErr.Field, invalidErr.Code)
	}
}

func TestPlanForwarding(t *testing.T) {
	cfg := dnsspec.DomainConfig{
		DelegationType: dnsspec.DelegationStandard,
		Forwarding: &dnsspec.Forwarding{
			TargetURL:    "https://target.example.org",
			RedirectKind: dnsspec.RedirectPermanent,
		},
	}

	plan, err := Plan("acme", "example.com", cfg, testTargets)
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}

	for _, s := range plan {
		if s.Role == dnsspec.RoleMainA || s.Role == dnsspec.RoleMainCNAME {
			t.Error("forwarding plan must not contain a main record")
		}
	}
	fwd := plan[0]
	if fwd.Role != dnsspec.RoleForwardURL || !fwd.Proxied || fwd.Redirect != dnsspec.RedirectPermanent {
		t.Errorf("unexpected forward record: %+v", fwd)
	}
	// Verification record is still required when not delegated
	if plan[1].Role != dnsspec.RoleVerificationCNAME {
		t.Errorf("expected verification CNAME after forward record, got %s", plan[1].Role)
	}
}

func TestPlanInvalidLabel(t *testing.T) {
	for _, label := range []string{"ab", "-bad", "bad-", "UPPER", ""} {
		_, err := Plan(label, "example.com", dnsspec.DomainConfig{DelegationType: dnsspec.DelegationStandard}, testTargets)
		var invalidErr *InvalidConfigError
		if !errors.As(err, &invalidErr) || invalidErr.Field != "label" {
			t.Errorf("label %q: expected label format error, got %v", label, err)
		}
	}
}

func TestPlanProxiedInvariant(t *testing.T) {
	cfgs := []dnsspec.DomainConfig{
		{DelegationType: dnsspec.DelegationStandard, EmailEnabled: true},
		{DelegationType: dnsspec.DelegationDelegated, Nameservers: []string{"ns1.x.com", "ns2.x.com", "ns3.x.com"}},
	}
	for _, cfg := range cfgs {
		plan, err := Plan("acme", "example.com", cfg, testTargets)
		if err != nil {
			t.Fatalf("Plan() failed: %v", err)
		}
		for _, s := range plan {
			switch s.Type {
			case dnsspec.RecordTypeMX, dnsspec.RecordTypeTXT, dnsspec.RecordTypeNS:
				if s.Proxied {
					t.Errorf("%s record %s must never be proxied", s.Type, s.Role)
				}
			}
		}
	}
}

func TestValidateCNAMEConflict(t *testing.T) {
	specs := []dnsspec.RecordSpec{
		{Role: dnsspec.RoleMainA, Type: dnsspec.RecordTypeA, Name: "acme.example.com", Content: "76.76.21.21"},
		{Role: "custom-cname", Type: dnsspec.RecordTypeCNAME, Name: "acme.example.com", Content: "elsewhere.com"},
	}

	err := Validate(specs)
	var invalidErr *InvalidConfigError
	if !errors.As(err, &invalidErr) || invalidErr.Code != CodeCNAMEConflict {
		t.Fatalf("expected cname_conflict, got %v", err)
	}
}

func TestValidateDuplicateRole(t *testing.T) {
	specs := []dnsspec.RecordSpec{
		{Role: dnsspec.RoleMainA, Type: dnsspec.RecordTypeA, Name: "a.example.com"},
		{Role: dnsspec.RoleMainA, Type: dnsspec.RecordTypeA, Name: "a.example.com"},
	}

	err := Validate(specs)
	var invalidErr *InvalidConfigError
	if !errors.As(err, &invalidErr) || invalidErr.Code != CodeDuplicateRole {
		t.Fatalf("expected duplicate_role, got %v", err)
	}
}
