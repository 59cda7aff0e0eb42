package planner

import (
	"github.com/jason-czar/freedomains/internal/dnsspec"
	"github.com/jason-czar/freedomains/internal/validator"
)

// TTLs used by emitted records. Mail records propagate on a short TTL so
// routing changes take effect quickly; NS records are conventionally long.
const (
	ttlMail = 600
	ttlNS   = 3600
)

// Targets holds the fixed record contents the planner points records at.
// All of it comes from configuration; the planner itself does no I/O.
type Targets struct {
	// HostingIP is the platform ingress target. An IPv4 address yields a
	// main-A record, a hostname yields a main-CNAME record.
	HostingIP string
	// VerifyTarget is the content of the platform-verification CNAME
	VerifyTarget string
	// Mail exchange hosts, priorities 10 and 20
	MXPrimary   string
	MXSecondary string
	// SPFText is the SPF policy published alongside MX records
	SPFText string
}

// Plan turns a desired configuration into the ordered record set to create.
// It is deterministic: the same input always yields the same ordered output.
// Order matters: the main record precedes the verification record because
// the platform validates ownership only once the main name resolves.
//
// Plan never partially emits: any validation failure returns an
// InvalidConfigError and a nil plan.
func Plan(label, parentDomain string, cfg dnsspec.DomainConfig, targets Targets) ([]dnsspec.RecordSpec, error) {
	if !validator.IsValidLabel(label) {
		return nil, invalid("label", CodeFormat)
	}

	fqdn := dnsspec.FQDN(label, parentDomain)

	var specs []dnsspec.RecordSpec

	if cfg.DelegationType == dnsspec.DelegationDelegated {
		// Delegated domains get only NS records: record management and
		// ownership verification are the user's responsibility now.
		return NSRecords(label, parentDomain, cfg.Nameservers)
	}

	if cfg.Forwarding != nil {
		if !validator.IsValidURL(cfg.Forwarding.TargetURL) {
			return nil, invalid("forwarding.target_url", CodeInvalidURL)
		}
		// The gateway materializes role forward-url as an edge redirect;
		// on the wire it is a proxied CNAME carrying the target URL.
		specs = append(specs, dnsspec.RecordSpec{
			Role:     dnsspec.RoleForwardURL,
			Type:     dnsspec.RecordTypeCNAME,
			Name:     fqdn,
			Content:  cfg.Forwarding.TargetURL,
			TTL:      dnsspec.TTLAutomatic,
			Proxied:  true,
			Redirect: cfg.Forwarding.RedirectKind,
		})
	} else {
		main, err := mainRecord(fqdn, targets)
		if err != nil {
			return nil, err
		}
		specs = append(specs, main)
	}

	if !validator.IsValidHostname(targets.VerifyTarget) {
		return nil, invalid("verify_target", CodeInvalidHostname)
	}
	specs = append(specs, dnsspec.RecordSpec{
		Role:    dnsspec.RoleVerificationCNAME,
		Type:    dnsspec.RecordTypeCNAME,
		Name:    dnsspec.VerifyFQDN(label, parentDomain),
		Content: targets.VerifyTarget,
		TTL:     dnsspec.TTLAutomatic,
		// Proxying breaks third-party ownership verification
		Proxied: false,
	})

	if cfg.EmailEnabled {
		mail, err := mailRecords(fqdn, targets)
		if err != nil {
			return nil, err
		}
		specs = append(specs, mail...)
	}

	return validated(specs)
}

// mainRecord emits main-A for an IPv4 hosting target, main-CNAME for a
// hostname target. Exactly one of the two ever appears in a plan.
func mainRecord(fqdn string, targets Targets) (dnsspec.RecordSpec, error) {
	if validator.IsValidIPv4(targets.HostingIP) {
		return dnsspec.RecordSpec{
			Role:    dnsspec.RoleMainA,
			Type:    dnsspec.RecordTypeA,
			Name:    fqdn,
			Content: targets.HostingIP,
			TTL:     dnsspec.TTLAutomatic,
			Proxied: true,
		}, nil
	}
	if validator.IsValidHostname(targets.HostingIP) {
		return dnsspec.RecordSpec{
			Role:    dnsspec.RoleMainCNAME,
			Type:    dnsspec.RecordTypeCNAME,
			Name:    fqdn,
			Content: targets.HostingIP,
			TTL:     dnsspec.TTLAutomatic,
			Proxied: true,
		}, nil
	}
	return dnsspec.RecordSpec{}, invalid("hosting_ip", CodeInvalidIP)
}

func mailRecords(fqdn string, targets Targets) ([]dnsspec.RecordSpec, error) {
	if !validator.IsValidHostname(targets.MXPrimary) || !validator.IsValidHostname(targets.MXSecondary) {
		return nil, invalid("mail_hosts", CodeInvalidHostname)
	}
	if targets.SPFText == "" {
		return nil, invalid("spf_text", CodeFormat)
	}
	return []dnsspec.RecordSpec{
		{
			Role:     dnsspec.RoleMXPrimary,
			Type:     dnsspec.RecordTypeMX,
			Name:     fqdn,
			Content:  targets.MXPrimary,
			TTL:      ttlMail,
			Priority: 10,
		},
		{
			Role:     dnsspec.RoleMXSecondary,
			Type:     dnsspec.RecordTypeMX,
			Name:     fqdn,
			Content:  targets.MXSecondary,
			TTL:      ttlMail,
			Priority: 20,
		},
		{
			Role:    dnsspec.RoleSPFTXT,
			Type:    dnsspec.RecordTypeTXT,
			Name:    fqdn,
			Content: targets.SPFText,
			TTL:     ttlMail,
		},
	}, nil
}

// EmailRecords emits just the mail record set (MX pair + SPF TXT) for an
// existing registration enabling the email add-on.
func EmailRecords(label, parentDomain string, targets Targets) ([]dnsspec.RecordSpec, error) {
	if !validator.IsValidLabel(label) {
		return nil, invalid("label", CodeFormat)
	}
	return mailRecords(dnsspec.FQDN(label, parentDomain), targets)
}

// ForwardRecord emits the URL-forward record that replaces the main record
// when forwarding is enabled.
func ForwardRecord(label, parentDomain string, fwd dnsspec.Forwarding) (dnsspec.RecordSpec, error) {
	if !validator.IsValidURL(fwd.TargetURL) {
		return dnsspec.RecordSpec{}, invalid("forwarding.target_url", CodeInvalidURL)
	}
	return dnsspec.RecordSpec{
		Role:     dnsspec.RoleForwardURL,
		Type:     dnsspec.RecordTypeCNAME,
		Name:     dnsspec.FQDN(label, parentDomain),
		Content:  fwd.TargetURL,
		TTL:      dnsspec.TTLAutomatic,
		Proxied:  true,
		Redirect: fwd.RedirectKind,
	}, nil
}

// NSRecords emits the delegation record set for a registration switching to
// user-managed nameservers. At least two nameservers are required.
func NSRecords(label, parentDomain string, nameservers []string) ([]dnsspec.RecordSpec, error) {
	if !validator.IsValidLabel(label) {
		return nil, invalid("label", CodeFormat)
	}
	if len(nameservers) < 2 {
		return nil, invalid("nameservers", CodeMinCount)
	}
	fqdn := dnsspec.FQDN(label, parentDomain)
	var specs []dnsspec.RecordSpec
	for i, ns := range nameservers {
		if !validator.IsValidHostname(ns) {
			return nil, invalid("nameservers", CodeInvalidHostname)
		}
		specs = append(specs, dnsspec.RecordSpec{
			Role:    dnsspec.NSRole(i + 1),
			Type:    dnsspec.RecordTypeNS,
			Name:    fqdn,
			Content: ns,
			TTL:     ttlNS,
		})
	}
	return validated(specs)
}

// MainRecord emits the standard main record for the hosting target
func MainRecord(label, parentDomain string, targets Targets) (dnsspec.RecordSpec, error) {
	return mainRecord(dnsspec.FQDN(label, parentDomain), targets)
}

func validated(specs []dnsspec.RecordSpec) ([]dnsspec.RecordSpec, error) {
	if err := Validate(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// Validate enforces cross-record invariants on a record set:
// no duplicate roles, no proxied MX/TXT/NS, and no CNAME coexisting with an
// A/AAAA (or another CNAME) at the same name.
func Validate(specs []dnsspec.RecordSpec) error {
	seenRoles := make(map[dnsspec.Role]struct{}, len(specs))
	cnames := make(map[string]struct{})
	addrs := make(map[string]struct{})

	for _, s := range specs {
		if _, dup := seenRoles[s.Role]; dup {
			return invalid(string(s.Role), CodeDuplicateRole)
		}
		seenRoles[s.Role] = struct{}{}

		switch s.Type {
		case dnsspec.RecordTypeMX, dnsspec.RecordTypeTXT, dnsspec.RecordTypeNS:
			if s.Proxied {
				return invalid(string(s.Role), CodeProxiedInvalid)
			}
		case dnsspec.RecordTypeCNAME:
			if _, clash := cnames[s.Name]; clash {
				return invalid(string(s.Role), CodeCNAMEConflict)
			}
			cnames[s.Name] = struct{}{}
		case dnsspec.RecordTypeA, dnsspec.RecordTypeAAAA:
			addrs[s.Name] = struct{}{}
		}
	}

	for name := range cnames {
		if _, clash := addrs[name]; clash {
			return invalid(name, CodeCNAMEConflict)
		}
	}
	return nil
}
