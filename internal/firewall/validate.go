package firewall

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ruleValidation and aliasValidation are the struct-tag-carrying shadow
// types validator.Struct checks Rule/Alias against. Rule and Alias
// themselves carry no struct tags because most of their fields are
// populated by in-process code (the store layer), not decoded from
// external input directly — but §2's domain stack wiring still asks for
// go-playground/validator coverage of the ACL invariants spec.md §3
// documents, so Validate below re-shapes the handful of fields worth
// checking (CIDRs well-formed, ports in range) into a validated view
// rather than tagging every internal field.
type ruleValidation struct {
	DestinationCIDRs []string `validate:"dive,cidr"`
}

type aliasValidation struct {
	CIDRs []string `validate:"dive,cidr"`
}

// Validate checks the subset of Rule's invariants worth catching before
// compilation: well-formed destination CIDRs and explicit ranges. Port
// ranges are checked structurally (PortRange.Start <= End) rather than
// via tags, since validator has no inclusive-range comparator across two
// fields of a slice element; protocols are not validated. Name is not required here: it
// is a display label, not something compilation depends on.
func (r *Rule) Validate() error {
	v := ruleValidation{DestinationCIDRs: r.DestinationCIDRs}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("acl rule %d: %w", r.ID, err)
	}
	for _, p := range r.Ports {
		if p.Start > p.End {
			return fmt.Errorf("acl rule %d: invalid port range %d-%d: %w", r.ID, p.Start, p.End, ErrInvalidRange)
		}
	}
	for _, rg := range r.DestinationRanges {
		if _, err := ExplicitRangeToRange(rg); err != nil {
			return fmt.Errorf("acl rule %d: invalid destination range %s-%s: %w", r.ID, rg.Start, rg.End, ErrInvalidRange)
		}
	}
	return nil
}

// Validate checks Alias's invariants analogously to Rule.Validate.
func (a *Alias) Validate() error {
	v := aliasValidation{CIDRs: a.CIDRs}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("acl alias %d: %w", a.ID, err)
	}
	for _, p := range a.Ports {
		if p.Start > p.End {
			return fmt.Errorf("acl alias %d: invalid port range %d-%d: %w", a.ID, p.Start, p.End, ErrInvalidRange)
		}
	}
	for _, rg := range a.Ranges {
		if _, err := ExplicitRangeToRange(rg); err != nil {
			return fmt.Errorf("acl alias %d: invalid range %s-%s: %w", a.ID, rg.Start, rg.End, ErrInvalidRange)
		}
	}
	return nil
}
