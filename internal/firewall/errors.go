package firewall

import "errors"

// Error taxonomy for compilation failures, per spec.md §4.D/§7. Neither
// aborts the whole compilation (SPEC_FULL.md §6 Open Question (a)): an
// ErrInvalidRange from Rule.Validate skips and logs the rule, and an
// unresolved alias reference is dropped from the rule, which still compiles.
var (
	// ErrInvalidRange means an explicit IP range or port range failed to
	// parse or had Start > End.
	ErrInvalidRange = errors.New("firewall: invalid range")
	// ErrMissingAlias means a rule or alias referenced an alias ID that
	// does not exist, is not Effective, or participates in a cyclic
	// component-alias chain. Compile does not return it: such a reference
	// is skipped, with a log line only in the cyclic case (acyclicAliasRefs).
	ErrMissingAlias = errors.New("firewall: missing or unresolved alias")
)
