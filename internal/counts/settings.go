package counts

// EnterpriseSettings mirrors the singleton settings row described in
// SPEC_FULL.md §4 (`enterprise_settings.rs` in the original implementation):
// a handful of feature toggles read alongside the counts/license boundary
// to decide whether ACL enforcement and the activity stream may run.
type EnterpriseSettings struct {
	OpenIDEnabled     bool
	LDAPEnabled       bool
	DisableAllTraffic bool
}

// Gate decides whether enterprise-only features should be active given the
// current settings row, license state, and count pressure. DisableAllTraffic
// takes priority: it is the operator's explicit kill switch for when a
// license lapses and they would rather block all traffic than silently fall
// back to the free tier's reduced limits.
func (s EnterpriseSettings) Gate(licenseValid bool, needsLicense bool) bool {
	if s.DisableAllTraffic && !licenseValid {
		return false
	}
	if needsLicense {
		return licenseValid
	}
	return true
}
