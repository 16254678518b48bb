package license

import (
	"encoding/json"

	"golang.org/x/crypto/ed25519"
)

// signedPayload is the canonical, deterministically-ordered JSON envelope
// the license signing tool (the defguard-certs-equivalent described in
// SPEC_FULL.md §4) produces: the License fields plus a detached ed25519
// signature over their canonical JSON encoding.
type signedPayload struct {
	License   License `json:"license"`
	Signature []byte  `json:"signature"`
}

// Verify checks raw (the bytes returned by the license server) against
// pubKey and returns the decoded License on success. It uses
// golang.org/x/crypto's ed25519 helpers rather than crypto/ed25519 directly
// so the verification path matches the test-vector-compatible signing
// scheme documented in DESIGN.md.
func Verify(raw []byte, pubKey ed25519.PublicKey) (*License, error) {
	var payload signedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	canonical, err := json.Marshal(payload.License)
	if err != nil {
		return nil, err
	}
	if !ed25519.Verify(pubKey, canonical, payload.Signature) {
		return nil, ErrInvalid
	}
	return &payload.License, nil
}
