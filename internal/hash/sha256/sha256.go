// Package sha256 fingerprints fetched pages so content changes can be spotted.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintLen is the number of hex characters kept.
const fingerprintLen = 16

// Fingerprint returns a short hex digest of body.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
