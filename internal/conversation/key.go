package conversation

import (
	"crypto/sha512"
	"encoding/hex"
)

// Platforms whose raw user identifier is itself sensitive (a phone
// number) and must never appear in the store key space.
var hashedIDPlatforms = map[string]bool{
	"whatsapp": true,
}

// DeriveKey returns the stable storage key for a platform user. Keys
// are namespaced by platform, so the same raw identifier on two
// platforms can never collide. For platforms carrying sensitive
// identifiers the key is a one-way SHA-512 digest of the identifier.
func DeriveKey(platform, rawUserID string) string {
	if hashedIDPlatforms[platform] {
		sum := sha512.Sum512([]byte(rawUserID))
		return platform + ":" + hex.EncodeToString(sum[:])
	}
	return platform + ":" + rawUserID
}
