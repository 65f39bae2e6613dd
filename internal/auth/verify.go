// Package auth verifies that inbound webhook deliveries originate from
// the claimed platform. Both policies fail closed: malformed input is a
// verification failure, never an error.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SignaturePrefix is the algorithm prefix Meta prepends to the
// X-Hub-Signature-256 header value.
const SignaturePrefix = "sha256="

// SignatureVerifier checks an HMAC-SHA256 signature computed over the
// exact raw request body.
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(appSecret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(appSecret)}
}

// Verify reports whether header carries a valid signature for body.
// The comparison is constant time; a missing header, a bad hex encoding
// or a truncated signature all report false.
func (v *SignatureVerifier) Verify(body []byte, header string) bool {
	encoded := strings.TrimPrefix(header, SignaturePrefix)
	if encoded == "" {
		return false
	}
	declared, err := hex.DecodeString(encoded)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hmac.Equal(declared, mac.Sum(nil))
}

// TokenVerifier checks a static shared-secret token byte for byte.
type TokenVerifier struct {
	token []byte
}

func NewTokenVerifier(token string) *TokenVerifier {
	return &TokenVerifier{token: []byte(token)}
}

// Verify reports whether declared equals the configured token. Length
// mismatches report false without revealing where the values differ.
func (v *TokenVerifier) Verify(declared string) bool {
	return subtle.ConstantTimeCompare([]byte(declared), v.token) == 1
}
