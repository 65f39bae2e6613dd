package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func TestSignatureVerifier(t *testing.T) {
	t.Parallel()

	const secret = "app-secret"
	body := []byte(`{"object":"whatsapp_business_account","entry":[]}`)
	v := NewSignatureVerifier(secret)

	tests := []struct {
		name   string
		body   []byte
		header string
		want   bool
	}{
		{
			name:   "valid signature",
			body:   body,
			header: signBody(secret, body),
			want:   true,
		},
		{
			name:   "valid signature without prefix",
			body:   body,
			header: signBody(secret, body)[len(SignaturePrefix):],
			want:   true,
		},
		{
			name:   "mutated body",
			body:   append([]byte("x"), body...),
			header: signBody(secret, body),
			want:   false,
		},
		{
			name:   "mutated signature",
			body:   body,
			header: signBody("other-secret", body),
			want:   false,
		},
		{
			name:   "missing header",
			body:   body,
			header: "",
			want:   false,
		},
		{
			name:   "malformed hex",
			body:   body,
			header: SignaturePrefix + "not-hex-at-all",
			want:   false,
		},
		{
			name:   "truncated signature",
			body:   body,
			header: signBody(secret, body)[:20],
			want:   false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := v.Verify(tt.body, tt.header); got != tt.want {
				t.Fatalf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignatureVerifierSingleByteMutations(t *testing.T) {
	t.Parallel()

	const secret = "app-secret"
	body := []byte("payload-under-test")
	v := NewSignatureVerifier(secret)
	header := signBody(secret, body)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		if v.Verify(mutated, header) {
			t.Fatalf("expected failure for body mutated at byte %d", i)
		}
	}
}

func TestTokenVerifier(t *testing.T) {
	t.Parallel()

	v := NewTokenVerifier("secret-token")

	tests := []struct {
		name     string
		declared string
		want     bool
	}{
		{name: "match", declared: "secret-token", want: true},
		{name: "mismatch same length", declared: "secret-tokex", want: false},
		{name: "shorter", declared: "secret", want: false},
		{name: "longer", declared: "secret-token-and-more", want: false},
		{name: "empty", declared: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := v.Verify(tt.declared); got != tt.want {
				t.Fatalf("Verify(%q) = %v, want %v", tt.declared, got, tt.want)
			}
		})
	}
}
