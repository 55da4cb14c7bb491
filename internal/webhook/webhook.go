// Package webhook signs and verifies webhook payloads with HMAC-SHA256.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the payload signature on outbound and inbound
// webhook requests.
const SignatureHeader = "X-Voxgate-Signature"

const signaturePrefix = "sha256="

// Sign computes the hex HMAC-SHA256 of body under secret, in the
// "sha256=<hex>" form carried by SignatureHeader.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a received signature against the body in constant time.
// The prefix is optional so senders that ship bare hex still verify.
func Verify(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got := strings.TrimPrefix(signature, signaturePrefix)
	want := strings.TrimPrefix(Sign(secret, body), signaturePrefix)
	return hmac.Equal([]byte(got), []byte(want))
}
