package webhook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	body := []byte(`{"type":"subscription.updated","customer_id":"cus_123"}`)
	sig := Sign("whsec_test", body)
	require.True(t, strings.HasPrefix(sig, "sha256="))
	require.True(t, Verify("whsec_test", body, sig))
}

func TestVerifyBareHex(t *testing.T) {
	body := []byte(`{}`)
	sig := strings.TrimPrefix(Sign("s", body), "sha256=")
	require.True(t, Verify("s", body, sig))
}

func TestVerifyRejects(t *testing.T) {
	body := []byte(`{"a":1}`)
	sig := Sign("secret", body)
	require.False(t, Verify("secret", []byte(`{"a":2}`), sig))
	require.False(t, Verify("other", body, sig))
	require.False(t, Verify("secret", body, ""))
	require.False(t, Verify("", body, sig))
}
