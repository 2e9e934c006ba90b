package payment

import (
	"strings"
	"testing"
)

func TestVerifyHMACSignature(t *testing.T) {
	payload := []byte(`{"event_id":"evt_1","type":"subscription.active"}`)
	secret := "whsec_test"

	validSig := SignPayload(payload, secret)
	if !VerifyHMACSignature(payload, validSig, secret) {
		t.Fatalf("expected valid signature to verify")
	}

	// Uppercase hex and surrounding whitespace must still verify.
	if !VerifyHMACSignature(payload, "  "+strings.ToUpper(validSig)+"  ", secret) {
		t.Fatalf("expected normalized signature to verify")
	}
}

func TestVerifyHMACSignature_TamperedPayload(t *testing.T) {
	payload := []byte(`{"event_id":"evt_1","amount":100}`)
	secret := "whsec_test"
	validSig := SignPayload(payload, secret)

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = '9' // amount 100 -> 109

	if VerifyHMACSignature(tampered, validSig, secret) {
		t.Fatalf("expected single-byte tamper to fail verification")
	}
}

func TestVerifyHMACSignature_Rejects(t *testing.T) {
	payload := []byte(`{"x":1}`)
	secret := "whsec_test"
	validSig := SignPayload(payload, secret)

	tests := []struct {
		name   string
		sig    string
		secret string
	}{
		{name: "empty signature", sig: "", secret: secret},
		{name: "empty secret", sig: validSig, secret: ""},
		{name: "non-hex signature", sig: "not-hex!", secret: secret},
		{name: "truncated signature", sig: validSig[:16], secret: secret},
		{name: "wrong secret", sig: validSig, secret: "whsec_other"},
	}

	for _, tt := range tests {
		if VerifyHMACSignature(payload, tt.sig, tt.secret) {
			t.Fatalf("%s: expected verification to fail", tt.name)
		}
	}
}
