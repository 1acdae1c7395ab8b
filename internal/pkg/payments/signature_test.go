package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"
)

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	secret := "whsec_test_123"

	if !VerifyWebhookSignature(payload, signPayload(payload, secret), secret) {
		t.Fatalf("valid signature rejected")
	}
	if VerifyWebhookSignature(payload, signPayload(payload, "other_secret"), secret) {
		t.Fatalf("signature from wrong secret accepted")
	}
	if VerifyWebhookSignature([]byte(`{"id":"evt_2"}`), signPayload(payload, secret), secret) {
		t.Fatalf("signature over different payload accepted")
	}
	if VerifyWebhookSignature(payload, "", secret) {
		t.Fatalf("empty signature accepted")
	}
	if VerifyWebhookSignature(payload, signPayload(payload, secret), "") {
		t.Fatalf("empty secret accepted")
	}
	if VerifyWebhookSignature(payload, "not-hex!!", secret) {
		t.Fatalf("non-hex signature accepted")
	}
}

func TestVerifyWebhookSignature_CaseInsensitiveHex(t *testing.T) {
	payload := []byte(`{"id":"evt_3"}`)
	secret := "whsec_test_123"
	upper := "  " + signPayload(payload, secret) + "  "
	if !VerifyWebhookSignature(payload, upper, secret) {
		t.Fatalf("whitespace-padded signature rejected")
	}
}

func TestWithinReplayWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if !WithinReplayWindow(now.Add(-time.Minute), now, DefaultMaxEventAge) {
		t.Fatalf("recent event rejected")
	}
	if !WithinReplayWindow(now.Add(-DefaultMaxEventAge), now, DefaultMaxEventAge) {
		t.Fatalf("event at the window edge rejected")
	}
	if WithinReplayWindow(now.Add(-DefaultMaxEventAge-time.Second), now, DefaultMaxEventAge) {
		t.Fatalf("event past the window accepted")
	}
	// Zero max age falls back to the default window.
	if !WithinReplayWindow(now.Add(-time.Minute), now, 0) {
		t.Fatalf("default window not applied for zero max age")
	}
}
