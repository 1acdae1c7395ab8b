package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultMaxEventAge is the coarse transport replay window: events whose
// provider timestamp is older than this are rejected at the boundary before
// they reach the dispatcher. It is a separate, much coarser check than the
// per-aggregate ordering guard.
const DefaultMaxEventAge = 5 * time.Minute

// VerifyWebhookSignature checks the hex-encoded HMAC-SHA256 signature the
// provider sends over the raw request body.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

// WithinReplayWindow reports whether the event's provider timestamp is recent
// enough to pass the transport-level staleness check.
func WithinReplayWindow(eventCreatedAt, now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultMaxEventAge
	}
	return now.Sub(eventCreatedAt) <= maxAge
}
