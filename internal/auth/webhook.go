package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Identity-provider webhooks are signed svix-style: the signed content is
// "{msg id}.{timestamp}.{body}", the key is the base64 secret after the
// "whsec_" prefix, and the signature header carries one or more
// space-separated "v1,<base64 hmac>" entries.

const webhookSecretPrefix = "whsec_"

// webhookTolerance bounds the accepted timestamp skew to blunt replays.
const webhookTolerance = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("auth: webhook signature mismatch")
	ErrStaleTimestamp   = errors.New("auth: webhook timestamp outside tolerance")
)

// WebhookHeaders are the signature headers of a provisioning webhook.
type WebhookHeaders struct {
	ID        string // svix-id
	Timestamp string // svix-timestamp, unix seconds
	Signature string // svix-signature
}

// VerifyWebhook checks the webhook signature and timestamp.
func VerifyWebhook(secret string, payload []byte, h WebhookHeaders) error {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return fmt.Errorf("%w: missing signature headers", ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	age := time.Since(time.Unix(ts, 0))
	if age > webhookTolerance || age < -webhookTolerance {
		return ErrStaleTimestamp
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, webhookSecretPrefix))
	if err != nil {
		return fmt.Errorf("auth: invalid webhook secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.%s", h.ID, h.Timestamp, payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// The header may list several versioned signatures (e.g. after a
	// secret rotation); any matching v1 entry passes.
	for _, candidate := range strings.Fields(h.Signature) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}

	return ErrInvalidSignature
}

// SignWebhook produces the signature header value for a payload. Tests
// and the local webhook replayer use it; production payloads are signed
// by the provider.
func SignWebhook(secret string, payload []byte, id string, ts time.Time) (string, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, webhookSecretPrefix))
	if err != nil {
		return "", fmt.Errorf("auth: invalid webhook secret: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%d.%s", id, ts.Unix(), payload)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
