// Package webhook authenticates inbound payment-provider callbacks. The
// signature covers the raw request bytes, so verification happens before any
// JSON parsing; re-serializing the body would break byte-for-byte fidelity.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Header names sent by the provider.
const (
	KeyIDHeader     = "Paygate-Key-Id"
	SignatureHeader = "Paygate-Signature"
)

// DefaultReplayWindow bounds how stale a signed timestamp may be.
const DefaultReplayWindow = 300 * time.Second

// Verification failures collapse to one coarse category at the HTTP boundary
// so a forger learns nothing about which check tripped.
var (
	ErrUnknownKey   = errors.New("unknown webhook key id")
	ErrBadHeader    = errors.New("malformed signature header")
	ErrStale        = errors.New("timestamp outside replay window")
	ErrNoMatch      = errors.New("no candidate signature matched")
	ErrMissingKeyID = errors.New("missing key id header")
)

type Verifier struct {
	// keys maps provider key ids to shared secrets. Multiple ids stay live
	// during secret rotation.
	keys   map[string]string
	window time.Duration
}

func NewVerifier(keys map[string]string, window time.Duration) *Verifier {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &Verifier{keys: keys, window: window}
}

// signatureHeader is the parsed "t=<unix>,v1=<hex>[,v1=<hex>...]" form.
// Multiple v1 entries appear while the provider rotates signing keys; any
// one matching accepts.
type signatureHeader struct {
	timestamp  int64
	candidates []string
}

func parseSignatureHeader(raw string) (*signatureHeader, error) {
	h := &signatureHeader{}
	sawTimestamp := false

	for _, part := range strings.Split(raw, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return nil, ErrBadHeader
		}
		switch name {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, ErrBadHeader
			}
			h.timestamp = ts
			sawTimestamp = true
		case "v1":
			if value != "" {
				h.candidates = append(h.candidates, value)
			}
		}
	}

	if !sawTimestamp || len(h.candidates) == 0 {
		return nil, ErrBadHeader
	}
	return h, nil
}

// Verify authenticates the raw body against the key id and signature header.
// The replay-window check runs before anything touches the body.
func (v *Verifier) Verify(keyID, sigHeader string, body []byte, now time.Time) error {
	if keyID == "" {
		return ErrMissingKeyID
	}
	secret, ok := v.keys[keyID]
	if !ok {
		return ErrUnknownKey
	}

	h, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return err
	}

	age := now.Unix() - h.timestamp
	if age < 0 {
		age = -age
	}
	if time.Duration(age)*time.Second > v.window {
		return ErrStale
	}

	want := computeSignature(h.timestamp, body, secret)
	for _, candidate := range h.candidates {
		got, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(got, want) {
			return nil
		}
	}
	return ErrNoMatch
}

// computeSignature is HMAC-SHA256 over "<timestamp>.<raw body>".
func computeSignature(timestamp int64, body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign produces a valid signature header value for the given body. Used by
// tests and the local provider simulator.
func Sign(timestamp int64, body []byte, secret string) string {
	sig := computeSignature(timestamp, body, secret)
	return "t=" + strconv.FormatInt(timestamp, 10) + ",v1=" + hex.EncodeToString(sig)
}
