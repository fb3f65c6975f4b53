package webhook

import (
	"encoding/hex"
	"errors"
	"strconv"
	"testing"
	"time"
)

var testKeys = map[string]string{
	"key_live_1": "whsec_first",
	"key_live_2": "whsec_second",
}

func newTestVerifier() *Verifier {
	return NewVerifier(testKeys, DefaultReplayWindow)
}

func TestVerifyValidSignature(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`{"customReference":"pay_123","amount":"95.00","currency":"USD"}`)
	now := time.Now()

	header := Sign(now.Unix(), body, "whsec_first")
	if err := v.Verify("key_live_1", header, body, now); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
}

func TestVerifyUnknownKeyID(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`{}`)
	now := time.Now()

	header := Sign(now.Unix(), body, "whsec_first")
	if err := v.Verify("key_unknown", header, body, now); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("unknown key id = %v, want ErrUnknownKey", err)
	}
	if err := v.Verify("", header, body, now); !errors.Is(err, ErrMissingKeyID) {
		t.Errorf("empty key id = %v, want ErrMissingKeyID", err)
	}
}

func TestVerifyReplayWindow(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`{"customReference":"pay_123"}`)
	now := time.Now()

	// Stale by more than the window, in both directions.
	for _, ts := range []int64{now.Unix() - 301, now.Unix() + 301} {
		header := Sign(ts, body, "whsec_first")
		if err := v.Verify("key_live_1", header, body, now); !errors.Is(err, ErrStale) {
			t.Errorf("t=%d: got %v, want ErrStale", ts, err)
		}
	}

	// Just inside the window passes.
	header := Sign(now.Unix()-299, body, "whsec_first")
	if err := v.Verify("key_live_1", header, body, now); err != nil {
		t.Errorf("t within window rejected: %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`{}`)
	now := time.Now()

	header := Sign(now.Unix(), body, "whsec_second")
	if err := v.Verify("key_live_1", header, body, now); !errors.Is(err, ErrNoMatch) {
		t.Errorf("wrong secret = %v, want ErrNoMatch", err)
	}
}

func TestVerifyTamperedBody(t *testing.T) {
	v := newTestVerifier()
	now := time.Now()

	header := Sign(now.Unix(), []byte(`{"amount":"95.00"}`), "whsec_first")
	if err := v.Verify("key_live_1", header, []byte(`{"amount":"9.00"}`), now); !errors.Is(err, ErrNoMatch) {
		t.Errorf("tampered body = %v, want ErrNoMatch", err)
	}
}

func TestVerifyMultipleCandidates(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`{"customReference":"pay_123"}`)
	now := time.Now()
	ts := now.Unix()

	good := hex.EncodeToString(computeSignature(ts, body, "whsec_first"))
	rotated := hex.EncodeToString(computeSignature(ts, body, "whsec_old_rotated_out"))

	// Rotation: a no-longer-valid candidate first, the matching one second.
	header := "t=" + strconv.FormatInt(ts, 10) + ",v1=" + rotated + ",v1=" + good
	if err := v.Verify("key_live_1", header, body, now); err != nil {
		t.Errorf("any-match semantics failed: %v", err)
	}
}

func TestParseSignatureHeaderRejectsGarbage(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`{}`)
	now := time.Now()

	for _, header := range []string{
		"",
		"t=notanumber,v1=abc",
		"v1=abc",                              // no timestamp
		"t=" + strconv.FormatInt(now.Unix(), 10), // no candidates
		"garbage",
	} {
		if err := v.Verify("key_live_1", header, body, now); !errors.Is(err, ErrBadHeader) {
			t.Errorf("header %q = %v, want ErrBadHeader", header, err)
		}
	}
}

func TestNonHexCandidateSkipped(t *testing.T) {
	v := newTestVerifier()
	body := []byte(`{}`)
	now := time.Now()
	ts := now.Unix()

	good := hex.EncodeToString(computeSignature(ts, body, "whsec_first"))
	header := "t=" + strconv.FormatInt(ts, 10) + ",v1=nothex,v1=" + good
	if err := v.Verify("key_live_1", header, body, now); err != nil {
		t.Errorf("non-hex candidate should be skipped, got %v", err)
	}
}
