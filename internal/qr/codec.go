// Package qr issues and verifies the short-lived signed tokens shown at the
// gate. Tokens are stateless: verification needs the shared secret and a
// clock, never a database round-trip, so scans stay fast and work when the
// gate tablet loses connectivity to the backend store.
package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Typed verification failures. Callers surface the coarse category only.
var (
	ErrBadFormat     = errors.New("bad_format")
	ErrBadSignature  = errors.New("bad_sig")
	ErrBadPayload    = errors.New("bad_payload")
	ErrMissingClaims = errors.New("missing_claims")
	ErrExpired       = errors.New("expired")
)

const (
	// DefaultTTL keeps a screenshotted or forwarded QR code from being
	// reusable beyond a single gate approach.
	DefaultTTL = 45 * time.Second

	// MinTTL floors the window so a misconfigured TTL can never produce a
	// zero or negative validity window.
	MinTTL = 15 * time.Second
)

// Claims is the signed token payload. The nonce is carried for a future
// replay cache but is not checked against a store today, so a captured token
// is valid for any use inside its window.
type Claims struct {
	MemberID int64  `json:"mid"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
	Nonce    string `json:"nonce"`
}

type Codec struct {
	secret []byte
	ttl    time.Duration
	minTTL time.Duration
}

func NewCodec(secret string, ttl, minTTL time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if minTTL <= 0 {
		minTTL = MinTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, minTTL: minTTL}
}

// Issue signs a token for the member valid for ttl (or the codec default when
// ttl is zero), floored at the minimum window. Returns the compact token and
// its expiry epoch.
func (c *Codec) Issue(memberID int64, ttl time.Duration) (string, int64, error) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if ttl < c.minTTL {
		ttl = c.minTTL
	}

	now := time.Now()
	claims := Claims{
		MemberID: memberID,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(ttl).Unix(),
		Nonce:    uuid.NewString(),
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", 0, err
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	sig := c.sign(encoded)
	return encoded + "." + sig, claims.Expiry, nil
}

// Verify checks the token against the codec secret at the given instant.
// Failures come back as one of the typed reasons above.
func (c *Codec) Verify(token string, now time.Time) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, ErrBadFormat
	}

	want := c.sign(parts[0])
	// Constant-time comparison; a short-circuiting equality would leak how
	// many signature bytes matched.
	if !hmac.Equal([]byte(want), []byte(parts[1])) {
		return nil, ErrBadSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrBadPayload
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrBadPayload
	}

	if claims.MemberID == 0 || claims.Expiry == 0 {
		return nil, ErrMissingClaims
	}

	if now.Unix() > claims.Expiry {
		return nil, ErrExpired
	}

	return &claims, nil
}

func (c *Codec) sign(encodedClaims string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encodedClaims))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
