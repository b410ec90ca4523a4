// Package webhook signs and sends outgoing webhook requests and verifies signed incoming ones.
package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderEvent     = "X-Gradii-Event"
	HeaderDelivery  = "X-Gradii-Delivery"
	HeaderTimestamp = "X-Gradii-Timestamp"
	HeaderSignature = "X-Gradii-Signature"

	signaturePrefix = "sha256="
)

var (
	ErrBadSignature = errors.New("signature mismatch")
	ErrStale        = errors.New("timestamp outside tolerance")
)

// Sign computes "sha256=<hex>" over "<timestamp>.<body>".
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign. A zero tolerance skips the
// timestamp check.
func Verify(secret string, timestamp int64, body []byte, signature string, tolerance time.Duration) error {
	if tolerance > 0 {
		skew := time.Since(time.Unix(timestamp, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > tolerance {
			return ErrStale
		}
	}
	if !hmac.Equal([]byte(Sign(secret, timestamp, body)), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// SignBody computes "sha256=<hex>" over body alone, the format billing
// providers use.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func VerifyBody(secret string, body []byte, signature string) error {
	if secret == "" {
		return ErrBadSignature
	}
	if !strings.HasPrefix(signature, signaturePrefix) {
		signature = signaturePrefix + signature
	}
	if !hmac.Equal([]byte(SignBody(secret, body)), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// NewSecret returns a random signing secret.
func NewSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}
