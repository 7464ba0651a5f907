package staff

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"time"
)

// RFC 6238 time-based one-time passwords, 30 second step, 6 digits. Kept
// in-package because only login verification uses it.

const totpStep = 30 * time.Second

// NewTOTPSecret returns a freshly generated base32 secret for enrollment.
func NewTOTPSecret() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// TOTPCode computes the 6-digit code for the secret at the given time.
func TOTPCode(secret string, at time.Time) (string, error) {
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("invalid totp secret: %w", err)
	}
	counter := uint64(at.Unix()) / uint64(totpStep.Seconds())

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", code%1000000), nil
}

// VerifyTOTP accepts the current step and one step of clock skew either way.
func VerifyTOTP(secret, code string, at time.Time) bool {
	for _, offset := range []time.Duration{0, -totpStep, totpStep} {
		want, err := TOTPCode(secret, at.Add(offset))
		if err != nil {
			return false
		}
		if hmac.Equal([]byte(want), []byte(code)) {
			return true
		}
	}
	return false
}
