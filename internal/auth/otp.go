package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// OTPTTL is how long an issued OTP stays valid.
const OTPTTL = 5 * time.Minute

// GenerateOTP returns a random zero-padded six-digit code from crypto/rand.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// VerifyOTP checks a submitted code against the stored one and its expiry.
// The comparison is constant time.
func VerifyOTP(stored, submitted string, expiry time.Time) error {
	if stored == "" || submitted == "" {
		return ErrInvalidOTP
	}
	if time.Now().After(expiry) {
		return ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) != 1 {
		return ErrInvalidOTP
	}
	return nil
}
