// Package totp generates RFC 6238 time-based one-time codes for
// credentials carrying a totp_secret field.
package totp

import (
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// DefaultTimeStep is the near-universal refresh period.
const DefaultTimeStep = 30

var ErrInvalidSecret = errors.New("invalid base32 totp secret")

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567="

// CleanSecret normalizes a user-entered secret: spaces stripped,
// uppercased. Authenticator apps display secrets in spaced groups.
func CleanSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
}

// ValidateSecret reports whether secret is plausible base32.
func ValidateSecret(secret string) bool {
	clean := CleanSecret(secret)
	if len(clean) == 0 {
		return false
	}
	for _, c := range clean {
		if !strings.ContainsRune(base32Alphabet, c) {
			return false
		}
	}
	return true
}

// GenerateCode returns the 6-digit code for the secret right now.
func GenerateCode(secret string) (string, error) {
	return GenerateCodeAt(secret, DefaultTimeStep, time.Now())
}

// GenerateCodeAt returns the 6-digit code for a specific time and step.
// Useful for tests and for displaying upcoming codes.
func GenerateCodeAt(secret string, timeStep uint, at time.Time) (string, error) {
	clean := CleanSecret(secret)
	if !ValidateSecret(clean) {
		return "", ErrInvalidSecret
	}

	code, err := totp.GenerateCodeCustom(clean, at, totp.ValidateOpts{
		Period:    timeStep,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", ErrInvalidSecret
	}
	return code, nil
}

// SecondsUntilRefresh returns how long the current code stays valid.
func SecondsUntilRefresh(timeStep uint) uint {
	if timeStep == 0 {
		timeStep = DefaultTimeStep
	}
	return timeStep - uint(time.Now().Unix())%timeStep
}
