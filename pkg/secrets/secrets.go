// Package secrets mints and verifies applicant portal access codes.
package secrets

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "matricula/pkg/domain-errors"
)

// accessCodeAlphabet avoids ambiguous characters (0/O, 1/I/L) so codes can be
// read over the phone.
const accessCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const accessCodeLength = 10

// GenerateAccessCode creates a cryptographically random, human-typable code.
// The plaintext is returned exactly once, at registration; only its hash is
// stored.
func GenerateAccessCode() (string, error) {
	buf := make([]byte, accessCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate access code: %w", err)
	}
	for i, b := range buf {
		buf[i] = accessCodeAlphabet[int(b)%len(accessCodeAlphabet)]
	}
	return string(buf), nil
}

// Hash creates a bcrypt hash of the provided code for storage.
func Hash(code string) (string, error) {
	if code == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "access code cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "access code is too long")
		}
		return "", fmt.Errorf("could not hash access code: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext code against its stored hash.
func Verify(code, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid access code")
		}
		return fmt.Errorf("could not verify access code: %w", err)
	}
	return nil
}
