package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOTPCode generates a cryptographically secure 6-digit code,
// uniformly distributed over [100000, 999999].
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
