package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewPaymentToken returns a 48-char random hex token used as the public
// checkout identifier. It fits the 64-char column with room to spare.
func NewPaymentToken() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
