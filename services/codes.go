package services

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// Alphabet for human-typable codes: no 0/O, 1/I/L to avoid transcription slips.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	accessCodeLength = 6
	reviewerIDLength = 8
)

// NewLocator returns the opaque token that identifies a review in links.
func NewLocator() string {
	return uuid.NewString()
}

// NewAccessCode returns the short secret that accompanies a locator.
// It is human-typable, not cryptographically hardened.
func NewAccessCode() string {
	return randomCode(accessCodeLength)
}

// NewReviewerID returns a candidate reviewer identifier. Collisions are
// possible and handled by the caller with bounded retries.
func NewReviewerID() string {
	return randomCode(reviewerIDLength)
}

func randomCode(length int) string {
	max := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform RNG is broken;
			// there is no reasonable fallback.
			panic(err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code)
}
