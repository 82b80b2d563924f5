package orders

import (
	"crypto/rand"
	"time"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewReference returns a human-readable order number such as SO-20260301-K7Q2MZ.
// The suffix skips characters that are easy to misread.
func NewReference(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return "SO-" + now.UTC().Format("20060102") + "-" + string(buf), nil
}
