// Package daily derives the shared randomness of the daily challenge, so
// every player gets the same questions on a given UTC date.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns a PCG seed from HMAC(salt, date).
func Seed(date, salt string) (uint64, uint64) {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(date))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}

// Rand returns the generator for one step of the date's game. Step 0 starts
// the session; step n generates round n. Each step gets its own stream so a
// round does not depend on how earlier requests consumed randomness.
func Rand(date, salt string, step int) *rand.Rand {
	s1, s2 := Seed(date, salt)
	return rand.New(rand.NewPCG(s1, s2+uint64(step)))
}
