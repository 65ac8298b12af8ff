// Package entropy supplies seeds for the models' pseudo-random generators.
// A configured seed of 0 means "pick one": it is drawn from crypto/rand and
// logged so the run can be reproduced.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	"time"
)

// ResolveSeed returns seed unchanged unless it is 0, in which case a fresh
// non-zero seed is drawn.
func ResolveSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	s := CryptoSeed()
	slog.Info("drew random seed", "seed", s)
	return s
}

// CryptoSeed returns a positive seed from crypto/rand. It falls back to the
// clock if the system source fails.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Debug("crypto/rand failed, seeding from clock", "error", err)
		return time.Now().UnixNano()&(1<<62-1) | 1
	}
	// Clear the sign bit and avoid zero.
	return int64(binary.LittleEndian.Uint64(buf[:])>>1) | 1
}
