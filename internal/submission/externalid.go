package submission

import (
	"crypto/rand"
	"strconv"
	"time"
)

const (
	externalIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	externalIDLetters  = "abcdefghijklmnopqrstuvwxyz"
)

// newExternalID builds the 18-character public identifier handed to
// downstream systems: one random lowercase letter, the completion time in
// seconds as zero-padded base36, then ten random alphanumerics. The embedded
// timestamp keeps ids roughly sortable without exposing the internal UUID.
func newExternalID(now time.Time) string {
	stamp := strconv.FormatInt(now.Unix(), 36)
	for len(stamp) < 7 {
		stamp = "0" + stamp
	}

	id := make([]byte, 0, 18)
	id = append(id, externalIDLetters[randIndex(len(externalIDLetters))])
	id = append(id, stamp...)
	for i := 0; i < 10; i++ {
		id = append(id, externalIDAlphabet[randIndex(len(externalIDAlphabet))])
	}
	return string(id)
}

// randIndex draws an unbiased index below n, rejecting bytes past the
// largest multiple of n.
func randIndex(n int) int {
	limit := 256 - 256%n
	var b [1]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			// crypto/rand never fails on supported platforms.
			panic(err)
		}
		if int(b[0]) < limit {
			return int(b[0]) % n
		}
	}
}
