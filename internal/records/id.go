package records

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID generates an opaque identifier from a base36 millisecond timestamp
// plus a random base36 suffix. IDs sort roughly chronologically without a
// central sequence.
func NewID(now time.Time) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	for i := 0; i < 9; i++ {
		b.WriteByte(idAlphabet[rand.IntN(len(idAlphabet))])
	}
	return b.String()
}

// DateOf formats a calendar date the way records store it.
func DateOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// TimeOf formats a time-of-day the way records store it.
func TimeOf(t time.Time) string {
	return t.Format("15:04:05")
}
