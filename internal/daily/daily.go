// Package daily picks the word of the day and records daily results.
//
// The secret for a date is chosen by HMAC(salt, date|mode) over the secret
// word list, so every player gets the same word without storing it.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WordIndex returns a deterministic index in [0, n) for a date and mode.
func WordIndex(date time.Time, salt, mode string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	if mode != "" {
		h.Write([]byte{'|'})
		h.Write([]byte(mode))
	}
	sum := h.Sum(nil)
	// first 8 bytes give an even enough spread for small lists
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}

// Picker chooses the daily word from a list.
type Picker struct {
	Salt  string
	Words interface {
		At(i int) string
		Len() int
	}
	Now func() time.Time
}

// Pick returns today's date key, word index and word for mode.
func (p *Picker) Pick(mode string) (date string, idx int, word string) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	t := now()
	idx = WordIndex(t, p.Salt, mode, p.Words.Len())
	return DateKey(t), idx, p.Words.At(idx)
}
