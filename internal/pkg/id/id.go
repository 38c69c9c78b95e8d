package id

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// NewAt returns a ULID whose timestamp part is t, so an account id sorts
// with its created_at. Ids minted within the same millisecond stay ordered.
func NewAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}
