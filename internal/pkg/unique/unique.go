// Package unique mints random identifiers against a shared namespace.
//
// Uniqueness here is probabilistic: callers pick a key space wide enough
// (at least 80 random bits) that a collision is negligible, and the store's
// put reports the rare collision so the caller can draw again. The number of
// draws is always bounded.
package unique

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-session-auth/internal/domain"
	"github.com/sethvargo/go-retry"
)

// DefaultAttempts is the draw ceiling used when callers pass a non-positive value.
const DefaultAttempts = 5

// MaxAttempts caps the draw ceiling whatever the caller asks for.
const MaxAttempts = 10

const backoff = 5 * time.Millisecond

// Mint draws an identifier with gen and hands it to put until put accepts it.
// put must return an error wrapping domain.ErrKeyExists on collision; any
// other error aborts immediately. After attempts collisions (at most
// MaxAttempts) Mint fails with domain.ErrResourceExhausted.
func Mint(ctx context.Context, attempts int, gen func() (string, error), put func(ctx context.Context, key string) error) (string, error) {
	switch {
	case attempts <= 0:
		attempts = DefaultAttempts
	case attempts > MaxAttempts:
		attempts = MaxAttempts
	}
	var key string
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		k, err := gen()
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		if err := put(ctx, k); err != nil {
			if errors.Is(err, domain.ErrKeyExists) {
				return retry.RetryableError(err)
			}
			return err
		}
		key = k
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrKeyExists) {
			return "", fmt.Errorf("no free key after %d attempts: %w", attempts, domain.ErrResourceExhausted)
		}
		return "", err
	}
	return key, nil
}
