package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/go-session-auth/internal/config"
	"github.com/go-session-auth/internal/domain"
	"github.com/redis/go-redis/v9"
)

// NewClient creates the Redis client backing the session cache.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// wrap annotates a Redis error with op and maps timeouts to ErrServiceUnavailable.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrServiceUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
