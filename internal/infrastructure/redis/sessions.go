package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-session-auth/internal/domain"
	"github.com/go-session-auth/internal/pkg/unique"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// putUniqueLua writes a hash only when the key is absent and pins its absolute
// expiry. KEYS[1] = session key, ARGV[1] = expiry (unix ms), ARGV[2..] = field/value pairs.
var putUniqueLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('PEXPIREAT', KEYS[1], ARGV[1])
return 1
`)

// setFieldLua updates one schema field of a live session without touching its TTL.
// Returns 0 when the session is gone and -1 when the field is not in its schema.
var setFieldLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
  return -1
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// SessionCache stores in-progress Session Objects as Redis hashes keyed by the
// session token's jti. Entries expire on their own; Delete is only needed
// after a terminal submit.
type SessionCache struct {
	client redis.UniversalClient
	prefix string
	newID  func() (string, error)
}

func NewSessionCache(client redis.UniversalClient, prefix string) *SessionCache {
	if prefix == "" {
		prefix = "auth"
	}
	return &SessionCache{
		client: client,
		prefix: prefix,
		newID:  newSessionID,
	}
}

// newSessionID draws a UUIDv4: 122 random bits, far past the 80 needed to
// make collisions negligible.
func newSessionID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (c *SessionCache) key(id string) string {
	return c.prefix + ":session:" + id
}

// PutUnique writes fields under id if nothing lives there yet. The existence
// check and the write run in one script, but id uniqueness across the
// namespace is still probabilistic; a collision returns ErrKeyExists.
func (c *SessionCache) PutUnique(ctx context.Context, id string, fields map[string]string, expiresAt time.Time) error {
	if len(fields) == 0 {
		return fmt.Errorf("put session %s: empty schema: %w", id, domain.ErrInvalidArgument)
	}
	args := make([]interface{}, 0, 1+2*len(fields))
	args = append(args, expiresAt.UnixMilli())
	for k, v := range fields {
		args = append(args, k, v)
	}
	n, err := putUniqueLua.Run(ctx, c.client, []string{c.key(id)}, args...).Int()
	if err != nil {
		return wrap("put session", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, domain.ErrKeyExists)
	}
	return nil
}

// CreateSessionWithRetry stores obj's schema fields under a freshly drawn id,
// drawing again on collision up to maxAttempts times.
func (c *SessionCache) CreateSessionWithRetry(ctx context.Context, obj *domain.SessionObject, schema []domain.Field, expiresAt time.Time, maxAttempts int) (string, error) {
	fields := obj.Hash(schema)
	return unique.Mint(ctx, maxAttempts, c.newID, func(ctx context.Context, id string) error {
		return c.PutUnique(ctx, id, fields, expiresAt)
	})
}

// Get loads the whole Session Object.
func (c *SessionCache) Get(ctx context.Context, id string) (*domain.SessionObject, error) {
	h, err := c.client.HGetAll(ctx, c.key(id)).Result()
	if err != nil {
		return nil, wrap("get session", err)
	}
	if len(h) == 0 {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return domain.SessionObjectFromHash(h), nil
}

func (c *SessionCache) GetField(ctx context.Context, id string, field domain.Field) (string, error) {
	v, err := c.client.HGet(ctx, c.key(id), string(field)).Result()
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", wrap("get session field", err)
	}
	n, err := c.client.Exists(ctx, c.key(id)).Result()
	if err != nil {
		return "", wrap("get session field", err)
	}
	if n == 0 {
		return "", fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return "", fmt.Errorf("field %q not in session schema: %w", field, domain.ErrInvalidArgument)
}

func (c *SessionCache) SetField(ctx context.Context, id string, field domain.Field, value string) error {
	n, err := setFieldLua.Run(ctx, c.client, []string{c.key(id)}, string(field), value).Int()
	if err != nil {
		return wrap("set session field", err)
	}
	switch n {
	case 0:
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	case -1:
		return fmt.Errorf("field %q not in session schema: %w", field, domain.ErrInvalidArgument)
	}
	return nil
}

// Delete removes the entry for id. Deleting a missing entry is not an error.
func (c *SessionCache) Delete(ctx context.Context, id string) error {
	return wrap("delete session", c.client.Del(ctx, c.key(id)).Err())
}
