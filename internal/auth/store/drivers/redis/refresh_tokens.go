// Package redis keeps refresh records in Redis, one hash per subject,
// expiring with the token it fingerprints.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/domain"
	"github.com/plus1250/jobatrend/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces refresh keys.
const DefaultPrefix = "auth:refresh:"

const (
	fieldHash    = "token_hash"
	fieldExpires = "expires_at"
	fieldCreated = "created_at"
	fieldUpdated = "updated_at"
)

const (
	rotateStatusRotated  int64 = 0
	rotateStatusNotFound int64 = 1
	rotateStatusMismatch int64 = 2
)

// KEYS[1] record key
// ARGV[1] expected hash, ARGV[2] next hash, ARGV[3] next expiry (unix),
// ARGV[4] updated (unix), ARGV[5] ttl in ms
const rotateRefreshScript = `
local current = redis.call("HGET", KEYS[1], "token_hash")
if not current then
  return 1
end
if current ~= ARGV[1] then
  return 2
end
redis.call("HSET", KEYS[1], "token_hash", ARGV[2], "expires_at", ARGV[3], "updated_at", ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return 0
`

var rotateRefreshLua = goredis.NewScript(rotateRefreshScript)

// RefreshTokens implements store.RefreshTokens on a Redis client.
type RefreshTokens struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRefreshTokens wraps client. An empty prefix uses DefaultPrefix.
func NewRefreshTokens(client goredis.UniversalClient, prefix string) *RefreshTokens {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RefreshTokens{client: client, prefix: prefix, now: time.Now}
}

// Ping checks the connection.
func (r *RefreshTokens) Ping(ctx context.Context) error {
	return store.MapTimeout(r.client.Ping(ctx).Err())
}

func (r *RefreshTokens) key(subject string) string {
	return r.prefix + subject
}

// ttl is never below a millisecond; Redis rejects zero and negative values.
func (r *RefreshTokens) ttl(expires time.Time) time.Duration {
	d := expires.Sub(r.now())
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}

func (r *RefreshTokens) PutRefreshToken(ctx context.Context, rec domain.RefreshRecord) error {
	key := r.key(rec.Subject)

	if !rec.ExpiresAt.After(r.now()) {
		return mapErr(r.client.Del(ctx, key).Err())
	}

	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldHash, rec.TokenHash,
			fieldExpires, rec.ExpiresAt.Unix(),
			fieldCreated, rec.CreatedAt.Unix(),
			fieldUpdated, rec.UpdatedAt.Unix(),
		)
		pipe.PExpire(ctx, key, r.ttl(rec.ExpiresAt))
		return nil
	})
	return mapErr(err)
}

func (r *RefreshTokens) GetRefreshToken(ctx context.Context, subject string) (domain.RefreshRecord, error) {
	fields, err := r.client.HGetAll(ctx, r.key(subject)).Result()
	if err != nil {
		return domain.RefreshRecord{}, mapErr(err)
	}
	if len(fields) == 0 {
		return domain.RefreshRecord{}, store.ErrNotFound
	}

	rec := domain.RefreshRecord{Subject: subject, TokenHash: fields[fieldHash]}
	if rec.ExpiresAt, err = unixField(fields, fieldExpires); err != nil {
		return domain.RefreshRecord{}, err
	}
	if rec.CreatedAt, err = unixField(fields, fieldCreated); err != nil {
		return domain.RefreshRecord{}, err
	}
	if rec.UpdatedAt, err = unixField(fields, fieldUpdated); err != nil {
		return domain.RefreshRecord{}, err
	}
	return rec, nil
}

func (r *RefreshTokens) DeleteRefreshToken(ctx context.Context, subject string) error {
	return mapErr(r.client.Del(ctx, r.key(subject)).Err())
}

func (r *RefreshTokens) RotateRefreshToken(
	ctx context.Context,
	subject, expectedHash string,
	next domain.RefreshRecord,
) error {
	code, err := rotateRefreshLua.Run(ctx, r.client,
		[]string{r.key(subject)},
		expectedHash,
		next.TokenHash,
		next.ExpiresAt.Unix(),
		next.UpdatedAt.Unix(),
		r.ttl(next.ExpiresAt).Milliseconds(),
	).Int64()
	if err != nil {
		return mapErr(err)
	}

	switch code {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return store.ErrNotFound
	case rotateStatusMismatch:
		return store.ErrStale
	default:
		return fmt.Errorf("redis: unexpected rotate status %d", code)
	}
}

// DeleteExpiredRefreshTokens sweeps records whose expiry has passed but whose
// key TTL has not fired yet, e.g. after a clock adjustment.
func (r *RefreshTokens) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := r.client.HGet(ctx, key, fieldExpires).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return removed, mapErr(err)
		}
		exp, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || exp > now.Unix() {
			continue
		}
		n, err := r.client.Del(ctx, key).Result()
		if err != nil {
			return removed, mapErr(err)
		}
		removed += n
	}
	return removed, mapErr(iter.Err())
}

func unixField(fields map[string]string, name string) (time.Time, error) {
	v, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("redis: corrupt %s: %w", name, err)
	}
	return time.Unix(v, 0).UTC(), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.Nil) {
		return store.ErrNotFound
	}
	return store.MapTimeout(err)
}
