package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/platform/cache"
)

const (
	overrideKeyPrefix    = "authz:overrides:"
	overrideGenKeyPrefix = "authz:overrides:gen:"
)

// storeIfCurrent writes the override payload only while the generation
// counter still holds the value read before the load.
var storeIfCurrent = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// OverrideLoader reads overrides from the source of truth.
type OverrideLoader interface {
	ListOverrides(ctx context.Context, userID int64) (authz.Overrides, error)
}

// OverrideCache keeps per-user override maps in Redis so principal
// resolution does not hit Postgres on every request. Concurrent misses for
// the same user share a single load. A load that overlaps an Invalidate
// returns what it read but never writes it back.
type OverrideCache struct {
	client redis.Cmdable
	loader OverrideLoader
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewOverrideCache constructs an OverrideCache.
func NewOverrideCache(client redis.Cmdable, loader OverrideLoader, ttl time.Duration, logger *slog.Logger) *OverrideCache {
	return &OverrideCache{client: client, loader: loader, ttl: ttl, logger: logger}
}

// Overrides returns the override map of userID.
func (c *OverrideCache) Overrides(ctx context.Context, userID int64) (authz.Overrides, error) {
	key := overrideKey(userID)
	var stored map[string]string
	err := cache.GetJSON(ctx, c.client, key, &stored)
	if err == nil {
		overrides, perr := authz.ParseOverrides(stored)
		if perr == nil {
			return overrides, nil
		}
		c.warn("discarding cached overrides", userID, perr)
	} else if !errors.Is(err, cache.ErrMiss) {
		c.warn("override cache read", userID, err)
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others.
		loadCtx := context.WithoutCancel(ctx)
		gen, genErr := c.generation(loadCtx, userID)
		if genErr != nil {
			c.warn("override generation read", userID, genErr)
		}
		overrides, err := c.loader.ListOverrides(loadCtx, userID)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			if err := c.store(loadCtx, userID, gen, overrides); err != nil {
				c.warn("override cache write", userID, err)
			}
		}
		return overrides, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		overrides, _ := res.Val.(authz.Overrides)
		return overrides, nil
	}
}

// Invalidate drops the cached entry after a write and bumps the user's
// generation so loads already in flight discard their result.
func (c *OverrideCache) Invalidate(ctx context.Context, userID int64) error {
	c.group.Forget(overrideKey(userID))
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, overrideGenKey(userID))
	pipe.Del(ctx, overrideKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("users: invalidate overrides %d: %w", userID, err)
	}
	return nil
}

func (c *OverrideCache) generation(ctx context.Context, userID int64) (string, error) {
	gen, err := c.client.Get(ctx, overrideGenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func (c *OverrideCache) store(ctx context.Context, userID int64, gen string, overrides authz.Overrides) error {
	raw, err := json.Marshal(overrides.Strings())
	if err != nil {
		return err
	}
	keys := []string{overrideGenKey(userID), overrideKey(userID)}
	written, err := storeIfCurrent.Run(ctx, c.client, keys, gen, raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if written == 0 && c.logger != nil {
		c.logger.Debug("override load superseded", slog.Int64("user_id", userID))
	}
	return nil
}

func (c *OverrideCache) warn(msg string, userID int64, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func overrideKey(userID int64) string {
	return overrideKeyPrefix + strconv.FormatInt(userID, 10)
}

func overrideGenKey(userID int64) string {
	return overrideGenKeyPrefix + strconv.FormatInt(userID, 10)
}
