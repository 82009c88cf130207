package revocation

import (
	"context"
	"errors"
	"strconv"
	"time"

	"warehouse/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "warehouse:revoked:"

type redisList struct {
	client redis.UniversalClient
}

// Only ever moves the revocation instant forward.
var revokeScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current and tonumber(current) >= tonumber(ARGV[1]) then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1])
return 1
`)

func NewRedisList(client redis.UniversalClient) (domain.RevocationList, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &redisList{client: client}, nil
}

func (r *redisList) Revoke(ctx context.Context, subjectID string, at time.Time) error {
	return revokeScript.Run(ctx, r.client, []string{keyPrefix + subjectID}, at.UnixMilli()).Err()
}

func (r *redisList) RevokedAt(ctx context.Context, subjectID string) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, keyPrefix+subjectID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(millis).UTC(), true, nil
}
