package allowlist

import (
	"context"
	"sort"

	"invoicedrop/pkg/faults"

	goredis "github.com/redis/go-redis/v9"
)

const redisKey = "allowlist:users"

// Redis keeps the authorized-user set in a Redis SET so multiple bot
// instances share one list.
type Redis struct {
	client *goredis.Client
}

var _ Allowlist = (*Redis)(nil)

func NewRedis(client *goredis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) IsAllowed(ctx context.Context, userID string) (bool, error) {
	return r.client.SIsMember(ctx, redisKey, userID).Result()
}

func (r *Redis) Add(ctx context.Context, userID string) error {
	added, err := r.client.SAdd(ctx, redisKey, userID).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return faults.ErrAlreadyExists
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, userID string) error {
	removed, err := r.client.SRem(ctx, redisKey, userID).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return faults.ErrNotFound
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]string, error) {
	users, err := r.client.SMembers(ctx, redisKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}
