package repo

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/edu-auth/internal/domain"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

const userCacheTTL = 60 * time.Second

func userKey(id primitive.ObjectID) string { return "user:" + id.Hex() }

// GetUser returns the cached record for id, or nil on miss. Redis failures
// count as misses: the cache is best-effort and Mongo stays authoritative.
func (r *Redis) GetUser(ctx context.Context, id primitive.ObjectID) *domain.User {
	if r == nil {
		return nil
	}
	raw, err := r.C.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		return nil
	}
	var u domain.User
	if err := bson.Unmarshal(raw, &u); err != nil {
		return nil
	}
	return &u
}

func (r *Redis) PutUser(ctx context.Context, u *domain.User) {
	if r == nil || u == nil {
		return
	}
	// BSON keeps password_hash, which the JSON tags deliberately drop
	raw, err := bson.Marshal(u)
	if err != nil {
		return
	}
	_ = r.C.Set(ctx, userKey(u.ID), raw, userCacheTTL).Err()
}

// InvalidateUser drops the cached record; call after any user mutation.
func (r *Redis) InvalidateUser(ctx context.Context, id primitive.ObjectID) {
	if r == nil {
		return
	}
	_ = r.C.Del(ctx, userKey(id)).Err()
}
