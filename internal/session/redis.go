package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares sessions between api replicas. Each session lives at
// <prefix>session:<id>; <prefix>session:user:<uid> is a set of that user's ids.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(id string) string     { return r.prefix + "session:" + id }
func (r *RedisStore) userKey(uid string) string { return r.prefix + "session:user:" + uid }

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.key(s.ID), raw, 0)
		p.SAdd(ctx, r.userKey(s.User.ID), s.ID)
		return nil
	})
	return err
}

// Replace relies on SET XX so a session deleted in the meantime stays deleted.
func (r *RedisStore) Replace(ctx context.Context, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetXX(ctx, r.key(s.ID), raw, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoSession
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.key(id))
		p.SRem(ctx, r.userKey(s.User.ID), id)
		return nil
	})
	return err
}

func (r *RedisStore) IDsForUser(ctx context.Context, userID string) ([]string, error) {
	return r.client.SMembers(ctx, r.userKey(userID)).Result()
}
