package deadletter

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/taskhub/pkg/api"
)

// RedisStore is a Store backed by Redis. Keys are laid out as:
//
//	<prefix>dl:<id>                  => gob-encoded api.DeadLetter
//	<prefix>idx:all                  => SET of all ids
//	<prefix>idx:kind:<kind>          => SET of ids per work item kind
//	<prefix>idx:instance:<instance>  => SET of ids per orchestration instance
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore. prefix defaults to "taskhub:".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "taskhub:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) keyLetter(id string) string {
	return s.prefix + "dl:" + id
}

func (s *RedisStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisStore) keyKind(kind api.WorkItemKind) string {
	return s.prefix + "idx:kind:" + string(kind)
}

func (s *RedisStore) keyInstance(id string) string {
	return s.prefix + "idx:instance:" + id
}

func encodeRedisLetter(dl *api.DeadLetter) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(dl); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisLetter(data []byte) (*api.DeadLetter, error) {
	var dl api.DeadLetter
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&dl); err != nil {
		return nil, err
	}
	return &dl, nil
}

func (s *RedisStore) Put(ctx context.Context, dl *api.DeadLetter) error {
	data, err := encodeRedisLetter(dl)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyLetter(dl.ID), data, 0)
	pipe.SAdd(ctx, s.keyAll(), dl.ID)
	pipe.SAdd(ctx, s.keyKind(dl.Kind), dl.ID)
	pipe.SAdd(ctx, s.keyInstance(dl.InstanceID), dl.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, id string) (*api.DeadLetter, error) {
	data, err := s.client.Get(ctx, s.keyLetter(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeRedisLetter(data)
}

func (s *RedisStore) List(ctx context.Context, filter Filter) ([]*api.DeadLetter, error) {
	var keys []string
	if filter.Kind != "" {
		keys = append(keys, s.keyKind(filter.Kind))
	}
	if filter.InstanceID != "" {
		keys = append(keys, s.keyInstance(filter.InstanceID))
	}

	var ids []string
	var err error
	switch len(keys) {
	case 0:
		ids, err = s.client.SMembers(ctx, s.keyAll()).Result()
	case 1:
		ids, err = s.client.SMembers(ctx, keys[0]).Result()
	default:
		ids, err = s.client.SInter(ctx, keys...).Result()
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyLetter(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var result []*api.DeadLetter
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			// Index entry left behind by a concurrent Delete.
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		dl, err := decodeRedisLetter(data)
		if err != nil {
			return nil, err
		}
		result = append(result, dl)
	}
	sortByTime(result)
	return result, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	dl, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keyLetter(id))
	pipe.SRem(ctx, s.keyAll(), id)
	pipe.SRem(ctx, s.keyKind(dl.Kind), id)
	pipe.SRem(ctx, s.keyInstance(dl.InstanceID), id)
	_, err = pipe.Exec(ctx)
	return err
}
