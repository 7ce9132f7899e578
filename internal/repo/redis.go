package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	roomSeqKey   = "debate:rooms:seq"
	roomIndexKey = "debate:rooms"
)

func roomKey(id domain.RoomID) string { return fmt.Sprintf("debate:room:%s", id) }
func accountKey(name string) string   { return fmt.Sprintf("debate:account:%s", name) }

// RedisRoomRepo stores each room as JSON under its own key and keeps a
// sorted set of ids scored by creation time.
type RedisRoomRepo struct{ rdb *redis.Client }

func NewRedisRoomRepo(rdb *redis.Client) *RedisRoomRepo {
	return &RedisRoomRepo{rdb: rdb}
}

func (rr *RedisRoomRepo) NextID(ctx context.Context) (domain.RoomID, error) {
	n, err := rr.rdb.Incr(ctx, roomSeqKey).Result()
	if err != nil {
		return "", err
	}
	return domain.RoomID(strconv.FormatInt(n, 10)), nil
}

func (rr *RedisRoomRepo) Create(ctx context.Context, room domain.Room) error {
	b, err := json.Marshal(room)
	if err != nil {
		return err
	}
	ok, err := rr.rdb.SetNX(ctx, roomKey(room.ID), b, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("room %s already exists", room.ID)
	}
	return rr.rdb.ZAdd(ctx, roomIndexKey, redis.Z{
		Score:  float64(room.CreatedAt.UnixMilli()),
		Member: string(room.ID),
	}).Err()
}

func (rr *RedisRoomRepo) Get(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	val, err := rr.rdb.Get(ctx, roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Room{}, core.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	var r domain.Room
	if err := json.Unmarshal(val, &r); err != nil {
		return domain.Room{}, err
	}
	return r, nil
}

func (rr *RedisRoomRepo) List(ctx context.Context) ([]domain.Room, error) {
	ids, err := rr.rdb.ZRevRange(ctx, roomIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Room{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(domain.RoomID(id))
	}
	vals, err := rr.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Room, 0, len(vals))
	for _, val := range vals {
		s, ok := val.(string)
		if !ok {
			continue
		}
		var r domain.Room
		if json.Unmarshal([]byte(s), &r) == nil {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (rr *RedisRoomRepo) Delete(ctx context.Context, id domain.RoomID) error {
	pipe := rr.rdb.TxPipeline()
	del := pipe.Del(ctx, roomKey(id))
	pipe.ZRem(ctx, roomIndexKey, string(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return core.ErrRoomNotFound
	}
	return nil
}

type RedisAccountRepo struct{ rdb *redis.Client }

func NewRedisAccountRepo(rdb *redis.Client) *RedisAccountRepo {
	return &RedisAccountRepo{rdb: rdb}
}

func (ar *RedisAccountRepo) Create(ctx context.Context, acc domain.Account) error {
	b, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	ok, err := ar.rdb.SetNX(ctx, accountKey(acc.Username), b, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAccountExists
	}
	return nil
}

func (ar *RedisAccountRepo) Get(ctx context.Context, username string) (domain.Account, error) {
	val, err := ar.rdb.Get(ctx, accountKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	var acc domain.Account
	if err := json.Unmarshal(val, &acc); err != nil {
		return domain.Account{}, err
	}
	return acc, nil
}
