package store

import (
	"context"
	"fmt"

	"github.com/Luismorlan/vehicle_ledger/model"
	"github.com/redis/go-redis/v9"
)

// RedisStore appends each record to the stream vehicle:<owner>.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		// A bare host:port is accepted as well.
		opts = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// StreamKey returns the stream holding owner's records.
func StreamKey(owner string) string {
	return "vehicle:" + owner
}

func (s *RedisStore) Append(ctx context.Context, rec model.VehicleRecord) error {
	row := Row(rec)
	values := make(map[string]interface{}, len(Columns))
	for i, col := range Columns {
		values[col] = row[i]
	}
	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(rec.Owner),
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd record of %s: %w", rec.Owner, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
