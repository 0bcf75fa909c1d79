package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

// eventTSField is the reserved hash field holding the event timestamp
// of the stored row. Feature names never collide with it.
const eventTSField = "_event_ts"

type onlineStore struct {
	client *goredis.Client
}

// NewOnlineStore connects to Redis and returns an OnlineStore keeping
// one hash per entity key
func NewOnlineStore(addr, password string, db int) (output.OnlineStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &onlineStore{client: client}, nil
}

func (s *onlineStore) key(project, view, entityKey string) string {
	return fmt.Sprintf("fs:%s:%s:%s", project, view, entityKey)
}

func (s *onlineStore) Write(ctx context.Context, project, view string, rows []output.OnlineWrite) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	// Read the stored event timestamps first so replayed or reordered
	// materializations never clobber fresher values
	readPipe := s.client.Pipeline()
	storedTS := make([]*goredis.StringCmd, len(rows))
	for i, row := range rows {
		storedTS[i] = readPipe.HGet(ctx, s.key(project, view, row.EntityKey), eventTSField)
	}
	if _, err := readPipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return 0, fmt.Errorf("read stored event timestamps: %w", err)
	}

	writePipe := s.client.Pipeline()
	written := 0
	for i, row := range rows {
		stored, err := storedTS[i].Result()
		if err == nil {
			prev, perr := time.Parse(time.RFC3339Nano, stored)
			if perr == nil && row.EventTimestamp.Before(prev) {
				continue
			}
		} else if !errors.Is(err, goredis.Nil) {
			return 0, fmt.Errorf("read stored event timestamp: %w", err)
		}

		fields := make(map[string]interface{}, len(row.Values)+1)
		for name, value := range row.Values {
			data, merr := json.Marshal(value)
			if merr != nil {
				return 0, fmt.Errorf("marshal feature value %s: %w", name, merr)
			}
			fields[name] = data
		}
		fields[eventTSField] = row.EventTimestamp.UTC().Format(time.RFC3339Nano)

		writePipe.HSet(ctx, s.key(project, view, row.EntityKey), fields)
		written++
	}

	if written > 0 {
		if _, err := writePipe.Exec(ctx); err != nil {
			return 0, fmt.Errorf("write online rows: %w", err)
		}
	}
	return written, nil
}

func (s *onlineStore) Read(ctx context.Context, project, view string, entityKeys []string, features []string) ([]domain.OnlineRow, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(entityKeys))
	for i, entityKey := range entityKeys {
		cmds[i] = pipe.HGetAll(ctx, s.key(project, view, entityKey))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read online rows: %w", err)
	}

	out := make([]domain.OnlineRow, len(entityKeys))
	for i := range entityKeys {
		hash, err := cmds[i].Result()
		if err != nil {
			return nil, fmt.Errorf("read online row: %w", err)
		}
		if len(hash) == 0 {
			out[i] = domain.OnlineRow{Found: false}
			continue
		}

		row := domain.OnlineRow{
			Found:  true,
			Values: make(map[string]interface{}, len(features)),
		}
		if ts, ok := hash[eventTSField]; ok {
			if parsed, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
				row.EventTimestamp = parsed
			}
		}
		for _, feature := range features {
			raw, ok := hash[feature]
			if !ok {
				continue
			}
			var value interface{}
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				return nil, fmt.Errorf("unmarshal feature value %s: %w", feature, err)
			}
			row.Values[feature] = value
		}
		out[i] = row
	}
	return out, nil
}

func (s *onlineStore) Purge(ctx context.Context, project, view string) error {
	pattern := fmt.Sprintf("fs:%s:%s:*", project, view)
	iter := s.client.Scan(ctx, 0, pattern, 200).Iterator()

	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("purge online rows: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan online rows: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("purge online rows: %w", err)
		}
	}
	return nil
}
