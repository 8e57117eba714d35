package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/redis/go-redis/v9"
)

// RedisSink mirrors records to Redis: each record is appended to the
// session's list and published on its channel for live watchers.
type RedisSink struct {
	rdb     *redis.Client
	session string
}

// NewRedisSink creates a sink for session. An empty session gets a
// generated one.
func NewRedisSink(redisOpts *redis.Options, session string) (*RedisSink, error) {
	if session == "" {
		session = NewSessionID()
	}
	if err := ValidateSessionID(session); err != nil {
		return nil, err
	}
	rdb := redis.NewClient(redisOpts)
	return &RedisSink{rdb: rdb, session: session}, nil
}

// NewRedisSinkFromURL parses a redis:// URL and creates a sink.
func NewRedisSinkFromURL(url, session string) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return NewRedisSink(opts, session)
}

// Session returns the session records are mirrored under.
func (s *RedisSink) Session() string {
	return s.session
}

// Ping checks connectivity.
func (s *RedisSink) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Append implements ami.Sink.
func (s *RedisSink) Append(ctx context.Context, e ami.Entry) error {
	data, err := json.Marshal(FromEntry(s.session, e))
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.SAdd(ctx, SessionsKey(), s.session)
	pipe.RPush(ctx, EventsKey(s.session), data)
	pipe.Publish(ctx, RecordEventsChannel(s.session), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mirror entry %d: %w", e.Seq, err)
	}
	return nil
}

// Recent returns up to n of the session's latest records, oldest first.
// n <= 0 returns all of them.
func (s *RedisSink) Recent(ctx context.Context, n int64) ([]StoredEntry, error) {
	start := int64(0)
	if n > 0 {
		start = -n
	}
	raw, err := s.rdb.LRange(ctx, EventsKey(s.session), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	out := make([]StoredEntry, 0, len(raw))
	for _, item := range raw {
		var e StoredEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			log.Printf("[Sink] Skipping malformed entry in %s: %v", EventsKey(s.session), err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Sessions lists every session that has mirrored records.
func (s *RedisSink) Sessions(ctx context.Context) ([]string, error) {
	sessions, err := s.rdb.SMembers(ctx, SessionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the Redis connection.
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
