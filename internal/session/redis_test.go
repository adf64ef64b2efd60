package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	_ RedisClient = (*RedisConn)(nil)
	_ io.Closer   = (*RedisConn)(nil)
)

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	conn, err := NewRedisClient(context.Background(), "redis://localhost:6379/not-a-db", "", 0)
	if err == nil {
		t.Fatalf("expected parse error, got connection %v", conn)
	}
	if conn != nil {
		t.Fatalf("expected nil connection on error")
	}
}

func TestRedisRoundTrip(t *testing.T) {
	client := newMockRedis()
	store := NewRedis(client, 30*time.Minute)
	ctx := context.Background()

	if _, ok, err := store.State(ctx, 7); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := store.Next(ctx, 7, Session{Step: "awaiting_amount", OptionID: 3}); err != nil {
		t.Fatalf("Next returned error: %v", err)
	}

	if _, ok := client.values["donate_session:7"]; !ok {
		t.Fatalf("expected key donate_session:7, got %v", client.values)
	}
	if client.ttls["donate_session:7"] != 30*time.Minute {
		t.Fatalf("expected ttl to be passed through, got %v", client.ttls["donate_session:7"])
	}

	s, ok, err := store.State(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if s.Step != "awaiting_amount" || s.OptionID != 3 {
		t.Fatalf("unexpected session: %+v", s)
	}

	if err := store.End(ctx, 7); err != nil {
		t.Fatalf("End returned error: %v", err)
	}
	if _, ok, _ := store.State(ctx, 7); ok {
		t.Fatalf("expected session to be deleted")
	}
}

func TestRedisPropagatesErrors(t *testing.T) {
	client := newMockRedis()
	client.err = errors.New("connection refused")
	store := NewRedis(client, 0)
	ctx := context.Background()

	if _, _, err := store.State(ctx, 1); !errors.Is(err, client.err) {
		t.Fatalf("expected get error, got %v", err)
	}
	if err := store.Next(ctx, 1, Session{Step: "awaiting_amount"}); !errors.Is(err, client.err) {
		t.Fatalf("expected set error, got %v", err)
	}
	if err := store.End(ctx, 1); !errors.Is(err, client.err) {
		t.Fatalf("expected del error, got %v", err)
	}
}

func TestRedisRejectsCorruptPayload(t *testing.T) {
	client := newMockRedis()
	client.values["donate_session:9"] = "not json"

	if _, _, err := NewRedis(client, 0).State(context.Background(), 9); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRedisRequiresClient(t *testing.T) {
	if _, _, err := NewRedis(nil, 0).State(context.Background(), 1); err == nil {
		t.Fatalf("expected error for missing client")
	}
}

type mockRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMockRedis() *mockRedis {
	return &mockRedis{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockRedis) Get(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mockRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.err != nil {
		return m.err
	}
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	m.ttls[key] = expiration
	return nil
}

func (m *mockRedis) Del(_ context.Context, keys ...string) error {
	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
