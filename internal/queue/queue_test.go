package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhadrakali/chit-ledger/pkg/redis"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Unique connection name per test to dodge the global adapter cache.
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func testConfig(name string) Config {
	return Config{
		Name:              name,
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

func TestQueuePublishAndConsume(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testConfig("outbox:reminders"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	payload := map[string]string{"memberId": "m1", "monthNo": "3"}
	_, err = q.PublishJSON(ctx, payload, map[string]string{"kind": "reminder"})
	require.NoError(t, err)

	received := make(chan *Message, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	}))

	select {
	case msg := <-received:
		var data map[string]string
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Equal(t, "m1", data["memberId"])
		assert.Equal(t, "reminder", msg.Metadata["kind"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}

func TestQueueRequiresName(t *testing.T) {
	_, adapter := setupTestRedis(t)
	_, err := NewQueue(adapter, Config{})
	assert.Error(t, err)
}

func TestQueueConsumeRequiresHandler(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testConfig("outbox:nohandler"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	assert.Error(t, q.Consume(nil))
}

func TestQueueFailedHandlerLeavesMessagePending(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testConfig("outbox:retry"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	_, err = q.PublishJSON(context.Background(), map[string]string{"k": "v"}, nil)
	require.NoError(t, err)

	handled := make(chan struct{}, 4)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		handled <- struct{}{}
		return assert.AnError
	}))

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	require.Eventually(t, func() bool {
		stats, err := q.GetStats()
		return err == nil && stats.PendingMessages >= 1
	}, 2*time.Second, 20*time.Millisecond, "unacked message stays pending for reclaim")
}

func TestQueueGetStats(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testConfig("outbox:stats"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := q.PublishJSON(ctx, map[string]int{"seq": i}, nil)
		require.NoError(t, err)
	}

	stats, err := q.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(5))
}

func TestQueueConcurrentPublish(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testConfig("outbox:concurrent"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	const n = 10
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func(id int) {
			_, err := q.PublishJSON(ctx, map[string]int{"id": id}, nil)
			assert.NoError(t, err)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}

	stats, err := q.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(n))
}

func TestQueueStop(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testConfig("outbox:stop"))
	require.NoError(t, err)

	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		return nil
	}))
	assert.NoError(t, q.Stop(2*time.Second))
}
