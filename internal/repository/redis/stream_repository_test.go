package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	redisRepo "github.com/boundary-pipeline/internal/repository/redis"
)

const testStream = "test:stream:pipeline:diagnostics"

// getTestRedisClient creates a Redis client for testing
func getTestRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use DB 1 for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}

	client.Del(ctx, testStream, domain.StreamDiagnostics)
	t.Cleanup(func() {
		client.Del(context.Background(), testStream)
		client.Close()
	})
	return client
}

func TestStreamRepository_CreateConsumerGroup(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, 0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.CreateConsumerGroup(ctx, testStream, "test-group"))

	groups, err := client.XInfoGroups(ctx, testStream).Result()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "test-group", groups[0].Name)

	// BUSYGROUP is not an error
	assert.NoError(t, repo.CreateConsumerGroup(ctx, testStream, "test-group"))
}

func TestStreamRepository_PublishConsumeAck(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, 1000, zap.NewNop())
	ctx := context.Background()

	// publish before the group exists: the group starts from the beginning
	d := domain.NewDiagnostic("uf/municipio/29", domain.DiagnosticUnmatched, "", "2 features unmatched")
	d.Count = 2
	require.NoError(t, repo.PublishToStream(ctx, testStream, d))
	require.NoError(t, repo.CreateConsumerGroup(ctx, testStream, "archive"))

	msgs, err := repo.ConsumeBatch(ctx, testStream, "archive", "c1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var got domain.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Data), &got))
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, 2, got.Count)

	pending, err := client.XPending(ctx, testStream, "archive").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)

	require.NoError(t, repo.AckMessages(ctx, testStream, "archive", []string{msgs[0].ID}))
	pending, err = client.XPending(ctx, testStream, "archive").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	// nothing new
	msgs, err = repo.ConsumeBatch(ctx, testStream, "archive", "c1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStreamRepository_UnackedMessagesAreRedelivered(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, 0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.CreateConsumerGroup(ctx, testStream, "archive"))
	require.NoError(t, repo.PublishToStream(ctx, testStream, domain.NewDiagnostic("j", domain.DiagnosticTimeout, "", "deadline")))

	msgs, err := repo.ConsumeBatch(ctx, testStream, "archive", "api-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	// ">" больше не отдает доставленное сообщение
	again, err := repo.ConsumeBatch(ctx, testStream, "archive", "api-1", 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	pending, err := repo.ConsumePending(ctx, testStream, "archive", "api-1", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, msgs[0].ID, pending[0].ID)

	claimed, err := repo.ClaimStale(ctx, testStream, "archive", "api-2", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, claimed)

	pending, err = repo.ConsumePending(ctx, testStream, "archive", "api-2", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.AckMessages(ctx, testStream, "archive", []string{pending[0].ID}))
	pending, err = repo.ConsumePending(ctx, testStream, "archive", "api-2", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStreamRepository_ReadRecent(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, 0, zap.NewNop())
	ctx := context.Background()

	for _, job := range []string{"a", "b", "c"} {
		require.NoError(t, repo.PublishToStream(ctx, testStream, domain.NewDiagnostic(job, domain.DiagnosticConfig, "", job)))
	}

	msgs, err := repo.ReadRecent(ctx, testStream, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var newest domain.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Data), &newest))
	assert.Equal(t, "c", newest.JobID)
}

func TestDiagnosticsSink_Record(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, 0, zap.NewNop())
	sink := redisRepo.NewDiagnosticsSink(repo)
	ctx := context.Background()
	defer client.Del(ctx, domain.StreamDiagnostics)

	require.NoError(t, sink.Record(ctx, domain.NewDiagnostic("j", domain.DiagnosticGeometry, "f.json", "bad ring")))

	n, err := client.XLen(ctx, domain.StreamDiagnostics).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
