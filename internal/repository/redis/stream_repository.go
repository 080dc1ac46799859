package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
)

type streamRepository struct {
	client *redis.Client
	logger *zap.Logger
	maxLen int64
}

// NewStreamRepository создает StreamRepository; maxLen > 0 ограничивает длину стрима (приблизительно)
func NewStreamRepository(client *redis.Client, maxLen int64, logger *zap.Logger) repository.StreamRepository {
	return &streamRepository{
		client: client,
		logger: logger,
		maxLen: maxLen,
	}
}

// CreateConsumerGroup создает группу с начала стрима, чтобы архивировать
// записи, опубликованные до первого запуска воркера
func (r *streamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			r.logger.Debug("Consumer group already exists",
				zap.String("stream", stream),
				zap.String("group", group))
			return nil
		}
		r.logger.Error("Failed to create consumer group",
			zap.String("stream", stream),
			zap.String("group", group),
			zap.Error(err))
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	r.logger.Info("Consumer group created",
		zap.String("stream", stream),
		zap.String("group", group))
	return nil
}

// ConsumeBatch читает новые сообщения группы; пустой результат не ошибка
func (r *streamRepository) ConsumeBatch(ctx context.Context, stream, group, consumer string, maxCount int) ([]domain.StreamMessage, error) {
	return r.readGroup(ctx, stream, group, consumer, ">", maxCount)
}

// ConsumePending возвращает pending-список consumer с начала: доставленные,
// но не подтвержденные сообщения
func (r *streamRepository) ConsumePending(ctx context.Context, stream, group, consumer string, maxCount int) ([]domain.StreamMessage, error) {
	return r.readGroup(ctx, stream, group, consumer, "0", maxCount)
}

func (r *streamRepository) readGroup(ctx context.Context, stream, group, consumer, id string, maxCount int) ([]domain.StreamMessage, error) {
	result, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, id},
		Count:    int64(maxCount),
		Block:    -1,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var out []domain.StreamMessage
	for _, s := range result {
		out = append(out, toMessages(s.Messages, r.logger)...)
	}
	return out, nil
}

// ClaimStale забирает через XAUTOCLAIM сообщения упавших consumer
func (r *streamRepository) ClaimStale(ctx context.Context, stream, group, consumer string, minIdle time.Duration, maxCount int) (int, error) {
	claimed := 0
	start := "0-0"
	for {
		msgs, next, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    group,
			Consumer: consumer,
			MinIdle:  minIdle,
			Start:    start,
			Count:    int64(maxCount),
		}).Result()
		if err != nil {
			return claimed, fmt.Errorf("failed to claim pending messages: %w", err)
		}
		claimed += len(msgs)
		if next == "0-0" || next == "" {
			break
		}
		start = next
	}

	if claimed > 0 {
		r.logger.Info("Stale messages claimed",
			zap.String("stream", stream),
			zap.String("consumer", consumer),
			zap.Int("count", claimed))
	}
	return claimed, nil
}

func (r *streamRepository) AckMessages(ctx context.Context, stream, group string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		r.logger.Error("Failed to acknowledge messages",
			zap.String("stream", stream),
			zap.Int("count", len(messageIDs)),
			zap.Error(err))
		return fmt.Errorf("failed to acknowledge messages: %w", err)
	}
	return nil
}

func (r *streamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"data": string(jsonData)},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	id, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		r.logger.Error("Failed to publish to stream",
			zap.String("stream", stream),
			zap.Error(err))
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	r.logger.Debug("Message published to stream",
		zap.String("stream", stream),
		zap.String("message_id", id))
	return nil
}

func (r *streamRepository) ReadRecent(ctx context.Context, stream string, count int64) ([]domain.StreamMessage, error) {
	msgs, err := r.client.XRevRangeN(ctx, stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", stream, err)
	}
	return toMessages(msgs, r.logger), nil
}

func toMessages(msgs []redis.XMessage, logger *zap.Logger) []domain.StreamMessage {
	out := make([]domain.StreamMessage, 0, len(msgs))
	for _, m := range msgs {
		// запись, удаленная обрезкой MAXLEN, приходит из pending без полей;
		// ее отдаем с пустым Data, чтобы воркер мог ее подтвердить
		data, ok := m.Values["data"].(string)
		if !ok {
			logger.Warn("Message does not contain 'data' field", zap.String("message_id", m.ID))
		}
		out = append(out, domain.StreamMessage{ID: m.ID, Data: data})
	}
	return out
}
