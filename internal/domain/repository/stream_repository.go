package repository

import (
	"context"
	"time"

	"github.com/boundary-pipeline/internal/domain"
)

// StreamRepository - интерфейс для работы с Redis Streams
type StreamRepository interface {
	// CreateConsumerGroup создает consumer group (существующая группа не ошибка)
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// ConsumeBatch читает до maxCount новых сообщений группы без блокировки
	ConsumeBatch(ctx context.Context, stream, group, consumer string, maxCount int) ([]domain.StreamMessage, error)

	// ConsumePending перечитывает неподтвержденные сообщения этого consumer (ID "0")
	ConsumePending(ctx context.Context, stream, group, consumer string, maxCount int) ([]domain.StreamMessage, error)

	// ClaimStale переназначает consumer сообщения, не подтвержденные дольше minIdle
	ClaimStale(ctx context.Context, stream, group, consumer string, minIdle time.Duration, maxCount int) (int, error)

	// AckMessages подтверждает обработку сообщений
	AckMessages(ctx context.Context, stream, group string, messageIDs []string) error

	// PublishToStream публикует JSON в поле "data"
	PublishToStream(ctx context.Context, stream string, data interface{}) error

	// ReadRecent возвращает последние count сообщений стрима, новые первыми
	ReadRecent(ctx context.Context, stream string, count int64) ([]domain.StreamMessage, error)
}
