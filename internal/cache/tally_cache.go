package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// TallyCache — короткоживущий кеш срезов подсчета. Срез — производная
// величина, поэтому потеря кеша безвредна: он только снимает нагрузку
// с БД при частом опросе счетчиков ридерами.
type TallyCache interface {
	Get(ctx context.Context, chapterID uuid.UUID) (*models.TallySnapshot, bool)
	Set(ctx context.Context, snapshot *models.TallySnapshot)
	Invalidate(ctx context.Context, chapterID uuid.UUID)
}

// Compile-time check
var _ TallyCache = (*redisTallyCache)(nil)

type redisTallyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisTallyCache создает кеш срезов поверх Redis.
func NewRedisTallyCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) TallyCache {
	return &redisTallyCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisTallyCache"),
	}
}

func tallyKey(chapterID uuid.UUID) string {
	return fmt.Sprintf("tally:%s", chapterID)
}

func (c *redisTallyCache) Get(ctx context.Context, chapterID uuid.UUID) (*models.TallySnapshot, bool) {
	raw, err := c.client.Get(ctx, tallyKey(chapterID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Ошибка кеша не должна ломать чтение: идем в БД.
			c.logger.Warn("Tally cache read failed", zap.String("chapterID", chapterID.String()), zap.Error(err))
		}
		return nil, false
	}
	var snapshot models.TallySnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		c.logger.Warn("Tally cache entry corrupted, dropping", zap.String("chapterID", chapterID.String()), zap.Error(err))
		c.Invalidate(ctx, chapterID)
		return nil, false
	}
	return &snapshot, true
}

func (c *redisTallyCache) Set(ctx context.Context, snapshot *models.TallySnapshot) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.Warn("Failed to marshal tally snapshot for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, tallyKey(snapshot.ChapterID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Tally cache write failed", zap.String("chapterID", snapshot.ChapterID.String()), zap.Error(err))
	}
}

func (c *redisTallyCache) Invalidate(ctx context.Context, chapterID uuid.UUID) {
	if err := c.client.Del(ctx, tallyKey(chapterID)).Err(); err != nil {
		c.logger.Warn("Tally cache invalidation failed", zap.String("chapterID", chapterID.String()), zap.Error(err))
	}
}

// NoopTallyCache — заглушка для окружений без Redis (и для тестов).
type NoopTallyCache struct{}

func (NoopTallyCache) Get(ctx context.Context, chapterID uuid.UUID) (*models.TallySnapshot, bool) {
	return nil, false
}
func (NoopTallyCache) Set(ctx context.Context, snapshot *models.TallySnapshot)  {}
func (NoopTallyCache) Invalidate(ctx context.Context, chapterID uuid.UUID)      {}
