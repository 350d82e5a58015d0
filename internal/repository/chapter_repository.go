package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// ChapterRepository определяет интерфейс для работы с историями и главами.
// Используем интерфейс для возможности мокирования в тестах.
type ChapterRepository interface {
	CreateStory(ctx context.Context, querier DBTX, story *models.Story) error
	GetStory(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Story, error)
	// MarkStoryPublished делает историю публично видимой. Идемпотентно.
	MarkStoryPublished(ctx context.Context, querier DBTX, id uuid.UUID) error

	// CreateChapter сохраняет черновик, назначая ему следующую позицию
	// в истории. Проигрыш гонки за позицию — ErrChapterPositionTaken.
	CreateChapter(ctx context.Context, querier DBTX, chapter *models.Chapter) error
	GetChapter(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Chapter, error)
	ListByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]*models.Chapter, error)
	// UpdateStatus переводит главу в новый статус, только если она сейчас
	// в ожидаемом статусе (compare-and-set). Возвращает ErrNotFound,
	// если глава отсутствует или её статус уже другой.
	UpdateStatus(ctx context.Context, querier DBTX, id uuid.UUID, from, to models.ChapterStatus) error
}
