package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// Compile-time check
var _ ChapterRepository = (*pgChapterRepository)(nil)

type pgChapterRepository struct {
	logger *zap.Logger
}

// NewPgChapterRepository создает репозиторий историй и глав поверх PostgreSQL.
// Исполнитель запросов (pool или tx) передается в каждый метод.
func NewPgChapterRepository(logger *zap.Logger) ChapterRepository {
	return &pgChapterRepository{logger: logger.Named("PgChapterRepo")}
}

func (r *pgChapterRepository) CreateStory(ctx context.Context, querier DBTX, story *models.Story) error {
	query := `
        INSERT INTO stories (id, author_id, title, description, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, now(), now())
        RETURNING created_at, updated_at
    `
	err := querier.QueryRow(ctx, query,
		story.ID, story.AuthorID, story.Title, story.Description, story.IsPublished,
	).Scan(&story.CreatedAt, &story.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create story", zap.String("storyID", story.ID.String()), zap.Error(err))
		return fmt.Errorf("ошибка создания истории: %w", err)
	}
	r.logger.Info("Story created", zap.String("storyID", story.ID.String()))
	return nil
}

func (r *pgChapterRepository) GetStory(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Story, error) {
	query := `
        SELECT id, author_id, title, COALESCE(description, ''), is_published, created_at, updated_at
        FROM stories
        WHERE id = $1
    `
	story := &models.Story{}
	err := querier.QueryRow(ctx, query, id).Scan(
		&story.ID, &story.AuthorID, &story.Title, &story.Description,
		&story.IsPublished, &story.CreatedAt, &story.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story", zap.String("storyID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения истории %s: %w", id, err)
	}
	return story, nil
}

func (r *pgChapterRepository) MarkStoryPublished(ctx context.Context, querier DBTX, id uuid.UUID) error {
	query := `UPDATE stories SET is_published = TRUE, updated_at = NOW() WHERE id = $1`
	tag, err := querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to mark story published", zap.String("storyID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка публикации истории %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgChapterRepository) CreateChapter(ctx context.Context, querier DBTX, chapter *models.Chapter) error {
	// Позиция считается в том же INSERT: конкурентное создание двух
	// черновиков упирается в UNIQUE (story_id, position), а не выдает
	// обоим один номер.
	query := `
        INSERT INTO chapters
            (id, story_id, position, title, content_ref, has_choice_point, status, created_at, updated_at)
        VALUES
            ($1, $2,
             (SELECT COALESCE(MAX(position), 0) + 1 FROM chapters WHERE story_id = $2),
             $3, $4, $5, $6, now(), now())
        RETURNING position, created_at, updated_at
    `
	logFields := []zap.Field{
		zap.String("chapterID", chapter.ID.String()),
		zap.String("storyID", chapter.StoryID.String()),
	}
	err := querier.QueryRow(ctx, query,
		chapter.ID, chapter.StoryID, chapter.Title,
		chapter.ContentRef, chapter.HasChoicePoint, chapter.Status,
	).Scan(&chapter.Position, &chapter.CreatedAt, &chapter.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			r.logger.Warn("Chapter position race lost", logFields...)
			return models.ErrChapterPositionTaken
		}
		r.logger.Error("Failed to create chapter", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания главы: %w", err)
	}
	r.logger.Info("Chapter created", logFields...)
	return nil
}

func (r *pgChapterRepository) GetChapter(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Chapter, error) {
	query := `
        SELECT id, story_id, position, title, COALESCE(content_ref, ''), has_choice_point, status, created_at, updated_at
        FROM chapters
        WHERE id = $1
    `
	chapter := &models.Chapter{}
	err := querier.QueryRow(ctx, query, id).Scan(
		&chapter.ID, &chapter.StoryID, &chapter.Position, &chapter.Title,
		&chapter.ContentRef, &chapter.HasChoicePoint, &chapter.Status,
		&chapter.CreatedAt, &chapter.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Chapter not found", zap.String("chapterID", id.String()))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get chapter", zap.String("chapterID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения главы %s: %w", id, err)
	}
	return chapter, nil
}

func (r *pgChapterRepository) ListByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]*models.Chapter, error) {
	query := `
        SELECT id, story_id, position, title, COALESCE(content_ref, ''), has_choice_point, status, created_at, updated_at
        FROM chapters
        WHERE story_id = $1
        ORDER BY position ASC
    `
	rows, err := querier.Query(ctx, query, storyID)
	if err != nil {
		r.logger.Error("Failed to list chapters", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения глав истории %s: %w", storyID, err)
	}
	defer rows.Close()

	var chapters []*models.Chapter
	for rows.Next() {
		chapter := &models.Chapter{}
		if err := rows.Scan(
			&chapter.ID, &chapter.StoryID, &chapter.Position, &chapter.Title,
			&chapter.ContentRef, &chapter.HasChoicePoint, &chapter.Status,
			&chapter.CreatedAt, &chapter.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования главы: %w", err)
		}
		chapters = append(chapters, chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода глав истории %s: %w", storyID, err)
	}
	return chapters, nil
}

// UpdateStatus — compare-and-set перевода статуса: защищает конечный автомат
// от гонки двух конкурентных переходов.
func (r *pgChapterRepository) UpdateStatus(ctx context.Context, querier DBTX, id uuid.UUID, from, to models.ChapterStatus) error {
	query := `UPDATE chapters SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	logFields := []zap.Field{
		zap.String("chapterID", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	}
	tag, err := querier.Exec(ctx, query, to, id, from)
	if err != nil {
		r.logger.Error("Failed to update chapter status", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка смены статуса главы %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Chapter status transition rejected", logFields...)
		return models.ErrNotFound
	}
	r.logger.Info("Chapter status updated", logFields...)
	return nil
}
