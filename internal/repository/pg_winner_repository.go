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
var _ WinnerRepository = (*pgWinnerRepository)(nil)

type pgWinnerRepository struct {
	logger *zap.Logger
}

// NewPgWinnerRepository создает репозиторий победителей.
func NewPgWinnerRepository(logger *zap.Logger) WinnerRepository {
	return &pgWinnerRepository{logger: logger.Named("PgWinnerRepo")}
}

func (r *pgWinnerRepository) Create(ctx context.Context, querier DBTX, winner *models.Winner) error {
	query := `
        INSERT INTO winners
            (chapter_id, symbol, token_address, option_index, metric_value, method, resolved_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7)
    `
	logFields := []zap.Field{
		zap.String("chapterID", winner.ChapterID.String()),
		zap.String("symbol", winner.Symbol),
		zap.String("method", string(winner.Method)),
	}
	_, err := querier.Exec(ctx, query,
		winner.ChapterID, winner.Symbol, winner.TokenAddress,
		winner.OptionIndex, winner.MetricValue, winner.Method, winner.ResolvedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			r.logger.Warn("Winner already persisted for chapter", logFields...)
			return models.ErrWinnerAlreadyResolved
		}
		r.logger.Error("Failed to create winner", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка сохранения победителя: %w", err)
	}
	r.logger.Info("Winner persisted", logFields...)
	return nil
}

func (r *pgWinnerRepository) GetByChapterID(ctx context.Context, querier DBTX, chapterID uuid.UUID) (*models.Winner, error) {
	query := `
        SELECT chapter_id, symbol, token_address, option_index, metric_value, method, resolved_at
        FROM winners
        WHERE chapter_id = $1
    `
	winner := &models.Winner{}
	err := querier.QueryRow(ctx, query, chapterID).Scan(
		&winner.ChapterID, &winner.Symbol, &winner.TokenAddress,
		&winner.OptionIndex, &winner.MetricValue, &winner.Method, &winner.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get winner", zap.String("chapterID", chapterID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения победителя %s: %w", chapterID, err)
	}
	return winner, nil
}
