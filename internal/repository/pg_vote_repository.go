package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// Compile-time check
var _ VoteRepository = (*pgVoteRepository)(nil)

type pgVoteRepository struct {
	logger *zap.Logger
}

// NewPgVoteRepository создает репозиторий фактов участия.
func NewPgVoteRepository(logger *zap.Logger) VoteRepository {
	return &pgVoteRepository{logger: logger.Named("PgVoteRepo")}
}

// UpsertDirectVote — одна атомарная операция: INSERT с ON CONFLICT вместо
// read-modify-write, потому что двойной клик в браузере — ожидаемый случай.
func (r *pgVoteRepository) UpsertDirectVote(ctx context.Context, querier DBTX, vote *models.VoteRecord) error {
	query := `
        INSERT INTO vote_records (chapter_id, voter_id, option_index, weight, created_at, updated_at)
        VALUES ($1, $2, $3, $4, now(), now())
        ON CONFLICT (chapter_id, voter_id)
        DO UPDATE SET option_index = EXCLUDED.option_index,
                      weight       = EXCLUDED.weight,
                      updated_at   = now()
    `
	logFields := []zap.Field{
		zap.String("chapterID", vote.ChapterID.String()),
		zap.String("voterID", vote.VoterID),
		zap.Int("optionIndex", vote.OptionIndex),
	}
	_, err := querier.Exec(ctx, query,
		vote.ChapterID, vote.VoterID, vote.OptionIndex, vote.Weight,
	)
	if err != nil {
		r.logger.Error("Failed to upsert direct vote", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка сохранения прямого голоса: %w", err)
	}
	r.logger.Debug("Direct vote upserted", logFields...)
	return nil
}

// AddPurchaseWeight аддитивен: накопленный вес только растет.
func (r *pgVoteRepository) AddPurchaseWeight(ctx context.Context, querier DBTX, pw *models.PurchaseWeight) error {
	query := `
        INSERT INTO purchase_weights (chapter_id, option_symbol, voter_address, weight, updated_at)
        VALUES ($1, $2, $3, $4, now())
        ON CONFLICT (chapter_id, option_symbol, voter_address)
        DO UPDATE SET weight     = purchase_weights.weight + EXCLUDED.weight,
                      updated_at = now()
    `
	logFields := []zap.Field{
		zap.String("chapterID", pw.ChapterID.String()),
		zap.String("symbol", pw.OptionSymbol),
		zap.String("voterAddress", pw.VoterAddress),
		zap.Int64("weight", pw.Weight),
	}
	_, err := querier.Exec(ctx, query,
		pw.ChapterID, pw.OptionSymbol, pw.VoterAddress, pw.Weight,
	)
	if err != nil {
		r.logger.Error("Failed to add purchase weight", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка накопления веса покупки: %w", err)
	}
	r.logger.Debug("Purchase weight accumulated", logFields...)
	return nil
}

func (r *pgVoteRepository) CountDirectVotes(ctx context.Context, querier DBTX, chapterID uuid.UUID) (map[int]int64, error) {
	query := `
        SELECT option_index, COALESCE(SUM(weight), 0)
        FROM vote_records
        WHERE chapter_id = $1
        GROUP BY option_index
    `
	rows, err := querier.Query(ctx, query, chapterID)
	if err != nil {
		r.logger.Error("Failed to count direct votes", zap.String("chapterID", chapterID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка подсчета прямых голосов %s: %w", chapterID, err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var idx int
		var total int64
		if err := rows.Scan(&idx, &total); err != nil {
			return nil, fmt.Errorf("ошибка сканирования подсчета голосов: %w", err)
		}
		counts[idx] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода подсчета голосов %s: %w", chapterID, err)
	}
	return counts, nil
}

func (r *pgVoteRepository) SumPurchaseWeights(ctx context.Context, querier DBTX, chapterID uuid.UUID) (map[string]int64, error) {
	query := `
        SELECT option_symbol, COALESCE(SUM(weight), 0)
        FROM purchase_weights
        WHERE chapter_id = $1
        GROUP BY option_symbol
    `
	rows, err := querier.Query(ctx, query, chapterID)
	if err != nil {
		r.logger.Error("Failed to sum purchase weights", zap.String("chapterID", chapterID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка суммирования весов покупок %s: %w", chapterID, err)
	}
	defer rows.Close()

	sums := make(map[string]int64)
	for rows.Next() {
		var symbol string
		var total int64
		if err := rows.Scan(&symbol, &total); err != nil {
			return nil, fmt.Errorf("ошибка сканирования весов покупок: %w", err)
		}
		sums[symbol] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода весов покупок %s: %w", chapterID, err)
	}
	return sums, nil
}
