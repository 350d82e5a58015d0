package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// VoteRepository определяет интерфейс хранилища фактов участия.
// Прямые голоса и веса покупок — два независимых пути накопления,
// сливаются только на чтении (GetTally на уровне сервиса).
type VoteRepository interface {
	// UpsertDirectVote сохраняет прямой голос. Естественный ключ —
	// (chapter_id, voter_id): повторный голос обновляет option_index и weight,
	// а не создает вторую запись.
	UpsertDirectVote(ctx context.Context, querier DBTX, vote *models.VoteRecord) error

	// AddPurchaseWeight прибавляет вес покупки к накопленному по
	// (chapter_id, option_symbol, voter_address).
	AddPurchaseWeight(ctx context.Context, querier DBTX, pw *models.PurchaseWeight) error

	// CountDirectVotes возвращает суммарный вес прямых голосов по индексам опций.
	CountDirectVotes(ctx context.Context, querier DBTX, chapterID uuid.UUID) (map[int]int64, error)

	// SumPurchaseWeights возвращает накопленные веса покупок по символам опций.
	SumPurchaseWeights(ctx context.Context, querier DBTX, chapterID uuid.UUID) (map[string]int64, error)
}
