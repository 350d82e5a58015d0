package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// WinnerRepository определяет интерфейс хранилища победителей.
// Запись write-once: перезапись невозможна, гонку конкурентных
// разрешений арбитрирует уникальный ключ по chapter_id.
type WinnerRepository interface {
	// Create сохраняет победителя. При конфликте по chapter_id возвращает
	// models.ErrWinnerAlreadyResolved — проигравший гонку должен перечитать.
	Create(ctx context.Context, querier DBTX, winner *models.Winner) error

	// GetByChapterID возвращает победителя или models.ErrNotFound.
	GetByChapterID(ctx context.Context, querier DBTX, chapterID uuid.UUID) (*models.Winner, error)
}
