package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// RegistrationRepository определяет интерфейс хранилища записей о регистрации
// пары токенов. Запись — единственный источник правды о том, что у главы
// есть опции и когда началось окно голосования.
type RegistrationRepository interface {
	// Create атомарно сохраняет запись о регистрации обеих опций.
	// При конфликте по chapter_id возвращает models.ErrAlreadyRegistered:
	// именно так второй из двух конкурентных публикаторов узнает о первом.
	Create(ctx context.Context, querier DBTX, reg *models.OptionRegistration) error

	// GetByChapterID возвращает запись или models.ErrNotFound.
	GetByChapterID(ctx context.Context, querier DBTX, chapterID uuid.UUID) (*models.OptionRegistration, error)

	// ListByStory возвращает записи регистрации всех глав истории,
	// ключ — ID главы. Используется проверкой окна на уровне истории.
	ListByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) (map[uuid.UUID]*models.OptionRegistration, error)
}
