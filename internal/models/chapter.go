package models

import (
	"time"

	"github.com/google/uuid"
)

// ChapterStatus определяет статус главы в конечном автомате
// Draft -> Published -> VotingActive -> VotingClosed -> WinnerDetermined.
type ChapterStatus string

const (
	ChapterStatusDraft            ChapterStatus = "draft"
	ChapterStatusPublished        ChapterStatus = "published"
	ChapterStatusVotingActive     ChapterStatus = "voting_active"
	ChapterStatusVotingClosed     ChapterStatus = "voting_closed"
	ChapterStatusWinnerDetermined ChapterStatus = "winner_determined"
)

// Story представляет сериализованную историю, которой принадлежат главы.
type Story struct {
	ID          uuid.UUID `json:"id"`
	AuthorID    uuid.UUID `json:"author_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	// IsPublished становится true, как только у истории появляется
	// первая опубликованная глава (независимо от состояния голосования).
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Chapter представляет главу истории.
// Глава без choice point после публикации терминальна: она никогда
// не переходит в VotingActive.
type Chapter struct {
	ID             uuid.UUID     `json:"id"`
	StoryID        uuid.UUID     `json:"story_id"`
	Position       int           `json:"position"`
	Title          string        `json:"title"`
	ContentRef     string        `json:"content_ref,omitempty"` // Ссылка на контент (хранится вне движка)
	HasChoicePoint bool          `json:"has_choice_point"`
	Status         ChapterStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// IsVotingActive сообщает, находится ли глава в состоянии активного голосования
// с точки зрения конечного автомата (не окна времени — см. service.VotingWindow).
func (c *Chapter) IsVotingActive() bool {
	return c.Status == ChapterStatusVotingActive
}
