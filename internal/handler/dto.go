package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// CreateStoryRequest - тело запроса на создание истории.
type CreateStoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// CreateChapterRequest - тело запроса на создание черновика главы.
type CreateChapterRequest struct {
	Title          string `json:"title"`
	ContentRef     string `json:"content_ref,omitempty"`
	HasChoicePoint bool   `json:"has_choice_point"`
}

// PublishChapterRequest - тело запроса на публикацию главы.
// Для главы с развилкой options обязателен и содержит ровно два элемента.
type PublishChapterRequest struct {
	PayoutAddress string                   `json:"payout_address,omitempty"`
	Options       []models.PlotOptionInput `json:"options,omitempty"`
}

// DirectVoteRequest - тело запроса прямого голоса.
type DirectVoteRequest struct {
	OptionIndex int `json:"option_index"`
}

// PurchaseVoteRequest - тело запроса учета покупки токена.
type PurchaseVoteRequest struct {
	OptionSymbol string `json:"option_symbol"`
	VoterAddress string `json:"voter_address"`
	TxHash       string `json:"tx_hash"`
	Amount       int64  `json:"amount"`
}

// WindowResponse - состояние окна голосования главы.
type WindowResponse struct {
	Active    bool `json:"active"`
	Remaining struct {
		Hours   int `json:"hours"`
		Minutes int `json:"minutes"`
		Seconds int `json:"seconds"`
	} `json:"remaining"`
}

// CanProceedResponse - ответ проверки, может ли автор публиковать дальше.
// При отказе указывает блокирующую главу и остаток её окна голосования.
type CanProceedResponse struct {
	CanProceed        bool                  `json:"can_proceed"`
	BlockingChapterID *uuid.UUID            `json:"blocking_chapter_id,omitempty"`
	Remaining         *models.TimeRemaining `json:"remaining,omitempty"`
}

// ActiveVotingRefusal - тело ответа 409 на создание или публикацию главы,
// пока по другой главе истории идет голосование.
type ActiveVotingRefusal struct {
	Message           string               `json:"message"`
	BlockingChapterID uuid.UUID            `json:"blocking_chapter_id"`
	Remaining         models.TimeRemaining `json:"remaining"`
}

// WinnerResponse - записанный или предварительный победитель.
type WinnerResponse struct {
	ChapterID    uuid.UUID `json:"chapter_id"`
	Symbol       string    `json:"symbol"`
	TokenAddress string    `json:"token_address"`
	OptionIndex  int       `json:"option_index"`
	MetricValue  int64     `json:"metric_value"`
	Method       string    `json:"method"`
	ResolvedAt   time.Time `json:"resolved_at,omitempty"`
}

func winnerResponse(w *models.Winner) WinnerResponse {
	return WinnerResponse{
		ChapterID:    w.ChapterID,
		Symbol:       w.Symbol,
		TokenAddress: w.TokenAddress,
		OptionIndex:  w.OptionIndex,
		MetricValue:  w.MetricValue,
		Method:       string(w.Method),
		ResolvedAt:   w.ResolvedAt,
	}
}
