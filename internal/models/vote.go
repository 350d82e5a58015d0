package models

import (
	"time"

	"github.com/google/uuid"
)

// VoteRecord — прямой голос. Не более одной записи на пару (глава, голосующий):
// повторный голос того же пользователя обновляет запись, а не дублирует её.
type VoteRecord struct {
	ChapterID   uuid.UUID `json:"chapter_id"`
	VoterID     string    `json:"voter_id"`
	OptionIndex int       `json:"option_index"`
	Weight      int64     `json:"weight"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PurchaseWeight — накопленный вес покупок токена по паре (глава, опция, адрес).
// В отличие от прямых голосов, вес аддитивен: каждая подтвержденная покупка
// прибавляется к уже накопленному.
type PurchaseWeight struct {
	ChapterID    uuid.UUID `json:"chapter_id"`
	OptionSymbol string    `json:"option_symbol"`
	VoterAddress string    `json:"voter_address"`
	Weight       int64     `json:"weight"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TallySnapshot — производный срез участия по главе, вычисляется на чтении
// из прямых голосов и весов покупок. Не хранится отдельно.
// При нулевом участии Counts и Percentages пустые, а не нулевые.
type TallySnapshot struct {
	ChapterID   uuid.UUID `json:"chapter_id"`
	Symbols     []string  `json:"symbols,omitempty"`
	Counts      []int64   `json:"counts,omitempty"`
	Percentages []int     `json:"percentages,omitempty"`
	Total       int64     `json:"total"`
}

// TimeRemaining — остаток окна голосования, разложенный для отображения.
// Никогда не отрицателен: после истечения окна все поля нулевые.
type TimeRemaining struct {
	Hours   int           `json:"hours"`
	Minutes int           `json:"minutes"`
	Seconds int           `json:"seconds"`
	Total   time.Duration `json:"-"`
}

// NewTimeRemaining раскладывает длительность на компоненты, прижимая
// отрицательные значения к нулю (тик таймера может сработать ровно на границе).
func NewTimeRemaining(d time.Duration) TimeRemaining {
	if d < 0 {
		d = 0
	}
	return TimeRemaining{
		Hours:   int(d / time.Hour),
		Minutes: int(d % time.Hour / time.Minute),
		Seconds: int(d % time.Minute / time.Second),
		Total:   d,
	}
}

// ActiveVotingBlock — глава, чье открытое окно голосования блокирует
// создание и публикацию следующей главы истории.
type ActiveVotingBlock struct {
	ChapterID uuid.UUID     `json:"chapter_id"`
	Remaining TimeRemaining `json:"remaining"`
}

// TradeConfirmation — подтверждение уже рассчитанной сделки на реестре.
// Движок никогда не дожидается pending-сделок: подтверждение поставляет
// внешняя торговая подсистема, а движок лишь проверяет его.
type TradeConfirmation struct {
	TxHash string `json:"tx_hash"`
	Amount int64  `json:"amount"`
}
