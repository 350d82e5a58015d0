package models

import (
	"time"

	"github.com/google/uuid"
)

// ResolutionMethod — метрика, по которой был определен победитель.
type ResolutionMethod string

const (
	// ResolutionByHolders — основная метрика: число уникальных держателей токена.
	ResolutionByHolders ResolutionMethod = "holder_count"
	// ResolutionByTally — запасная метрика при недоступности реестра.
	ResolutionByTally ResolutionMethod = "vote_tally"
)

// Winner — победивший вариант сюжета. Запись write-once: после первой
// персистенции никогда не перезаписывается, повторные разрешения
// возвращают её как есть.
type Winner struct {
	ChapterID    uuid.UUID        `json:"chapter_id"`
	Symbol       string           `json:"symbol"`
	TokenAddress string           `json:"token_address"`
	OptionIndex  int              `json:"option_index"`
	MetricValue  int64            `json:"metric_value"`
	Method       ResolutionMethod `json:"method"`
	ResolvedAt   time.Time        `json:"resolved_at"`
}
