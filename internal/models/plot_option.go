package models

import (
	"time"

	"github.com/google/uuid"
)

// VotingDuration — фиксированная длительность окна голосования,
// отсчитывается от момента создания токенов в реестре.
const VotingDuration = 24 * time.Hour

// PlotOptionInput — данные варианта сюжета, которые подает автор
// при публикации главы. Ровно два варианта на главу.
type PlotOptionInput struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	MetadataURI string `json:"metadata_uri"`
}

// PlotOption — один из двух зарегистрированных вариантов сюжета.
// TokenAddress назначается регистратором и после записи неизменяем.
type PlotOption struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	MetadataURI  string `json:"metadata_uri"`
	TokenAddress string `json:"token_address"`
	OptionIndex  int    `json:"option_index"` // 0 или 1; порядок регистрации, используется в tie-break
}

// OptionRegistration — запись о регистрации пары токенов для главы.
// Инвариант: у главы либо нет записи, либо запись с ровно двумя опциями.
// Частичная регистрация никогда не персистится.
type OptionRegistration struct {
	ChapterID uuid.UUID     `json:"chapter_id"`
	Options   [2]PlotOption `json:"options"`
	// TokenCreatedAt — момент создания токенов по данным реестра.
	// Это genesis-отметка для окна голосования.
	TokenCreatedAt time.Time `json:"token_created_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// OptionBySymbol возвращает опцию по её символу.
func (r *OptionRegistration) OptionBySymbol(symbol string) (PlotOption, bool) {
	for _, opt := range r.Options {
		if opt.Symbol == symbol {
			return opt, true
		}
	}
	return PlotOption{}, false
}

// WindowEndsAt возвращает момент окончания окна голосования.
func (r *OptionRegistration) WindowEndsAt() time.Time {
	return r.TokenCreatedAt.Add(VotingDuration)
}
