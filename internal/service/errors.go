package service

import (
	"errors"
	"fmt"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

var (
	ErrExactlyTwoOptions  = errors.New("exactly two plot options are required")
	ErrEmptyOptionField   = errors.New("plot option name, symbol and metadata must be non-empty")
	ErrDuplicateSymbols   = errors.New("plot option symbols must be distinct within a chapter")
	ErrUnknownOption      = errors.New("option does not belong to this chapter")
	ErrInvalidVoterID     = errors.New("voter identity must be non-empty")
	ErrInvalidWeight      = errors.New("purchase weight must be positive")
	ErrInvalidOptionIndex = errors.New("option index must be 0 or 1")
	// Можно добавить другие специфичные ошибки
)

// ActiveVotingError — отказ создать или опубликовать следующую главу,
// пока по одной из глав истории идет голосование. Несет идентификатор
// блокирующей главы и остаток её окна, чтобы автор видел, сколько ждать.
type ActiveVotingError struct {
	Block models.ActiveVotingBlock
}

func (e *ActiveVotingError) Error() string {
	return fmt.Sprintf("story has active voting: chapter %s, %dh %dm %ds remaining",
		e.Block.ChapterID, e.Block.Remaining.Hours, e.Block.Remaining.Minutes, e.Block.Remaining.Seconds)
}

func (e *ActiveVotingError) Unwrap() error { return models.ErrStoryHasActiveVoting }

// PartialRegistrationError — первый из двух вызовов создания токена прошел,
// второй упал. Запись о регистрации НЕ персистится, глава остается
// незарегистрированной, а уже созданный токен — принятая осиротевшая
// стоимость: реестр откатить нельзя, и повторная публикация его не переиспользует.
type PartialRegistrationError struct {
	Created models.PlotOption // Токен, который успел создаться
	Failed  string            // Символ опции, создание которой упало
	Err     error
}

func (e *PartialRegistrationError) Error() string {
	return fmt.Sprintf("partial registration: token for %q created, creation of %q failed: %v",
		e.Created.Symbol, e.Failed, e.Err)
}

func (e *PartialRegistrationError) Unwrap() error {
	return e.Err
}
