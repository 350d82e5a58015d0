package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/repository"
)

// VotingWindow отвечает на вопросы о 24-часовом окне голосования главы.
// Границы окна выводятся из отметки создания токенов, ничего не хранится.
type VotingWindow interface {
	// IsActive сообщает, открыто ли окно голосования главы.
	IsActive(ctx context.Context, chapterID uuid.UUID) (bool, error)

	// TimeRemaining возвращает остаток окна, прижатый к нулю после истечения.
	TimeRemaining(ctx context.Context, chapterID uuid.UUID) (models.TimeRemaining, error)

	// CanCreateNextChapter проверяет, что ни у одной главы истории нет
	// открытого окна голосования. Автор не может создавать и публиковать
	// следующую главу, пока читатели голосуют по текущей. При отказе
	// возвращается блокирующая глава и остаток её окна.
	CanCreateNextChapter(ctx context.Context, storyID uuid.UUID) (bool, *models.ActiveVotingBlock, error)
}

type votingWindowImpl struct {
	db      repository.DBTX
	regRepo repository.RegistrationRepository
	clock   Clock
	logger  *zap.Logger
}

// NewVotingWindow создает сервис окна голосования.
func NewVotingWindow(db repository.DBTX, regRepo repository.RegistrationRepository, clock Clock, logger *zap.Logger) VotingWindow {
	return &votingWindowImpl{
		db:      db,
		regRepo: regRepo,
		clock:   clock,
		logger:  logger.Named("VotingWindow"),
	}
}

func (s *votingWindowImpl) IsActive(ctx context.Context, chapterID uuid.UUID) (bool, error) {
	reg, err := s.regRepo.GetByChapterID(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Глава без зарегистрированных опций окна не имеет.
			return false, nil
		}
		return false, fmt.Errorf("ошибка чтения регистрации: %w", err)
	}
	return s.clock.Now().Before(reg.WindowEndsAt()), nil
}

func (s *votingWindowImpl) TimeRemaining(ctx context.Context, chapterID uuid.UUID) (models.TimeRemaining, error) {
	reg, err := s.regRepo.GetByChapterID(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.TimeRemaining{}, models.ErrNotFound
		}
		return models.TimeRemaining{}, fmt.Errorf("ошибка чтения регистрации: %w", err)
	}
	return models.NewTimeRemaining(reg.WindowEndsAt().Sub(s.clock.Now())), nil
}

func (s *votingWindowImpl) CanCreateNextChapter(ctx context.Context, storyID uuid.UUID) (bool, *models.ActiveVotingBlock, error) {
	regs, err := s.regRepo.ListByStory(ctx, s.db, storyID)
	if err != nil {
		return false, nil, fmt.Errorf("ошибка чтения регистраций истории: %w", err)
	}

	now := s.clock.Now()
	var block *models.ActiveVotingBlock
	for chapterID, reg := range regs {
		endsAt := reg.WindowEndsAt()
		if !now.Before(endsAt) {
			continue
		}
		remaining := models.NewTimeRemaining(endsAt.Sub(now))
		// Из нескольких открытых окон блокирующим считается последнее.
		if block == nil || remaining.Total > block.Remaining.Total {
			block = &models.ActiveVotingBlock{ChapterID: chapterID, Remaining: remaining}
		}
	}
	if block != nil {
		s.logger.Debug("Story has active voting window",
			zap.String("storyID", storyID.String()),
			zap.String("chapterID", block.ChapterID.String()))
		return false, block, nil
	}
	return true, nil, nil
}
