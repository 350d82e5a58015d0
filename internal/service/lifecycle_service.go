package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/messaging"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/repository"
)

// ChapterLifecycle управляет конечным автоматом главы и оркестрирует
// регистратор, подсчет голосов, окно и разрешение победителя.
type ChapterLifecycle interface {
	CreateStory(ctx context.Context, authorID uuid.UUID, title, description string) (*models.Story, error)
	GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error)
	CreateChapter(ctx context.Context, storyID uuid.UUID, title, contentRef string, hasChoicePoint bool) (*models.Chapter, error)
	GetChapter(ctx context.Context, id uuid.UUID) (*models.Chapter, error)
	ListStoryChapters(ctx context.Context, storyID uuid.UUID) ([]*models.Chapter, error)

	// PublishWithOptions публикует главу-черновик. Глава с развилкой
	// дополнительно регистрирует пару токенов и сразу переходит в
	// VotingActive; глава без развилки остается Published навсегда.
	PublishWithOptions(ctx context.Context, chapterID uuid.UUID, payoutAddress string, options []models.PlotOptionInput) (*models.Chapter, error)

	// SubmitDirectVote принимает прямой голос читателя по главе
	// с активным голосованием.
	SubmitDirectVote(ctx context.Context, chapterID uuid.UUID, voterID string, optionIndex int) error

	// SubmitPurchaseVote принимает подтверждение рассчитанной покупки токена
	// и учитывает её вес в голосовании.
	SubmitPurchaseVote(ctx context.Context, chapterID uuid.UUID, optionSymbol, voterAddress string, conf models.TradeConfirmation) error

	// CloseVotingAndResolve закрывает голосование по истекшему окну
	// и фиксирует победителя. Идемпотентен.
	CloseVotingAndResolve(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error)

	// CanAuthorProceed сообщает, может ли автор продолжать историю
	// следующей главой. При отказе возвращает блокирующую главу
	// и остаток её окна голосования.
	CanAuthorProceed(ctx context.Context, storyID uuid.UUID) (bool, *models.ActiveVotingBlock, error)
}

type chapterLifecycleImpl struct {
	db          repository.DBTX
	chapterRepo repository.ChapterRepository
	registrar   OptionRegistrar
	tally       VoteTally
	window      VotingWindow
	resolver    WinnerResolver
	publisher   messaging.NotificationPublisher
	logger      *zap.Logger
}

// NewChapterLifecycle создает оркестратор жизненного цикла глав.
func NewChapterLifecycle(
	db repository.DBTX,
	chapterRepo repository.ChapterRepository,
	registrar OptionRegistrar,
	tally VoteTally,
	window VotingWindow,
	resolver WinnerResolver,
	publisher messaging.NotificationPublisher,
	logger *zap.Logger,
) ChapterLifecycle {
	return &chapterLifecycleImpl{
		db:          db,
		chapterRepo: chapterRepo,
		registrar:   registrar,
		tally:       tally,
		window:      window,
		resolver:    resolver,
		publisher:   publisher,
		logger:      logger.Named("ChapterLifecycle"),
	}
}

func (s *chapterLifecycleImpl) CreateStory(ctx context.Context, authorID uuid.UUID, title, description string) (*models.Story, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: пустое название истории", models.ErrInvalidInput)
	}
	story := &models.Story{
		ID:          uuid.New(),
		AuthorID:    authorID,
		Title:       title,
		Description: description,
	}
	if err := s.chapterRepo.CreateStory(ctx, s.db, story); err != nil {
		return nil, fmt.Errorf("ошибка создания истории: %w", err)
	}
	s.logger.Info("Story created", zap.String("storyID", story.ID.String()), zap.String("authorID", authorID.String()))
	return story, nil
}

func (s *chapterLifecycleImpl) GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	return s.chapterRepo.GetStory(ctx, s.db, id)
}

// CreateChapter создает главу-черновик. Пока по какой-то главе истории
// идет голосование, новые главы не создаются: сюжет мог бы пойти
// по еще не победившей ветке.
func (s *chapterLifecycleImpl) CreateChapter(ctx context.Context, storyID uuid.UUID, title, contentRef string, hasChoicePoint bool) (*models.Chapter, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: пустое название главы", models.ErrInvalidInput)
	}
	if _, err := s.chapterRepo.GetStory(ctx, s.db, storyID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения истории: %w", err)
	}

	ok, block, err := s.window.CanCreateNextChapter(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ActiveVotingError{Block: *block}
	}

	chapter := &models.Chapter{
		ID:             uuid.New(),
		StoryID:        storyID,
		Title:          title,
		ContentRef:     contentRef,
		HasChoicePoint: hasChoicePoint,
		Status:         models.ChapterStatusDraft,
	}
	// Позицию выдает БД: два конкурентных черновика не получат один номер.
	if err := s.chapterRepo.CreateChapter(ctx, s.db, chapter); err != nil {
		if errors.Is(err, models.ErrChapterPositionTaken) {
			return nil, models.ErrChapterPositionTaken
		}
		return nil, fmt.Errorf("ошибка создания главы: %w", err)
	}
	s.logger.Info("Chapter draft created",
		zap.String("chapterID", chapter.ID.String()),
		zap.String("storyID", storyID.String()),
		zap.Int("position", chapter.Position))
	return chapter, nil
}

func (s *chapterLifecycleImpl) GetChapter(ctx context.Context, id uuid.UUID) (*models.Chapter, error) {
	return s.chapterRepo.GetChapter(ctx, s.db, id)
}

func (s *chapterLifecycleImpl) ListStoryChapters(ctx context.Context, storyID uuid.UUID) ([]*models.Chapter, error) {
	return s.chapterRepo.ListByStory(ctx, s.db, storyID)
}

func (s *chapterLifecycleImpl) PublishWithOptions(ctx context.Context, chapterID uuid.UUID, payoutAddress string, options []models.PlotOptionInput) (*models.Chapter, error) {
	log := s.logger.With(zap.String("chapterID", chapterID.String()))

	chapter, err := s.chapterRepo.GetChapter(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения главы: %w", err)
	}
	if chapter.Status != models.ChapterStatusDraft {
		return nil, models.ErrChapterNotPublishable
	}

	// Новая глава не публикуется, пока по какой-то главе истории идет голосование.
	ok, block, err := s.window.CanCreateNextChapter(ctx, chapter.StoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ActiveVotingError{Block: *block}
	}

	if !chapter.HasChoicePoint {
		if len(options) != 0 {
			return nil, fmt.Errorf("%w: глава без развилки не принимает опции", models.ErrInvalidInput)
		}
		if err := s.chapterRepo.UpdateStatus(ctx, s.db, chapterID, models.ChapterStatusDraft, models.ChapterStatusPublished); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrChapterNotPublishable
			}
			return nil, fmt.Errorf("ошибка публикации главы: %w", err)
		}
		chapter.Status = models.ChapterStatusPublished
		s.markStoryPublished(ctx, chapter.StoryID)
		s.notifyPublished(ctx, chapter, nil)
		log.Info("Chapter published without choice point")
		return chapter, nil
	}

	if len(options) != 2 {
		return nil, ErrExactlyTwoOptions
	}

	// Ровно один минт на главу: регистратор держит границу идемпотентности.
	reg, err := s.registrar.RegisterOptions(ctx, chapterID, payoutAddress, [2]models.PlotOptionInput{options[0], options[1]})
	if err != nil {
		// При частичной регистрации глава остается черновиком,
		// автор может повторить публикацию после разбирательства.
		return nil, err
	}

	// Глава с развилкой проходит Published транзитом и сразу активирует
	// голосование: окно уже тикает от отметки реестра.
	if err := s.chapterRepo.UpdateStatus(ctx, s.db, chapterID, models.ChapterStatusDraft, models.ChapterStatusVotingActive); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Конкурентная публикация успела раньше: токены уже принадлежат ей.
			return nil, models.ErrChapterNotPublishable
		}
		return nil, fmt.Errorf("ошибка перевода главы в голосование: %w", err)
	}
	chapter.Status = models.ChapterStatusVotingActive
	s.markStoryPublished(ctx, chapter.StoryID)
	s.notifyPublished(ctx, chapter, reg)

	log.Info("Chapter published with voting",
		zap.String("symbol0", reg.Options[0].Symbol),
		zap.String("symbol1", reg.Options[1].Symbol),
		zap.Time("votingEnds", reg.WindowEndsAt()))
	return chapter, nil
}

func (s *chapterLifecycleImpl) SubmitDirectVote(ctx context.Context, chapterID uuid.UUID, voterID string, optionIndex int) error {
	chapter, err := s.chapterRepo.GetChapter(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return fmt.Errorf("ошибка чтения главы: %w", err)
	}
	if err := s.requireVotable(ctx, chapter); err != nil {
		return err
	}
	return s.tally.RecordDirectVote(ctx, chapterID, voterID, optionIndex)
}

func (s *chapterLifecycleImpl) SubmitPurchaseVote(ctx context.Context, chapterID uuid.UUID, optionSymbol, voterAddress string, conf models.TradeConfirmation) error {
	chapter, err := s.chapterRepo.GetChapter(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return fmt.Errorf("ошибка чтения главы: %w", err)
	}
	if !chapter.HasChoicePoint || chapter.Status == models.ChapterStatusDraft || chapter.Status == models.ChapterStatusPublished {
		return models.ErrChapterHasNoChoice
	}
	// Дальше решает подсчет: он различает нерассчитанную сделку
	// (ErrTradeNotSettled) и закрывшееся окно (ErrVotingClosed).
	return s.tally.RecordPurchase(ctx, chapterID, optionSymbol, voterAddress, conf)
}

// requireVotable сверяет конечный автомат с реальным окном. Статус
// VotingActive при истекшем окне — нормальное переходное состояние
// до вызова CloseVotingAndResolve; голос при этом уже не принимается.
func (s *chapterLifecycleImpl) requireVotable(ctx context.Context, chapter *models.Chapter) error {
	if !chapter.HasChoicePoint {
		return models.ErrChapterHasNoChoice
	}
	switch chapter.Status {
	case models.ChapterStatusVotingActive:
		return nil
	case models.ChapterStatusVotingClosed, models.ChapterStatusWinnerDetermined:
		return models.ErrVotingClosed
	default:
		return models.ErrChapterHasNoChoice
	}
}

func (s *chapterLifecycleImpl) CloseVotingAndResolve(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error) {
	log := s.logger.With(zap.String("chapterID", chapterID.String()))

	chapter, err := s.chapterRepo.GetChapter(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения главы: %w", err)
	}

	switch chapter.Status {
	case models.ChapterStatusVotingActive, models.ChapterStatusVotingClosed:
		// допустимые входы: закрываем и/или разрешаем
	case models.ChapterStatusWinnerDetermined:
		return s.resolver.GetWinner(ctx, chapterID)
	default:
		return nil, models.ErrChapterHasNoChoice
	}

	active, err := s.window.IsActive(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, models.ErrVotingStillActive
	}

	if chapter.Status == models.ChapterStatusVotingActive {
		err := s.chapterRepo.UpdateStatus(ctx, s.db, chapterID, models.ChapterStatusVotingActive, models.ChapterStatusVotingClosed)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			// ErrNotFound здесь значит, что конкурентный закрыватель успел
			// раньше — продолжаем к разрешению в любом случае.
			return nil, fmt.Errorf("ошибка закрытия голосования: %w", err)
		}
	}

	winner, err := s.resolver.ResolveWinner(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	if err := s.chapterRepo.UpdateStatus(ctx, s.db, chapterID, models.ChapterStatusVotingClosed, models.ChapterStatusWinnerDetermined); err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("ошибка фиксации статуса главы: %w", err)
	}

	if err := s.publisher.PublishWinnerResolved(ctx, messaging.WinnerResolvedPayload{
		StoryID:      chapter.StoryID,
		ChapterID:    chapterID,
		Symbol:       winner.Symbol,
		TokenAddress: winner.TokenAddress,
		Method:       string(winner.Method),
	}); err != nil {
		log.Error("Failed to publish winner notification", zap.Error(err))
	}

	log.Info("Voting closed and winner determined", zap.String("symbol", winner.Symbol))
	return winner, nil
}

func (s *chapterLifecycleImpl) CanAuthorProceed(ctx context.Context, storyID uuid.UUID) (bool, *models.ActiveVotingBlock, error) {
	return s.window.CanCreateNextChapter(ctx, storyID)
}

func (s *chapterLifecycleImpl) markStoryPublished(ctx context.Context, storyID uuid.UUID) {
	if err := s.chapterRepo.MarkStoryPublished(ctx, s.db, storyID); err != nil {
		s.logger.Error("Failed to mark story published",
			zap.String("storyID", storyID.String()), zap.Error(err))
	}
}

func (s *chapterLifecycleImpl) notifyPublished(ctx context.Context, chapter *models.Chapter, reg *models.OptionRegistration) {
	payload := messaging.ChapterPublishedPayload{
		StoryID:   chapter.StoryID,
		ChapterID: chapter.ID,
		Title:     chapter.Title,
	}
	if reg != nil {
		payload.Symbols = []string{reg.Options[0].Symbol, reg.Options[1].Symbol}
		payload.VotingEnds = reg.WindowEndsAt()
	}
	if err := s.publisher.PublishChapterPublished(ctx, payload); err != nil {
		s.logger.Error("Failed to publish chapter notification",
			zap.String("chapterID", chapter.ID.String()), zap.Error(err))
	}
}
