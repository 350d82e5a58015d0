package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/ledger"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/repository"
)

// WinnerResolver определяет победившую опцию главы после закрытия окна.
// Первичная метрика — число холдеров токена по данным реестра; при
// недоступности реестра — суммарный подсчет голосов. Результат write-once.
type WinnerResolver interface {
	// ResolveWinner определяет и персистит победителя. Идемпотентен:
	// повторный вызов возвращает уже записанного победителя.
	ResolveWinner(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error)

	// PreviewWinner вычисляет текущего лидера, ничего не записывая.
	PreviewWinner(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error)

	// GetWinner возвращает записанного победителя или models.ErrNotFound.
	GetWinner(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error)
}

type winnerResolverImpl struct {
	db         repository.DBTX
	tx         TxManager
	winnerRepo repository.WinnerRepository
	regRepo    repository.RegistrationRepository
	voteRepo   repository.VoteRepository
	reader     ledger.Reader
	clock      Clock
	logger     *zap.Logger
}

// NewWinnerResolver создает сервис определения победителя.
func NewWinnerResolver(
	db repository.DBTX,
	tx TxManager,
	winnerRepo repository.WinnerRepository,
	regRepo repository.RegistrationRepository,
	voteRepo repository.VoteRepository,
	reader ledger.Reader,
	clock Clock,
	logger *zap.Logger,
) WinnerResolver {
	return &winnerResolverImpl{
		db:         db,
		tx:         tx,
		winnerRepo: winnerRepo,
		regRepo:    regRepo,
		voteRepo:   voteRepo,
		reader:     reader,
		clock:      clock,
		logger:     logger.Named("WinnerResolver"),
	}
}

func (s *winnerResolverImpl) ResolveWinner(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error) {
	log := s.logger.With(zap.String("chapterID", chapterID.String()))

	// Уже записанный победитель неизменяем: возвращаем его как есть.
	existing, err := s.winnerRepo.GetByChapterID(ctx, s.db, chapterID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("ошибка чтения победителя: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	reg, err := s.regRepo.GetByChapterID(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения регистрации: %w", err)
	}

	if s.clock.Now().Before(reg.WindowEndsAt()) {
		return nil, models.ErrVotingStillActive
	}

	winner, err := s.computeLeader(ctx, reg)
	if err != nil {
		return nil, err
	}
	winner.ResolvedAt = s.clock.Now().UTC()

	if err := s.winnerRepo.Create(ctx, s.db, winner); err != nil {
		if errors.Is(err, models.ErrWinnerAlreadyResolved) {
			// Проиграли гонку конкурентному разрешению: его результат — истина.
			log.Info("Lost resolution race, returning recorded winner")
			return s.winnerRepo.GetByChapterID(ctx, s.db, chapterID)
		}
		return nil, fmt.Errorf("ошибка сохранения победителя: %w", err)
	}

	log.Info("Winner resolved",
		zap.String("symbol", winner.Symbol),
		zap.String("method", string(winner.Method)),
		zap.Int64("metricValue", winner.MetricValue))
	return winner, nil
}

func (s *winnerResolverImpl) PreviewWinner(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error) {
	reg, err := s.regRepo.GetByChapterID(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения регистрации: %w", err)
	}
	return s.computeLeader(ctx, reg)
}

func (s *winnerResolverImpl) GetWinner(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error) {
	return s.winnerRepo.GetByChapterID(ctx, s.db, chapterID)
}

// computeLeader выбирает лидера по числу холдеров; если реестр недоступен
// хотя бы для одного из токенов — по суммарному подсчету голосов.
// Равенство метрик разрешается в пользу первой зарегистрированной опции.
func (s *winnerResolverImpl) computeLeader(ctx context.Context, reg *models.OptionRegistration) (*models.Winner, error) {
	metrics, method, err := s.readMetrics(ctx, reg)
	if err != nil {
		return nil, err
	}

	best := 0
	if metrics[1] > metrics[0] {
		best = 1
	}

	opt := reg.Options[best]
	return &models.Winner{
		ChapterID:    reg.ChapterID,
		Symbol:       opt.Symbol,
		TokenAddress: opt.TokenAddress,
		OptionIndex:  opt.OptionIndex,
		MetricValue:  metrics[best],
		Method:       method,
	}, nil
}

func (s *winnerResolverImpl) readMetrics(ctx context.Context, reg *models.OptionRegistration) ([2]int64, models.ResolutionMethod, error) {
	var holders [2]int64
	ledgerOK := true
	for i, opt := range reg.Options {
		count, err := s.reader.HolderCount(ctx, opt.TokenAddress)
		if err != nil {
			if errors.Is(err, models.ErrLedgerUnavailable) {
				s.logger.Warn("Ledger unreadable, falling back to vote tally",
					zap.String("chapterID", reg.ChapterID.String()),
					zap.String("token", opt.TokenAddress),
					zap.Error(err))
				ledgerOK = false
				break
			}
			return [2]int64{}, "", fmt.Errorf("ошибка чтения числа холдеров: %w", err)
		}
		holders[i] = count
	}
	if ledgerOK {
		return holders, models.ResolutionByHolders, nil
	}

	// Как и в GetTally, оба счетчика читаются из одного снимка данных.
	var direct map[int]int64
	var purchases map[string]int64
	err := s.tx.WithReadTx(ctx, func(q repository.DBTX) error {
		var readErr error
		if direct, readErr = s.voteRepo.CountDirectVotes(ctx, q, reg.ChapterID); readErr != nil {
			return fmt.Errorf("ошибка подсчета прямых голосов: %w", readErr)
		}
		if purchases, readErr = s.voteRepo.SumPurchaseWeights(ctx, q, reg.ChapterID); readErr != nil {
			return fmt.Errorf("ошибка подсчета весов покупок: %w", readErr)
		}
		return nil
	})
	if err != nil {
		return [2]int64{}, "", err
	}

	var tallies [2]int64
	for i, opt := range reg.Options {
		tallies[i] = direct[i] + purchases[opt.Symbol]
	}
	return tallies, models.ResolutionByTally, nil
}
