package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/cache"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/ledger"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/repository"
)

// VoteTally накапливает факты участия (прямые голоса и веса покупок)
// и отдает сводный срез по главе. Срез всегда производный: отдельного
// хранимого счетчика нет, источник правды — записи участия.
type VoteTally interface {
	// RecordDirectVote регистрирует прямой голос читателя с весом 1.
	// Повторный голос того же читателя обновляет выбор, а не добавляет вес.
	RecordDirectVote(ctx context.Context, chapterID uuid.UUID, voterID string, optionIndex int) error

	// RecordPurchase проверяет подтверждение сделки и атомарно прибавляет
	// вес покупки, зеркалируя его в прямой голос кошелька.
	RecordPurchase(ctx context.Context, chapterID uuid.UUID, optionSymbol, voterAddress string, conf models.TradeConfirmation) error

	// GetTally возвращает сводный срез участия по главе.
	GetTally(ctx context.Context, chapterID uuid.UUID) (*models.TallySnapshot, error)
}

type voteTallyImpl struct {
	db       repository.DBTX
	tx       TxManager
	voteRepo repository.VoteRepository
	regRepo  repository.RegistrationRepository
	verifier ledger.TradeVerifier
	cache    cache.TallyCache
	clock    Clock
	logger   *zap.Logger
}

// NewVoteTally создает сервис подсчета голосов.
func NewVoteTally(
	db repository.DBTX,
	tx TxManager,
	voteRepo repository.VoteRepository,
	regRepo repository.RegistrationRepository,
	verifier ledger.TradeVerifier,
	tallyCache cache.TallyCache,
	clock Clock,
	logger *zap.Logger,
) VoteTally {
	return &voteTallyImpl{
		db:       db,
		tx:       tx,
		voteRepo: voteRepo,
		regRepo:  regRepo,
		verifier: verifier,
		cache:    tallyCache,
		clock:    clock,
		logger:   logger.Named("VoteTally"),
	}
}

func (s *voteTallyImpl) RecordDirectVote(ctx context.Context, chapterID uuid.UUID, voterID string, optionIndex int) error {
	if strings.TrimSpace(voterID) == "" {
		return ErrInvalidVoterID
	}
	if optionIndex != 0 && optionIndex != 1 {
		return ErrInvalidOptionIndex
	}

	reg, err := s.requireActiveWindow(ctx, chapterID)
	if err != nil {
		return err
	}

	vote := &models.VoteRecord{
		ChapterID:   chapterID,
		VoterID:     voterID,
		OptionIndex: optionIndex,
		Weight:      1,
	}
	if err := s.voteRepo.UpsertDirectVote(ctx, s.db, vote); err != nil {
		return fmt.Errorf("ошибка сохранения голоса: %w", err)
	}

	s.cache.Invalidate(ctx, chapterID)
	s.logger.Debug("Direct vote recorded",
		zap.String("chapterID", chapterID.String()),
		zap.String("voterID", voterID),
		zap.String("symbol", reg.Options[optionIndex].Symbol))
	return nil
}

// RecordPurchase — вход для голосов через покупку токена. Порядок проверок
// важен: сначала принадлежность опции и расчет сделки (ErrTradeNotSettled),
// и только потом окно (ErrVotingClosed) — UI различает эти два отказа.
func (s *voteTallyImpl) RecordPurchase(ctx context.Context, chapterID uuid.UUID, optionSymbol, voterAddress string, conf models.TradeConfirmation) error {
	log := s.logger.With(
		zap.String("chapterID", chapterID.String()),
		zap.String("symbol", optionSymbol),
		zap.String("voter", voterAddress))

	if strings.TrimSpace(voterAddress) == "" {
		return ErrInvalidVoterID
	}
	if conf.Amount <= 0 {
		return ErrInvalidWeight
	}

	reg, err := s.regRepo.GetByChapterID(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return fmt.Errorf("ошибка чтения регистрации: %w", err)
	}

	opt, ok := reg.OptionBySymbol(optionSymbol)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, optionSymbol)
	}

	if err := s.verifier.Confirm(ctx, conf.TxHash); err != nil {
		log.Warn("Purchase confirmation rejected", zap.String("txHash", conf.TxHash), zap.Error(err))
		return err
	}

	// Сделка рассчитана, но окно могло успеть закрыться: вес не учитывается.
	if !s.clock.Now().Before(reg.WindowEndsAt()) {
		log.Info("Settled purchase arrived after voting window closed")
		return models.ErrVotingClosed
	}

	// Вес покупки и зеркальный прямой голос пишутся одной транзакцией:
	// частично учтенная покупка недопустима.
	err = s.tx.WithTx(ctx, func(q repository.DBTX) error {
		pw := &models.PurchaseWeight{
			ChapterID:    chapterID,
			OptionSymbol: optionSymbol,
			VoterAddress: voterAddress,
			Weight:       conf.Amount,
		}
		if err := s.voteRepo.AddPurchaseWeight(ctx, q, pw); err != nil {
			return fmt.Errorf("ошибка накопления веса покупки: %w", err)
		}

		mirror := &models.VoteRecord{
			ChapterID:   chapterID,
			VoterID:     voterAddress,
			OptionIndex: opt.OptionIndex,
			Weight:      1,
		}
		if err := s.voteRepo.UpsertDirectVote(ctx, q, mirror); err != nil {
			return fmt.Errorf("ошибка зеркального голоса: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, chapterID)
	log.Info("Purchase weight recorded", zap.Int64("amount", conf.Amount))
	return nil
}

func (s *voteTallyImpl) GetTally(ctx context.Context, chapterID uuid.UUID) (*models.TallySnapshot, error) {
	if snapshot, ok := s.cache.Get(ctx, chapterID); ok {
		return snapshot, nil
	}

	reg, err := s.regRepo.GetByChapterID(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения регистрации: %w", err)
	}

	// Оба счетчика читаются из одного снимка данных: покупка, закоммиченная
	// между двумя чтениями, иначе попала бы в срез без своего зеркального голоса.
	var direct map[int]int64
	var purchases map[string]int64
	err = s.tx.WithReadTx(ctx, func(q repository.DBTX) error {
		var readErr error
		if direct, readErr = s.voteRepo.CountDirectVotes(ctx, q, chapterID); readErr != nil {
			return fmt.Errorf("ошибка подсчета прямых голосов: %w", readErr)
		}
		if purchases, readErr = s.voteRepo.SumPurchaseWeights(ctx, q, chapterID); readErr != nil {
			return fmt.Errorf("ошибка подсчета весов покупок: %w", readErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snapshot := buildSnapshot(chapterID, reg, direct, purchases)
	s.cache.Set(ctx, snapshot)
	return snapshot, nil
}

// buildSnapshot сливает прямые голоса и веса покупок в сводный срез.
// При нулевом участии срез пустой: проценты не считаются (деления на ноль нет).
func buildSnapshot(chapterID uuid.UUID, reg *models.OptionRegistration, direct map[int]int64, purchases map[string]int64) *models.TallySnapshot {
	counts := make([]int64, len(reg.Options))
	symbols := make([]string, len(reg.Options))
	var total int64
	for i, opt := range reg.Options {
		symbols[i] = opt.Symbol
		counts[i] = direct[i] + purchases[opt.Symbol]
		total += counts[i]
	}

	if total == 0 {
		return &models.TallySnapshot{ChapterID: chapterID, Total: 0}
	}

	return &models.TallySnapshot{
		ChapterID:   chapterID,
		Symbols:     symbols,
		Counts:      counts,
		Percentages: wholePercentages(counts, total),
		Total:       total,
	}
}

// wholePercentages считает целые проценты, распределяя остаток от округления
// вниз по наибольшим дробным долям, чтобы сумма была ровно 100.
func wholePercentages(counts []int64, total int64) []int {
	pct := make([]int, len(counts))
	rem := make([]int64, len(counts))
	sum := 0
	for i, c := range counts {
		pct[i] = int(c * 100 / total)
		rem[i] = c * 100 % total
		sum += pct[i]
	}
	for sum < 100 {
		best := 0
		for i := 1; i < len(rem); i++ {
			if rem[i] > rem[best] {
				best = i
			}
		}
		pct[best]++
		rem[best] = 0
		sum++
	}
	return pct
}

// requireActiveWindow возвращает регистрацию, если окно голосования открыто.
func (s *voteTallyImpl) requireActiveWindow(ctx context.Context, chapterID uuid.UUID) (*models.OptionRegistration, error) {
	reg, err := s.regRepo.GetByChapterID(ctx, s.db, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения регистрации: %w", err)
	}
	if !s.clock.Now().Before(reg.WindowEndsAt()) {
		return nil, models.ErrVotingClosed
	}
	return reg, nil
}
