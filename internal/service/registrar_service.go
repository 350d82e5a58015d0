package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/ledger"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/repository"
)

// OptionRegistrar создает пару токенов опций сюжета для главы ровно один раз
// и персистит их идентичности единой атомарной записью.
type OptionRegistrar interface {
	RegisterOptions(ctx context.Context, chapterID uuid.UUID, payoutAddress string, options [2]models.PlotOptionInput) (*models.OptionRegistration, error)
}

type optionRegistrarImpl struct {
	db      repository.DBTX
	regRepo repository.RegistrationRepository
	signer  ledger.SigningClient
	logger  *zap.Logger
}

// NewOptionRegistrar создает регистратор опций.
func NewOptionRegistrar(
	db repository.DBTX,
	regRepo repository.RegistrationRepository,
	signer ledger.SigningClient,
	logger *zap.Logger,
) OptionRegistrar {
	return &optionRegistrarImpl{
		db:      db,
		regRepo: regRepo,
		signer:  signer,
		logger:  logger.Named("OptionRegistrar"),
	}
}

// RegisterOptions — граница идемпотентности против двойного минта.
// Последовательность жесткая: сначала read-before-write guard, затем два
// НЕЗАВИСИМЫХ вызова создания токена (без ретраев!), затем одна атомарная
// запись. Никакая блокировка не удерживается через вызовы реестра.
func (s *optionRegistrarImpl) RegisterOptions(ctx context.Context, chapterID uuid.UUID, payoutAddress string, options [2]models.PlotOptionInput) (*models.OptionRegistration, error) {
	log := s.logger.With(zap.String("chapterID", chapterID.String()))

	if err := validateOptions(options); err != nil {
		return nil, err
	}
	if !ledger.ValidAddress(payoutAddress) {
		return nil, fmt.Errorf("%w: невалидный payout-адрес %q", models.ErrInvalidInput, payoutAddress)
	}

	// 1. Read-before-write guard: повторная публикация не должна минтить заново.
	existing, err := s.regRepo.GetByChapterID(ctx, s.db, chapterID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("ошибка проверки существующей регистрации: %w", err)
	}
	if existing != nil {
		log.Warn("RegisterOptions called for already registered chapter")
		return nil, models.ErrAlreadyRegistered
	}

	// 2. Два независимых вызова создания токена. Каждый может упасть сам по себе.
	createdA, err := s.signer.CreateToken(ctx, ledger.CreateTokenRequest{
		Name:          options[0].Name,
		Symbol:        options[0].Symbol,
		MetadataURI:   options[0].MetadataURI,
		PayoutAddress: payoutAddress,
	})
	if err != nil {
		// Первый упал — ничего не создано, обычная ошибка.
		log.Error("First token creation failed", zap.String("symbol", options[0].Symbol), zap.Error(err))
		return nil, fmt.Errorf("ошибка создания токена %s: %w", options[0].Symbol, err)
	}

	createdB, err := s.signer.CreateToken(ctx, ledger.CreateTokenRequest{
		Name:          options[1].Name,
		Symbol:        options[1].Symbol,
		MetadataURI:   options[1].MetadataURI,
		PayoutAddress: payoutAddress,
	})
	if err != nil {
		// Второй упал после успеха первого: частичную регистрацию НЕ персистим.
		// Реестр не умеет откатываться — созданный токен остается осиротевшим.
		log.Error("Second token creation failed after first succeeded",
			zap.String("createdSymbol", options[0].Symbol),
			zap.String("createdAddress", createdA.Address),
			zap.String("failedSymbol", options[1].Symbol),
			zap.Error(err))
		return nil, &PartialRegistrationError{
			Created: models.PlotOption{
				Name:         options[0].Name,
				Symbol:       options[0].Symbol,
				MetadataURI:  options[0].MetadataURI,
				TokenAddress: createdA.Address,
				OptionIndex:  0,
			},
			Failed: options[1].Symbol,
			Err:    err,
		}
	}

	// Genesis окна — более ранняя из двух отметок реестра.
	tokenCreatedAt := createdA.CreatedAt
	if createdB.CreatedAt.Before(tokenCreatedAt) {
		tokenCreatedAt = createdB.CreatedAt
	}

	reg := &models.OptionRegistration{
		ChapterID: chapterID,
		Options: [2]models.PlotOption{
			{
				Name:         options[0].Name,
				Symbol:       options[0].Symbol,
				MetadataURI:  options[0].MetadataURI,
				TokenAddress: createdA.Address,
				OptionIndex:  0,
			},
			{
				Name:         options[1].Name,
				Symbol:       options[1].Symbol,
				MetadataURI:  options[1].MetadataURI,
				TokenAddress: createdB.Address,
				OptionIndex:  1,
			},
		},
		TokenCreatedAt: tokenCreatedAt.UTC(),
		CreatedAt:      tokenCreatedAt.UTC(),
	}

	// 3. Одна атомарная запись. Гонку двух конкурентных публикаций
	// арбитрирует уникальный ключ: второй получит ErrAlreadyRegistered.
	if err := s.regRepo.Create(ctx, s.db, reg); err != nil {
		if errors.Is(err, models.ErrAlreadyRegistered) {
			log.Warn("Concurrent registration detected at write time")
			return nil, models.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("ошибка сохранения регистрации: %w", err)
	}

	log.Info("Options registered",
		zap.String("symbol0", reg.Options[0].Symbol),
		zap.String("token0", reg.Options[0].TokenAddress),
		zap.String("symbol1", reg.Options[1].Symbol),
		zap.String("token1", reg.Options[1].TokenAddress),
		zap.Time("tokenCreatedAt", reg.TokenCreatedAt))
	return reg, nil
}

func validateOptions(options [2]models.PlotOptionInput) error {
	for _, opt := range options {
		if strings.TrimSpace(opt.Name) == "" ||
			strings.TrimSpace(opt.Symbol) == "" ||
			strings.TrimSpace(opt.MetadataURI) == "" {
			return ErrEmptyOptionField
		}
	}
	if options[0].Symbol == options[1].Symbol {
		return ErrDuplicateSymbols
	}
	return nil
}
