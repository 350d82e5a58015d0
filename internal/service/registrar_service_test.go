package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/ledger"
	ledgerMocks "github.com/Kellie-Brighty/plotmint-sub000/internal/ledger/mocks"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
	repoMocks "github.com/Kellie-Brighty/plotmint-sub000/internal/repository/mocks"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/service"
)

const testPayoutAddress = "0x52908400098527886E0F7030069857D2E4169EE7"

func testOptions() [2]models.PlotOptionInput {
	return [2]models.PlotOptionInput{
		{Name: "Спасти дракона", Symbol: "SAVE", MetadataURI: "ipfs://save"},
		{Name: "Сразиться с драконом", Symbol: "FIGHT", MetadataURI: "ipfs://fight"},
	}
}

func TestRegisterOptions(t *testing.T) {
	ctx := context.Background()
	chapterID := uuid.New()
	mintedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Successful registration of both options", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockSigner := new(ledgerMocks.SigningClient)
		registrar := service.NewOptionRegistrar(nil, mockRegRepo, mockSigner, zap.NewNop())

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(nil, models.ErrNotFound).Once()
		mockSigner.On("CreateToken", ctx, mock.MatchedBy(func(req ledger.CreateTokenRequest) bool {
			return req.Symbol == "SAVE"
		})).Return(&ledger.CreatedToken{
			Address:   "0x1111111111111111111111111111111111111111",
			TxHash:    "0xaa",
			CreatedAt: mintedAt,
		}, nil).Once()
		mockSigner.On("CreateToken", ctx, mock.MatchedBy(func(req ledger.CreateTokenRequest) bool {
			return req.Symbol == "FIGHT"
		})).Return(&ledger.CreatedToken{
			Address:   "0x2222222222222222222222222222222222222222",
			TxHash:    "0xbb",
			CreatedAt: mintedAt.Add(2 * time.Second),
		}, nil).Once()
		mockRegRepo.On("Create", ctx, nil, mock.MatchedBy(func(reg *models.OptionRegistration) bool {
			assert.Equal(t, chapterID, reg.ChapterID)
			assert.Equal(t, "SAVE", reg.Options[0].Symbol)
			assert.Equal(t, 0, reg.Options[0].OptionIndex)
			assert.Equal(t, "FIGHT", reg.Options[1].Symbol)
			assert.Equal(t, 1, reg.Options[1].OptionIndex)
			// Genesis окна — более ранняя отметка реестра.
			assert.Equal(t, mintedAt, reg.TokenCreatedAt)
			return true
		})).Return(nil).Once()

		reg, err := registrar.RegisterOptions(ctx, chapterID, testPayoutAddress, testOptions())

		assert.NoError(t, err)
		assert.NotNil(t, reg)
		assert.Equal(t, "0x1111111111111111111111111111111111111111", reg.Options[0].TokenAddress)
		assert.Equal(t, "0x2222222222222222222222222222222222222222", reg.Options[1].TokenAddress)
		mockRegRepo.AssertExpectations(t)
		mockSigner.AssertExpectations(t)
	})

	t.Run("Repeat publish does not mint again", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockSigner := new(ledgerMocks.SigningClient)
		registrar := service.NewOptionRegistrar(nil, mockRegRepo, mockSigner, zap.NewNop())

		existing := &models.OptionRegistration{ChapterID: chapterID, TokenCreatedAt: mintedAt}
		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(existing, nil).Once()

		reg, err := registrar.RegisterOptions(ctx, chapterID, testPayoutAddress, testOptions())

		assert.ErrorIs(t, err, models.ErrAlreadyRegistered)
		assert.Nil(t, reg)
		mockSigner.AssertNotCalled(t, "CreateToken", mock.Anything, mock.Anything)
		mockRegRepo.AssertExpectations(t)
	})

	t.Run("Empty option field", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockSigner := new(ledgerMocks.SigningClient)
		registrar := service.NewOptionRegistrar(nil, mockRegRepo, mockSigner, zap.NewNop())

		opts := testOptions()
		opts[1].Symbol = "   "

		_, err := registrar.RegisterOptions(ctx, chapterID, testPayoutAddress, opts)

		assert.ErrorIs(t, err, service.ErrEmptyOptionField)
		mockSigner.AssertNotCalled(t, "CreateToken", mock.Anything, mock.Anything)
	})

	t.Run("Duplicate symbols", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockSigner := new(ledgerMocks.SigningClient)
		registrar := service.NewOptionRegistrar(nil, mockRegRepo, mockSigner, zap.NewNop())

		opts := testOptions()
		opts[1].Symbol = opts[0].Symbol

		_, err := registrar.RegisterOptions(ctx, chapterID, testPayoutAddress, opts)

		assert.ErrorIs(t, err, service.ErrDuplicateSymbols)
	})

	t.Run("First mint fails, nothing persisted", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockSigner := new(ledgerMocks.SigningClient)
		registrar := service.NewOptionRegistrar(nil, mockRegRepo, mockSigner, zap.NewNop())

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(nil, models.ErrNotFound).Once()
		ledgerErr := errors.New("signing service timeout")
		mockSigner.On("CreateToken", ctx, mock.Anything).Return(nil, ledgerErr).Once()

		_, err := registrar.RegisterOptions(ctx, chapterID, testPayoutAddress, testOptions())

		assert.ErrorIs(t, err, ledgerErr)
		var partial *service.PartialRegistrationError
		assert.False(t, errors.As(err, &partial), "падение первого минта — не частичная регистрация")
		mockRegRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Second mint fails, partial registration surfaced and not persisted", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockSigner := new(ledgerMocks.SigningClient)
		registrar := service.NewOptionRegistrar(nil, mockRegRepo, mockSigner, zap.NewNop())

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(nil, models.ErrNotFound).Once()
		mockSigner.On("CreateToken", ctx, mock.MatchedBy(func(req ledger.CreateTokenRequest) bool {
			return req.Symbol == "SAVE"
		})).Return(&ledger.CreatedToken{
			Address:   "0x1111111111111111111111111111111111111111",
			TxHash:    "0xaa",
			CreatedAt: mintedAt,
		}, nil).Once()
		ledgerErr := errors.New("nonce conflict")
		mockSigner.On("CreateToken", ctx, mock.MatchedBy(func(req ledger.CreateTokenRequest) bool {
			return req.Symbol == "FIGHT"
		})).Return(nil, ledgerErr).Once()

		_, err := registrar.RegisterOptions(ctx, chapterID, testPayoutAddress, testOptions())

		var partial *service.PartialRegistrationError
		assert.True(t, errors.As(err, &partial))
		assert.Equal(t, "SAVE", partial.Created.Symbol)
		assert.Equal(t, "0x1111111111111111111111111111111111111111", partial.Created.TokenAddress)
		assert.Equal(t, "FIGHT", partial.Failed)
		assert.ErrorIs(t, err, ledgerErr)
		// Запись о регистрации не создается: глава остается незарегистрированной.
		mockRegRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Concurrent registration loses at write time", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockSigner := new(ledgerMocks.SigningClient)
		registrar := service.NewOptionRegistrar(nil, mockRegRepo, mockSigner, zap.NewNop())

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(nil, models.ErrNotFound).Once()
		mockSigner.On("CreateToken", ctx, mock.Anything).Return(&ledger.CreatedToken{
			Address:   "0x3333333333333333333333333333333333333333",
			TxHash:    "0xcc",
			CreatedAt: mintedAt,
		}, nil).Twice()
		mockRegRepo.On("Create", ctx, nil, mock.Anything).Return(models.ErrAlreadyRegistered).Once()

		_, err := registrar.RegisterOptions(ctx, chapterID, testPayoutAddress, testOptions())

		assert.ErrorIs(t, err, models.ErrAlreadyRegistered)
		mockRegRepo.AssertExpectations(t)
	})

	t.Run("Invalid payout address", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockSigner := new(ledgerMocks.SigningClient)
		registrar := service.NewOptionRegistrar(nil, mockRegRepo, mockSigner, zap.NewNop())

		_, err := registrar.RegisterOptions(ctx, chapterID, "not-an-address", testOptions())

		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}
