package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/cache"
	ledgerMocks "github.com/Kellie-Brighty/plotmint-sub000/internal/ledger/mocks"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
	repoMocks "github.com/Kellie-Brighty/plotmint-sub000/internal/repository/mocks"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/service"
)

func registrationFixture(chapterID uuid.UUID, mintedAt time.Time) *models.OptionRegistration {
	return &models.OptionRegistration{
		ChapterID: chapterID,
		Options: [2]models.PlotOption{
			{Name: "Спасти дракона", Symbol: "SAVE", TokenAddress: "0x1111111111111111111111111111111111111111", OptionIndex: 0},
			{Name: "Сразиться с драконом", Symbol: "FIGHT", TokenAddress: "0x2222222222222222222222222222222222222222", OptionIndex: 1},
		},
		TokenCreatedAt: mintedAt,
		CreatedAt:      mintedAt,
	}
}

func newTallyForTest(regRepo *repoMocks.RegistrationRepository, voteRepo *repoMocks.VoteRepository, verifier *ledgerMocks.TradeVerifier, clock *fakeClock) service.VoteTally {
	return service.NewVoteTally(nil, stubTxManager{}, voteRepo, regRepo, verifier, cache.NoopTallyCache{}, clock, zap.NewNop())
}

func TestRecordDirectVote(t *testing.T) {
	ctx := context.Background()
	chapterID := uuid.New()
	mintedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Vote recorded while window is open", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockVoteRepo := new(repoMocks.VoteRepository)
		clock := &fakeClock{now: mintedAt.Add(time.Hour)}
		tally := newTallyForTest(mockRegRepo, mockVoteRepo, nil, clock)

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil).Once()
		mockVoteRepo.On("UpsertDirectVote", ctx, nil, mock.MatchedBy(func(v *models.VoteRecord) bool {
			return v.ChapterID == chapterID && v.VoterID == "reader-1" && v.OptionIndex == 1 && v.Weight == 1
		})).Return(nil).Once()

		err := tally.RecordDirectVote(ctx, chapterID, "reader-1", 1)

		assert.NoError(t, err)
		mockVoteRepo.AssertExpectations(t)
	})

	t.Run("Vote after window expiry is rejected", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockVoteRepo := new(repoMocks.VoteRepository)
		clock := &fakeClock{now: mintedAt.Add(models.VotingDuration)}
		tally := newTallyForTest(mockRegRepo, mockVoteRepo, nil, clock)

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil).Once()

		err := tally.RecordDirectVote(ctx, chapterID, "reader-1", 0)

		assert.ErrorIs(t, err, models.ErrVotingClosed)
		mockVoteRepo.AssertNotCalled(t, "UpsertDirectVote", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Invalid voter and option index", func(t *testing.T) {
		tally := newTallyForTest(new(repoMocks.RegistrationRepository), new(repoMocks.VoteRepository), nil, &fakeClock{now: mintedAt})

		assert.ErrorIs(t, tally.RecordDirectVote(ctx, chapterID, "  ", 0), service.ErrInvalidVoterID)
		assert.ErrorIs(t, tally.RecordDirectVote(ctx, chapterID, "reader-1", 2), service.ErrInvalidOptionIndex)
	})
}

func TestRecordPurchase(t *testing.T) {
	ctx := context.Background()
	chapterID := uuid.New()
	mintedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	wallet := "0x52908400098527886E0F7030069857D2E4169EE7"
	conf := models.TradeConfirmation{TxHash: "0xdeadbeef", Amount: 5}

	t.Run("Settled purchase adds weight and mirrors a direct vote", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockVoteRepo := new(repoMocks.VoteRepository)
		mockVerifier := new(ledgerMocks.TradeVerifier)
		clock := &fakeClock{now: mintedAt.Add(2 * time.Hour)}
		tally := newTallyForTest(mockRegRepo, mockVoteRepo, mockVerifier, clock)

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil).Once()
		mockVerifier.On("Confirm", ctx, conf.TxHash).Return(nil).Once()
		mockVoteRepo.On("AddPurchaseWeight", ctx, nil, mock.MatchedBy(func(pw *models.PurchaseWeight) bool {
			return pw.OptionSymbol == "FIGHT" && pw.VoterAddress == wallet && pw.Weight == 5
		})).Return(nil).Once()
		mockVoteRepo.On("UpsertDirectVote", ctx, nil, mock.MatchedBy(func(v *models.VoteRecord) bool {
			// Зеркальный голос от имени кошелька за ту же опцию.
			return v.VoterID == wallet && v.OptionIndex == 1 && v.Weight == 1
		})).Return(nil).Once()

		err := tally.RecordPurchase(ctx, chapterID, "FIGHT", wallet, conf)

		assert.NoError(t, err)
		mockVoteRepo.AssertExpectations(t)
		mockVerifier.AssertExpectations(t)
	})

	t.Run("Unsettled trade carries no weight", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockVoteRepo := new(repoMocks.VoteRepository)
		mockVerifier := new(ledgerMocks.TradeVerifier)
		clock := &fakeClock{now: mintedAt.Add(time.Hour)}
		tally := newTallyForTest(mockRegRepo, mockVoteRepo, mockVerifier, clock)

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil).Once()
		mockVerifier.On("Confirm", ctx, conf.TxHash).Return(models.ErrTradeNotSettled).Once()

		err := tally.RecordPurchase(ctx, chapterID, "FIGHT", wallet, conf)

		assert.ErrorIs(t, err, models.ErrTradeNotSettled)
		mockVoteRepo.AssertNotCalled(t, "AddPurchaseWeight", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Settled purchase after window close is rejected distinctly", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockVoteRepo := new(repoMocks.VoteRepository)
		mockVerifier := new(ledgerMocks.TradeVerifier)
		clock := &fakeClock{now: mintedAt.Add(models.VotingDuration + time.Minute)}
		tally := newTallyForTest(mockRegRepo, mockVoteRepo, mockVerifier, clock)

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil).Once()
		mockVerifier.On("Confirm", ctx, conf.TxHash).Return(nil).Once()

		err := tally.RecordPurchase(ctx, chapterID, "FIGHT", wallet, conf)

		// Сделка рассчитана, но окно закрыто: это ErrVotingClosed, не ErrTradeNotSettled.
		assert.ErrorIs(t, err, models.ErrVotingClosed)
		mockVoteRepo.AssertNotCalled(t, "AddPurchaseWeight", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown option symbol", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockVerifier := new(ledgerMocks.TradeVerifier)
		clock := &fakeClock{now: mintedAt.Add(time.Hour)}
		tally := newTallyForTest(mockRegRepo, new(repoMocks.VoteRepository), mockVerifier, clock)

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil).Once()

		err := tally.RecordPurchase(ctx, chapterID, "OTHER", wallet, conf)

		assert.ErrorIs(t, err, service.ErrUnknownOption)
		mockVerifier.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	})

	t.Run("Non-positive amount", func(t *testing.T) {
		tally := newTallyForTest(new(repoMocks.RegistrationRepository), new(repoMocks.VoteRepository), new(ledgerMocks.TradeVerifier), &fakeClock{now: mintedAt})

		err := tally.RecordPurchase(ctx, chapterID, "FIGHT", wallet, models.TradeConfirmation{TxHash: "0x1", Amount: 0})

		assert.ErrorIs(t, err, service.ErrInvalidWeight)
	})
}

func TestGetTally(t *testing.T) {
	ctx := context.Background()
	chapterID := uuid.New()
	mintedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Direct votes and purchase weights merge into one snapshot", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockVoteRepo := new(repoMocks.VoteRepository)
		tally := newTallyForTest(mockRegRepo, mockVoteRepo, nil, &fakeClock{now: mintedAt})

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil).Once()
		// SAVE: 2 прямых + 1 вес покупки = 3; FIGHT: 1 прямой + 1 вес = 2.
		mockVoteRepo.On("CountDirectVotes", ctx, nil, chapterID).Return(map[int]int64{0: 2, 1: 1}, nil).Once()
		mockVoteRepo.On("SumPurchaseWeights", ctx, nil, chapterID).Return(map[string]int64{"SAVE": 1, "FIGHT": 1}, nil).Once()

		snapshot, err := tally.GetTally(ctx, chapterID)

		assert.NoError(t, err)
		assert.Equal(t, []string{"SAVE", "FIGHT"}, snapshot.Symbols)
		assert.Equal(t, []int64{3, 2}, snapshot.Counts)
		assert.Equal(t, int64(5), snapshot.Total)
		assert.Equal(t, []int{60, 40}, snapshot.Percentages)
	})

	t.Run("Both counters are read from one transaction snapshot", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockVoteRepo := new(repoMocks.VoteRepository)
		snap := markerQuerier{name: "read-tx"}
		tally := service.NewVoteTally(nil, snapshotTxManager{q: snap}, mockVoteRepo, mockRegRepo, nil, cache.NoopTallyCache{}, &fakeClock{now: mintedAt}, zap.NewNop())

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil).Once()
		// Оба чтения обязаны идти через один транзакционный querier: иначе
		// покупка, закоммиченная между ними, попала бы в срез без своего
		// зеркального голоса.
		mockVoteRepo.On("CountDirectVotes", ctx, snap, chapterID).Return(map[int]int64{0: 1}, nil).Once()
		mockVoteRepo.On("SumPurchaseWeights", ctx, snap, chapterID).Return(map[string]int64{"SAVE": 5}, nil).Once()

		snapshot, err := tally.GetTally(ctx, chapterID)

		assert.NoError(t, err)
		assert.Equal(t, []int64{6, 0}, snapshot.Counts)
		mockVoteRepo.AssertExpectations(t)
	})

	t.Run("Zero participation yields empty snapshot", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockVoteRepo := new(repoMocks.VoteRepository)
		tally := newTallyForTest(mockRegRepo, mockVoteRepo, nil, &fakeClock{now: mintedAt})

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil).Once()
		mockVoteRepo.On("CountDirectVotes", ctx, nil, chapterID).Return(map[int]int64{}, nil).Once()
		mockVoteRepo.On("SumPurchaseWeights", ctx, nil, chapterID).Return(map[string]int64{}, nil).Once()

		snapshot, err := tally.GetTally(ctx, chapterID)

		assert.NoError(t, err)
		assert.Equal(t, int64(0), snapshot.Total)
		assert.Empty(t, snapshot.Counts)
		assert.Empty(t, snapshot.Percentages)
	})

	t.Run("Percentages always sum to 100", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		mockVoteRepo := new(repoMocks.VoteRepository)
		tally := newTallyForTest(mockRegRepo, mockVoteRepo, nil, &fakeClock{now: mintedAt})

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil).Once()
		mockVoteRepo.On("CountDirectVotes", ctx, nil, chapterID).Return(map[int]int64{0: 1, 1: 2}, nil).Once()
		mockVoteRepo.On("SumPurchaseWeights", ctx, nil, chapterID).Return(map[string]int64{}, nil).Once()

		snapshot, err := tally.GetTally(ctx, chapterID)

		assert.NoError(t, err)
		sum := 0
		for _, p := range snapshot.Percentages {
			sum += p
		}
		assert.Equal(t, 100, sum)
	})

	t.Run("Unknown chapter", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		tally := newTallyForTest(mockRegRepo, new(repoMocks.VoteRepository), nil, &fakeClock{now: mintedAt})

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(nil, models.ErrNotFound).Once()

		_, err := tally.GetTally(ctx, chapterID)

		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
