package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// OptionRegistrar - мок для service.OptionRegistrar
type OptionRegistrar struct {
	mock.Mock
}

func (m *OptionRegistrar) RegisterOptions(ctx context.Context, chapterID uuid.UUID, payoutAddress string, options [2]models.PlotOptionInput) (*models.OptionRegistration, error) {
	args := m.Called(ctx, chapterID, payoutAddress, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OptionRegistration), args.Error(1)
}

// VoteTally - мок для service.VoteTally
type VoteTally struct {
	mock.Mock
}

func (m *VoteTally) RecordDirectVote(ctx context.Context, chapterID uuid.UUID, voterID string, optionIndex int) error {
	args := m.Called(ctx, chapterID, voterID, optionIndex)
	return args.Error(0)
}

func (m *VoteTally) RecordPurchase(ctx context.Context, chapterID uuid.UUID, optionSymbol, voterAddress string, conf models.TradeConfirmation) error {
	args := m.Called(ctx, chapterID, optionSymbol, voterAddress, conf)
	return args.Error(0)
}

func (m *VoteTally) GetTally(ctx context.Context, chapterID uuid.UUID) (*models.TallySnapshot, error) {
	args := m.Called(ctx, chapterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TallySnapshot), args.Error(1)
}

// VotingWindow - мок для service.VotingWindow
type VotingWindow struct {
	mock.Mock
}

func (m *VotingWindow) IsActive(ctx context.Context, chapterID uuid.UUID) (bool, error) {
	args := m.Called(ctx, chapterID)
	return args.Bool(0), args.Error(1)
}

func (m *VotingWindow) TimeRemaining(ctx context.Context, chapterID uuid.UUID) (models.TimeRemaining, error) {
	args := m.Called(ctx, chapterID)
	return args.Get(0).(models.TimeRemaining), args.Error(1)
}

func (m *VotingWindow) CanCreateNextChapter(ctx context.Context, storyID uuid.UUID) (bool, *models.ActiveVotingBlock, error) {
	args := m.Called(ctx, storyID)
	var block *models.ActiveVotingBlock
	if args.Get(1) != nil {
		block = args.Get(1).(*models.ActiveVotingBlock)
	}
	return args.Bool(0), block, args.Error(2)
}

// WinnerResolver - мок для service.WinnerResolver
type WinnerResolver struct {
	mock.Mock
}

func (m *WinnerResolver) ResolveWinner(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error) {
	args := m.Called(ctx, chapterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Winner), args.Error(1)
}

func (m *WinnerResolver) PreviewWinner(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error) {
	args := m.Called(ctx, chapterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Winner), args.Error(1)
}

func (m *WinnerResolver) GetWinner(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error) {
	args := m.Called(ctx, chapterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Winner), args.Error(1)
}

// ChapterLifecycle - мок для service.ChapterLifecycle
type ChapterLifecycle struct {
	mock.Mock
}

func (m *ChapterLifecycle) CreateStory(ctx context.Context, authorID uuid.UUID, title, description string) (*models.Story, error) {
	args := m.Called(ctx, authorID, title, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *ChapterLifecycle) GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *ChapterLifecycle) CreateChapter(ctx context.Context, storyID uuid.UUID, title, contentRef string, hasChoicePoint bool) (*models.Chapter, error) {
	args := m.Called(ctx, storyID, title, contentRef, hasChoicePoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chapter), args.Error(1)
}

func (m *ChapterLifecycle) GetChapter(ctx context.Context, id uuid.UUID) (*models.Chapter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chapter), args.Error(1)
}

func (m *ChapterLifecycle) ListStoryChapters(ctx context.Context, storyID uuid.UUID) ([]*models.Chapter, error) {
	args := m.Called(ctx, storyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Chapter), args.Error(1)
}

func (m *ChapterLifecycle) PublishWithOptions(ctx context.Context, chapterID uuid.UUID, payoutAddress string, options []models.PlotOptionInput) (*models.Chapter, error) {
	args := m.Called(ctx, chapterID, payoutAddress, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chapter), args.Error(1)
}

func (m *ChapterLifecycle) SubmitDirectVote(ctx context.Context, chapterID uuid.UUID, voterID string, optionIndex int) error {
	args := m.Called(ctx, chapterID, voterID, optionIndex)
	return args.Error(0)
}

func (m *ChapterLifecycle) SubmitPurchaseVote(ctx context.Context, chapterID uuid.UUID, optionSymbol, voterAddress string, conf models.TradeConfirmation) error {
	args := m.Called(ctx, chapterID, optionSymbol, voterAddress, conf)
	return args.Error(0)
}

func (m *ChapterLifecycle) CloseVotingAndResolve(ctx context.Context, chapterID uuid.UUID) (*models.Winner, error) {
	args := m.Called(ctx, chapterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Winner), args.Error(1)
}

func (m *ChapterLifecycle) CanAuthorProceed(ctx context.Context, storyID uuid.UUID) (bool, *models.ActiveVotingBlock, error) {
	args := m.Called(ctx, storyID)
	var block *models.ActiveVotingBlock
	if args.Get(1) != nil {
		block = args.Get(1).(*models.ActiveVotingBlock)
	}
	return args.Bool(0), block, args.Error(2)
}
