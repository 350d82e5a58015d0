package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/repository"
)

// Mock ChapterRepository
type ChapterRepository struct {
	mock.Mock
}

func (m *ChapterRepository) CreateStory(ctx context.Context, querier repository.DBTX, story *models.Story) error {
	args := m.Called(ctx, querier, story)
	return args.Error(0)
}

func (m *ChapterRepository) GetStory(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, querier, id)
	if story, ok := args.Get(0).(*models.Story); ok {
		return story, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChapterRepository) MarkStoryPublished(ctx context.Context, querier repository.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

func (m *ChapterRepository) CreateChapter(ctx context.Context, querier repository.DBTX, chapter *models.Chapter) error {
	args := m.Called(ctx, querier, chapter)
	return args.Error(0)
}

func (m *ChapterRepository) GetChapter(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.Chapter, error) {
	args := m.Called(ctx, querier, id)
	if chapter, ok := args.Get(0).(*models.Chapter); ok {
		return chapter, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChapterRepository) ListByStory(ctx context.Context, querier repository.DBTX, storyID uuid.UUID) ([]*models.Chapter, error) {
	args := m.Called(ctx, querier, storyID)
	if chapters, ok := args.Get(0).([]*models.Chapter); ok {
		return chapters, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChapterRepository) UpdateStatus(ctx context.Context, querier repository.DBTX, id uuid.UUID, from, to models.ChapterStatus) error {
	args := m.Called(ctx, querier, id, from, to)
	return args.Error(0)
}

// Mock RegistrationRepository
type RegistrationRepository struct {
	mock.Mock
}

func (m *RegistrationRepository) Create(ctx context.Context, querier repository.DBTX, reg *models.OptionRegistration) error {
	args := m.Called(ctx, querier, reg)
	return args.Error(0)
}

func (m *RegistrationRepository) GetByChapterID(ctx context.Context, querier repository.DBTX, chapterID uuid.UUID) (*models.OptionRegistration, error) {
	args := m.Called(ctx, querier, chapterID)
	if reg, ok := args.Get(0).(*models.OptionRegistration); ok {
		return reg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RegistrationRepository) ListByStory(ctx context.Context, querier repository.DBTX, storyID uuid.UUID) (map[uuid.UUID]*models.OptionRegistration, error) {
	args := m.Called(ctx, querier, storyID)
	if regs, ok := args.Get(0).(map[uuid.UUID]*models.OptionRegistration); ok {
		return regs, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock VoteRepository
type VoteRepository struct {
	mock.Mock
}

func (m *VoteRepository) UpsertDirectVote(ctx context.Context, querier repository.DBTX, vote *models.VoteRecord) error {
	args := m.Called(ctx, querier, vote)
	return args.Error(0)
}

func (m *VoteRepository) AddPurchaseWeight(ctx context.Context, querier repository.DBTX, pw *models.PurchaseWeight) error {
	args := m.Called(ctx, querier, pw)
	return args.Error(0)
}

func (m *VoteRepository) CountDirectVotes(ctx context.Context, querier repository.DBTX, chapterID uuid.UUID) (map[int]int64, error) {
	args := m.Called(ctx, querier, chapterID)
	if counts, ok := args.Get(0).(map[int]int64); ok {
		return counts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VoteRepository) SumPurchaseWeights(ctx context.Context, querier repository.DBTX, chapterID uuid.UUID) (map[string]int64, error) {
	args := m.Called(ctx, querier, chapterID)
	if sums, ok := args.Get(0).(map[string]int64); ok {
		return sums, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock WinnerRepository
type WinnerRepository struct {
	mock.Mock
}

func (m *WinnerRepository) Create(ctx context.Context, querier repository.DBTX, winner *models.Winner) error {
	args := m.Called(ctx, querier, winner)
	return args.Error(0)
}

func (m *WinnerRepository) GetByChapterID(ctx context.Context, querier repository.DBTX, chapterID uuid.UUID) (*models.Winner, error) {
	args := m.Called(ctx, querier, chapterID)
	if winner, ok := args.Get(0).(*models.Winner); ok {
		return winner, args.Error(1)
	}
	return nil, args.Error(1)
}
