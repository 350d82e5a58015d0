package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
	repoMocks "github.com/Kellie-Brighty/plotmint-sub000/internal/repository/mocks"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/service"
)

func TestVotingWindow(t *testing.T) {
	ctx := context.Background()
	chapterID := uuid.New()
	storyID := uuid.New()
	mintedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Window is open strictly before the 24h mark", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		clock := &fakeClock{now: mintedAt.Add(models.VotingDuration - time.Second)}
		window := service.NewVotingWindow(nil, mockRegRepo, clock, zap.NewNop())

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil)

		active, err := window.IsActive(ctx, chapterID)
		assert.NoError(t, err)
		assert.True(t, active)

		// Ровно на границе окно уже закрыто.
		clock.Advance(time.Second)
		active, err = window.IsActive(ctx, chapterID)
		assert.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("Chapter without registration has no window", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		window := service.NewVotingWindow(nil, mockRegRepo, &fakeClock{now: mintedAt}, zap.NewNop())

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(nil, models.ErrNotFound).Once()

		active, err := window.IsActive(ctx, chapterID)
		assert.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("TimeRemaining decreases monotonically and clamps at zero", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		clock := &fakeClock{now: mintedAt}
		window := service.NewVotingWindow(nil, mockRegRepo, clock, zap.NewNop())

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(registrationFixture(chapterID, mintedAt), nil)

		first, err := window.TimeRemaining(ctx, chapterID)
		assert.NoError(t, err)
		assert.Equal(t, 24, first.Hours)
		assert.Equal(t, 0, first.Minutes)

		clock.Advance(90 * time.Minute)
		second, err := window.TimeRemaining(ctx, chapterID)
		assert.NoError(t, err)
		assert.Equal(t, 22, second.Hours)
		assert.Equal(t, 30, second.Minutes)
		assert.Less(t, second.Total, first.Total)

		// После истечения окна остаток нулевой, не отрицательный.
		clock.Advance(48 * time.Hour)
		expired, err := window.TimeRemaining(ctx, chapterID)
		assert.NoError(t, err)
		assert.Equal(t, time.Duration(0), expired.Total)
		assert.Equal(t, 0, expired.Hours)
		assert.Equal(t, 0, expired.Minutes)
		assert.Equal(t, 0, expired.Seconds)
	})

	t.Run("TimeRemaining for unknown chapter", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		window := service.NewVotingWindow(nil, mockRegRepo, &fakeClock{now: mintedAt}, zap.NewNop())

		mockRegRepo.On("GetByChapterID", ctx, nil, chapterID).Return(nil, models.ErrNotFound).Once()

		_, err := window.TimeRemaining(ctx, chapterID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("CanCreateNextChapter blocked by any open window in the story", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		clock := &fakeClock{now: mintedAt.Add(time.Hour)}
		window := service.NewVotingWindow(nil, mockRegRepo, clock, zap.NewNop())

		otherChapter := uuid.New()
		regs := map[uuid.UUID]*models.OptionRegistration{
			// Старая глава: окно давно закрыто.
			otherChapter: registrationFixture(otherChapter, mintedAt.Add(-72*time.Hour)),
			// Текущая глава: окно открыто.
			chapterID: registrationFixture(chapterID, mintedAt),
		}
		mockRegRepo.On("ListByStory", ctx, nil, storyID).Return(regs, nil)

		ok, block, err := window.CanCreateNextChapter(ctx, storyID)
		assert.NoError(t, err)
		assert.False(t, ok)
		// Отказ называет блокирующую главу и остаток её окна.
		assert.NotNil(t, block)
		assert.Equal(t, chapterID, block.ChapterID)
		assert.Equal(t, 23, block.Remaining.Hours)

		// Как только последнее окно истекает, автор может продолжать.
		clock.Advance(models.VotingDuration)
		ok, block, err = window.CanCreateNextChapter(ctx, storyID)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Nil(t, block)
	})

	t.Run("Story without registrations never blocks", func(t *testing.T) {
		mockRegRepo := new(repoMocks.RegistrationRepository)
		window := service.NewVotingWindow(nil, mockRegRepo, &fakeClock{now: mintedAt}, zap.NewNop())

		mockRegRepo.On("ListByStory", ctx, nil, storyID).Return(map[uuid.UUID]*models.OptionRegistration{}, nil).Once()

		ok, block, err := window.CanCreateNextChapter(ctx, storyID)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Nil(t, block)
	})
}
