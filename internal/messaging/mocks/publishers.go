package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/messaging"
)

// Mock NotificationPublisher
type NotificationPublisher struct {
	mock.Mock
}

func (m *NotificationPublisher) PublishChapterPublished(ctx context.Context, payload messaging.ChapterPublishedPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *NotificationPublisher) PublishWinnerResolved(ctx context.Context, payload messaging.WinnerResolvedPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
