package service_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/repository"
)

// fakeClock — управляемые часы для детерминированных тестов окна.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// stubTxManager выполняет fn без реальной транзакции: репозитории в тестах
// замоканы и querier не используют.
type stubTxManager struct{}

func (stubTxManager) WithTx(_ context.Context, fn func(q repository.DBTX) error) error {
	return fn(nil)
}

func (stubTxManager) WithReadTx(_ context.Context, fn func(q repository.DBTX) error) error {
	return fn(nil)
}

// markerQuerier — несвязанный с БД DBTX. Тесты передают его через
// snapshotTxManager и по нему проверяют, что чтения сервиса идут
// через транзакционный querier, а не напрямую через пул.
type markerQuerier struct{ name string }

func (markerQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (markerQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }

func (markerQuerier) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

type snapshotTxManager struct{ q repository.DBTX }

func (m snapshotTxManager) WithTx(_ context.Context, fn func(q repository.DBTX) error) error {
	return fn(m.q)
}

func (m snapshotTxManager) WithReadTx(_ context.Context, fn func(q repository.DBTX) error) error {
	return fn(m.q)
}
