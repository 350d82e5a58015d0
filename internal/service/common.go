package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/repository"
)

// TxManager выполняет функцию в транзакции. Интерфейс нужен, чтобы
// сервисы были тестируемы без реального пула.
type TxManager interface {
	WithTx(ctx context.Context, fn func(q repository.DBTX) error) error

	// WithReadTx выполняет fn в read-only транзакции уровня repeatable read:
	// все чтения внутри fn видят один снимок данных.
	WithReadTx(ctx context.Context, fn func(q repository.DBTX) error) error
}

type pgxTxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager создает менеджер транзакций поверх пула pgx.
func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &pgxTxManager{pool: pool}
}

func (m *pgxTxManager) WithTx(ctx context.Context, fn func(q repository.DBTX) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	return m.run(ctx, tx, fn)
}

func (m *pgxTxManager) WithReadTx(ctx context.Context, fn func(q repository.DBTX) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to begin read tx: %w", err)
	}
	return m.run(ctx, tx, fn)
}

func (m *pgxTxManager) run(ctx context.Context, tx pgx.Tx, fn func(q repository.DBTX) error) error {
	// Откат при панике
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(context.Background())
			panic(r)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}

var _ repository.DBTX = (pgx.Tx)(nil)
