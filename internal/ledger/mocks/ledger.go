package mocks

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/ledger"
)

// Mock SigningClient
type SigningClient struct {
	mock.Mock
}

func (m *SigningClient) CreateToken(ctx context.Context, req ledger.CreateTokenRequest) (*ledger.CreatedToken, error) {
	args := m.Called(ctx, req)
	if created, ok := args.Get(0).(*ledger.CreatedToken); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock Reader
type Reader struct {
	mock.Mock
}

func (m *Reader) HolderCount(ctx context.Context, tokenAddress string) (int64, error) {
	args := m.Called(ctx, tokenAddress)
	return args.Get(0).(int64), args.Error(1)
}

// Mock EVMClient
type EVMClient struct {
	mock.Mock
}

func (m *EVMClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	args := m.Called(ctx, txHash)
	if receipt, ok := args.Get(0).(*gethtypes.Receipt); ok {
		return receipt, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EVMClient) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	args := m.Called(ctx, number)
	if header, ok := args.Get(0).(*gethtypes.Header); ok {
		return header, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock TradeVerifier
type TradeVerifier struct {
	mock.Mock
}

func (m *TradeVerifier) Confirm(ctx context.Context, txHash string) error {
	args := m.Called(ctx, txHash)
	return args.Error(0)
}
