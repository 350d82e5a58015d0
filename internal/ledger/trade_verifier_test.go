package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/ledger"
	ledgerMocks "github.com/Kellie-Brighty/plotmint-sub000/internal/ledger/mocks"
	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

const testTxHash = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"

func TestEVMVerifierConfirm(t *testing.T) {
	ctx := context.Background()

	receiptAt := func(status uint64, block int64) *gethtypes.Receipt {
		return &gethtypes.Receipt{Status: status, BlockNumber: big.NewInt(block)}
	}
	headAt := func(block int64) *gethtypes.Header {
		return &gethtypes.Header{Number: big.NewInt(block)}
	}

	t.Run("Successful receipt with enough depth", func(t *testing.T) {
		client := new(ledgerMocks.EVMClient)
		verifier := ledger.NewEVMVerifier(client, 3)

		client.On("TransactionReceipt", ctx, mock.Anything).Return(receiptAt(gethtypes.ReceiptStatusSuccessful, 100), nil).Once()
		client.On("HeaderByNumber", ctx, (*big.Int)(nil)).Return(headAt(105), nil).Once()

		assert.NoError(t, verifier.Confirm(ctx, testTxHash))
	})

	t.Run("Insufficient confirmations", func(t *testing.T) {
		client := new(ledgerMocks.EVMClient)
		verifier := ledger.NewEVMVerifier(client, 5)

		client.On("TransactionReceipt", ctx, mock.Anything).Return(receiptAt(gethtypes.ReceiptStatusSuccessful, 100), nil).Once()
		client.On("HeaderByNumber", ctx, (*big.Int)(nil)).Return(headAt(101), nil).Once()

		assert.ErrorIs(t, verifier.Confirm(ctx, testTxHash), models.ErrTradeNotSettled)
	})

	t.Run("Failed transaction is not settled", func(t *testing.T) {
		client := new(ledgerMocks.EVMClient)
		verifier := ledger.NewEVMVerifier(client, 0)

		client.On("TransactionReceipt", ctx, mock.Anything).Return(receiptAt(gethtypes.ReceiptStatusFailed, 100), nil).Once()

		assert.ErrorIs(t, verifier.Confirm(ctx, testTxHash), models.ErrTradeNotSettled)
	})

	t.Run("Unknown transaction is not settled", func(t *testing.T) {
		client := new(ledgerMocks.EVMClient)
		verifier := ledger.NewEVMVerifier(client, 0)

		client.On("TransactionReceipt", ctx, mock.Anything).Return(nil, ethereum.NotFound).Once()

		assert.ErrorIs(t, verifier.Confirm(ctx, testTxHash), models.ErrTradeNotSettled)
	})

	t.Run("RPC failure is a ledger outage, not a settlement verdict", func(t *testing.T) {
		client := new(ledgerMocks.EVMClient)
		verifier := ledger.NewEVMVerifier(client, 0)

		client.On("TransactionReceipt", ctx, mock.Anything).Return(nil, errors.New("connection refused")).Once()

		assert.ErrorIs(t, verifier.Confirm(ctx, testTxHash), models.ErrLedgerUnavailable)
	})

	t.Run("Empty and malformed hashes", func(t *testing.T) {
		verifier := ledger.NewEVMVerifier(new(ledgerMocks.EVMClient), 0)

		assert.ErrorIs(t, verifier.Confirm(ctx, ""), models.ErrTradeNotSettled)
		assert.ErrorIs(t, verifier.Confirm(ctx, "zzzz"), models.ErrTradeNotSettled)
	})
}
