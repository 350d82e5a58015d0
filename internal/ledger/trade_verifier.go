package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// EVMClient — используемое подмножество Ethereum RPC.
type EVMClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
}

// DialEVMClient инициализирует EVM RPC клиент для заданного эндпоинта.
func DialEVMClient(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("evm endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// TradeVerifier проверяет, что сделка покупки токена действительно
// рассчиталась на реестре. Движок никогда не дожидается pending-сделок:
// подтверждение обязано соответствовать уже попавшей в блок транзакции.
type TradeVerifier interface {
	Confirm(ctx context.Context, txHash string) error
}

// EVMVerifier реализует TradeVerifier поверх Ethereum-ноды.
type EVMVerifier struct {
	client        EVMClient
	confirmations uint64
}

// NewEVMVerifier создает верификатор сделок. confirmations — минимальное
// число подтверждений блока, 0 отключает проверку глубины.
func NewEVMVerifier(client EVMClient, confirmations uint64) *EVMVerifier {
	return &EVMVerifier{client: client, confirmations: confirmations}
}

// Confirm проверяет, что транзакция существует, успешна и достаточно глубоко в цепочке.
func (v *EVMVerifier) Confirm(ctx context.Context, txHash string) error {
	if v == nil || v.client == nil {
		return fmt.Errorf("evm verifier not initialised")
	}
	trimmed := strings.TrimSpace(txHash)
	if trimmed == "" {
		return fmt.Errorf("%w: tx hash required", models.ErrTradeNotSettled)
	}
	hash := common.HexToHash(trimmed)
	if (hash == common.Hash{}) {
		return fmt.Errorf("%w: malformed tx hash %q", models.ErrTradeNotSettled, txHash)
	}

	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("%w: transaction %s not found", models.ErrTradeNotSettled, hash.Hex())
		}
		return fmt.Errorf("%w: fetch receipt: %v", models.ErrLedgerUnavailable, err)
	}
	if receipt == nil {
		return fmt.Errorf("%w: transaction receipt missing", models.ErrTradeNotSettled)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: transaction %s failed", models.ErrTradeNotSettled, hash.Hex())
	}

	if v.confirmations > 0 {
		header, err := v.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: fetch head: %v", models.ErrLedgerUnavailable, err)
		}
		if header == nil || header.Number == nil || receipt.BlockNumber == nil {
			return fmt.Errorf("%w: block metadata unavailable", models.ErrLedgerUnavailable)
		}
		confirmed := new(big.Int).Sub(header.Number, receipt.BlockNumber)
		confirmed.Add(confirmed, big.NewInt(1))
		if confirmed.Sign() <= 0 || confirmed.Cmp(new(big.Int).SetUint64(v.confirmations)) < 0 {
			return fmt.Errorf("%w: insufficient confirmations for %s", models.ErrTradeNotSettled, hash.Hex())
		}
	}
	return nil
}

// ValidAddress сообщает, является ли строка валидным hex-адресом EVM.
func ValidAddress(addr string) bool {
	return common.IsHexAddress(addr)
}
