package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// CreateTokenRequest — запрос на создание токена опции сюжета.
// Payout-получателем выступает подписывающая идентичность автора.
type CreateTokenRequest struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MetadataURI   string `json:"metadata_uri"`
	PayoutAddress string `json:"payout_address"`
}

// CreatedToken — результат создания токена по данным реестра.
type CreatedToken struct {
	Address   string    `json:"address"`
	TxHash    string    `json:"tx_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// SigningClient — внешняя возможность подписи: отправляет транзакции создания
// токена от имени идентичности, контролируемой пользователем. Ошибки терминальны
// для конкретного вызова и НИКОГДА не ретраятся движком (риск двойного минта).
type SigningClient interface {
	CreateToken(ctx context.Context, req CreateTokenRequest) (*CreatedToken, error)
}

type httpSigningClient struct {
	baseURL      string
	serviceToken string
	client       *http.Client
	logger       *zap.Logger
}

// NewHTTPSigningClient создает клиент сервиса подписи.
func NewHTTPSigningClient(baseURL, serviceToken string, timeout time.Duration, logger *zap.Logger) SigningClient {
	return &httpSigningClient{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		client:       &http.Client{Timeout: timeout},
		logger:       logger.Named("SigningClient"),
	}
}

func (c *httpSigningClient) CreateToken(ctx context.Context, req CreateTokenRequest) (*CreatedToken, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка подготовки запроса создания токена: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tokens", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования запроса создания токена: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.serviceToken)

	c.logger.Info("Creating option token", zap.String("symbol", req.Symbol))
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("Token creation request failed", zap.String("symbol", req.Symbol), zap.Error(err))
		return nil, fmt.Errorf("ошибка вызова сервиса подписи: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("Token creation rejected", zap.String("symbol", req.Symbol), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("сервис подписи вернул статус %d для символа %s", resp.StatusCode, req.Symbol)
	}

	var created CreatedToken
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа сервиса подписи: %w", err)
	}
	if !common.IsHexAddress(created.Address) {
		return nil, fmt.Errorf("%w: сервис подписи вернул невалидный адрес токена %q", models.ErrInvalidInput, created.Address)
	}
	if created.CreatedAt.IsZero() {
		// Отметка создания токена — genesis окна голосования, без нее запись бесполезна.
		return nil, fmt.Errorf("%w: сервис подписи не вернул отметку создания токена", models.ErrInvalidInput)
	}

	c.logger.Info("Option token created",
		zap.String("symbol", req.Symbol),
		zap.String("address", created.Address),
		zap.String("txHash", created.TxHash))
	return &created, nil
}
