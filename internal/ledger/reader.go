package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Kellie-Brighty/plotmint-sub000/internal/models"
)

// Reader — читающая возможность реестра: метаданные токена и число уникальных
// держателей. Может быть недоступен; вызывающие стороны обязаны уметь жить
// с models.ErrLedgerUnavailable (деградация описана в WinnerResolver).
type Reader interface {
	// HolderCount возвращает число уникальных адресов с ненулевым балансом токена.
	HolderCount(ctx context.Context, tokenAddress string) (int64, error)
}

type httpIndexerReader struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPIndexerReader создает клиент индексатора реестра.
func NewHTTPIndexerReader(baseURL string, timeout time.Duration, logger *zap.Logger) Reader {
	return &httpIndexerReader{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("LedgerReader"),
	}
}

func (r *httpIndexerReader) HolderCount(ctx context.Context, tokenAddress string) (int64, error) {
	endpoint := fmt.Sprintf("%s/v1/tokens/%s/holders/count", r.baseURL, url.PathEscape(tokenAddress))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("ошибка формирования запроса держателей: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		// Транспортная ошибка — реестр недоступен, не фатально:
		// у разрешения победителя есть запасная метрика.
		r.logger.Warn("Holder count request failed", zap.String("token", tokenAddress), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", models.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("Holder count request rejected", zap.String("token", tokenAddress), zap.Int("status", resp.StatusCode))
		return 0, fmt.Errorf("%w: индексатор вернул статус %d", models.ErrLedgerUnavailable, resp.StatusCode)
	}

	var payload struct {
		HolderCount int64 `json:"holder_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: ошибка разбора ответа индексатора: %v", models.ErrLedgerUnavailable, err)
	}
	return payload.HolderCount, nil
}
