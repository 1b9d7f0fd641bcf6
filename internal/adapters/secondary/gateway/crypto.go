package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	gatewayPort "github.com/admin/tg-bots/shop-bot/internal/ports/gateway"
	"github.com/shopspring/decimal"
)

// CryptoGateway клиент крипто-процессинга.
// Инвойс - это адрес кошелька и сумма в крипте, пересчитанная
// процессингом из фиатной суммы запроса.
type CryptoGateway struct {
	cfg        *CryptoConfig
	HTTPClient *http.Client
	Log        *slog.Logger
}

// NewCryptoGateway создаёт клиент крипто-процессинга
func NewCryptoGateway(cfg *CryptoConfig, log *slog.Logger) *CryptoGateway {
	return &CryptoGateway{
		cfg: cfg,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		Log: log,
	}
}

func (g *CryptoGateway) Kind() domain.OperationKind {
	return domain.OperationKindCrypto
}

type cryptoCreateRequest struct {
	FiatAmount   string `json:"fiat_amount"`
	FiatCurrency string `json:"fiat_currency"`
}

type cryptoInvoiceResponse struct {
	InvoiceID string `json:"invoice_id"`
	Address   string `json:"address"`
	PayAmount string `json:"pay_amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

// CreateInvoice создаёт крипто-инвойс и возвращает адрес для перевода
func (g *CryptoGateway) CreateInvoice(ctx context.Context, amount decimal.Decimal, currency string) (*gatewayPort.Invoice, error) {
	reqBody := cryptoCreateRequest{
		FiatAmount:   amount.StringFixed(2),
		FiatCurrency: currency,
	}

	var invoice cryptoInvoiceResponse
	if err := g.doJSON(ctx, http.MethodPost, "/api/invoices", reqBody, &invoice); err != nil {
		return nil, err
	}

	payAmount, err := decimal.NewFromString(invoice.PayAmount)
	if err != nil {
		return nil, fmt.Errorf("bad pay_amount in invoice %s: %w", invoice.InvoiceID, err)
	}

	g.Log.Debug("crypto invoice created", "invoice_id", invoice.InvoiceID)
	return &gatewayPort.Invoice{
		ID:            invoice.InvoiceID,
		PayTarget:     invoice.Address,
		DisplayAmount: payAmount,
		Currency:      invoice.Currency,
	}, nil
}

// PollStatus возвращает текущий статус инвойса
func (g *CryptoGateway) PollStatus(ctx context.Context, invoiceID string) (gatewayPort.InvoiceStatus, error) {
	var invoice cryptoInvoiceResponse
	if err := g.doJSON(ctx, http.MethodGet, "/api/invoices/"+invoiceID, nil, &invoice); err != nil {
		return "", err
	}

	return mapCryptoStatus(invoice.Status), nil
}

func (g *CryptoGateway) doJSON(ctx context.Context, method, endpoint string, reqBody, respBody interface{}) error {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	url := strings.TrimSuffix(g.cfg.BaseURL, "/") + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", g.cfg.APIKey)

	resp, err := g.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", domain.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		g.Log.Debug("crypto gateway returned 5xx",
			"status_code", resp.StatusCode,
			"endpoint", endpoint,
		)
		return fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("crypto gateway error [status=%d]: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func mapCryptoStatus(status string) gatewayPort.InvoiceStatus {
	switch strings.ToLower(status) {
	case "waiting", "confirming", "pending":
		return gatewayPort.InvoiceStatusPending
	case "paid", "finished", "confirmed":
		return gatewayPort.InvoiceStatusPaid
	case "expired":
		return gatewayPort.InvoiceStatusExpired
	default:
		return gatewayPort.InvoiceStatusFailed
	}
}
