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

// FiatGateway клиент фиатного платёжного агрегатора
type FiatGateway struct {
	cfg        *FiatConfig
	HTTPClient *http.Client
	Log        *slog.Logger
}

// NewFiatGateway создаёт клиент фиатного шлюза
func NewFiatGateway(cfg *FiatConfig, log *slog.Logger) *FiatGateway {
	return &FiatGateway{
		cfg: cfg,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		Log: log,
	}
}

func (g *FiatGateway) Kind() domain.OperationKind {
	return domain.OperationKindFiat
}

type fiatCreateRequest struct {
	MerchantID string `json:"merchant_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

type fiatPaymentResponse struct {
	ID         string `json:"id"`
	PaymentURL string `json:"payment_url"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
}

// CreateInvoice создаёт платёж в агрегаторе и возвращает ссылку на оплату
func (g *FiatGateway) CreateInvoice(ctx context.Context, amount decimal.Decimal, currency string) (*gatewayPort.Invoice, error) {
	reqBody := fiatCreateRequest{
		MerchantID: g.cfg.MerchantID,
		Amount:     amount.StringFixed(2),
		Currency:   currency,
	}

	var payment fiatPaymentResponse
	if err := g.doJSON(ctx, http.MethodPost, "/merchant/payments", reqBody, &payment); err != nil {
		return nil, err
	}

	displayAmount, err := decimal.NewFromString(payment.Amount)
	if err != nil {
		displayAmount = amount
	}

	g.Log.Debug("fiat invoice created", "invoice_id", payment.ID)
	return &gatewayPort.Invoice{
		ID:            payment.ID,
		PayTarget:     payment.PaymentURL,
		DisplayAmount: displayAmount,
		Currency:      payment.Currency,
	}, nil
}

// PollStatus возвращает текущий статус платежа
func (g *FiatGateway) PollStatus(ctx context.Context, invoiceID string) (gatewayPort.InvoiceStatus, error) {
	var payment fiatPaymentResponse
	if err := g.doJSON(ctx, http.MethodGet, "/merchant/payments/"+invoiceID, nil, &payment); err != nil {
		return "", err
	}

	return mapFiatStatus(payment.Status), nil
}

// doJSON выполняет запрос к API агрегатора.
// Сетевые сбои и 5xx отдаются как domain.ErrGatewayUnavailable.
func (g *FiatGateway) doJSON(ctx context.Context, method, endpoint string, reqBody, respBody interface{}) error {
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
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

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
		g.Log.Debug("fiat gateway returned 5xx",
			"status_code", resp.StatusCode,
			"endpoint", endpoint,
		)
		return fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("fiat gateway error [status=%d]: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func mapFiatStatus(status string) gatewayPort.InvoiceStatus {
	switch strings.ToLower(status) {
	case "created", "pending", "processing":
		return gatewayPort.InvoiceStatusPending
	case "paid", "success", "succeeded":
		return gatewayPort.InvoiceStatusPaid
	case "expired":
		return gatewayPort.InvoiceStatusExpired
	default:
		return gatewayPort.InvoiceStatusFailed
	}
}
