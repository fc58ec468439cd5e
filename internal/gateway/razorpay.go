package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"salon-service/config"
	"salon-service/internal/util"

	"github.com/shopspring/decimal"
)

// ErrSignatureMismatch is returned when a payment callback's signature
// does not match the HMAC computed from our secret. It must always be
// treated as a hard failure.
var ErrSignatureMismatch = errors.New("payment signature mismatch")

// ErrAmountBelowMinimum is returned when an order total is below the
// gateway's smallest chargeable amount
var ErrAmountBelowMinimum = errors.New("order amount below gateway minimum")

// GatewayOrder is the gateway-side order a client completes payment
// against
type GatewayOrder struct {
	ID          string `json:"id"`
	AmountPaise int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// RazorpayClient talks to the Razorpay orders API over HTTP with basic
// auth. Calls carry a hard timeout so a slow gateway cannot hang a
// checkout indefinitely.
type RazorpayClient struct {
	baseURL        string
	keyID          string
	keySecret      string
	currency       string
	minAmountPaise int64
	httpClient     *http.Client
}

// NewRazorpayClient creates a gateway client from config
func NewRazorpayClient(cfg config.RazorpayConfig) *RazorpayClient {
	return &RazorpayClient{
		baseURL:        cfg.BaseURL,
		keyID:          cfg.KeyID,
		keySecret:      cfg.KeySecret,
		currency:       cfg.Currency,
		minAmountPaise: cfg.MinAmountPaise,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// ToPaise converts a rupee amount to the integer paise the gateway
// expects
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateOrder registers an order with the gateway and returns its id.
// Amounts below the gateway minimum are rejected before any network
// call.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*GatewayOrder, error) {
	paise := ToPaise(amount)
	if paise < c.minAmountPaise {
		return nil, fmt.Errorf("%w: %d paise", ErrAmountBelowMinimum, paise)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"amount":          paise,
		"currency":        c.currency,
		"receipt":         receipt,
		"payment_capture": 1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	util.GatewayCallLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("gateway order creation failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway order creation returned %d: %s", resp.StatusCode, body)
	}

	var order GatewayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to decode gateway order: %w", err)
	}
	util.GatewayOrdersCreatedTotal.Inc()
	return &order, nil
}

// VerifySignature checks a payment callback against the HMAC-SHA256 of
// "order_id|payment_id" keyed with our secret. Comparison is constant
// time.
func (c *RazorpayClient) VerifySignature(gatewayOrderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
