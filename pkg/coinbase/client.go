package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bubio989-sudo/coinbasenov22/pkg/models"
)

const (
	ordersPath     = "/orders"
	defaultBaseURL = "https://api.exchange.coinbase.com"
	requestTimeout = 15 * time.Second
)

// Dispatcher forwards a validated order intent to the exchange.
type Dispatcher interface {
	PlaceOrder(ctx context.Context, intent *models.OrderIntent) (*models.DispatchResult, error)
}

// Config holds the exchange credentials and dispatch settings.
type Config struct {
	APIKey     string
	APISecret  string // base64-encoded for legacy auth; PEM private key for JWT
	Passphrase string
	BaseURL    string
	AuthType   AuthType
	// TestMode forces simulated dispatch: orders are validated and echoed but
	// never sent.
	TestMode bool
	// LogPayloads enables diagnostic logging of outbound bodies and raw
	// exchange responses.
	LogPayloads bool
}

// Client submits orders to the Coinbase Exchange REST API. When test mode is
// on, or the credential triple is incomplete, every dispatch is simulated.
// Partial credentials must never produce a live unauthenticated call.
type Client struct {
	auth        Authenticator
	baseURL     string
	simulated   bool
	logPayloads bool
	httpClient  *http.Client
	logger      *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	// JWT auth has no passphrase; requiring one there would silently pin a
	// valid deployment to simulated mode.
	missingCreds := cfg.APIKey == "" || cfg.APISecret == ""
	if cfg.AuthType != AuthTypeJWT {
		missingCreds = missingCreds || cfg.Passphrase == ""
	}

	c := &Client{
		baseURL:     baseURL,
		simulated:   cfg.TestMode || missingCreds,
		logPayloads: cfg.LogPayloads,
		httpClient:  &http.Client{Timeout: requestTimeout},
		logger:      logger,
	}

	if c.simulated {
		logger.Warn("Dispatch is simulated: test mode enabled or exchange credentials incomplete")
		return c, nil
	}

	switch cfg.AuthType {
	case AuthTypeJWT:
		auth, err := NewJWTAuthenticator(cfg.APIKey, cfg.APISecret)
		if err != nil {
			return nil, err
		}
		c.auth = auth
	default:
		auth, err := NewLegacyAuthenticator(cfg.APIKey, cfg.APISecret, cfg.Passphrase)
		if err != nil {
			return nil, err
		}
		c.auth = auth
	}

	return c, nil
}

// orderPayload is the exchange's order body. Numeric fields are string-typed
// per the API contract; field order here fixes the serialization the
// signature is computed over.
type orderPayload struct {
	ProductID   string `json:"product_id"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	Size        string `json:"size"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"time_in_force,omitempty"`
}

func buildOrderPayload(intent *models.OrderIntent) orderPayload {
	payload := orderPayload{
		ProductID: intent.ProductID,
		Side:      string(intent.Side),
		Type:      string(intent.Type),
		Size:      intent.Size.String(),
	}
	if intent.Type == models.OrderTypeLimit {
		payload.Price = intent.Price.String()
		payload.TimeInForce = "GTC"
	}
	return payload
}

// PlaceOrder builds, signs and submits one order. The body is serialized
// exactly once; the same bytes are signed and transmitted. A non-2xx exchange
// status is returned in the result, not as an error; errors mean the call
// itself failed.
func (c *Client) PlaceOrder(ctx context.Context, intent *models.OrderIntent) (*models.DispatchResult, error) {
	if c.simulated {
		return &models.DispatchResult{
			Simulated:  true,
			StatusCode: http.StatusOK,
			Response: map[string]interface{}{
				"product": intent.ProductID,
				"side":    intent.RawSide,
				"size":    intent.Size.InexactFloat64(),
			},
		}, nil
	}

	body, err := json.Marshal(buildOrderPayload(intent))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize order body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.auth.AddAuthHeaders(req, http.MethodPost, ordersPath, string(body)); err != nil {
		return nil, fmt.Errorf("failed to sign order request: %w", err)
	}

	if c.logPayloads {
		c.logger.WithField("body", string(body)).Debug("Submitting order")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange response: %w", err)
	}

	if c.logPayloads {
		c.logger.WithFields(logrus.Fields{
			"status":   resp.StatusCode,
			"response": string(raw),
		}).Debug("Exchange response")
	}

	// The exchange normally answers JSON; anything else is kept verbatim
	// under a fallback key so the caller still sees it.
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		parsed = map[string]interface{}{"text": string(raw)}
	}

	return &models.DispatchResult{
		StatusCode: resp.StatusCode,
		Response:   parsed,
	}, nil
}
