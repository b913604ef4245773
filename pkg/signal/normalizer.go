package signal

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bubio989-sudo/coinbasenov22/pkg/models"
)

// Synonym lists for each logical field, tried in order. Signal sources
// (TradingView alerts and friends) disagree on naming, so the first present
// key wins.
var (
	productKeys = []string{"symbol", "product_id", "product"}
	sideKeys    = []string{"action", "side"}
	sizeKeys    = []string{"amount", "size", "qty"}
	tokenKeys   = []string{"auth", "token", "key"}
)

// Options carries the per-process normalization settings.
type Options struct {
	// Secret is the shared webhook secret callers must present.
	Secret string
	// AllowUnauthenticated skips the secret check entirely. Off by default;
	// only for legacy deployments behind a trusted proxy.
	AllowUnauthenticated bool
	// MaxOrderSize rejects orders above this size when positive. Zero
	// disables the cap.
	MaxOrderSize decimal.Decimal
}

// ParsePayload parses a raw signal body into a flat string map. It tries a
// JSON object first and falls back to "key: value; key: value" text when the
// body is not valid JSON.
func ParsePayload(raw []byte) map[string]string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err == nil && obj != nil {
		payload := make(map[string]string, len(obj))
		for k, v := range obj {
			switch val := v.(type) {
			case string:
				payload[k] = val
			case json.Number:
				payload[k] = val.String()
			case bool:
				payload[k] = strconv.FormatBool(val)
			}
		}
		return payload
	}

	return parseKVText(string(raw))
}

// parseKVText parses "symbol: BTC-USD; action: buy; amount: 10" style text.
// Segments without a colon are dropped.
func parseKVText(text string) map[string]string {
	payload := make(map[string]string)
	for _, part := range strings.Split(text, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		payload[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return payload
}

// resolve returns the first non-empty value among the candidate keys.
func resolve(payload map[string]string, keys []string) string {
	for _, k := range keys {
		if v := payload[k]; v != "" {
			return v
		}
	}
	return ""
}

// Normalize parses and validates a raw signal body into an OrderIntent. The
// parsed payload is returned alongside for diagnostics. The shared-secret
// check runs before any field validation.
func Normalize(raw []byte, opts Options) (*models.OrderIntent, map[string]string, error) {
	payload := ParsePayload(raw)

	if !opts.AllowUnauthenticated {
		if opts.Secret == "" {
			return nil, payload, &AuthError{Reason: "webhook secret not configured"}
		}
		token := resolve(payload, tokenKeys)
		if subtle.ConstantTimeCompare([]byte(token), []byte(opts.Secret)) != 1 {
			return nil, payload, &AuthError{Reason: "invalid or missing auth token"}
		}
	}

	productID := resolve(payload, productKeys)
	rawSide := resolve(payload, sideKeys)
	amount := resolve(payload, sizeKeys)

	if productID == "" || rawSide == "" || amount == "" {
		return nil, payload, &ValidationError{Reason: "missing fields", Received: payload}
	}

	size, err := decimal.NewFromString(amount)
	if err != nil || !size.IsPositive() {
		return nil, payload, &ValidationError{Reason: "invalid amount"}
	}

	// The cap is enforced as soon as the size is known, regardless of
	// whether the rest of the signal is well formed.
	if opts.MaxOrderSize.IsPositive() && size.GreaterThan(opts.MaxOrderSize) {
		return nil, payload, &CapError{Max: opts.MaxOrderSize}
	}

	side := models.OrderSide(strings.ToLower(rawSide))
	if side != models.OrderSideBuy && side != models.OrderSideSell {
		return nil, payload, &ValidationError{Reason: "invalid side"}
	}

	orderType := models.OrderTypeMarket
	if v := payload["order_type"]; v != "" {
		orderType = models.OrderType(strings.ToLower(v))
		if orderType != models.OrderTypeMarket && orderType != models.OrderTypeLimit {
			return nil, payload, &ValidationError{Reason: "invalid order type"}
		}
	}

	var price decimal.Decimal
	if orderType == models.OrderTypeLimit {
		p, err := decimal.NewFromString(payload["price"])
		if err != nil || !p.IsPositive() {
			return nil, payload, &ValidationError{Reason: "limit order requires positive price"}
		}
		price = p
	}

	return &models.OrderIntent{
		ProductID: productID,
		Side:      side,
		RawSide:   rawSide,
		Size:      size,
		Type:      orderType,
		Price:     price,
	}, payload, nil
}
