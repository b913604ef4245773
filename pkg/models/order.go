package models

import (
	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderIntent is the validated, canonical form of an inbound trade signal.
// It is built once by the normalizer and never mutated afterwards; it lives
// only for the duration of a single request.
type OrderIntent struct {
	ProductID string
	Side      OrderSide
	RawSide   string // side exactly as received, before case normalization
	Size      decimal.Decimal
	Type      OrderType
	Price     decimal.Decimal // set only for limit orders
}

// DispatchResult is the uniform outcome of forwarding an order to the
// exchange. Simulated results never touched the network.
type DispatchResult struct {
	Simulated  bool
	StatusCode int
	Response   map[string]interface{}
}

// OK reports whether the exchange accepted the order. Simulated dispatches
// always count as accepted.
func (r *DispatchResult) OK() bool {
	return r.Simulated || (r.StatusCode >= 200 && r.StatusCode < 300)
}
