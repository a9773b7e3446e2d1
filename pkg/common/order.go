package common

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

type OrderID = uuid.UUID

type OrderSide string
type OrderType string
type OrderStatus string
type TimeInForce string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeStop   OrderType = "stop"
)

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

const (
	TimeInForceGoodTillCancel    TimeInForce = "GTC"
	TimeInForceImmediateOrCancel TimeInForce = "IOC"
	TimeInForceGoodTillDate      TimeInForce = "GTD"
)

type Order struct {
	ID             OrderID     `json:"id" db:"id"`
	AccountID      string      `json:"account_id" db:"account_id"`
	Symbol         string      `json:"symbol" db:"symbol"`
	Side           OrderSide   `json:"side" db:"side"`
	Type           OrderType   `json:"type" db:"order_type"`
	Status         OrderStatus `json:"status" db:"status"`
	Quantity       fixed.Point `json:"quantity" db:"quantity"`
	LimitPrice     fixed.Point `json:"limit_price,omitempty" db:"limit_price"`
	StopPrice      fixed.Point `json:"stop_price,omitempty" db:"stop_price"`
	TimeInForce    TimeInForce `json:"time_in_force" db:"time_in_force"`
	ExpiresAt      time.Time   `json:"expires_at,omitempty" db:"expires_at"`
	FilledQuantity fixed.Point `json:"filled_quantity" db:"filled_quantity"`
	AvgFillPrice   fixed.Point `json:"avg_fill_price,omitempty" db:"avg_fill_price"`
	TakeProfit     fixed.Point `json:"take_profit,omitempty" db:"take_profit"`
	StopLoss       fixed.Point `json:"stop_loss,omitempty" db:"stop_loss"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	FilledAt       time.Time   `json:"filled_at,omitempty" db:"filled_at"`
}

// IsTerminal reports whether no further transition may be applied.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// Remaining is the unfilled part of the order quantity.
func (o Order) Remaining() fixed.Point {
	return o.Quantity.Sub(o.FilledQuantity)
}
