package model

import "time"

type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
)

// コミット後に外へ流す注文イベント
type OrderEvent struct {
	Type       OrderEventType `json:"type"`
	OrderID    string         `json:"orderId"`
	UserID     string         `json:"userId"`
	Order      Order          `json:"order"`
	OccurredAt time.Time      `json:"occurredAt"`
}
