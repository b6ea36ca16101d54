package model

import (
	"time"

	"canteen/internal/domain/money"

	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusDelivering, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 終端（以後どのフィールドも変えられない）
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodWechat PaymentMethod = "wechat"
	PaymentMethodAlipay PaymentMethod = "alipay"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodWechat || m == PaymentMethodAlipay
}

type Order struct {
	ID        string `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID    string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_orders_user_idem,priority:1" json:"userId"`
	AddressID string `gorm:"type:varchar(64);not null" json:"addressId"`

	//明細はjsonbの配列で持つ（カタログとはJOINしない）
	Items datatypes.JSONSlice[OrderLine] `gorm:"type:jsonb;not null" json:"items"`

	//作成時に確定し、以後変えない
	TotalAmount money.Amount `gorm:"not null" json:"totalAmount"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;index" json:"paymentStatus"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	Note          string        `gorm:"type:text" json:"note,omitempty"`

	// 楽観ロック用。更新のたびに+1
	Version int64 `gorm:"not null;default:1" json:"version"`

	//同じユーザー・同じキーなら同じ注文を返す
	IdempotencyKey *string `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idem,priority:2" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false" json:"updatedAt"`
}

// Linesは明細のコピーを返す
func (o Order) Lines() []OrderLine {
	out := make([]OrderLine, len(o.Items))
	copy(out, o.Items)
	return out
}

// Cloneは明細スライスを共有しないコピー
func (o Order) Clone() Order {
	c := o
	c.Items = datatypes.JSONSlice[OrderLine](o.Lines())
	if o.IdempotencyKey != nil {
		k := *o.IdempotencyKey
		c.IdempotencyKey = &k
	}
	return c
}
