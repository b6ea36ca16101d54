package client

import (
	"context"
	"errors"

	"canteen/internal/cart"
	"canteen/internal/domain/model"

	"github.com/google/uuid"
)

type CheckoutInput struct {
	Cart          *cart.Cart
	PaymentMethod model.PaymentMethod
	AddressID     string // 空ならデフォルト住所
	Note          string
}

type CheckoutResult struct {
	Order   model.Order
	Payment PaymentResult
}

// Checkout はカートから注文を作って決済する。
// 成功したらカートを空にする。決済失敗ならカートは残し、未払いの注文と ErrPaymentDeclined を返す
// （同じ注文で RetryPayment できる）。
func (c *Client) Checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	if in.Cart == nil || in.Cart.IsEmpty() {
		return CheckoutResult{}, ErrEmptyCart
	}

	total := in.Cart.TotalPrice()
	order, err := c.CreateOrder(ctx, CreateOrderRequest{
		AddressID:     in.AddressID,
		TotalAmount:   &total,
		PaymentMethod: in.PaymentMethod,
		Items:         in.Cart.OrderLines(),
		Note:          in.Note,
	}, uuid.NewString())
	if err != nil {
		return CheckoutResult{}, err
	}

	res, err := c.ProcessPayment(ctx, order.ID, in.PaymentMethod)
	if errors.Is(err, ErrPaymentDeclined) {
		return CheckoutResult{Order: order, Payment: res}, err
	}
	if err != nil {
		return CheckoutResult{Order: order}, err
	}

	in.Cart.Clear()
	if res.Order != nil {
		order = *res.Order
	}
	return CheckoutResult{Order: order, Payment: res}, nil
}

// RetryPayment は決済失敗した注文をもう一度払う。成功したらカートを空にする。
func (c *Client) RetryPayment(ctx context.Context, items *cart.Cart, order model.Order, method model.PaymentMethod) (CheckoutResult, error) {
	res, err := c.ProcessPayment(ctx, order.ID, method)
	if err != nil {
		return CheckoutResult{Order: order, Payment: res}, err
	}
	if items != nil {
		items.Clear()
	}
	if res.Order != nil {
		order = *res.Order
	}
	return CheckoutResult{Order: order, Payment: res}, nil
}
