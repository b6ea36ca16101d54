package usecase

import (
	"context"

	"canteen/internal/domain/model"
)

// 商家側の操作
type FulfillmentUsecase struct {
	ledger *OrderLedger
}

func NewFulfillmentUsecase(ledger *OrderLedger) *FulfillmentUsecase {
	return &FulfillmentUsecase{ledger: ledger}
}

// 受付（pending → preparing）。決済済みであること
func (u *FulfillmentUsecase) ConfirmOrder(ctx context.Context, uc model.UserContext, orderID string) (model.Order, error) {
	return u.move(ctx, uc, orderID, model.OrderStatusPending, model.OrderStatusPreparing)
}

// 調理完了（preparing → delivering）
func (u *FulfillmentUsecase) MarkReady(ctx context.Context, uc model.UserContext, orderID string) (model.Order, error) {
	return u.move(ctx, uc, orderID, model.OrderStatusPreparing, model.OrderStatusDelivering)
}

// 配達完了（delivering → delivered）
func (u *FulfillmentUsecase) ConfirmDelivery(ctx context.Context, uc model.UserContext, orderID string) (model.Order, error) {
	return u.move(ctx, uc, orderID, model.OrderStatusDelivering, model.OrderStatusDelivered)
}

// キャンセル（pendingのときだけ）
func (u *FulfillmentUsecase) CancelOrder(ctx context.Context, uc model.UserContext, orderID string) (model.Order, error) {
	return u.move(ctx, uc, orderID, model.OrderStatusPending, model.OrderStatusCancelled)
}

func (u *FulfillmentUsecase) move(ctx context.Context, uc model.UserContext, orderID string, from, to model.OrderStatus) (model.Order, error) {
	if !uc.Authenticated() {
		return model.Order{}, ErrUnauthorized
	}
	if !uc.IsMerchant() {
		return model.Order{}, ErrForbidden
	}
	if orderID == "" {
		return model.Order{}, validationf("order id is required")
	}
	return u.ledger.Transition(ctx, uc, orderID, from, to)
}
