package usecase

import (
	"canteen/internal/domain/model"
)

// 注文ステータスの遷移表
var statusTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusPreparing, model.OrderStatusCancelled},
	model.OrderStatusPreparing:  {model.OrderStatusDelivering},
	model.OrderStatusDelivering: {model.OrderStatusDelivered},
}

// 決済ステータスの遷移表（paidは最終）
var paymentTransitions = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentStatusPending: {model.PaymentStatusPaid, model.PaymentStatusFailed},
	model.PaymentStatusFailed:  {model.PaymentStatusPaid},
}

func CanTransitionStatus(from, to model.OrderStatus) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func CanTransitionPayment(from, to model.PaymentStatus) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderPatch is a partial update. Nil fields are left as they are.
type OrderPatch struct {
	Status        *model.OrderStatus
	PaymentStatus *model.PaymentStatus
	PaymentMethod *model.PaymentMethod
}

func (p OrderPatch) IsEmpty() bool {
	return p.Status == nil && p.PaymentStatus == nil && p.PaymentMethod == nil
}

func (p OrderPatch) validate() error {
	if p.IsEmpty() {
		return validationf("empty patch")
	}
	if p.Status != nil && !p.Status.Valid() {
		return validationf("invalid status %q", *p.Status)
	}
	if p.PaymentStatus != nil && !p.PaymentStatus.Valid() {
		return validationf("invalid paymentStatus %q", *p.PaymentStatus)
	}
	if p.PaymentMethod != nil && !p.PaymentMethod.Valid() {
		return validationf("invalid paymentMethod %q", *p.PaymentMethod)
	}
	return nil
}

// applyPatch merges p into cur and rejects anything the transition tables do not allow.
// A field patched to its current value is treated as unchanged.
func applyPatch(cur model.Order, p OrderPatch) (model.Order, error) {
	if err := p.validate(); err != nil {
		return model.Order{}, err
	}

	//終端の注文はどのフィールドも変えられない
	if cur.Status.IsTerminal() {
		to := cur.Status
		if p.Status != nil {
			to = *p.Status
		}
		return model.Order{}, &TransitionError{
			Field:  "status",
			From:   string(cur.Status),
			To:     string(to),
			Reason: "order is " + string(cur.Status),
		}
	}

	next := cur.Clone()

	if p.Status != nil && *p.Status != cur.Status {
		if !CanTransitionStatus(cur.Status, *p.Status) {
			return model.Order{}, &TransitionError{Field: "status", From: string(cur.Status), To: string(*p.Status)}
		}
		next.Status = *p.Status
	}

	if p.PaymentStatus != nil && *p.PaymentStatus != cur.PaymentStatus {
		if !CanTransitionPayment(cur.PaymentStatus, *p.PaymentStatus) {
			return model.Order{}, &TransitionError{Field: "paymentStatus", From: string(cur.PaymentStatus), To: string(*p.PaymentStatus)}
		}
		next.PaymentStatus = *p.PaymentStatus
	}

	if p.PaymentMethod != nil && *p.PaymentMethod != cur.PaymentMethod {
		if cur.PaymentStatus == model.PaymentStatusPaid {
			return model.Order{}, &TransitionError{
				Field:  "paymentMethod",
				From:   string(cur.PaymentMethod),
				To:     string(*p.PaymentMethod),
				Reason: "already paid",
			}
		}
		next.PaymentMethod = *p.PaymentMethod
	}

	//調理以降に進むには決済済みが必要
	if next.Status != cur.Status && requiresPayment(next.Status) && next.PaymentStatus != model.PaymentStatusPaid {
		return model.Order{}, &TransitionError{
			Field:  "status",
			From:   string(cur.Status),
			To:     string(next.Status),
			Reason: "payment not completed",
		}
	}

	return next, nil
}

func requiresPayment(s model.OrderStatus) bool {
	switch s {
	case model.OrderStatusPreparing, model.OrderStatusDelivering, model.OrderStatusDelivered:
		return true
	}
	return false
}
