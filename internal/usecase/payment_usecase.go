package usecase

import (
	"context"
	"strings"
	"time"

	"canteen/internal/domain/model"
	"canteen/internal/payment"

	"go.uber.org/zap"
)

const (
	PaymentSucceededMessage = "Payment processed successfully"
	PaymentFailedMessage    = "Payment failed. Please try again."
)

// PaymentLedger is what the payment flow needs from the order ledger.
type PaymentLedger interface {
	GetOrder(ctx context.Context, uc model.UserContext, orderID string) (model.Order, error)
	ApplyPayment(ctx context.Context, uc model.UserContext, orderID string, method model.PaymentMethod, transactionID string) (model.Order, error)
	RecordPaymentDeclined(ctx context.Context, uc model.UserContext, orderID string, method model.PaymentMethod) error
}

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type PaymentResult struct {
	Success       bool         `json:"success"`
	TransactionID string       `json:"transactionId,omitempty"`
	Message       string       `json:"message"`
	Order         *model.Order `json:"order,omitempty"`
}

type PaymentUsecase struct {
	ledger  PaymentLedger
	outcome payment.OutcomeSource
	delay   time.Duration
	sleep   Sleeper
	ids     IDGenerator
	log     *zap.Logger
}

func NewPaymentUsecase(
	ledger PaymentLedger,
	outcome payment.OutcomeSource,
	delay time.Duration,
	sleep Sleeper,
	ids IDGenerator,
	log *zap.Logger,
) *PaymentUsecase {
	if sleep == nil {
		sleep = SleepContext
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentUsecase{
		ledger:  ledger,
		outcome: outcome,
		delay:   delay,
		sleep:   sleep,
		ids:     ids,
		log:     log,
	}
}

// ProcessPayment simulates a gateway call. A decline leaves the order as it
// was and returns ErrPaymentDeclined; the caller may try again.
func (u *PaymentUsecase) ProcessPayment(ctx context.Context, uc model.UserContext, orderID string, method model.PaymentMethod) (PaymentResult, error) {
	if !uc.Authenticated() {
		return PaymentResult{}, ErrUnauthorized
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return PaymentResult{}, validationf("orderId is required")
	}
	if method != "" && !method.Valid() {
		return PaymentResult{}, validationf("invalid paymentMethod %q", method)
	}

	cur, err := u.ledger.GetOrder(ctx, uc, orderID)
	if err != nil {
		return PaymentResult{}, err
	}
	if cur.Status != model.OrderStatusPending || cur.PaymentStatus == model.PaymentStatusPaid {
		return PaymentResult{}, &TransitionError{
			Field:  "paymentStatus",
			From:   string(cur.PaymentStatus),
			To:     string(model.PaymentStatusPaid),
			Reason: "order is " + string(cur.Status),
		}
	}
	if method == "" {
		method = cur.PaymentMethod
	}

	//決済ゲートウェイの待ち時間
	if err := u.sleep(ctx, u.delay); err != nil {
		return PaymentResult{}, err
	}

	if !u.outcome.Approve() {
		u.log.Info("payment declined", zap.String("order_id", orderID), zap.String("method", string(method)))
		if err := u.ledger.RecordPaymentDeclined(ctx, uc, orderID, method); err != nil {
			u.log.Warn("record declined payment", zap.String("order_id", orderID), zap.Error(err))
		}
		return PaymentResult{Success: false, Message: PaymentFailedMessage}, ErrPaymentDeclined
	}

	txnID := "txn_" + u.ids.NewID()
	updated, err := u.ledger.ApplyPayment(ctx, uc, orderID, method, txnID)
	if err != nil {
		u.log.Warn("approved payment not applied",
			zap.String("order_id", orderID),
			zap.String("transaction_id", txnID),
			zap.Error(err),
		)
		return PaymentResult{}, err
	}

	u.log.Info("payment succeeded",
		zap.String("order_id", orderID),
		zap.String("transaction_id", txnID),
		zap.String("method", string(method)),
	)
	return PaymentResult{
		Success:       true,
		TransactionID: txnID,
		Message:       PaymentSucceededMessage,
		Order:         &updated,
	}, nil
}
