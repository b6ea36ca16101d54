package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"canteen/internal/domain/model"
	"canteen/internal/domain/money"
	repo "canteen/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// 注文ごとの排他。返り値のfuncで解放する
type OrderLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev model.OrderEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.OrderEvent) error { return nil }

// OrderLedger is the only writer of orders. Every mutation runs under the
// per-order lock, inside a transaction, and is conditional on the version read.
type OrderLedger struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	audits repo.AuditLogRepository
	locker OrderLocker
	events EventPublisher
	ids    IDGenerator
	clock  Clock
	log    *zap.Logger
}

// DI
func NewOrderLedger(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	audits repo.AuditLogRepository,
	locker OrderLocker,
	events EventPublisher,
	ids IDGenerator,
	clock Clock,
	log *zap.Logger,
) *OrderLedger {
	if events == nil {
		events = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderLedger{
		tx:     tx,
		orders: orders,
		audits: audits,
		locker: locker,
		events: events,
		ids:    ids,
		clock:  clock,
		log:    log,
	}
}

type CreateOrderInput struct {
	UserID        string
	AddressID     string
	Lines         []model.OrderLine
	PaymentMethod model.PaymentMethod
	//指定があれば明細合計と一致しなければならない
	TotalAmount    *money.Amount
	Note           string
	IdempotencyKey string
}

func (l *OrderLedger) CreateOrder(ctx context.Context, uc model.UserContext, in CreateOrderInput) (model.Order, error) {
	if !uc.Authenticated() {
		return model.Order{}, ErrUnauthorized
	}
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		userID = uc.UserID
	}
	if userID != uc.UserID {
		return model.Order{}, ErrForbidden
	}

	if err := validateLines(in.Lines); err != nil {
		return model.Order{}, err
	}
	if !in.PaymentMethod.Valid() {
		return model.Order{}, validationf("invalid paymentMethod %q", in.PaymentMethod)
	}

	total, err := model.SumLines(in.Lines)
	if err != nil {
		return model.Order{}, validationf("items total is out of range")
	}
	if in.TotalAmount != nil && *in.TotalAmount != total {
		return model.Order{}, validationf("totalAmount %s does not match items total %s", in.TotalAmount.String(), total.String())
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return model.Order{}, validationf("invalid idempotency key")
	}

	var out model.Order
	created := false

	//注文処理はトランザクション
	err = l.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return internal(l.log, "find order by idempotency key", err)
			}
			if found {
				out = existing
				return nil
			}
		}

		addr, err := l.resolveAddress(ctx, r, userID, strings.TrimSpace(in.AddressID))
		if err != nil {
			return err
		}

		//在庫を確定時にチェックして減らす
		lines := make([]model.OrderLine, 0, len(in.Lines))
		for _, line := range in.Lines {
			item, err := r.FoodItems().FindByID(ctx, line.ID)
			if errors.Is(err, repo.ErrNotFound) {
				return notFoundf("food item %s", line.ID)
			}
			if err != nil {
				return internal(l.log, "find food item", err)
			}
			if !item.IsAvailable {
				return validationf("%s is not available", item.Name)
			}
			//価格はカタログと一致していること
			if line.Price != item.Price {
				return validationf("price of %s is %s, not %s", item.Name, item.Price.String(), line.Price.String())
			}

			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, line.ID, line.Quantity)
			if err != nil {
				return internal(l.log, "decrease stock", err)
			}
			if !ok {
				return validationf("insufficient stock for %s", item.Name)
			}

			//明細のスナップショットで欠けている表示用項目だけ補う
			if line.Name == "" {
				line.Name = item.Name
			}
			if line.Image == "" {
				line.Image = item.Image
			}
			lines = append(lines, line)
		}

		now := l.clock.Now()
		order := model.Order{
			ID:            l.ids.NewID(),
			UserID:        userID,
			AddressID:     addr.ID,
			Items:         datatypes.JSONSlice[model.OrderLine](lines),
			TotalAmount:   total,
			PaymentMethod: in.PaymentMethod,
			PaymentStatus: model.PaymentStatusPending,
			Status:        model.OrderStatusPending,
			Note:          strings.TrimSpace(in.Note),
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		if err := r.Orders().Create(ctx, order); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return ErrConflict
			}
			return internal(l.log, "create order", err)
		}

		if err := r.AuditLogs().Create(ctx, l.auditRow(uc, model.AuditActionOrderCreated, order.ID, nil, stateOf(order, ""), now)); err != nil {
			return internal(l.log, "create audit log", err)
		}

		out = order
		created = true
		return nil
	})

	//同じキーで同時に入った場合は勝った方の注文を返す
	if errors.Is(err, ErrConflict) && key != "" {
		existing, found, ferr := l.orders.FindByIdempotencyKey(ctx, userID, key)
		if ferr == nil && found {
			return existing, nil
		}
	}
	if err != nil {
		return model.Order{}, err
	}

	if created {
		l.log.Info("order created",
			zap.String("order_id", out.ID),
			zap.String("user_id", out.UserID),
			zap.String("total", out.TotalAmount.String()),
		)
		l.publish(ctx, model.OrderEventCreated, out)
	}
	return out, nil
}

func validateLines(lines []model.OrderLine) error {
	if len(lines) == 0 {
		return validationf("order has no items")
	}
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line.ID) == "" {
			return validationf("item id is required")
		}
		if line.Quantity <= 0 {
			return validationf("quantity of %s must be positive", line.ID)
		}
		if line.Quantity > model.MaxLineQuantity {
			return validationf("quantity of %s must be at most %d", line.ID, model.MaxLineQuantity)
		}
		if line.Price < 0 {
			return validationf("price of %s must not be negative", line.ID)
		}
		if _, dup := seen[line.ID]; dup {
			return validationf("duplicate item %s", line.ID)
		}
		seen[line.ID] = struct{}{}
	}
	return nil
}

// 空ならデフォルト住所
func (l *OrderLedger) resolveAddress(ctx context.Context, r repo.TxRepos, userID, addressID string) (model.Address, error) {
	if addressID == "" {
		list, err := r.Addresses().ListByUserID(ctx, userID)
		if err != nil {
			return model.Address{}, internal(l.log, "list addresses", err)
		}
		if len(list) == 0 {
			return model.Address{}, notFoundf("no address for user %s", userID)
		}
		for _, a := range list {
			if a.IsDefault {
				return a, nil
			}
		}
		return list[0], nil
	}

	addr, err := r.Addresses().FindByID(ctx, addressID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Address{}, notFoundf("address %s", addressID)
	}
	if err != nil {
		return model.Address{}, internal(l.log, "find address", err)
	}
	//他人の住所は存在しない扱い
	if addr.UserID != userID {
		return model.Address{}, notFoundf("address %s", addressID)
	}
	return addr, nil
}

// UpdateOrderStatus applies a partial patch. Merchants may patch any order;
// customers may only switch the payment method of their own unpaid pending order.
func (l *OrderLedger) UpdateOrderStatus(ctx context.Context, uc model.UserContext, orderID string, patch OrderPatch) (model.Order, error) {
	if !uc.Authenticated() {
		return model.Order{}, ErrUnauthorized
	}
	if strings.TrimSpace(orderID) == "" {
		return model.Order{}, validationf("order id is required")
	}
	if err := patch.validate(); err != nil {
		return model.Order{}, err
	}

	var check func(model.Order) error
	if !uc.IsMerchant() {
		if patch.Status != nil || patch.PaymentStatus != nil {
			return model.Order{}, ErrForbidden
		}
		check = func(cur model.Order) error {
			if cur.Status != model.OrderStatusPending {
				return ErrForbidden
			}
			return nil
		}
	}

	return l.update(ctx, uc, orderID, patch, model.AuditActionUpdateOrderStatus, "", check)
}

// Transition moves status from one state to another and fails without
// touching the order when the current status is not from.
func (l *OrderLedger) Transition(ctx context.Context, uc model.UserContext, orderID string, from, to model.OrderStatus) (model.Order, error) {
	if !uc.Authenticated() {
		return model.Order{}, ErrUnauthorized
	}
	patch := OrderPatch{Status: &to}
	return l.update(ctx, uc, orderID, patch, model.AuditActionUpdateOrderStatus, "", func(cur model.Order) error {
		if cur.Status != from {
			return &TransitionError{
				Field:  "status",
				From:   string(cur.Status),
				To:     string(to),
				Reason: "expected " + string(from),
			}
		}
		return nil
	})
}

// ApplyPayment records an approved payment. The order must still be pending
// and unpaid at this point, so a late approval never revives a cancelled order.
func (l *OrderLedger) ApplyPayment(ctx context.Context, uc model.UserContext, orderID string, method model.PaymentMethod, transactionID string) (model.Order, error) {
	if !uc.Authenticated() {
		return model.Order{}, ErrUnauthorized
	}
	paid := model.PaymentStatusPaid
	preparing := model.OrderStatusPreparing
	patch := OrderPatch{PaymentStatus: &paid, Status: &preparing}
	if method != "" {
		patch.PaymentMethod = &method
	}

	return l.update(ctx, uc, orderID, patch, model.AuditActionPaymentSucceeded, transactionID, func(cur model.Order) error {
		if cur.Status != model.OrderStatusPending || cur.PaymentStatus == model.PaymentStatusPaid {
			return &TransitionError{
				Field:  "paymentStatus",
				From:   string(cur.PaymentStatus),
				To:     string(paid),
				Reason: "order is " + string(cur.Status),
			}
		}
		return nil
	})
}

// RecordPaymentDeclined adds a history row only; the order itself is not changed.
func (l *OrderLedger) RecordPaymentDeclined(ctx context.Context, uc model.UserContext, orderID string, method model.PaymentMethod) error {
	cur, err := l.GetOrder(ctx, uc, orderID)
	if err != nil {
		return err
	}
	state := stateOf(cur, "")
	if method != "" {
		state.PaymentMethod = method
	}
	if err := l.audits.Create(ctx, l.auditRow(uc, model.AuditActionPaymentDeclined, orderID, nil, state, l.clock.Now())); err != nil {
		return internal(l.log, "create audit log", err)
	}
	return nil
}

func (l *OrderLedger) update(
	ctx context.Context,
	uc model.UserContext,
	orderID string,
	patch OrderPatch,
	action model.AuditAction,
	transactionID string,
	check func(model.Order) error,
) (model.Order, error) {
	unlock, err := l.locker.Lock(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	defer unlock()

	var out model.Order
	err = l.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundf("order %s", orderID)
		}
		if err != nil {
			return internal(l.log, "find order", err)
		}
		if !canSee(uc, cur) {
			return notFoundf("order %s", orderID)
		}

		if check != nil {
			if err := check(cur); err != nil {
				return err
			}
		}

		next, err := applyPatch(cur, patch)
		if err != nil {
			return err
		}
		now := l.clock.Now()
		next.Version = cur.Version + 1
		next.UpdatedAt = now

		if err := r.Orders().Update(ctx, next, cur.Version); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return ErrConflict
			}
			if errors.Is(err, repo.ErrNotFound) {
				return notFoundf("order %s", orderID)
			}
			return internal(l.log, "update order", err)
		}

		// キャンセルなら在庫戻し
		if next.Status == model.OrderStatusCancelled && cur.Status != model.OrderStatusCancelled {
			for _, line := range next.Items {
				err := r.Inventory().IncreaseStock(ctx, line.ID, line.Quantity)
				if errors.Is(err, repo.ErrNotFound) {
					//カタログから消えた料理は戻し先がない
					l.log.Warn("restock skipped", zap.String("order_id", orderID), zap.String("food_item_id", line.ID))
					continue
				}
				if err != nil {
					return internal(l.log, "increase stock", err)
				}
			}
		}

		before := stateOf(cur, "")
		if err := r.AuditLogs().Create(ctx, l.auditRow(uc, action, orderID, &before, stateOf(next, transactionID), now)); err != nil {
			return internal(l.log, "create audit log", err)
		}

		out = next
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	l.log.Info("order updated",
		zap.String("order_id", out.ID),
		zap.String("actor", uc.UserID),
		zap.String("action", string(action)),
		zap.String("status", string(out.Status)),
		zap.String("payment_status", string(out.PaymentStatus)),
		zap.Int64("version", out.Version),
	)
	l.publish(ctx, model.OrderEventStatusChanged, out)
	return out, nil
}

func (l *OrderLedger) GetOrder(ctx context.Context, uc model.UserContext, orderID string) (model.Order, error) {
	if !uc.Authenticated() {
		return model.Order{}, ErrUnauthorized
	}
	if strings.TrimSpace(orderID) == "" {
		return model.Order{}, validationf("order id is required")
	}

	o, err := l.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, notFoundf("order %s", orderID)
	}
	if err != nil {
		return model.Order{}, internal(l.log, "find order", err)
	}
	//他人の注文は「存在しない扱い」にする
	if !canSee(uc, o) {
		return model.Order{}, notFoundf("order %s", orderID)
	}
	return o, nil
}

type OrderQuery struct {
	Status string
	UserID string
	Page   int
	Limit  int
}

// ListOrders pins customers to their own orders; merchants see everything.
func (l *OrderLedger) ListOrders(ctx context.Context, uc model.UserContext, q OrderQuery) ([]model.Order, int64, error) {
	if !uc.Authenticated() {
		return []model.Order{}, 0, ErrUnauthorized
	}
	status := strings.TrimSpace(q.Status)
	if status != "" && !model.OrderStatus(status).Valid() {
		return []model.Order{}, 0, validationf("invalid status %q", status)
	}
	if q.Page < 0 || q.Limit < 0 || q.Limit > 100 {
		return []model.Order{}, 0, validationf("invalid paging")
	}

	f := repo.OrderListFilter{Page: q.Page, Limit: q.Limit, Status: status}
	userID := strings.TrimSpace(q.UserID)
	if uc.IsMerchant() {
		if userID != "" {
			f.UserID = &userID
		}
	} else {
		if userID != "" && userID != uc.UserID {
			return []model.Order{}, 0, ErrForbidden
		}
		self := uc.UserID
		f.UserID = &self
	}

	orders, total, err := l.orders.List(ctx, f)
	if err != nil {
		return []model.Order{}, 0, internal(l.log, "list orders", err)
	}
	return orders, total, nil
}

// OrderHistory returns the audit rows of one order, oldest first.
func (l *OrderLedger) OrderHistory(ctx context.Context, uc model.UserContext, orderID string) ([]model.AuditLog, error) {
	if _, err := l.GetOrder(ctx, uc, orderID); err != nil {
		return []model.AuditLog{}, err
	}

	logs, err := l.audits.ListByOrder(ctx, repo.OrderHistoryQuery{OrderID: orderID, Limit: 200})
	if err != nil {
		return []model.AuditLog{}, internal(l.log, "list audit logs", err)
	}
	return logs, nil
}

func canSee(uc model.UserContext, o model.Order) bool {
	return uc.IsMerchant() || o.UserID == uc.UserID
}

// 監査ログに残す注文の状態
type orderState struct {
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	TotalAmount   money.Amount        `json:"totalAmount"`
	Version       int64               `json:"version"`
	TransactionID string              `json:"transactionId,omitempty"`
}

func stateOf(o model.Order, transactionID string) orderState {
	return orderState{
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		TotalAmount:   o.TotalAmount,
		Version:       o.Version,
		TransactionID: transactionID,
	}
}

func (l *OrderLedger) auditRow(uc model.UserContext, action model.AuditAction, orderID string, before *orderState, after orderState, now time.Time) model.AuditLog {
	row := model.AuditLog{
		ActorUserID:  uc.UserID,
		ActorRole:    uc.Role,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		AfterJSON:    mustJSON(after),
		CreatedAt:    now,
	}
	if before != nil {
		row.BeforeJSON = mustJSON(*before)
	}
	return row
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// コミット後に流す。失敗しても注文は確定済みなのでログだけ
func (l *OrderLedger) publish(ctx context.Context, typ model.OrderEventType, o model.Order) {
	ev := model.OrderEvent{
		Type:       typ,
		OrderID:    o.ID,
		UserID:     o.UserID,
		Order:      o,
		OccurredAt: l.clock.Now(),
	}
	if err := l.events.Publish(ctx, ev); err != nil {
		l.log.Warn("publish order event failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}
