package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"canteen/internal/domain/model"
	"canteen/internal/domain/money"
	"canteen/internal/infra/lock"
	"canteen/internal/infra/memory"
	"canteen/internal/payment"

	"github.com/stretchr/testify/suite"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

// 呼ばれるたびに1秒進む
func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type seqIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

type recordingEvents struct {
	mu  sync.Mutex
	got []model.OrderEvent
}

func (r *recordingEvents) Publish(_ context.Context, ev model.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return nil
}

func (r *recordingEvents) types() []model.OrderEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.OrderEventType, 0, len(r.got))
	for _, ev := range r.got {
		out = append(out, ev.Type)
	}
	return out
}

var (
	customer = model.UserContext{UserID: "customer-1", Role: model.RoleCustomer}
	stranger = model.UserContext{UserID: "customer-2", Role: model.RoleCustomer}
	merchant = model.UserContext{UserID: "merchant-1", Role: model.RoleMerchant}
)

type LedgerSuite struct {
	suite.Suite
	ctx         context.Context
	store       *memory.Store
	events      *recordingEvents
	ledger      *OrderLedger
	fulfillment *FulfillmentUsecase
	payments    *PaymentUsecase
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.store.Seed(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))
	s.events = &recordingEvents{}

	clock := &stepClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s.ledger = NewOrderLedger(s.store, s.store.Orders(), s.store.AuditLogs(), lock.NewKeyedMutex(), s.events, &seqIDs{prefix: "order"}, clock, nil)
	s.fulfillment = NewFulfillmentUsecase(s.ledger)
	s.payments = NewPaymentUsecase(s.ledger, payment.FixedOutcome(true), time.Second, func(context.Context, time.Duration) error { return nil }, &seqIDs{prefix: "t"}, nil)
}

// 排骨x2 + 蒸蛋羹x1 = 44.00
func (s *LedgerSuite) sampleLines() []model.OrderLine {
	return []model.OrderLine{
		{ID: "1", Name: "红烧排骨", Price: money.FromMinor(1800), Quantity: 2},
		{ID: "2", Name: "嫩滑蒸蛋羹", Price: money.FromMinor(800), Quantity: 1},
	}
}

func (s *LedgerSuite) createOrder() model.Order {
	o, err := s.ledger.CreateOrder(s.ctx, customer, CreateOrderInput{
		AddressID:     "addr-1",
		Lines:         s.sampleLines(),
		PaymentMethod: model.PaymentMethodWechat,
	})
	s.Require().NoError(err)
	return o
}

func (s *LedgerSuite) stock(id string) int64 {
	f, err := s.store.FoodItems().FindByID(s.ctx, id)
	s.Require().NoError(err)
	return f.Stock
}

func (s *LedgerSuite) TestCreateOrder_PersistsPendingWithExactTotal() {
	total := money.FromMinor(4400)
	o, err := s.ledger.CreateOrder(s.ctx, customer, CreateOrderInput{
		UserID:        "customer-1",
		AddressID:     "addr-1",
		Lines:         s.sampleLines(),
		PaymentMethod: model.PaymentMethodWechat,
		TotalAmount:   &total,
		Note:          " 少放盐 ",
	})
	s.Require().NoError(err)

	s.Equal("44.00", o.TotalAmount.String())
	s.Equal(model.OrderStatusPending, o.Status)
	s.Equal(model.PaymentStatusPending, o.PaymentStatus)
	s.Equal(o.CreatedAt, o.UpdatedAt)
	s.Equal(int64(1), o.Version)
	s.Equal("少放盐", o.Note)

	stored, err := s.store.Orders().FindByID(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(o.TotalAmount, stored.TotalAmount)
	s.Len(stored.Items, 2)

	s.Equal(int64(48), s.stock("1"))
	s.Equal(int64(29), s.stock("2"))
	s.Equal([]model.OrderEventType{model.OrderEventCreated}, s.events.types())

	history, err := s.ledger.OrderHistory(s.ctx, customer, o.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(model.AuditActionOrderCreated, history[0].Action)
}

func (s *LedgerSuite) TestCreateOrder_ValidationPersistsNothing() {
	wrong := money.FromMinor(4000)
	cases := map[string]CreateOrderInput{
		"empty lines":    {AddressID: "addr-1", PaymentMethod: model.PaymentMethodWechat},
		"zero quantity":  {AddressID: "addr-1", PaymentMethod: model.PaymentMethodWechat, Lines: []model.OrderLine{{ID: "1", Price: 1800, Quantity: 0}}},
		"duplicate line": {AddressID: "addr-1", PaymentMethod: model.PaymentMethodWechat, Lines: []model.OrderLine{{ID: "1", Price: 1800, Quantity: 1}, {ID: "1", Price: 1800, Quantity: 1}}},
		"bad method":     {AddressID: "addr-1", PaymentMethod: "cash", Lines: s.sampleLines()},
		"total mismatch": {AddressID: "addr-1", PaymentMethod: model.PaymentMethodWechat, Lines: s.sampleLines(), TotalAmount: &wrong},
		"out of stock":   {AddressID: "addr-1", PaymentMethod: model.PaymentMethodWechat, Lines: []model.OrderLine{{ID: "1", Price: 1800, Quantity: 2}, {ID: "7", Price: 300, Quantity: 16}}},
		"total overflow": {AddressID: "addr-1", PaymentMethod: model.PaymentMethodWechat, Lines: []model.OrderLine{{ID: "1", Price: math.MaxInt64, Quantity: 2}}},
		"quantity cap":   {AddressID: "addr-1", PaymentMethod: model.PaymentMethodWechat, Lines: []model.OrderLine{{ID: "1", Price: 1800, Quantity: model.MaxLineQuantity + 1}}},
		"price mismatch": {AddressID: "addr-1", PaymentMethod: model.PaymentMethodWechat, Lines: []model.OrderLine{{ID: "1", Price: 1, Quantity: 2}}},
	}

	for name, in := range cases {
		_, err := s.ledger.CreateOrder(s.ctx, customer, in)
		s.ErrorIs(err, ErrValidation, name)
	}

	orders, total, err := s.ledger.ListOrders(s.ctx, merchant, OrderQuery{})
	s.Require().NoError(err)
	s.Empty(orders)
	s.Equal(int64(0), total)

	//在庫不足のときも先に減らした分は戻っている
	s.Equal(int64(50), s.stock("1"))
	s.Empty(s.events.types())
}

func (s *LedgerSuite) TestCreateOrder_AddressRules() {
	//空ならデフォルト住所
	o, err := s.ledger.CreateOrder(s.ctx, customer, CreateOrderInput{Lines: s.sampleLines(), PaymentMethod: model.PaymentMethodAlipay})
	s.Require().NoError(err)
	s.Equal("addr-1", o.AddressID)

	_, err = s.ledger.CreateOrder(s.ctx, customer, CreateOrderInput{AddressID: "nope", Lines: s.sampleLines(), PaymentMethod: model.PaymentMethodAlipay})
	s.ErrorIs(err, ErrNotFound)

	//他人の住所
	_, err = s.ledger.CreateOrder(s.ctx, stranger, CreateOrderInput{AddressID: "addr-1", Lines: s.sampleLines(), PaymentMethod: model.PaymentMethodAlipay})
	s.ErrorIs(err, ErrNotFound)

	_, err = s.ledger.CreateOrder(s.ctx, customer, CreateOrderInput{UserID: "customer-2", AddressID: "addr-1", Lines: s.sampleLines(), PaymentMethod: model.PaymentMethodAlipay})
	s.ErrorIs(err, ErrForbidden)

	_, err = s.ledger.CreateOrder(s.ctx, model.UserContext{}, CreateOrderInput{Lines: s.sampleLines(), PaymentMethod: model.PaymentMethodAlipay})
	s.ErrorIs(err, ErrUnauthorized)
}

func (s *LedgerSuite) TestCreateOrder_FillsSnapshotFromCatalog() {
	o, err := s.ledger.CreateOrder(s.ctx, customer, CreateOrderInput{
		AddressID:     "addr-1",
		Lines:         []model.OrderLine{{ID: "3", Price: money.FromMinor(600), Quantity: 1}},
		PaymentMethod: model.PaymentMethodWechat,
	})
	s.Require().NoError(err)
	s.Equal("紫菜蛋花汤", o.Items[0].Name)
	s.NotEmpty(o.Items[0].Image)

	_, err = s.ledger.CreateOrder(s.ctx, customer, CreateOrderInput{
		AddressID:     "addr-1",
		Lines:         []model.OrderLine{{ID: "99", Price: money.FromMinor(600), Quantity: 1}},
		PaymentMethod: model.PaymentMethodWechat,
	})
	s.ErrorIs(err, ErrNotFound)
}

func (s *LedgerSuite) TestCreateOrder_IdempotencyKeyReturnsSameOrder() {
	in := CreateOrderInput{AddressID: "addr-1", Lines: s.sampleLines(), PaymentMethod: model.PaymentMethodWechat, IdempotencyKey: "checkout-1"}
	first, err := s.ledger.CreateOrder(s.ctx, customer, in)
	s.Require().NoError(err)
	second, err := s.ledger.CreateOrder(s.ctx, customer, in)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(int64(48), s.stock("1"))
	s.Len(s.events.types(), 1)
}

func (s *LedgerSuite) TestCreateOrder_IdempotencyKeyIsPerUser() {
	_, err := s.store.Addresses().Create(s.ctx, model.Address{ID: "addr-2", UserID: stranger.UserID, Name: "王妈妈", Phone: "13900000000", Address: "小班教室", IsDefault: true})
	s.Require().NoError(err)

	mine, err := s.ledger.CreateOrder(s.ctx, customer, CreateOrderInput{AddressID: "addr-1", Lines: s.sampleLines(), PaymentMethod: model.PaymentMethodWechat, IdempotencyKey: "k1"})
	s.Require().NoError(err)
	theirs, err := s.ledger.CreateOrder(s.ctx, stranger, CreateOrderInput{AddressID: "addr-2", Lines: s.sampleLines(), PaymentMethod: model.PaymentMethodWechat, IdempotencyKey: "k1"})
	s.Require().NoError(err)

	s.NotEqual(mine.ID, theirs.ID)
	s.Equal(stranger.UserID, theirs.UserID)
	s.Equal(int64(46), s.stock("1"))
}

func (s *LedgerSuite) TestLifecycle_PaymentToDelivery() {
	o := s.createOrder()

	res, err := s.payments.ProcessPayment(s.ctx, customer, o.ID, model.PaymentMethodWechat)
	s.Require().NoError(err)
	s.True(res.Success)
	s.Equal("txn_t-1", res.TransactionID)
	s.Equal(PaymentSucceededMessage, res.Message)
	s.Equal(model.OrderStatusPreparing, res.Order.Status)
	s.Equal(model.PaymentStatusPaid, res.Order.PaymentStatus)

	ready, err := s.fulfillment.MarkReady(s.ctx, merchant, o.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusDelivering, ready.Status)

	done, err := s.fulfillment.ConfirmDelivery(s.ctx, merchant, o.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusDelivered, done.Status)
	s.True(done.UpdatedAt.After(o.UpdatedAt))
	s.Equal(int64(4), done.Version)

	_, err = s.fulfillment.CancelOrder(s.ctx, merchant, o.ID)
	s.ErrorIs(err, ErrIllegalTransition)

	_, err = s.ledger.UpdateOrderStatus(s.ctx, merchant, o.ID, OrderPatch{Status: statusPtr(model.OrderStatusPending)})
	s.ErrorIs(err, ErrIllegalTransition)

	history, err := s.ledger.OrderHistory(s.ctx, merchant, o.ID)
	s.Require().NoError(err)
	actions := make([]model.AuditAction, 0, len(history))
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	s.Equal([]model.AuditAction{
		model.AuditActionOrderCreated,
		model.AuditActionPaymentSucceeded,
		model.AuditActionUpdateOrderStatus,
		model.AuditActionUpdateOrderStatus,
	}, actions)
	s.Contains(history[1].AfterJSON, `"transactionId":"txn_t-1"`)
}

func (s *LedgerSuite) TestPayment_DeclineThenRetry() {
	o := s.createOrder()
	s.payments.outcome = payment.NewScriptedOutcome(false, true)

	res, err := s.payments.ProcessPayment(s.ctx, customer, o.ID, model.PaymentMethodAlipay)
	s.ErrorIs(err, ErrPaymentDeclined)
	s.False(res.Success)
	s.Equal(PaymentFailedMessage, res.Message)

	after, err := s.ledger.GetOrder(s.ctx, customer, o.ID)
	s.Require().NoError(err)
	s.Equal(o.Status, after.Status)
	s.Equal(o.PaymentStatus, after.PaymentStatus)
	s.Equal(o.Version, after.Version)

	res, err = s.payments.ProcessPayment(s.ctx, customer, o.ID, model.PaymentMethodAlipay)
	s.Require().NoError(err)
	s.True(res.Success)
	s.Equal(model.OrderStatusPreparing, res.Order.Status)
	s.Equal(model.PaymentMethodAlipay, res.Order.PaymentMethod)

	//支払済みの注文に再決済はできない
	_, err = s.payments.ProcessPayment(s.ctx, customer, o.ID, model.PaymentMethodAlipay)
	s.ErrorIs(err, ErrIllegalTransition)
}

func (s *LedgerSuite) TestPayment_LateSuccessDoesNotReviveCancelledOrder() {
	o := s.createOrder()

	//待っている間に商家がキャンセルする
	s.payments.sleep = func(ctx context.Context, _ time.Duration) error {
		_, err := s.fulfillment.CancelOrder(ctx, merchant, o.ID)
		return err
	}

	_, err := s.payments.ProcessPayment(s.ctx, customer, o.ID, model.PaymentMethodWechat)
	s.ErrorIs(err, ErrIllegalTransition)

	got, err := s.ledger.GetOrder(s.ctx, merchant, o.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusCancelled, got.Status)
	s.Equal(model.PaymentStatusPending, got.PaymentStatus)
}

func (s *LedgerSuite) TestPayment_CancelledContextAbortsWithoutMutation() {
	o := s.createOrder()
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	s.payments.sleep = SleepContext

	_, err := s.payments.ProcessPayment(ctx, customer, o.ID, model.PaymentMethodWechat)
	s.ErrorIs(err, context.Canceled)

	got, err := s.ledger.GetOrder(s.ctx, customer, o.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), got.Version)
}

func (s *LedgerSuite) TestPayment_UnknownOrder() {
	_, err := s.payments.ProcessPayment(s.ctx, customer, "missing", model.PaymentMethodWechat)
	s.ErrorIs(err, ErrNotFound)

	o := s.createOrder()
	_, err = s.payments.ProcessPayment(s.ctx, stranger, o.ID, model.PaymentMethodWechat)
	s.ErrorIs(err, ErrNotFound)
}

func (s *LedgerSuite) TestFulfillment_IllegalStatesLeaveOrderUnchanged() {
	o := s.createOrder()

	_, err := s.fulfillment.ConfirmDelivery(s.ctx, merchant, o.ID)
	s.ErrorIs(err, ErrIllegalTransition)

	_, err = s.fulfillment.MarkReady(s.ctx, merchant, o.ID)
	s.ErrorIs(err, ErrIllegalTransition)

	//未決済のままでは受付できない
	_, err = s.fulfillment.ConfirmOrder(s.ctx, merchant, o.ID)
	s.ErrorIs(err, ErrIllegalTransition)

	_, err = s.fulfillment.ConfirmOrder(s.ctx, customer, o.ID)
	s.ErrorIs(err, ErrForbidden)

	got, err := s.ledger.GetOrder(s.ctx, merchant, o.ID)
	s.Require().NoError(err)
	s.Equal(o.Version, got.Version)
	s.Equal(model.OrderStatusPending, got.Status)
}

func (s *LedgerSuite) TestFulfillment_ConfirmAfterManualPayment() {
	o := s.createOrder()

	_, err := s.ledger.UpdateOrderStatus(s.ctx, merchant, o.ID, OrderPatch{PaymentStatus: payPtr(model.PaymentStatusPaid)})
	s.Require().NoError(err)

	got, err := s.fulfillment.ConfirmOrder(s.ctx, merchant, o.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusPreparing, got.Status)
}

func (s *LedgerSuite) TestCancel_RestocksAndIsTerminal() {
	o := s.createOrder()
	s.Equal(int64(48), s.stock("1"))

	got, err := s.fulfillment.CancelOrder(s.ctx, merchant, o.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusCancelled, got.Status)
	s.Equal(int64(50), s.stock("1"))
	s.Equal(int64(30), s.stock("2"))

	for _, op := range []func(context.Context, model.UserContext, string) (model.Order, error){
		s.fulfillment.ConfirmOrder, s.fulfillment.MarkReady, s.fulfillment.ConfirmDelivery, s.fulfillment.CancelOrder,
	} {
		_, err := op(s.ctx, merchant, o.ID)
		s.ErrorIs(err, ErrIllegalTransition)
	}
	_, err = s.ledger.UpdateOrderStatus(s.ctx, merchant, o.ID, OrderPatch{PaymentStatus: payPtr(model.PaymentStatusPaid)})
	s.ErrorIs(err, ErrIllegalTransition)

	s.Equal(int64(50), s.stock("1"))
}

func (s *LedgerSuite) TestUpdateOrderStatus_CustomerPermissions() {
	o := s.createOrder()

	_, err := s.ledger.UpdateOrderStatus(s.ctx, customer, o.ID, OrderPatch{Status: statusPtr(model.OrderStatusCancelled)})
	s.ErrorIs(err, ErrForbidden)

	got, err := s.ledger.UpdateOrderStatus(s.ctx, customer, o.ID, OrderPatch{PaymentMethod: methodPtr(model.PaymentMethodAlipay)})
	s.Require().NoError(err)
	s.Equal(model.PaymentMethodAlipay, got.PaymentMethod)
	s.Equal(int64(2), got.Version)

	_, err = s.ledger.UpdateOrderStatus(s.ctx, stranger, o.ID, OrderPatch{PaymentMethod: methodPtr(model.PaymentMethodWechat)})
	s.ErrorIs(err, ErrNotFound)

	_, err = s.ledger.UpdateOrderStatus(s.ctx, merchant, "missing", OrderPatch{Status: statusPtr(model.OrderStatusCancelled)})
	s.ErrorIs(err, ErrNotFound)

	_, err = s.ledger.UpdateOrderStatus(s.ctx, merchant, o.ID, OrderPatch{})
	s.ErrorIs(err, ErrValidation)
}

func (s *LedgerSuite) TestListOrders_Visibility() {
	mine := s.createOrder()
	_, err := s.store.Addresses().Create(s.ctx, model.Address{ID: "addr-2", UserID: "customer-2", Name: "李爸爸", Phone: "1", Address: "x", IsDefault: true})
	s.Require().NoError(err)
	_, err = s.ledger.CreateOrder(s.ctx, stranger, CreateOrderInput{Lines: s.sampleLines(), PaymentMethod: model.PaymentMethodWechat})
	s.Require().NoError(err)

	list, total, err := s.ledger.ListOrders(s.ctx, customer, OrderQuery{})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(mine.ID, list[0].ID)

	_, _, err = s.ledger.ListOrders(s.ctx, customer, OrderQuery{UserID: "customer-2"})
	s.ErrorIs(err, ErrForbidden)

	_, total, err = s.ledger.ListOrders(s.ctx, merchant, OrderQuery{})
	s.Require().NoError(err)
	s.Equal(int64(2), total)

	_, total, err = s.ledger.ListOrders(s.ctx, merchant, OrderQuery{UserID: "customer-2", Status: "pending"})
	s.Require().NoError(err)
	s.Equal(int64(1), total)

	_, _, err = s.ledger.ListOrders(s.ctx, merchant, OrderQuery{Status: "shipped"})
	s.ErrorIs(err, ErrValidation)

	_, err = s.ledger.OrderHistory(s.ctx, stranger, mine.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *LedgerSuite) TestConcurrentTransitions_OnlyOneWins() {
	o := s.createOrder()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, illegal := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.fulfillment.CancelOrder(s.ctx, merchant, o.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrIllegalTransition):
				illegal++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, wins)
	s.Equal(9, illegal)
	s.Equal(int64(50), s.stock("1"))
}
