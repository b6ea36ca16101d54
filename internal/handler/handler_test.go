package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"canteen/internal/domain/model"
	"canteen/internal/handler"
	"canteen/internal/infra/lock"
	"canteen/internal/infra/memory"
	"canteen/internal/middleware"
	"canteen/internal/payment"
	"canteen/internal/server"
	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnv struct {
	e       *echo.Echo
	outcome *payment.ScriptedOutcome
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	store := memory.NewStore()
	store.Seed(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))

	// 決済結果はテストごとにPushする
	outcome := payment.NewScriptedOutcome()
	app := server.Wire(server.Deps{
		Tx:        store,
		Orders:    store.Orders(),
		FoodItems: store.FoodItems(),
		Addresses: store.Addresses(),
		AuditLogs: store.AuditLogs(),
		Locker:    lock.NewKeyedMutex(),
		Outcome:   outcome,
		Sleep:     func(context.Context, time.Duration) error { return nil },
		Identity:  middleware.FixedIdentity("customer-1", "merchant-1"),
	})
	return &apiEnv{e: app.Echo, outcome: outcome}
}

type call struct {
	method  string
	path    string
	body    string
	headers map[string]string
}

func (a *apiEnv) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if c.body != "" {
		body = bytes.NewReader([]byte(c.body))
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func asMerchant() map[string]string { return map[string]string{middleware.HeaderRole: "merchant"} }

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body=%s", rec.Body.String())
	return v
}

const orderBody = `{
	"addressId": "addr-1",
	"totalAmount": "44.00",
	"paymentMethod": "wechat",
	"items": [
		{"id": "1", "name": "红烧排骨", "price": "18.00", "quantity": 2},
		{"id": "2", "name": "嫩滑蒸蛋羹", "price": 8, "quantity": 1}
	],
	"note": "少放盐"
}`

func placeOrder(t *testing.T, a *apiEnv) model.Order {
	t.Helper()
	rec := a.do(t, call{method: http.MethodPost, path: "/orders", body: orderBody})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Order](t, rec)
}

func TestCatalog(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, call{method: http.MethodGet, path: "/catalog"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.FoodItem](t, rec), 8)

	rec = a.do(t, call{method: http.MethodGet, path: "/catalog?category=fruit&available=true"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.FoodItem](t, rec), 2)

	rec = a.do(t, call{method: http.MethodGet, path: "/catalog?category=dessert"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/catalog?available=maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/catalog/1"})
	require.Equal(t, http.StatusOK, rec.Code)
	item := decode[model.FoodItem](t, rec)
	assert.Equal(t, "红烧排骨", item.Name)
	assert.Equal(t, "18.00", item.Price.String())

	rec = a.do(t, call{method: http.MethodGet, path: "/catalog/99"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[handler.ErrorResponse](t, rec).Message, "not found")
}

func TestAddresses(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, call{method: http.MethodGet, path: "/addresses"})
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Address](t, rec)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)

	// 他人の住所一覧は店側だけ
	rec = a.do(t, call{method: http.MethodGet, path: "/addresses?userId=customer-1", headers: map[string]string{middleware.HeaderUserID: "customer-2"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/addresses?userId=customer-1", headers: asMerchant()})
	assert.Equal(t, http.StatusOK, rec.Code)

	newcomer := map[string]string{middleware.HeaderUserID: "customer-3"}
	rec = a.do(t, call{method: http.MethodPost, path: "/addresses", body: `{"name":"李爸爸","phone":"13800000000","address":"大班教室"}`, headers: newcomer})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, decode[model.Address](t, rec).IsDefault)

	rec = a.do(t, call{method: http.MethodPost, path: "/addresses", body: `{"name":"李爸爸","phone":"","address":"x"}`, headers: newcomer})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder(t *testing.T) {
	a := newAPI(t)

	o := placeOrder(t, a)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Equal(t, model.PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, "44.00", o.TotalAmount.String())
	assert.Equal(t, "customer-1", o.UserID)
	assert.Equal(t, int64(1), o.Version)
	assert.True(t, strings.Contains(a.do(t, call{method: http.MethodGet, path: "/orders/" + o.ID}).Body.String(), `"totalAmount":"44.00"`))

	bad := strings.Replace(orderBody, `"44.00"`, `"40.00"`, 1)
	rec := a.do(t, call{method: http.MethodPost, path: "/orders", body: bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[handler.ErrorResponse](t, rec).Message, "does not match")

	rec = a.do(t, call{method: http.MethodPost, path: "/orders", body: `{"paymentMethod":"wechat","items":[]}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, call{method: http.MethodPost, path: "/orders", body: `{"items":`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid body", decode[handler.ErrorResponse](t, rec).Message)

	rec = a.do(t, call{method: http.MethodPost, path: "/orders", body: strings.Replace(orderBody, "addr-1", "addr-404", 1)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrder_IdempotencyKey(t *testing.T) {
	a := newAPI(t)
	key := map[string]string{"X-Idempotency-Key": "checkout-1"}

	first := a.do(t, call{method: http.MethodPost, path: "/orders", body: orderBody, headers: key})
	require.Equal(t, http.StatusCreated, first.Code)
	second := a.do(t, call{method: http.MethodPost, path: "/orders", body: orderBody, headers: key})
	require.Equal(t, http.StatusCreated, second.Code)

	assert.Equal(t, decode[model.Order](t, first).ID, decode[model.Order](t, second).ID)

	rec := a.do(t, call{method: http.MethodGet, path: "/orders"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Order](t, rec), 1)
	assert.Equal(t, "1", rec.Header().Get(handler.HeaderTotalCount))
}

func TestOrderVisibility(t *testing.T) {
	a := newAPI(t)
	o := placeOrder(t, a)
	other := map[string]string{middleware.HeaderUserID: "customer-2"}

	rec := a.do(t, call{method: http.MethodGet, path: "/orders/" + o.ID, headers: other})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/orders", headers: other})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Order](t, rec))

	rec = a.do(t, call{method: http.MethodGet, path: "/orders?all=true"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/orders?all=true&status=pending", headers: asMerchant()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Order](t, rec), 1)

	//all=falseなら店側も自分の注文だけ
	rec = a.do(t, call{method: http.MethodGet, path: "/orders?all=false", headers: asMerchant()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Order](t, rec))
	assert.Equal(t, "0", rec.Header().Get(handler.HeaderTotalCount))

	rec = a.do(t, call{method: http.MethodGet, path: "/orders?all=false&userId=customer-1", headers: asMerchant()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/orders?all=yes", headers: asMerchant()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/orders?status=shipped", headers: asMerchant()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: "/orders?page=x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateOrder(t *testing.T) {
	a := newAPI(t)
	o := placeOrder(t, a)
	path := "/orders/" + o.ID

	rec := a.do(t, call{method: http.MethodPut, path: path, body: `{"paymentMethod":"alipay"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[model.Order](t, rec)
	assert.Equal(t, model.PaymentMethodAlipay, got.PaymentMethod)
	assert.Equal(t, int64(2), got.Version)

	rec = a.do(t, call{method: http.MethodPut, path: path, body: `{"status":"cancelled"}`})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, call{method: http.MethodPut, path: path, body: `{}`, headers: asMerchant()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, call{method: http.MethodPut, path: path, body: `{"status":"delivered"}`, headers: asMerchant()})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[handler.ErrorResponse](t, rec).Message, "illegal transition")

	rec = a.do(t, call{method: http.MethodPut, path: "/orders/missing", body: `{"status":"cancelled"}`, headers: asMerchant()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentAndFulfillment(t *testing.T) {
	a := newAPI(t)
	o := placeOrder(t, a)
	pay := `{"orderId":"` + o.ID + `","paymentMethod":"wechat"}`

	a.outcome.Push(false)
	rec := a.do(t, call{method: http.MethodPost, path: "/payment/process", body: pay})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	declined := decode[usecase.PaymentResult](t, rec)
	assert.False(t, declined.Success)
	assert.Equal(t, usecase.PaymentFailedMessage, declined.Message)

	a.outcome.Push(true)
	rec = a.do(t, call{method: http.MethodPost, path: "/payment/process", body: pay})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[usecase.PaymentResult](t, rec)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.TransactionID, "txn_"))
	assert.Equal(t, usecase.PaymentSucceededMessage, res.Message)

	// 支払い済みは再決済できない
	rec = a.do(t, call{method: http.MethodPost, path: "/payment/process", body: pay})
	assert.Equal(t, http.StatusConflict, rec.Code)

	base := "/merchant/orders/" + o.ID
	rec = a.do(t, call{method: http.MethodPost, path: base + "/ready"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, call{method: http.MethodPost, path: base + "/confirm", headers: asMerchant()})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, call{method: http.MethodPost, path: base + "/ready", headers: asMerchant()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.OrderStatusDelivering, decode[model.Order](t, rec).Status)

	rec = a.do(t, call{method: http.MethodPost, path: base + "/deliver", headers: asMerchant()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.OrderStatusDelivered, decode[model.Order](t, rec).Status)

	rec = a.do(t, call{method: http.MethodPost, path: base + "/cancel", headers: asMerchant()})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, call{method: http.MethodGet, path: base + "/history", headers: asMerchant()})
	require.Equal(t, http.StatusOK, rec.Code)
	var actions []model.AuditAction
	for _, l := range decode[[]model.AuditLog](t, rec) {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []model.AuditAction{
		model.AuditActionOrderCreated,
		model.AuditActionPaymentDeclined,
		model.AuditActionPaymentSucceeded,
		model.AuditActionUpdateOrderStatus,
		model.AuditActionUpdateOrderStatus,
	}, actions)

	rec = a.do(t, call{method: http.MethodGet, path: "/merchant/orders?status=delivered", headers: asMerchant()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Order](t, rec), 1)
}

func TestPayment_Errors(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, call{method: http.MethodPost, path: "/payment/process", body: `{"orderId":"missing"}`})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, call{method: http.MethodPost, path: "/payment/process", body: `{"orderId":""}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	o := placeOrder(t, a)
	rec = a.do(t, call{method: http.MethodPost, path: "/payment/process", body: `{"orderId":"` + o.ID + `","paymentMethod":"cash"}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, call{method: http.MethodGet, path: "/healthz"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[handler.HealthResponse](t, rec).Status)
}
