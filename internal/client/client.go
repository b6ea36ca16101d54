// Package client talks to the canteen API the way the ordering app does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"canteen/internal/domain/model"
	"canteen/internal/domain/money"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrPaymentDeclined = errors.New("payment declined")
)

// APIError はAPIが返したエラー本文
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client

	// 認証ヘッダ（Authorization や X-Role）
	Headers http.Header
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Headers: http.Header{},
	}
}

// WithBearer は JWT で名乗る
func (c *Client) WithBearer(token string) *Client {
	cp := *c
	cp.Headers = c.Headers.Clone()
	cp.Headers.Set("Authorization", "Bearer "+token)
	return &cp
}

// WithHeader は固定IDモード用（X-Role / X-User-ID）
func (c *Client) WithHeader(key, value string) *Client {
	cp := *c
	cp.Headers = c.Headers.Clone()
	cp.Headers.Set(key, value)
	return &cp
}

type CreateOrderRequest struct {
	UserID        string              `json:"userId,omitempty"`
	AddressID     string              `json:"addressId,omitempty"`
	TotalAmount   *money.Amount       `json:"totalAmount,omitempty"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	Items         []model.OrderLine   `json:"items"`
	Note          string              `json:"note,omitempty"`
}

type PaymentResult struct {
	Success       bool         `json:"success"`
	TransactionID string       `json:"transactionId,omitempty"`
	Message       string       `json:"message"`
	Order         *model.Order `json:"order,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) Catalog(ctx context.Context, category string, availableOnly bool) ([]model.FoodItem, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if availableOnly {
		q.Set("available", "true")
	}
	path := "/catalog"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []model.FoodItem
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Addresses(ctx context.Context) ([]model.Address, error) {
	var out []model.Address
	if err := c.doJSON(ctx, http.MethodGet, "/addresses", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (model.Order, error) {
	h := http.Header{}
	if idempotencyKey != "" {
		h.Set("X-Idempotency-Key", idempotencyKey)
	}
	var out model.Order
	if err := c.doJSON(ctx, http.MethodPost, "/orders", h, req, &out); err != nil {
		return model.Order{}, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	var out model.Order
	if err := c.doJSON(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil, &out); err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// ProcessPayment は決済失敗のとき結果と ErrPaymentDeclined を返す
func (c *Client) ProcessPayment(ctx context.Context, orderID string, method model.PaymentMethod) (PaymentResult, error) {
	body := map[string]string{"orderId": orderID, "paymentMethod": string(method)}

	status, data, err := c.do(ctx, http.MethodPost, "/payment/process", nil, body)
	if err != nil {
		return PaymentResult{}, err
	}

	//決済失敗は 400 {success:false, message} で返ってくる
	if status == http.StatusBadRequest && isDeclineBody(data) {
		var out PaymentResult
		if err := json.Unmarshal(data, &out); err != nil {
			return PaymentResult{}, fmt.Errorf("decode payment result: %w", err)
		}
		return out, ErrPaymentDeclined
	}
	if status >= 300 {
		return PaymentResult{}, apiError(status, data)
	}

	var out PaymentResult
	if err := json.Unmarshal(data, &out); err != nil {
		return PaymentResult{}, fmt.Errorf("decode payment result: %w", err)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, headers http.Header, in, out any) error {
	status, data, err := c.do(ctx, method, path, headers, in)
	if err != nil {
		return err
	}
	if status >= 300 {
		return apiError(status, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, headers http.Header, in any) (int, []byte, error) {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range []http.Header{c.Headers, headers} {
		for k, vs := range h {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

func apiError(status int, data []byte) error {
	var eb errorBody
	_ = json.Unmarshal(data, &eb)
	if eb.Message == "" {
		eb.Message = http.StatusText(status)
	}
	return &APIError{Status: status, Message: eb.Message}
}

// {success:false, ...} の形か
func isDeclineBody(data []byte) bool {
	var res struct {
		Success *bool `json:"success"`
	}
	return json.Unmarshal(data, &res) == nil && res.Success != nil && !*res.Success
}
