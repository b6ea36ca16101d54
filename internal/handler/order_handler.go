package handler

import (
	"net/http"
	"strconv"

	"canteen/internal/domain/model"
	"canteen/internal/domain/money"
	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

const HeaderTotalCount = "X-Total-Count"

type OrderHandler struct {
	ledger *usecase.OrderLedger
}

func NewOrderHandler(ledger *usecase.OrderLedger) *OrderHandler {
	return &OrderHandler{ledger: ledger}
}

type OrderCreateRequest struct {
	UserID        string              `json:"userId"`
	AddressID     string              `json:"addressId"`
	TotalAmount   *money.Amount       `json:"totalAmount"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	Items         []model.OrderLine   `json:"items"`
	Note          string              `json:"note"`
}

// 指定したフィールドだけ変更する
type OrderUpdateRequest struct {
	Status        *model.OrderStatus   `json:"status"`
	PaymentStatus *model.PaymentStatus `json:"paymentStatus"`
	PaymentMethod *model.PaymentMethod `json:"paymentMethod"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, identity echo.MiddlewareFunc) {
	g := e.Group("/orders", identity)

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PUT("/:id", h.update)
}

func (h *OrderHandler) create(c echo.Context) error {
	uc, ok := getUserContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get("X-Idempotency-Key")

	out, err := h.ledger.CreateOrder(c.Request().Context(), uc, usecase.CreateOrderInput{
		UserID:         req.UserID,
		AddressID:      req.AddressID,
		Lines:          req.Items,
		PaymentMethod:  req.PaymentMethod,
		TotalAmount:    req.TotalAmount,
		Note:           req.Note,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	uc, ok := getUserContext(c)
	if !ok {
		return unauthorized(c)
	}

	q, err := parseOrderQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	//店側の全件表示フラグ。all=falseなら店側も自分の注文だけ
	if v := c.QueryParam("all"); v != "" {
		all, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid all")
		}
		if all && !uc.IsMerchant() {
			return writeError(c, usecase.ErrForbidden)
		}
		if !all && uc.IsMerchant() {
			if q.UserID != "" && q.UserID != uc.UserID {
				return badRequest(c, "all=false conflicts with userId")
			}
			q.UserID = uc.UserID
		}
	}

	out, total, err := h.ledger.ListOrders(c.Request().Context(), uc, q)
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(HeaderTotalCount, strconv.FormatInt(total, 10))
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	uc, ok := getUserContext(c)
	if !ok {
		return unauthorized(c)
	}

	o, err := h.ledger.GetOrder(c.Request().Context(), uc, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) update(c echo.Context) error {
	uc, ok := getUserContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req OrderUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	o, err := h.ledger.UpdateOrderStatus(c.Request().Context(), uc, c.Param("id"), usecase.OrderPatch{
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

type queryError string

func (e queryError) Error() string { return string(e) }

// page / limit / status / userId
func parseOrderQuery(c echo.Context) (usecase.OrderQuery, error) {
	q := usecase.OrderQuery{
		Status: c.QueryParam("status"),
		UserID: c.QueryParam("userId"),
	}
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return usecase.OrderQuery{}, queryError("invalid page")
		}
		q.Page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return usecase.OrderQuery{}, queryError("invalid limit")
		}
		q.Limit = l
	}
	return q, nil
}
