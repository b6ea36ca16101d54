package handler

import (
	"context"
	"net/http"
	"strconv"

	"canteen/internal/domain/model"
	"canteen/internal/middleware"
	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 店側の注文操作
type MerchantOrderHandler struct {
	ledger      *usecase.OrderLedger
	fulfillment *usecase.FulfillmentUsecase
}

func NewMerchantOrderHandler(ledger *usecase.OrderLedger, fulfillment *usecase.FulfillmentUsecase) *MerchantOrderHandler {
	return &MerchantOrderHandler{ledger: ledger, fulfillment: fulfillment}
}

func (h *MerchantOrderHandler) RegisterRoutes(e *echo.Echo, identity echo.MiddlewareFunc) {
	merchant := e.Group("/merchant")
	merchant.Use(identity)
	merchant.Use(middleware.MerchantRoleGuard())

	merchant.GET("/orders", h.list)
	merchant.POST("/orders/:id/confirm", h.action(h.fulfillment.ConfirmOrder))
	merchant.POST("/orders/:id/ready", h.action(h.fulfillment.MarkReady))
	merchant.POST("/orders/:id/deliver", h.action(h.fulfillment.ConfirmDelivery))
	merchant.POST("/orders/:id/cancel", h.action(h.fulfillment.CancelOrder))
	merchant.GET("/orders/:id/history", h.history)
}

func (h *MerchantOrderHandler) list(c echo.Context) error {
	uc, ok := getUserContext(c)
	if !ok {
		return unauthorized(c)
	}

	q, err := parseOrderQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	out, total, err := h.ledger.ListOrders(c.Request().Context(), uc, q)
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(HeaderTotalCount, strconv.FormatInt(total, 10))
	return c.JSON(http.StatusOK, out)
}

type fulfillmentFunc func(ctx context.Context, uc model.UserContext, orderID string) (model.Order, error)

func (h *MerchantOrderHandler) action(fn fulfillmentFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uc, ok := getUserContext(c)
		if !ok {
			return unauthorized(c)
		}

		o, err := fn(c.Request().Context(), uc, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, o)
	}
}

func (h *MerchantOrderHandler) history(c echo.Context) error {
	uc, ok := getUserContext(c)
	if !ok {
		return unauthorized(c)
	}

	logs, err := h.ledger.OrderHistory(c.Request().Context(), uc, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
