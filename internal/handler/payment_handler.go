package handler

import (
	"errors"
	"net/http"

	"canteen/internal/domain/model"
	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type PaymentProcessRequest struct {
	OrderID       string              `json:"orderId"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, identity echo.MiddlewareFunc) {
	e.POST("/payment/process", h.process, identity)
}

func (h *PaymentHandler) process(c echo.Context) error {
	uc, ok := getUserContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req PaymentProcessRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	res, err := h.uc.ProcessPayment(c.Request().Context(), uc, req.OrderID, req.PaymentMethod)
	if errors.Is(err, usecase.ErrPaymentDeclined) {
		//失敗でも {success:false, message} の形で返す
		return c.JSON(http.StatusBadRequest, res)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
