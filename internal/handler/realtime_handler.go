package handler

import (
	"net/http"

	"canteen/internal/infra/realtime"

	"github.com/labstack/echo/v4"
)

// 注文イベントのWebSocket配信とヘルスチェック
type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

func (h *RealtimeHandler) RegisterRoutes(e *echo.Echo, identity echo.MiddlewareFunc) {
	e.GET("/ws/orders", h.stream, identity)
	e.GET("/healthz", h.health)
}

func (h *RealtimeHandler) stream(c echo.Context) error {
	uc, ok := getUserContext(c)
	if !ok {
		return unauthorized(c)
	}
	//切断されるまで戻らない
	if err := h.hub.Serve(c.Response(), c.Request(), uc); err != nil {
		c.Logger().Warn(err)
	}
	return nil
}

func (h *RealtimeHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Clients: h.hub.Clients()})
}
