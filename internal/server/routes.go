package server

import (
	"canteen/internal/handler"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Catalog  *handler.CatalogHandler
	Address  *handler.AddressHandler
	Order    *handler.OrderHandler
	Payment  *handler.PaymentHandler
	Merchant *handler.MerchantOrderHandler
	Realtime *handler.RealtimeHandler
}

// identity は AuthJWT か FixedIdentity
func RegisterRoutes(e *echo.Echo, h Handlers, identity echo.MiddlewareFunc) {
	h.Catalog.RegisterRoutes(e)
	h.Address.RegisterRoutes(e, identity)
	h.Order.RegisterRoutes(e, identity)
	h.Payment.RegisterRoutes(e, identity)
	h.Merchant.RegisterRoutes(e, identity)
	h.Realtime.RegisterRoutes(e, identity)
}
