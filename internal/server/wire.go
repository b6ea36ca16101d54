package server

import (
	"time"

	"canteen/internal/handler"
	"canteen/internal/infra/realtime"
	"canteen/internal/payment"
	repo "canteen/internal/repository"
	"canteen/internal/usecase"
	"canteen/internal/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// Deps はストレージ・ロック・配信の実装を外から差し込む
type Deps struct {
	Tx        repo.TransactionManager
	Orders    repo.OrderRepository
	FoodItems repo.FoodItemRepository
	Addresses repo.AddressRepository
	AuditLogs repo.AuditLogRepository

	Locker usecase.OrderLocker
	Events usecase.EventPublisher
	Hub    *realtime.Hub

	Outcome      payment.OutcomeSource
	PaymentDelay time.Duration
	Sleep        usecase.Sleeper

	IDs      usecase.IDGenerator
	Clock    usecase.Clock
	Identity echo.MiddlewareFunc
	Log      *zap.Logger
}

type App struct {
	Echo        *echo.Echo
	Ledger      *usecase.OrderLedger
	Payments    *usecase.PaymentUsecase
	Fulfillment *usecase.FulfillmentUsecase
	Hub         *realtime.Hub
}

// DI
func Wire(d Deps) *App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.IDs == nil {
		d.IDs = UUIDGenerator{}
	}
	if d.Clock == nil {
		d.Clock = RealClock{}
	}
	if d.Hub == nil {
		d.Hub = realtime.NewHub(d.Log)
	}
	if d.Events == nil {
		d.Events = d.Hub
	}

	//Usecase生成
	ledger := usecase.NewOrderLedger(d.Tx, d.Orders, d.AuditLogs, d.Locker, d.Events, d.IDs, d.Clock, d.Log)
	payments := usecase.NewPaymentUsecase(ledger, d.Outcome, d.PaymentDelay, d.Sleep, d.IDs, d.Log)
	fulfillment := usecase.NewFulfillmentUsecase(ledger)
	catalog := usecase.NewCatalogUsecase(d.FoodItems, d.Log)
	addresses := usecase.NewAddressUsecase(d.Addresses, validator.NewAddressValidator(), d.IDs, d.Log)

	//Handler生成
	h := Handlers{
		Catalog:  handler.NewCatalogHandler(catalog),
		Address:  handler.NewAddressHandler(addresses),
		Order:    handler.NewOrderHandler(ledger),
		Payment:  handler.NewPaymentHandler(payments),
		Merchant: handler.NewMerchantOrderHandler(ledger, fulfillment),
		Realtime: handler.NewRealtimeHandler(d.Hub),
	}

	return &App{
		Echo:        New(h, d.Identity, d.Log),
		Ledger:      ledger,
		Payments:    payments,
		Fulfillment: fulfillment,
		Hub:         d.Hub,
	}
}
