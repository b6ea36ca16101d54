// Package events delivers committed order events to the outside world.
package events

import (
	"context"
	"errors"

	"canteen/internal/domain/model"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, ev model.OrderEvent) error
}

// LogPublisher only logs. It is the fallback when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev model.OrderEvent) error {
	p.log.Info("order event",
		zap.String("type", string(ev.Type)),
		zap.String("order_id", ev.OrderID),
		zap.String("user_id", ev.UserID),
		zap.String("status", string(ev.Order.Status)),
		zap.String("payment_status", string(ev.Order.PaymentStatus)),
		zap.Int64("version", ev.Order.Version),
	)
	return nil
}

// Multi hands each event to every publisher. One failing sink does not stop the rest.
type Multi struct {
	publishers []Publisher
	log        *zap.Logger
}

func NewMulti(log *zap.Logger, publishers ...Publisher) *Multi {
	return &Multi{publishers: publishers, log: log}
}

func (m *Multi) Add(p Publisher) {
	m.publishers = append(m.publishers, p)
}

func (m *Multi) Publish(ctx context.Context, ev model.OrderEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			m.log.Warn("publish order event failed",
				zap.String("type", string(ev.Type)),
				zap.String("order_id", ev.OrderID),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
