package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"canteen/internal/domain/model"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// 起動直後はブローカーがまだ上がっていないことがあるのでリトライする
func NewKafkaSyncProducer(brokers []string, attempts int, wait time.Duration, log *zap.Logger) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		var producer sarama.SyncProducer
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			log.Info("kafka producer initialized", zap.Strings("brokers", brokers))
			return producer, nil
		}
		log.Warn("waiting for kafka", zap.Int("attempt", i), zap.Error(err))
		if i < attempts {
			time.Sleep(wait)
		}
	}
	return nil, fmt.Errorf("kafka producer: %w", err)
}

// KafkaPublisher writes each event to one topic keyed by order id, so a
// consumer sees the events of an order in commit order.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, log *zap.Logger) *KafkaPublisher {
	if topic == "" {
		topic = "canteen.orders"
	}
	return &KafkaPublisher{producer: producer, topic: topic, log: log}
}

func (p *KafkaPublisher) Publish(_ context.Context, ev model.OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.OrderID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(ev.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka send %s: %w", ev.Type, err)
	}

	p.log.Debug("published order event to kafka",
		zap.String("type", string(ev.Type)),
		zap.String("order_id", ev.OrderID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
