// Package broker publishes purchase lifecycle events so downstream
// services (notifications, analytics) can react to checkouts,
// cancellations and invoice reconciliations.
package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/liseren91/aistore-billing/internal/entity"
)

const sendTimeout = 5 * time.Second

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// SendPurchaseEvent is fire-and-forget: a broker outage must not fail
// the purchase operation itself, so errors are only logged.
func (p *Producer) SendPurchaseEvent(ctx context.Context, e entity.PurchaseEvent) {
	body, err := json.Marshal(e)
	if err != nil {
		slog.ErrorContext(ctx, "marshal purchase event", "error", err)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	err = p.writer.WriteMessages(sendCtx, kafka.Message{
		Key:   []byte(e.PurchaseID.String()),
		Value: body,
	})
	if err != nil {
		slog.ErrorContext(ctx, "send purchase event", "error", err, "purchase_id", e.PurchaseID)
		return
	}

	slog.DebugContext(ctx, "purchase event sent", "purchase_id", e.PurchaseID, "status", e.Status)
}

func (p *Producer) Close() {
	err := p.writer.Close()
	if err != nil {
		slog.Error("close kafka writer", "error", err)
	}
}

// NopProducer is used when Kafka is not configured.
type NopProducer struct{}

func (NopProducer) SendPurchaseEvent(context.Context, entity.PurchaseEvent) {}
