package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// OutboundPublisher publishes applied operations to NATS for downstream
// consumers (indexers, notification services). Operations are published
// after the core has applied them; persistence confirmation is not
// awaited, consumers needing durability read the operation log.
// Subjects follow the pattern: market.ledger.events.{op_type}
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan PublishableOp
}

// PublishableOp is an applied operation ready for outbound publishing.
type PublishableOp struct {
	Sequence       int64           `json:"sequence"`
	OpType         string          `json:"op_type"`
	IdempotencyKey string          `json:"idempotency_key"`
	Marketplace    *string         `json:"marketplace,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	StateHash      string          `json:"state_hash"`
	Timestamp      time.Time       `json:"timestamp"`
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan PublishableOp) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the outbound publisher loop. Publishes to
// market.ledger.events.{op_type}.{marketplace}
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, evt); err != nil {
				log.Printf("WARN: outbound publish failed seq=%d: %v", evt.Sequence, err)
				// Non-fatal: downstream consumers can query the operation log directly
			}
		}
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, evt PublishableOp) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal operation: %w", err)
	}

	subject := fmt.Sprintf("market.ledger.events.%s", evt.OpType)
	if evt.Marketplace != nil {
		subject = fmt.Sprintf("%s.%s", subject, *evt.Marketplace)
	}

	_, err = op.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the outbound events stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "MARKET_LEDGER_EVENTS",
		Subjects:  []string{"market.ledger.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	log.Println("INFO: ensured outbound stream MARKET_LEDGER_EVENTS")
	return nil
}
