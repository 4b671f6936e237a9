package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSubscriber subscribes to NATS JetStream subjects and feeds
// operations into the core via the opChan. JetStream is the
// fire-and-forget ingestion surface; synchronous submitters use the
// HTTP API instead.
type NATSSubscriber struct {
	js        jetstream.JetStream
	opChan    chan<- RawOp
	consumers []jetstream.ConsumeContext
}

// RawOp is the received-but-untyped operation from NATS, ready for the
// shell to parse into a typed event.Operation before sending to the core.
type RawOp struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	AckFunc   func() // Call to ACK the NATS message after successful processing
	NakFunc   func() // Call to NAK on failure (will be redelivered)
}

// SubjectConfig maps NATS subjects to operation types.
type SubjectConfig struct {
	Subject      string
	OpType       string
	ConsumerName string
	StreamName   string
}

// DefaultSubjects returns the standard subject configuration. Each
// operation type has its own subject so producers can be throttled
// independently.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "market.ops.marketplace.init.>", OpType: "MarketplaceInitialize", ConsumerName: "market-mkt-init", StreamName: "MARKET_OPS"},
		{Subject: "market.ops.deposits.>", OpType: "CurrencyDeposit", ConsumerName: "market-deposits", StreamName: "MARKET_OPS"},
		{Subject: "market.ops.assets.issue.>", OpType: "AssetIssue", ConsumerName: "market-asset-issue", StreamName: "MARKET_OPS"},
		{Subject: "market.ops.assets.mint.>", OpType: "AssetMint", ConsumerName: "market-asset-mint", StreamName: "MARKET_OPS"},
		{Subject: "market.ops.listings.create.>", OpType: "ListingCreate", ConsumerName: "market-list-create", StreamName: "MARKET_OPS"},
		{Subject: "market.ops.listings.cancel.>", OpType: "ListingCancel", ConsumerName: "market-list-cancel", StreamName: "MARKET_OPS"},
		{Subject: "market.ops.listings.purchase.>", OpType: "ListingPurchase", ConsumerName: "market-list-purchase", StreamName: "MARKET_OPS"},
	}
}

func NewNATSSubscriber(js jetstream.JetStream, opChan chan<- RawOp) *NATSSubscriber {
	return &NATSSubscriber{
		js:     js,
		opChan: opChan,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawOp{
				Subject:   msg.Subject(),
				Data:      msg.Data(),
				Timestamp: time.Now(),
				AckFunc:   func() { msg.Ack() },
				NakFunc:   func() { msg.Nak() },
			}

			select {
			case ns.opChan <- raw:
				// Successfully queued for processing
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
		log.Printf("INFO: subscribed to %s (consumer=%s)", cfg.Subject, cfg.ConsumerName)
	}

	return nil
}

// EnsureStreams creates the required JetStream streams if they don't
// exist. Streams use FileStorage, retention=Limits, max_age=72h.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      "MARKET_OPS",
			Subjects:  []string{"market.ops.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		log.Printf("INFO: ensured stream %s", cfg.Name)
	}

	return nil
}

// Stop gracefully stops all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, cc := range ns.consumers {
		cc.Stop()
	}
	log.Println("INFO: NATS subscribers stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
