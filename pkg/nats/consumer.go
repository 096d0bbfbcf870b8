package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/vodhub/backend/pkg/logger"
)

type ConsumerConfig struct {
	Stream        string
	Consumer      string
	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int
}

type Consumer struct {
	consumer jetstream.Consumer
	config   ConsumerConfig
}

func NewConsumer(client *Client, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.AckWait == 0 {
		cfg.AckWait = time.Minute
	}
	if cfg.MaxDeliver == 0 {
		cfg.MaxDeliver = 3
	}
	if cfg.MaxAckPending == 0 {
		cfg.MaxAckPending = 100
	}

	consumer, err := client.js.CreateOrUpdateConsumer(context.Background(), cfg.Stream, jetstream.ConsumerConfig{
		Durable:       cfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		MaxAckPending: cfg.MaxAckPending,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", cfg.Consumer, err)
	}

	logger.Log.Debug().
		Str("stream", cfg.Stream).
		Str("consumer", cfg.Consumer).
		Msg("consumer created")

	return &Consumer{consumer: consumer, config: cfg}, nil
}

type Message struct {
	msg jetstream.Msg
}

func (m *Message) Unmarshal(v any) error {
	return json.Unmarshal(m.msg.Data(), v)
}

type HandlerFunc func(ctx context.Context, msg *Message) error

// Consume fetches and processes messages one at a time until the context is done.
// A handler error naks the message for redelivery; after MaxDeliver attempts the
// message is terminated.
func (c *Consumer) Consume(ctx context.Context, handler HandlerFunc) error {
	log := logger.Log

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := c.consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Err(err).Str("consumer", c.config.Consumer).Msg("fetch error")
			time.Sleep(time.Second)
			continue
		}

		for msg := range batch.Messages() {
			c.processMessage(ctx, msg, handler)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg jetstream.Msg, handler HandlerFunc) {
	log := logger.Log

	meta, err := msg.Metadata()
	if err != nil {
		msg.Term()
		return
	}

	if err := handler(ctx, &Message{msg: msg}); err != nil {
		if meta.NumDelivered >= uint64(c.config.MaxDeliver) {
			log.Error().
				Err(err).
				Str("consumer", c.config.Consumer).
				Uint64("attempts", meta.NumDelivered).
				Msg("max deliveries reached, terminating")
			msg.Term()
			return
		}

		log.Warn().
			Err(err).
			Str("consumer", c.config.Consumer).
			Uint64("attempt", meta.NumDelivered).
			Msg("processing failed, will retry")
		msg.Nak()
		return
	}

	msg.Ack()
}
