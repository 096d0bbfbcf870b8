package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/vodhub/backend/pkg/logger"
)

const (
	// Stream names
	StreamCollectProgress = "COLLECT_PROGRESS"
	StreamLinkReports     = "LINK_REPORTS"

	// Subject prefixes
	SubjectCollectProgress = "collect.progress"
	SubjectLinkReports     = "link.reports"
)

type Client struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func New(url string) (*Client, error) {
	log := logger.Log

	opts := []nats.Option{
		nats.Name("vodhub"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Warn().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Error().Err(err).Msg("nats disconnected")
			}
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	client := &Client{nc: nc, js: js}

	if err := client.ensureStreams(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure streams: %w", err)
	}

	log.Info().Str("url", url).Msg("nats connected")
	return client, nil
}

func (c *Client) ensureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        StreamCollectProgress,
			Subjects:    []string{SubjectCollectProgress},
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      1 * time.Hour,
			Storage:     jetstream.MemoryStorage,
			Replicas:    1,
			Discard:     jetstream.DiscardOld,
			MaxMsgs:     100000,
			Description: "Per-page progress snapshots from collection runs",
		},
		{
			Name:        StreamLinkReports,
			Subjects:    []string{SubjectLinkReports},
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      24 * time.Hour,
			Storage:     jetstream.FileStorage,
			Replicas:    1,
			Discard:     jetstream.DiscardOld,
			MaxMsgs:     100000,
			Description: "User-reported dead playback links for immediate validation",
		},
	}

	for _, cfg := range streams {
		_, err := c.js.CreateOrUpdateStream(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		logger.Log.Debug().Str("stream", cfg.Name).Msg("stream ensured")
	}

	return nil
}

func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

func (c *Client) Close() {
	c.nc.Close()
}
