package worker

import (
	"context"
	"fmt"

	"github.com/vodhub/backend/internal/queue"
	"github.com/vodhub/backend/internal/validate"
	"github.com/vodhub/backend/pkg/logger"
	"github.com/vodhub/backend/pkg/nats"
)

// ReportProcessor consumes user-reported dead links and runs the validator's
// immediate single-record check for each.
type ReportProcessor struct {
	natsClient *nats.Client
	validator  *validate.Validator
}

func NewReportProcessor(natsClient *nats.Client, validator *validate.Validator) *ReportProcessor {
	return &ReportProcessor{
		natsClient: natsClient,
		validator:  validator,
	}
}

func (p *ReportProcessor) Run(ctx context.Context) error {
	log := logger.Log

	consumer, err := nats.NewConsumer(p.natsClient, nats.ConsumerConfig{
		Stream:   nats.StreamLinkReports,
		Consumer: "report-processor",
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	log.Info().Msg("report processor started")

	return consumer.Consume(ctx, func(ctx context.Context, msg *nats.Message) error {
		var report queue.LinkReport
		if err := msg.Unmarshal(&report); err != nil {
			log.Error().Err(err).Msg("failed to unmarshal link report")
			return err
		}

		stillValid, err := p.validator.CheckVideo(ctx, report.VideoID, report.PlayURL)
		if err != nil {
			// A bad video ID is terminal for the message, not retryable.
			log.Warn().Err(err).Str("video", report.VideoID).Msg("reported link check failed")
			return nil
		}

		log.Info().
			Str("video", report.VideoID).
			Str("url", report.PlayURL).
			Bool("still_valid", stillValid).
			Msg("reported link checked")

		return nil
	})
}
