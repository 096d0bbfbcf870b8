package queue

import (
	"context"

	"github.com/vodhub/backend/pkg/nats"
)

// Publisher narrows pkg/nats to the two subjects this service emits on.
type Publisher struct {
	pub *nats.Publisher
}

func NewPublisher(client *nats.Client) *Publisher {
	return &Publisher{pub: nats.NewPublisher(client)}
}

func (p *Publisher) PublishProgress(ctx context.Context, snapshot ProgressSnapshot) error {
	return p.pub.PublishCollectProgress(ctx, snapshot)
}

func (p *Publisher) PublishLinkReport(ctx context.Context, report LinkReport) error {
	return p.pub.PublishLinkReport(ctx, report)
}
