package events

import (
	"context"

	"github.com/gohanrohith/ed/internal/assignment"
)

// PublisherResultsSink adapts the event publisher to the engine's
// ResultsSink, turning the session lifecycle records into broker events.
type PublisherResultsSink struct {
	publisher EventPublisher
}

func NewPublisherResultsSink(publisher EventPublisher) *PublisherResultsSink {
	return &PublisherResultsSink{publisher: publisher}
}

func (s *PublisherResultsSink) RecordStart(ctx context.Context, start assignment.SessionStart) error {
	return s.publisher.Publish(ctx, NewEvent(EventSessionStarted, start))
}

func (s *PublisherResultsSink) RecordScore(ctx context.Context, summary assignment.ScoreSummary) error {
	return s.publisher.Publish(ctx, NewEvent(EventScoreRecorded, summary))
}

func (s *PublisherResultsSink) RecordProgress(ctx context.Context, report assignment.ProgressReport) error {
	return s.publisher.Publish(ctx, NewEvent(EventProgressRecorded, report))
}
