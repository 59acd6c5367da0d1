// Package pipeline runs the hazard change feed through the session notifier
// and emits notification intents to the sink.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/civisafe/hazardwatch/internal/domain"
	"github.com/civisafe/hazardwatch/internal/notify"
	"github.com/civisafe/hazardwatch/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the change feed.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Evaluator decides whether a feed event becomes a notification intent.
type Evaluator interface {
	Evaluate(ctx context.Context, ev domain.FeedEvent) (*domain.NotificationIntent, notify.DropReason, error)
}

// BatchEmitter publishes notification intents to the presentation sink.
type BatchEmitter interface {
	EmitBatch(ctx context.Context, intents []domain.NotificationIntent) error
}

// Pipeline orchestrates the extract-evaluate-emit loop for one session.
type Pipeline struct {
	extractor BatchExtractor
	evaluator Evaluator
	emitter   BatchEmitter
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, ev Evaluator, em BatchEmitter, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		evaluator: ev,
		emitter:   em,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// event, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any events yet")
	}
	return nil
}

// Run executes the event loop until the context is cancelled. Collaborator
// failures degrade to retries with backoff; they are never fatal.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during feed outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-evaluate-emit cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.EventsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	processed, ok := p.evaluateAndEmit(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if processed > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// evaluateAndEmit parses and evaluates each event in the batch, emits the
// resulting intents, and commits offsets. Dropped events (malformed,
// duplicate, out of radius, no transition) are committed immediately; their
// outcome cannot change on redelivery. Returns the number of events handled
// (0 when the batch must be retried) and false if the pipeline should stop.
func (p *Pipeline) evaluateAndEmit(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	intents := make([]domain.NotificationIntent, 0, len(rawBatch))
	surfacedRaws := make([]domain.RawEvent, 0, len(rawBatch))
	processed := 0

	for _, raw := range rawBatch {
		ev, err := domain.ParseFeedEvent(raw)
		if err != nil {
			p.logger.Warn("dropping malformed feed event",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.EventsDropped.WithLabelValues("malformed").Inc()
			p.commitOffset(ctx, raw)
			processed++
			continue
		}

		intent, reason, err := p.evaluator.Evaluate(ctx, ev)
		if err != nil {
			// Seen-store failure: leave the offset uncommitted so the event
			// is redelivered once the store recovers.
			p.logger.Error("evaluate failed", "error", err, "hazard_id", ev.Current.ID)
			return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
		}
		processed++

		if intent == nil {
			p.metrics.EventsDropped.WithLabelValues(string(reason)).Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		intents = append(intents, *intent)
		surfacedRaws = append(surfacedRaws, raw)
	}

	if len(intents) == 0 {
		return processed, true
	}

	if err := p.emitter.EmitBatch(ctx, intents); err != nil {
		p.logger.Error("emit batch failed", "error", err, "batch_size", len(intents))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.IntentsEmitted.Add(float64(len(intents)))

	for _, raw := range surfacedRaws {
		p.commitOffset(ctx, raw)
	}

	return processed, true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
