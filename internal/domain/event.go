package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ChangeKind identifies the lifecycle operation carried by a feed event.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
)

// RawEvent represents an unprocessed message from the hazard change feed.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// FeedEvent is a parsed hazard lifecycle event. Previous is only present on
// updates and carries the record state before the change, which is how
// resolve transitions are detected.
type FeedEvent struct {
	Kind     ChangeKind    `json:"kind"`
	Previous *HazardReport `json:"previous,omitempty"`
	Current  HazardReport  `json:"current"`
}

// Feed event parse errors. ErrMalformedEvent covers payloads that can never
// be evaluated: unknown kind, missing id, missing or out-of-range location.
var ErrMalformedEvent = errors.New("malformed feed event")

// feedEnvelope mirrors the change-feed wire format. Location is a pointer so
// an absent field is distinguishable from (0, 0).
type feedEnvelope struct {
	Kind     ChangeKind  `json:"kind"`
	Previous *feedHazard `json:"previous,omitempty"`
	Current  *feedHazard `json:"current"`
}

type feedHazard struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	HazardType  string       `json:"hazard_type"`
	Description string       `json:"description"`
	Location    *Coordinate  `json:"location"`
	Status      HazardStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	FixedAt     *time.Time   `json:"fixed_at,omitempty"`
}

// ParseFeedEvent deserializes a raw change-feed message into a FeedEvent.
// Malformed payloads return an error wrapping ErrMalformedEvent so the
// pipeline can drop them without poisoning downstream state.
func ParseFeedEvent(raw RawEvent) (FeedEvent, error) {
	var env feedEnvelope
	if err := json.Unmarshal(raw.Value, &env); err != nil {
		return FeedEvent{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	if env.Kind != ChangeInsert && env.Kind != ChangeUpdate {
		return FeedEvent{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, env.Kind)
	}
	if env.Current == nil {
		return FeedEvent{}, fmt.Errorf("%w: missing current record", ErrMalformedEvent)
	}
	if env.Current.ID == "" {
		return FeedEvent{}, fmt.Errorf("%w: missing hazard id", ErrMalformedEvent)
	}
	if env.Current.Location == nil || !env.Current.Location.Valid() {
		return FeedEvent{}, fmt.Errorf("%w: missing or invalid location for hazard %s", ErrMalformedEvent, env.Current.ID)
	}

	ev := FeedEvent{
		Kind:    env.Kind,
		Current: env.Current.toReport(),
	}
	if env.Previous != nil {
		prev := env.Previous.toReport()
		ev.Previous = &prev
	}
	return ev, nil
}

func (h *feedHazard) toReport() HazardReport {
	r := HazardReport{
		ID:          h.ID,
		Name:        h.Name,
		HazardType:  h.HazardType,
		Description: h.Description,
		Status:      h.Status,
		CreatedAt:   h.CreatedAt,
		FixedAt:     h.FixedAt,
	}
	if h.Location != nil {
		r.Location = *h.Location
	}
	return r
}

// NotificationSeverity grades a notification intent for the toast layer.
type NotificationSeverity string

const (
	SeverityInfo    NotificationSeverity = "info"
	SeverityWarning NotificationSeverity = "warning"
)

// NotificationIntent is a user-facing notification request emitted to the
// presentation layer. It carries display strings plus enough metadata for
// the consumer to thread, log, and meter.
type NotificationIntent struct {
	ID         string               `json:"id"`
	Severity   NotificationSeverity `json:"severity"`
	Title      string               `json:"title"`
	Body       string               `json:"body"`
	HazardID   string               `json:"hazard_id"`
	Kind       string               `json:"kind"` // "created" or "resolved"
	DistanceKm float64              `json:"distance_km"`
	EmittedAt  time.Time            `json:"emitted_at"`
}
