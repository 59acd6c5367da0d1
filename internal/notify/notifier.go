package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/civisafe/hazardwatch/internal/domain"
)

// DefaultRadiusKm is the notification radius used when the session does not
// configure its own.
const DefaultRadiusKm = 5.0

// descriptionLimit is the maximum number of characters of a hazard
// description carried into a notification body.
const descriptionLimit = 80

// DropReason explains why an event produced no intent. Empty means an intent
// was emitted.
type DropReason string

const (
	DropDuplicate    DropReason = "duplicate"
	DropOutOfRadius  DropReason = "out_of_radius"
	DropNoTransition DropReason = "no_transition"
)

// Notifier evaluates hazard feed events for one user session. It owns the
// session's reference location and seen set; neither is shared across
// sessions. Location updates race the event loop, hence the mutex.
type Notifier struct {
	mu       sync.Mutex
	location domain.Coordinate

	radiusKm float64
	seen     SeenStore
	logger   *slog.Logger
}

// New creates a session notifier anchored at the fallback location. The
// location provider updates it via SetLocation as fixes arrive.
func New(fallback domain.Coordinate, radiusKm float64, seen SeenStore, logger *slog.Logger) *Notifier {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	return &Notifier{
		location: fallback,
		radiusKm: radiusKm,
		seen:     seen,
		logger:   logger,
	}
}

// SetLocation replaces the session's reference coordinate. Past gating
// decisions are not re-evaluated; only events processed after the update see
// the new location.
func (n *Notifier) SetLocation(c domain.Coordinate) {
	n.mu.Lock()
	n.location = c
	n.mu.Unlock()
}

// Location returns the session's current reference coordinate.
func (n *Notifier) Location() domain.Coordinate {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// Evaluate applies the dedup and radius gates to one feed event. It returns
// the intent to emit, or a nil intent with the drop reason. A non-nil error
// means the seen store failed and the event should be retried, not dropped.
func (n *Notifier) Evaluate(ctx context.Context, ev domain.FeedEvent) (*domain.NotificationIntent, DropReason, error) {
	switch ev.Kind {
	case domain.ChangeInsert:
		return n.evaluateCreate(ctx, ev.Current)
	case domain.ChangeUpdate:
		return n.evaluateUpdate(ctx, ev)
	default:
		return nil, DropNoTransition, nil
	}
}

func (n *Notifier) evaluateCreate(ctx context.Context, hazard domain.HazardReport) (*domain.NotificationIntent, DropReason, error) {
	key := EventKey(hazard.ID, KindCreated)
	first, err := n.seen.MarkSurfaced(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("seen store: %w", err)
	}
	if !first {
		return nil, DropDuplicate, nil
	}

	dist := domain.DistanceKm(n.Location(), hazard.Location)
	if dist > n.radiusKm {
		// Marked seen above: a hazard outside the radius at creation is
		// never renotified, even if the session later moves into range.
		return nil, DropOutOfRadius, nil
	}

	intent := n.buildIntent(hazard, KindCreated, dist)
	return &intent, "", nil
}

func (n *Notifier) evaluateUpdate(ctx context.Context, ev domain.FeedEvent) (*domain.NotificationIntent, DropReason, error) {
	// Only a previous≠resolved → current=resolved transition notifies. The
	// transition comes from the event's own before/after payload, not from
	// whether a creation notification was ever surfaced.
	if ev.Previous == nil || ev.Previous.Status.Resolved() || !ev.Current.Status.Resolved() {
		return nil, DropNoTransition, nil
	}

	key := EventKey(ev.Current.ID, KindResolved)
	first, err := n.seen.MarkSurfaced(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("seen store: %w", err)
	}
	if !first {
		return nil, DropDuplicate, nil
	}

	dist := domain.DistanceKm(n.Location(), ev.Current.Location)
	if dist > n.radiusKm {
		return nil, DropOutOfRadius, nil
	}

	intent := n.buildIntent(ev.Current, KindResolved, dist)
	return &intent, "", nil
}

func (n *Notifier) buildIntent(hazard domain.HazardReport, kind string, distanceKm float64) domain.NotificationIntent {
	intent := domain.NotificationIntent{
		ID:         uuid.NewString(),
		HazardID:   hazard.ID,
		Kind:       kind,
		DistanceKm: distanceKm,
		EmittedAt:  domain.Now(),
	}

	switch kind {
	case KindResolved:
		intent.Severity = domain.SeverityInfo
		intent.Title = fmt.Sprintf("Hazard resolved: %s", hazard.Name)
		intent.Body = fmt.Sprintf("%s away — this hazard has been cleared", domain.FormatDistance(distanceKm))
	default:
		intent.Severity = domain.SeverityWarning
		intent.Title = fmt.Sprintf("New hazard nearby: %s", hazard.Name)
		intent.Body = fmt.Sprintf("%s — %s away", truncate(hazard.Description, descriptionLimit), domain.FormatDistance(distanceKm))
	}
	return intent
}

// truncate cuts s to limit characters, appending an ellipsis when anything
// was removed. Counts runes so multibyte text is not split mid-character.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
