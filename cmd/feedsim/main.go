// Command feedsim publishes synthetic hazard change events to the feed topic
// so the engine can be exercised without the upstream reporting system. It
// scatters hazards around a center point, then resolves a fraction of them.
//
// Usage:
//
//	go run ./cmd/feedsim \
//	  -brokers localhost:9092 \
//	  -topic hazard-feed \
//	  -center-lat 17.5747 -center-lng 120.3869 \
//	  -count 20 -interval 500ms
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/civisafe/hazardwatch/internal/domain"
)

var hazardTypes = []string{"flood", "fallen-tree", "road-damage", "landslide", "fire"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	brokers := flag.String("brokers", "localhost:9092", "comma-separated kafka brokers")
	topic := flag.String("topic", "hazard-feed", "hazard change feed topic")
	centerLat := flag.Float64("center-lat", 17.5747, "latitude of the scatter center")
	centerLng := flag.Float64("center-lng", 120.3869, "longitude of the scatter center")
	spreadKm := flag.Float64("spread-km", 10, "max distance from center, kilometers")
	count := flag.Int("count", 20, "number of hazards to create")
	resolveRatio := flag.Float64("resolve-ratio", 0.3, "fraction of hazards to resolve afterwards")
	interval := flag.Duration("interval", 500*time.Millisecond, "delay between events")
	seed := flag.Int64("seed", 0, "rng seed, 0 uses current time")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))
	log.Printf("seed: %d", *seed)

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(strings.Split(*brokers, ",")...),
		Topic:        *topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	defer writer.Close()

	ctx := context.Background()
	center := domain.Coordinate{Lat: *centerLat, Lng: *centerLng}

	hazards := make([]domain.HazardReport, 0, *count)
	for i := 0; i < *count; i++ {
		h := randomHazard(rng, center, *spreadKm)
		if err := publish(ctx, writer, domain.FeedEvent{Kind: domain.ChangeInsert, Current: h}); err != nil {
			return fmt.Errorf("publish insert: %w", err)
		}
		log.Printf("created %s (%s) at (%.4f, %.4f)", h.Name, h.ID, h.Location.Lat, h.Location.Lng)
		hazards = append(hazards, h)
		time.Sleep(*interval)
	}

	resolveCount := int(float64(len(hazards)) * *resolveRatio)
	for _, h := range hazards[:resolveCount] {
		prev := h
		now := time.Now().UTC()
		h.Status = domain.HazardResolved
		h.FixedAt = &now
		ev := domain.FeedEvent{Kind: domain.ChangeUpdate, Previous: &prev, Current: h}
		if err := publish(ctx, writer, ev); err != nil {
			return fmt.Errorf("publish resolve: %w", err)
		}
		log.Printf("resolved %s (%s)", h.Name, h.ID)
		time.Sleep(*interval)
	}

	log.Printf("done: %d created, %d resolved", len(hazards), resolveCount)
	return nil
}

func randomHazard(rng *rand.Rand, center domain.Coordinate, spreadKm float64) domain.HazardReport {
	// Rough degree offsets; good enough for a simulator at city scale.
	const kmPerDegree = 111.195
	dLat := (rng.Float64()*2 - 1) * spreadKm / kmPerDegree
	dLng := (rng.Float64()*2 - 1) * spreadKm / kmPerDegree

	hazardType := hazardTypes[rng.Intn(len(hazardTypes))]
	n := rng.Intn(900) + 100

	return domain.HazardReport{
		ID:          uuid.NewString(),
		Name:        fmt.Sprintf("Simulated %s #%d", hazardType, n),
		HazardType:  hazardType,
		Description: fmt.Sprintf("Synthetic %s report generated by feedsim.", hazardType),
		Location:    domain.Coordinate{Lat: center.Lat + dLat, Lng: center.Lng + dLng},
		Status:      domain.HazardPending,
		CreatedAt:   time.Now().UTC(),
	}
}

func publish(ctx context.Context, writer *kafkago.Writer, ev domain.FeedEvent) error {
	payload, err := json.Marshal(feedMessage(ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(ev.Current.ID),
		Value: payload,
	})
}

// feedMessage renders a FeedEvent in the change-feed wire format.
func feedMessage(ev domain.FeedEvent) map[string]any {
	msg := map[string]any{
		"kind":    ev.Kind,
		"current": hazardMessage(ev.Current),
	}
	if ev.Previous != nil {
		msg["previous"] = hazardMessage(*ev.Previous)
	}
	return msg
}

func hazardMessage(h domain.HazardReport) map[string]any {
	m := map[string]any{
		"id":          h.ID,
		"name":        h.Name,
		"hazard_type": h.HazardType,
		"description": h.Description,
		"location":    map[string]float64{"lat": h.Location.Lat, "lng": h.Location.Lng},
		"status":      h.Status,
		"created_at":  h.CreatedAt,
	}
	if h.FixedAt != nil {
		m["fixed_at"] = h.FixedAt
	}
	return m
}
