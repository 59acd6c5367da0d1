//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/civisafe/hazardwatch/internal/adapter/kafka"
	"github.com/civisafe/hazardwatch/internal/config"
	"github.com/civisafe/hazardwatch/internal/domain"
	"github.com/civisafe/hazardwatch/internal/notify"
	"github.com/civisafe/hazardwatch/internal/observability"
	"github.com/civisafe/hazardwatch/internal/pipeline"
)

const (
	testFeedTopic   = "test-hazard-feed"
	testIntentTopic = "test-notification-intents"
)

// sessionLocation is the notifier position for all tests; hazards at
// nearbyLocation are ~35m away, farLocation is ~50km north.
var (
	sessionLocation = domain.Coordinate{Lat: 17.5747, Lng: 120.3869}
	nearbyLocation  = domain.Coordinate{Lat: 17.5750, Lng: 120.3870}
	farLocation     = domain.Coordinate{Lat: 18.0250, Lng: 120.3869}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-broker Kafka container and returns its
// bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("hazardwatch-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	controllerConn, err := kafkago.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func testConfig(broker, suffix string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaFeedTopic:     testFeedTopic,
		KafkaIntentTopic:   testIntentTopic,
		KafkaGroupID:       fmt.Sprintf("test-%s-%d", suffix, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func createEventPayload(t *testing.T, id string, loc domain.Coordinate) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"kind": "insert",
		"current": map[string]any{
			"id":          id,
			"name":        "Flooded underpass",
			"hazard_type": "flood",
			"description": "Knee-deep water across both lanes.",
			"location":    map[string]float64{"lat": loc.Lat, "lng": loc.Lng},
			"status":      "pending",
			"created_at":  time.Now().UTC().Format(time.RFC3339),
		},
	})
	require.NoError(t, err)
	return payload
}

func resolveEventPayload(t *testing.T, id string, loc domain.Coordinate) []byte {
	t.Helper()
	hazard := func(status string, fixed bool) map[string]any {
		m := map[string]any{
			"id":          id,
			"name":        "Flooded underpass",
			"hazard_type": "flood",
			"location":    map[string]float64{"lat": loc.Lat, "lng": loc.Lng},
			"status":      status,
			"created_at":  time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
		}
		if fixed {
			m["fixed_at"] = time.Now().UTC().Format(time.RFC3339)
		}
		return m
	}
	payload, err := json.Marshal(map[string]any{
		"kind":     "update",
		"previous": hazard("verified", false),
		"current":  hazard("resolved", true),
	})
	require.NoError(t, err)
	return payload
}

// intentMessage holds a deserialized message read from the intent topic.
type intentMessage struct {
	Intent  domain.NotificationIntent
	Key     string
	Headers map[string]string
}

// readIntent reads a single message from the sink consumer and deserializes it.
func readIntent(ctx context.Context, t *testing.T, consumer *kafkago.Reader) intentMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from intent topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var intent domain.NotificationIntent
	require.NoError(t, json.Unmarshal(msg.Value, &intent), "unmarshal intent message")

	return intentMessage{
		Intent:  intent,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

func newIntentConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testIntentTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor)
// and kafka.Writer (emitter) correctly round-trip messages through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testFeedTopic)
	createTopic(t, broker, testIntentTopic)

	cfg := testConfig(broker, "reader")

	payload := createEventPayload(t, "hz-roundtrip", nearbyLocation)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testFeedTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("hz-roundtrip"),
		Value: payload,
	}))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafkaadapter.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from feed topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("hz-roundtrip"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testFeedTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")

	require.NoError(t, raw.Commit(ctx))

	// Evaluate the feed event into a notification intent.
	ev, err := domain.ParseFeedEvent(raw)
	require.NoError(t, err)

	session := notify.New(sessionLocation, notify.DefaultRadiusKm, notify.NewMemorySeenStore(), discardLogger())
	intent, _, err := session.Evaluate(ctx, ev)
	require.NoError(t, err)
	require.NotNil(t, intent)

	// Emit via kafka.Writer.
	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.EmitBatch(ctx, []domain.NotificationIntent{*intent}))

	// Read from the intent topic and verify headers + value.
	consumer := newIntentConsumer(t, broker)

	im := readIntent(ctx, t, consumer)
	assert.Equal(t, "hz-roundtrip", im.Key)
	assert.Equal(t, "created", im.Headers["kind"])
	assert.Equal(t, "warning", im.Headers["severity"])
	_, err = time.Parse(time.RFC3339, im.Headers["emitted_at"])
	assert.NoError(t, err, "emitted_at should be valid RFC3339")

	assert.Equal(t, "hz-roundtrip", im.Intent.HazardID)
	assert.Equal(t, domain.SeverityWarning, im.Intent.Severity)
	assert.Contains(t, im.Intent.Title, "Flooded underpass")
}

// TestPipelineEndToEnd wires the full pipeline (Reader, Notifier, Writer)
// with real Kafka and verifies the hazard lifecycle: nearby creates notify,
// far creates are dropped, duplicates are suppressed, resolves notify.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testFeedTopic)
	createTopic(t, broker, testIntentTopic)

	cfg := testConfig(broker, "pipeline")

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testFeedTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	nearbyCreate := createEventPayload(t, "hz-near", nearbyLocation)
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("hz-near"), Value: nearbyCreate},
		kafkago.Message{Key: []byte("hz-near"), Value: nearbyCreate}, // duplicate replay
		kafkago.Message{Key: []byte("hz-far"), Value: createEventPayload(t, "hz-far", farLocation)},
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("hz-near"), Value: resolveEventPayload(t, "hz-near", nearbyLocation)},
	))

	// Wire up the pipeline.
	reader := kafkaadapter.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	session := notify.New(sessionLocation, notify.DefaultRadiusKm, notify.NewMemorySeenStore(), discardLogger())

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, session, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Exactly two intents should reach the sink: the nearby create and its
	// resolve. The duplicate, the far create, and the poison pill are dropped.
	consumer := newIntentConsumer(t, broker)

	first := readIntent(ctx, t, consumer)
	assert.Equal(t, "hz-near", first.Intent.HazardID)
	assert.Equal(t, "created", first.Intent.Kind)
	assert.Equal(t, domain.SeverityWarning, first.Intent.Severity)

	second := readIntent(ctx, t, consumer)
	assert.Equal(t, "hz-near", second.Intent.HazardID)
	assert.Equal(t, "resolved", second.Intent.Kind)
	assert.Equal(t, domain.SeverityInfo, second.Intent.Severity)

	// Verify no third message arrives.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no third message on intent topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
