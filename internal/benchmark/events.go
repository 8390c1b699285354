package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// SuiteListener observes the lifecycle of a benchmark run. Callbacks fire
// synchronously on the runner goroutine; listeners must return quickly.
type SuiteListener interface {
	SuiteStarted(suiteID string)
	BenchmarkStarted(suiteID, name string)
	BenchmarkCompleted(suiteID string, result BenchmarkResult)
	SuiteCompleted(suiteID string, suite *BenchmarkSuite)
	SuiteFailed(suiteID string, err error)
}

// LifecycleEventType identifies a suite lifecycle event on the wire.
type LifecycleEventType string

const (
	EventSuiteStart     LifecycleEventType = "suite:start"
	EventBenchmarkStart LifecycleEventType = "benchmark:start"
	EventBenchmarkDone  LifecycleEventType = "benchmark:complete"
	EventSuiteComplete  LifecycleEventType = "suite:complete"
	EventSuiteError     LifecycleEventType = "suite:error"
)

// LifecycleEvent is the serialized form of a suite lifecycle notification.
type LifecycleEvent struct {
	Type      LifecycleEventType `json:"type"`
	SuiteID   string             `json:"suite_id"`
	Benchmark string             `json:"benchmark,omitempty"`
	Result    *BenchmarkResult   `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// EventPublisher delivers lifecycle events to an external sink.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *LifecycleEvent) error
	Close() error
}

// NoOpPublisher discards events. Used when no broker is configured.
type NoOpPublisher struct{}

func (NoOpPublisher) PublishEvent(ctx context.Context, event *LifecycleEvent) error { return nil }
func (NoOpPublisher) Close() error                                                  { return nil }

// NATSEventPublisher implements EventPublisher using NATS JetStream.
type NATSEventPublisher struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	logger  *logrus.Logger
	stream  string
	subject string
}

// NewNATSEventPublisher connects to NATS and ensures the benchmark event
// stream exists.
func NewNATSEventPublisher(url string, logger *logrus.Logger) (*NATSEventPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &NATSEventPublisher{
		conn:    nc,
		js:      js,
		logger:  logger,
		stream:  "BENCHMARK_EVENTS",
		subject: "benchmark.events",
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	return publisher, nil
}

func (p *NATSEventPublisher) ensureStream() error {
	streamConfig := &nats.StreamConfig{
		Name:       p.stream,
		Subjects:   []string{p.subject + ".>"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		MaxAge:     24 * time.Hour,
		MaxBytes:   256 * 1024 * 1024,
		MaxMsgs:    100000,
		Duplicates: 5 * time.Minute,
		Replicas:   1,
	}

	_, err := p.js.AddStream(streamConfig)
	if err != nil {
		_, err = p.js.UpdateStream(streamConfig)
		if err != nil {
			return fmt.Errorf("failed to create/update stream: %w", err)
		}
	}

	return nil
}

// PublishEvent publishes a lifecycle event with acknowledgment.
func (p *NATSEventPublisher) PublishEvent(ctx context.Context, event *LifecycleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s.%s", p.subject, event.Type, event.SuiteID)

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type":   []string{string(event.Type)},
			"Suite-ID":     []string{event.SuiteID},
			"Content-Type": []string{"application/json"},
			"Timestamp":    []string{event.Timestamp.Format(time.RFC3339)},
		},
	}

	ack, err := p.js.PublishMsg(msg, nats.Context(ctx))
	if err != nil {
		p.logger.WithError(err).WithField("suite_id", event.SuiteID).Error("Failed to publish event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_type": event.Type,
		"suite_id":   event.SuiteID,
		"sequence":   ack.Sequence,
		"stream":     ack.Stream,
	}).Debug("Event published successfully")

	return nil
}

// Close closes the NATS connection.
func (p *NATSEventPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

// KafkaEventPublisher implements EventPublisher using Apache Kafka.
type KafkaEventPublisher struct {
	writer *kafka.Writer
	logger *logrus.Logger
	topic  string
}

// NewKafkaEventPublisher creates a Kafka event publisher.
func NewKafkaEventPublisher(brokers []string, topic string, logger *logrus.Logger) *KafkaEventPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		ErrorLogger:  kafka.LoggerFunc(logger.Errorf),
	}

	return &KafkaEventPublisher{
		writer: writer,
		logger: logger,
		topic:  topic,
	}
}

// PublishEvent publishes a lifecycle event to Kafka.
func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, event *LifecycleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SuiteID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "Event-Type", Value: []byte(string(event.Type))},
			{Key: "Suite-ID", Value: []byte(event.SuiteID)},
			{Key: "Content-Type", Value: []byte("application/json")},
			{Key: "Timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
		Time: event.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithError(err).WithField("suite_id", event.SuiteID).Error("Failed to publish event to Kafka")
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_type": event.Type,
		"suite_id":   event.SuiteID,
		"topic":      p.topic,
	}).Debug("Event published to Kafka successfully")

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaEventPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// RouterPublisher fans one event out to multiple publishers. Delivery is
// best-effort per sink; the first error is returned after all sinks are tried.
type RouterPublisher struct {
	publishers []EventPublisher
}

func NewRouterPublisher(publishers ...EventPublisher) *RouterPublisher {
	return &RouterPublisher{publishers: publishers}
}

func (r *RouterPublisher) PublishEvent(ctx context.Context, event *LifecycleEvent) error {
	var firstErr error
	for _, p := range r.publishers {
		if err := p.PublishEvent(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *RouterPublisher) Close() error {
	var firstErr error
	for _, p := range r.publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// publisherListener adapts an EventPublisher into a SuiteListener. Publish
// failures are logged, never surfaced to the run.
type publisherListener struct {
	publisher EventPublisher
	logger    *logrus.Logger
}

// NewPublisherListener returns a SuiteListener that forwards lifecycle events
// to publisher.
func NewPublisherListener(publisher EventPublisher, logger *logrus.Logger) SuiteListener {
	return &publisherListener{publisher: publisher, logger: logger}
}

func (l *publisherListener) publish(event *LifecycleEvent) {
	event.Timestamp = time.Now()
	if err := l.publisher.PublishEvent(context.Background(), event); err != nil {
		l.logger.WithError(err).WithField("event_type", event.Type).Warn("Lifecycle event delivery failed")
	}
}

func (l *publisherListener) SuiteStarted(suiteID string) {
	l.publish(&LifecycleEvent{Type: EventSuiteStart, SuiteID: suiteID})
}

func (l *publisherListener) BenchmarkStarted(suiteID, name string) {
	l.publish(&LifecycleEvent{Type: EventBenchmarkStart, SuiteID: suiteID, Benchmark: name})
}

func (l *publisherListener) BenchmarkCompleted(suiteID string, result BenchmarkResult) {
	l.publish(&LifecycleEvent{Type: EventBenchmarkDone, SuiteID: suiteID, Benchmark: result.Name, Result: &result})
}

func (l *publisherListener) SuiteCompleted(suiteID string, suite *BenchmarkSuite) {
	l.publish(&LifecycleEvent{Type: EventSuiteComplete, SuiteID: suiteID})
}

func (l *publisherListener) SuiteFailed(suiteID string, err error) {
	l.publish(&LifecycleEvent{Type: EventSuiteError, SuiteID: suiteID, Error: err.Error()})
}
