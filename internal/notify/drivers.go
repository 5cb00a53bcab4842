package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// NATS publishes each event on subject "rfq.<event type>".
type NATS struct {
	conn *nats.Conn
}

func NewNATS(url string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("rfq-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{conn: conn}, nil
}

func Subject(t EventType) string { return "rfq." + string(t) }

func (n *NATS) Publish(_ context.Context, e Event, payload []byte) error {
	return n.conn.Publish(Subject(e.Type), payload)
}

func (n *NATS) Close() error {
	return n.conn.Drain()
}

// Kafka writes events to one topic keyed by recipient so a user's events stay ordered.
type Kafka struct {
	w *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &Kafka{w: w}
}

func (k *Kafka) Publish(ctx context.Context, e Event, payload []byte) error {
	return k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Recipient.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(e.Type)},
		},
	})
}

func (k *Kafka) Close() error { return k.w.Close() }

// Log only records events; used in development.
type Log struct{}

func (Log) Publish(_ context.Context, e Event, _ []byte) error {
	log.Info().Str("event", string(e.Type)).Str("recipient", e.Recipient.String()).
		Str("rfq_id", e.RFQID.String()).Msg("notification")
	return nil
}

func (Log) Close() error { return nil }

// New builds the configured driver behind a breaker.
func New(driver, natsURL string, brokers []string, topic string) (*Breaker, error) {
	var pub Publisher
	switch driver {
	case "nats":
		n, err := NewNATS(natsURL)
		if err != nil {
			return nil, err
		}
		pub = n
	case "kafka":
		pub = NewKafka(brokers, topic)
	case "log", "":
		pub = Log{}
	default:
		return nil, fmt.Errorf("unknown notify driver %q", driver)
	}
	return NewBreaker(pub, "notify-"+driver), nil
}
