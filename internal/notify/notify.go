// Package notify delivers marketplace events to the messaging collaborator
// that sends emails and in-app alerts.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"rfqmarket/internal/metrics"
)

type EventType string

const (
	RequestCreated     EventType = "request.created"
	SupplierSelected   EventType = "supplier.selected"
	RequestRejected    EventType = "request.rejected"
	InvitationCreated  EventType = "invitation.created"
	InvitationAccepted EventType = "invitation.accepted"
	InvitationDeclined EventType = "invitation.declined"
	RFQStatusChanged   EventType = "rfq.status_changed"
	RatingCreated      EventType = "rating.created"
)

// Event is addressed to one recipient.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Type      EventType         `json:"type"`
	Recipient uuid.UUID         `json:"recipient"`
	RFQID     uuid.UUID         `json:"rfqId"`
	Data      map[string]string `json:"data,omitempty"`
	At        time.Time         `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Publisher is the transport under a Notifier.
type Publisher interface {
	Publish(ctx context.Context, e Event, payload []byte) error
	Close() error
}

// Breaker guards a Publisher with a circuit breaker so a dead broker does not
// stall request handling.
type Breaker struct {
	pub     Publisher
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewBreaker(pub Publisher, name string) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("notifier breaker state changed")
		},
	}
	return &Breaker{pub: pub, cb: gobreaker.NewCircuitBreaker(settings), timeout: 5 * time.Second}
}

func (b *Breaker) Notify(ctx context.Context, e Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = b.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		return nil, b.pub.Publish(ctx, e, payload)
	})
	metrics.RecordNotification(string(e.Type), err)
	return err
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) Close() error { return b.pub.Close() }

// Async sends e in the background and only logs failures. The request
// context is not reused since it ends with the response.
func Async(n Notifier, e Event) {
	if n == nil {
		return
	}
	go func() {
		if err := n.Notify(context.Background(), e); err != nil {
			lvl := log.Warn()
			if errors.Is(err, gobreaker.ErrOpenState) {
				lvl = log.Debug()
			}
			lvl.Err(err).Str("event", string(e.Type)).Str("recipient", e.Recipient.String()).Msg("notification not delivered")
		}
	}()
}
