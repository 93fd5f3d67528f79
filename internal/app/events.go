package app

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

const observerTimeout = 5 * time.Second

// BookingObserver is told about bookings after they are committed. Errors
// are logged by the caller and never undo the booking.
type BookingObserver interface {
	Name() string
	BookingCreated(ctx context.Context, kind Kind, b Booking) error
	BookingDeleted(ctx context.Context, kind Kind, b Booking) error
}

func (a *App) notifyCreated(ctx context.Context, kind Kind, b Booking) {
	a.notify(ctx, "created", func(ctx context.Context, o BookingObserver) error {
		return o.BookingCreated(ctx, kind, b)
	})
}

func (a *App) notifyDeleted(ctx context.Context, kind Kind, b Booking) {
	a.notify(ctx, "deleted", func(ctx context.Context, o BookingObserver) error {
		return o.BookingDeleted(ctx, kind, b)
	})
}

func (a *App) notify(ctx context.Context, event string, fn func(context.Context, BookingObserver) error) {
	// the booking is already committed, so a client disconnect must not abort the fan-out
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), observerTimeout)
	defer cancel()

	for _, o := range a.Observers {
		if err := fn(ctx, o); err != nil {
			a.Log.Warn("Booking observer failed", "observer", o.Name(), "event", event, "error", err)
		}
	}
}

const (
	EventBookingCreated = "booking.created"
	EventBookingDeleted = "booking.deleted"
)

type BookingEvent struct {
	Type       string    `json:"type"`
	Resource   string    `json:"resource"`
	Booking    Booking   `json:"booking"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher streams booking events to a Kafka topic, keyed by
// resource and date so one day's events stay ordered on one partition.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		now: time.Now,
	}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) BookingCreated(ctx context.Context, kind Kind, b Booking) error {
	return p.publish(ctx, EventBookingCreated, kind, b)
}

func (p *KafkaPublisher) BookingDeleted(ctx context.Context, kind Kind, b Booking) error {
	return p.publish(ctx, EventBookingDeleted, kind, b)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, kind Kind, b Booking) error {
	payload, err := json.Marshal(BookingEvent{
		Type:       eventType,
		Resource:   kind.String(),
		Booking:    b,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(kind.String() + ":" + b.Date),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "booking_id", Value: []byte(strconv.FormatInt(b.ID, 10))},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
