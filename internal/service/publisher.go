package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/logger"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/queue"
)

// Publisher delivers committed transitions to whoever notifies users.
// Delivery is fire-and-forget: a failure is logged by the service and
// never undoes the transition.
type Publisher interface {
	Publish(ctx context.Context, ev model.Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.Event) error { return nil }

// AMQPPublisher publishes events as persistent JSON messages to the
// durable queue.EventsQueue.  Each publish dials its own connection and
// channel, so a broker outage never leaves a broken connection behind.
type AMQPPublisher struct {
	URL string
	Log *logger.Logger
}

// NewAMQPPublisher returns a publisher; an empty url means
// queue.URLFromEnv.
func NewAMQPPublisher(url string, log *logger.Logger) *AMQPPublisher {
	if url == "" {
		url = queue.URLFromEnv()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AMQPPublisher{URL: url, Log: log.With("component", "rabbitmq")}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev model.Event) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warn("dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.EventsQueue, true, false, false, false, nil); err != nil {
		p.Log.Warn("queue declare failed", "error", err)
		return err
	}

	body, err := json.Marshal(queue.FromModel(ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Kind),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.EventsQueue, false, false, msg); err != nil {
		p.Log.Warn("publish failed", "event", ev.Kind, "error", err)
		return err
	}
	return nil
}

// Recorder keeps every published event in memory.  Tests use it to
// assert which notifications a transition produced.
type Recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *Recorder) Publish(_ context.Context, ev model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of what was published so far.
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

// Kinds lists the kinds published so far, in order.
func (r *Recorder) Kinds() []model.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
