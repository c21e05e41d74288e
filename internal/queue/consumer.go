package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/logger"
)

// Consumer journals every event from EventsQueue as one line of
// <LogDir>/roommate.log.
type Consumer struct {
	URL    string
	LogDir string
	Log    *logger.Logger
}

// NewConsumer returns a Consumer; an empty url means URLFromEnv and an
// empty logDir means "logs".
func NewConsumer(url, logDir string, log *logger.Logger) *Consumer {
	if url == "" {
		url = URLFromEnv()
	}
	if logDir == "" {
		logDir = "logs"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Consumer{URL: url, LogDir: logDir, Log: log.With("component", "event-consumer")}
}

// Run dials the broker, declares the queue and consumes until ctx is
// cancelled.  Broker failures are logged and retried with backoff; a
// message that cannot be handled is rejected without requeue so one bad
// payload never stalls the queue.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("failed to dial broker", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("consume loop ended; reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, EventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handleMessage(d.Body); err != nil {
			c.Log.Error("handle message failed", "error", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev RoommateEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" {
		return errors.New("event without kind")
	}
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.LogDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, "roommate.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev RoommateEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ev.OccurredAt, ev.Kind)
	if ev.RoomID != "" {
		fmt.Fprintf(&b, " | room=%s", ev.RoomID)
	}
	if ev.RequestID != "" {
		fmt.Fprintf(&b, " | request=%s", ev.RequestID)
	}
	if ev.ActorID != "" {
		fmt.Fprintf(&b, " | actor=%s", ev.ActorID)
	}
	fmt.Fprintf(&b, " | to=[%s]", strings.Join(ev.Recipients, ","))
	if len(ev.Warnings) > 0 {
		fmt.Fprintf(&b, " | warnings=%d", len(ev.Warnings))
	}
	b.WriteByte('\n')
	return b.String()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
