package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConsumerConfig names the broker objects the activity consumer uses.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	LogPath  string
}

// StartActivityConsumer binds a durable queue to every routing key of the
// events exchange and appends one line per event to cfg.LogPath. It
// reconnects with exponential backoff until ctx is cancelled. Messages that
// cannot be handled are rejected without requeue so a bad payload cannot
// spin the loop.
func StartActivityConsumer(ctx context.Context, cfg ConsumerConfig, log *zap.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer f.Close()

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Warn("activity consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg, f, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("activity consumer: consume loop ended, reconnecting", zap.Error(err))
		time.Sleep(2 * time.Second)
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, out io.Writer, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("activity consumer: set QoS failed", zap.Error(err))
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, "#", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(out, d.Body); err != nil {
				log.Warn("activity consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleMessage writes a single human-readable line for one event.
func handleMessage(out io.Writer, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	line := fmt.Sprintf("[%s] %s | reservation_id=%d | actor_id=%d", ev.OccurredAt, ev.Type, ev.ReservationID, ev.ActorID)
	if ev.TransactionID != 0 {
		line += fmt.Sprintf(" | transaction_id=%d", ev.TransactionID)
	}
	if ev.TimeSlot != "" {
		line += fmt.Sprintf(" | slot=%q", ev.TimeSlot)
	}
	if ev.StartDate != "" {
		line += " | dates=" + ev.StartDate
		if ev.EndDate != "" && ev.EndDate != ev.StartDate {
			line += ".." + ev.EndDate
		}
	}
	if ev.Amount != "" {
		line += " | amount=" + ev.Amount
	}
	if ev.LedgerStatus != "" {
		line += fmt.Sprintf(" | status=%s | leftover=%s", ev.LedgerStatus, ev.Leftover)
	}
	if _, err := io.WriteString(out, line+"\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
