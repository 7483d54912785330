// Package events publishes borrowing events to RabbitMQ after the ledger commits.
// Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"

	"Gin_postgres_redis_book_catalog/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const Queue = "borrowing.events"

type Type string

const (
	CheckedOut Type = "borrowing.checked_out"
	CheckedIn  Type = "borrowing.checked_in"
)

type BorrowingEvent struct {
	Type        Type       `json:"type"`
	BorrowingID uint       `json:"borrowing_id"`
	UserID      string     `json:"user_id"`
	BookID      uint       `json:"book_id"`
	DueDate     time.Time  `json:"due_date"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

func NewBorrowingEvent(t Type, b *models.Borrowing, at time.Time) BorrowingEvent {
	return BorrowingEvent{
		Type:        t,
		BorrowingID: b.ID,
		UserID:      b.UserID,
		BookID:      b.BookID,
		DueDate:     b.DueDate,
		ReturnedAt:  b.ReturnedAt,
		OccurredAt:  at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev BorrowingEvent) error
	Close() error
}

// NopPublisher 未配置 AMQP_URL 时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, BorrowingEvent) error { return nil }
func (NopPublisher) Close() error                                 { return nil }

// AMQPPublisher 懒连接；发布失败后丢弃连接，下次重连
type AMQPPublisher struct {
	url   string
	queue string
	log   *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: Queue, log: log}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	// durable，broker 重启后消息仍在
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev BorrowingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.log.DebugContext(ctx, "event published",
		slog.String("type", string(ev.Type)),
		slog.Uint64("borrowing_id", uint64(ev.BorrowingID)),
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
