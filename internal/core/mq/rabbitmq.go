package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// 路由键
const (
	UserProvisioned  = "user.provisioned"
	UserUpdated      = "user.updated"
	UserDeleted      = "user.deleted"
	LeadStageChanged = "lead.stage_changed"
)

const dlxSuffix = ".dlx"

// Envelope 队列消息体
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type RabbitMQ struct {
	Conn     *amqp.Connection
	Ch       *amqp.Channel
	Exchange string
	Queue    string
	mu       sync.Mutex // amqp.Channel 不是并发安全的
}

func Dial(url, exchange, queue string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := setupTopology(ch, exchange, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq topology: %w", err)
	}
	return &RabbitMQ{Conn: conn, Ch: ch, Exchange: exchange, Queue: queue}, nil
}

// setupTopology topic 交换机 + 事件队列（绑定全部路由键），nack 的消息进死信队列
func setupTopology(ch *amqp.Channel, exchange, queue string) error {
	dlx := exchange + dlxSuffix
	dlq := queue + dlxSuffix
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(dlq, "", dlx, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	args := amqp.Table{"x-dead-letter-exchange": dlx}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return err
	}
	for _, key := range []string{"user.*", "lead.*"} {
		if err := ch.QueueBind(queue, key, exchange, false, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *RabbitMQ) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := Encode(eventType, payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Ch.PublishWithContext(ctx, r.Exchange, eventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         eventType,
		Body:         body,
	})
}

func Encode(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, OccurredAt: time.Now().UTC(), Payload: raw})
}

// Handler 返回 error 时消息被 nack 进死信队列
type Handler func(ctx context.Context, e Envelope) error

// Consume 手动 ack，阻塞直到 ctx 取消或通道关闭
func (r *RabbitMQ) Consume(ctx context.Context, l *zap.Logger, h Handler) error {
	r.mu.Lock()
	msgs, err := r.Ch.Consume(r.Queue, "", false, false, false, false, nil)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal(d.Body, &env); err != nil {
				l.Warn("drop malformed event", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			if err := h(ctx, env); err != nil {
				l.Error("event handler failed", zap.String("type", env.Type), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (r *RabbitMQ) Close() error {
	if r.Ch != nil {
		_ = r.Ch.Close()
	}
	if r.Conn != nil {
		return r.Conn.Close()
	}
	return nil
}

// Nop 未配置 rabbitmq 时使用
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
