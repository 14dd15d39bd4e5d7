package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"franchise-crm/internal/core/metrics"
	"franchise-crm/internal/core/mq"
)

const publishTimeout = 2 * time.Second

// EventPublisher 尽力发布领域事件，失败只记日志和指标
type EventPublisher struct {
	pub mq.Publisher
	log *zap.Logger
}

func NewEventPublisher(pub mq.Publisher, l *zap.Logger) *EventPublisher {
	if pub == nil {
		pub = mq.Nop{}
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &EventPublisher{pub: pub, log: l.Named("events")}
}

func (e *EventPublisher) Publish(ctx context.Context, eventType string, payload any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := e.pub.Publish(ctx, eventType, payload)
	metrics.RecordEvent(eventType, err)
	if err != nil {
		e.log.Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}
