// internal/services/notification_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ecocart/storefront-api/internal/config"
	"github.com/ecocart/storefront-api/internal/models"
)

const EventOrderPlaced = "order.placed"

// OrderEvent is the message downstream consumers (mailers, invoicing)
// receive once an order has committed.
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       uuid.UUID `json:"order_id"`
	UserID        uuid.UUID `json:"user_id"`
	TotalAmount   float64   `json:"total_amount"`
	TotalItems    int       `json:"total_items"`
	PaymentMethod string    `json:"payment_method"`
	ProductIDs    []string  `json:"product_ids"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewOrderEvent(order *models.Order) OrderEvent {
	return OrderEvent{
		Type:          EventOrderPlaced,
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmount:   order.TotalAmount,
		TotalItems:    order.TotalItems,
		PaymentMethod: order.PaymentMethod,
		ProductIDs:    order.ProductIDs(),
		CreatedAt:     order.CreatedAt,
	}
}

// Publisher delivers an encoded event to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher fans events out over Redis Pub/Sub.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// LogPublisher stands in for Redis when it is disabled.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	logrus.WithFields(logrus.Fields{
		"channel": channel,
		"payload": string(payload),
	}).Info("Order event")
	return nil
}

// NotificationService is a bounded outbound queue drained by a fixed pool
// of workers. Enqueue never blocks the caller; a full queue drops the event.
type NotificationService struct {
	publisher Publisher
	channel   string
	workers   int
	timeout   time.Duration

	mu     sync.RWMutex
	queue  chan OrderEvent
	closed bool
	wg     sync.WaitGroup
}

func NewNotificationService(publisher Publisher, cfg config.NotifierConfig) *NotificationService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &NotificationService{
		publisher: publisher,
		channel:   cfg.Channel,
		workers:   workers,
		timeout:   5 * time.Second,
		queue:     make(chan OrderEvent, cfg.QueueSize),
	}
}

// Start launches the workers. They exit once Stop closes the queue and the
// backlog is drained.
func (s *NotificationService) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.work(i)
	}
	logrus.WithFields(logrus.Fields{
		"workers": s.workers,
		"channel": s.channel,
	}).Info("Notification workers started")
}

// Stop closes the queue and waits for the workers, or for ctx to expire.
func (s *NotificationService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification workers did not drain: %w", ctx.Err())
	}
}

// Enqueue reports whether the event was accepted.
func (s *NotificationService) Enqueue(event OrderEvent) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		logrus.WithField("order_id", event.OrderID.String()).Warn("Notification queue closed, dropping order event")
		return false
	}

	select {
	case s.queue <- event:
		return true
	default:
		logrus.WithField("order_id", event.OrderID.String()).Warn("Notification queue full, dropping order event")
		return false
	}
}

func (s *NotificationService) work(id int) {
	defer s.wg.Done()
	for event := range s.queue {
		if err := s.deliver(event); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"worker":   id,
				"order_id": event.OrderID.String(),
			}).Warn("Failed to publish order event")
		}
	}
}

func (s *NotificationService) deliver(event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.publisher.Publish(ctx, s.channel, payload)
}
