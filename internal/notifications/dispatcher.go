package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketpay/marketpay-backend/pkg/config"
	"github.com/marketpay/marketpay-backend/pkg/db/models"
	"github.com/marketpay/marketpay-backend/pkg/enums"
	"github.com/marketpay/marketpay-backend/pkg/logger"
)

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

type envelope struct {
	UserID  uuid.UUID
	Event   enums.NotificationEvent
	Payload map[string]any
}

// pushMessage is the wire shape pushed onto the per-user pub/sub channel for
// real-time subscribers.
type pushMessage struct {
	NotificationID uuid.UUID               `json:"notification_id"`
	Event          enums.NotificationEvent `json:"event"`
	Payload        map[string]any          `json:"payload"`
	CreatedAt      time.Time               `json:"created_at"`
}

// Dispatcher receives post-commit ledger events, persists them as in-app
// notifications and pushes them to real-time subscribers. Delivery is best
// effort: a full queue drops the event, and persistence or publish failures
// are logged, never surfaced to the committing operation.
type Dispatcher struct {
	repo  Repository
	pub   publisher
	logg  *logger.Logger
	cfg   config.NotificationsConfig
	queue chan envelope
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher builds a dispatcher and starts its worker. Publisher may be
// nil when real-time push is disabled.
func NewDispatcher(repo Repository, pub publisher, logg *logger.Logger, cfg config.NotificationsConfig) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	d := &Dispatcher{
		repo:  repo,
		pub:   pub,
		logg:  logg,
		cfg:   cfg,
		queue: make(chan envelope, size),
	}
	d.wg.Add(1)
	go d.run()
	return d, nil
}

// Notify enqueues an event without blocking the caller. Implements the
// ledger's notifier contract.
func (d *Dispatcher) Notify(_ context.Context, userID uuid.UUID, event enums.NotificationEvent, payload map[string]any) {
	// The send happens under the mutex so Close cannot close the channel
	// between the closed check and the send.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- envelope{UserID: userID, Event: event, Payload: payload}:
	default:
		ctx := d.logg.WithFields(context.Background(), map[string]any{
			"user_id": userID.String(),
			"event":   string(event),
		})
		d.logg.Warn(ctx, "notification queue full, event dropped")
	}
}

// Close stops accepting events and drains the queue.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for env := range d.queue {
		d.deliver(env)
	}
}

func (d *Dispatcher) deliver(env envelope) {
	ctx := d.logg.WithFields(context.Background(), map[string]any{
		"user_id": env.UserID.String(),
		"event":   string(env.Event),
	})

	payload, err := json.Marshal(env.Payload)
	if err != nil {
		d.logg.Error(ctx, "marshal notification payload", err)
		return
	}

	notification := &models.Notification{
		UserID:  env.UserID,
		Event:   env.Event,
		Payload: payload,
	}
	if err := d.repo.Create(ctx, notification); err != nil {
		d.logg.Error(ctx, "persist notification", err)
		return
	}

	if d.pub == nil || !d.cfg.PublishEnabled {
		return
	}
	message, err := json.Marshal(pushMessage{
		NotificationID: notification.ID,
		Event:          env.Event,
		Payload:        env.Payload,
		CreatedAt:      notification.CreatedAt,
	})
	if err != nil {
		d.logg.Error(ctx, "marshal push message", err)
		return
	}
	channel := fmt.Sprintf("%s:%s", d.cfg.ChannelPrefix, env.UserID)
	if err := d.pub.Publish(ctx, channel, message); err != nil {
		d.logg.Error(ctx, "publish notification", err)
	}
}
