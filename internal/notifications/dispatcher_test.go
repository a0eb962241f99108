package notifications

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marketpay/marketpay-backend/pkg/config"
	"github.com/marketpay/marketpay-backend/pkg/db/models"
	"github.com/marketpay/marketpay-backend/pkg/enums"
	"github.com/marketpay/marketpay-backend/pkg/logger"
)

type stubPublisher struct {
	mu       sync.Mutex
	messages map[string][]string
	fail     bool
}

func (s *stubPublisher) Publish(_ context.Context, channel string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return context.DeadlineExceeded
	}
	if s.messages == nil {
		s.messages = map[string][]string{}
	}
	raw, _ := payload.([]byte)
	s.messages[channel] = append(s.messages[channel], string(raw))
	return nil
}

func newDispatcherTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestDispatcherPersistsAndPublishes(t *testing.T) {
	conn := newDispatcherTestDB(t)
	pub := &stubPublisher{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	dispatcher, err := NewDispatcher(NewRepository(conn), pub, logg, config.NotificationsConfig{
		QueueSize:      16,
		ChannelPrefix:  "mp:notify",
		PublishEnabled: true,
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	userID := uuid.New()
	dispatcher.Notify(context.Background(), userID, enums.NotificationEventTransferReceived, map[string]any{
		"amount": "100",
		"from":   "Alice",
	})
	dispatcher.Notify(context.Background(), userID, enums.NotificationEventReversalCompleted, map[string]any{
		"amount": "100",
		"reason": "dispute raised",
	})
	dispatcher.Close()

	var rows []models.Notification
	if err := conn.Order("created_at ASC").Find(&rows, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 persisted notifications, got %d", len(rows))
	}
	if rows[0].Event != enums.NotificationEventTransferReceived {
		t.Fatalf("unexpected first event %s", rows[0].Event)
	}
	if rows[0].ReadAt != nil {
		t.Fatal("new notification must be unread")
	}

	var payload map[string]any
	if err := json.Unmarshal(rows[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["from"] != "Alice" {
		t.Fatalf("unexpected payload %v", payload)
	}

	channel := "mp:notify:" + userID.String()
	if got := len(pub.messages[channel]); got != 2 {
		t.Fatalf("expected 2 pushed messages on %s, got %d", channel, got)
	}
	var pushed pushMessage
	if err := json.Unmarshal([]byte(pub.messages[channel][0]), &pushed); err != nil {
		t.Fatalf("unmarshal push message: %v", err)
	}
	if pushed.Event != enums.NotificationEventTransferReceived || pushed.NotificationID != rows[0].ID {
		t.Fatalf("unexpected push message %+v", pushed)
	}
}

func TestDispatcherPublishFailureStillPersists(t *testing.T) {
	conn := newDispatcherTestDB(t)
	pub := &stubPublisher{fail: true}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	dispatcher, err := NewDispatcher(NewRepository(conn), pub, logg, config.NotificationsConfig{
		QueueSize:      4,
		ChannelPrefix:  "mp:notify",
		PublishEnabled: true,
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	userID := uuid.New()
	dispatcher.Notify(context.Background(), userID, enums.NotificationEventSaleCompleted, map[string]any{"product": "Gadget"})
	dispatcher.Close()

	var count int64
	if err := conn.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected persisted notification despite publish failure, got %d", count)
	}
}

func TestDispatcherNotifyAfterCloseIsNoop(t *testing.T) {
	conn := newDispatcherTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	dispatcher, err := NewDispatcher(NewRepository(conn), nil, logg, config.NotificationsConfig{QueueSize: 4})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	dispatcher.Close()
	dispatcher.Notify(context.Background(), uuid.New(), enums.NotificationEventTransferSent, nil)
	dispatcher.Close()

	var count int64
	if err := conn.Model(&models.Notification{}).Count(&count).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no notifications, got %d", count)
	}
}

func TestDispatcherConcurrentNotifyAndCloseDoesNotPanic(t *testing.T) {
	conn := newDispatcherTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	dispatcher, err := NewDispatcher(NewRepository(conn), nil, logg, config.NotificationsConfig{QueueSize: 4})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				dispatcher.Notify(context.Background(), uuid.New(), enums.NotificationEventTransferSent, nil)
			}
		}()
	}
	dispatcher.Close()
	wg.Wait()
}
