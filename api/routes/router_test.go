package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marketpay/marketpay-backend/internal/accounts"
	"github.com/marketpay/marketpay-backend/internal/admin"
	"github.com/marketpay/marketpay-backend/internal/auth"
	"github.com/marketpay/marketpay-backend/internal/ledger"
	"github.com/marketpay/marketpay-backend/internal/notifications"
	"github.com/marketpay/marketpay-backend/internal/orders"
	"github.com/marketpay/marketpay-backend/internal/stores"
	"github.com/marketpay/marketpay-backend/internal/users"
	"github.com/marketpay/marketpay-backend/pkg/config"
	"github.com/marketpay/marketpay-backend/pkg/db"
	"github.com/marketpay/marketpay-backend/pkg/db/models"
	"github.com/marketpay/marketpay-backend/pkg/enums"
	"github.com/marketpay/marketpay-backend/pkg/logger"
	"github.com/marketpay/marketpay-backend/pkg/security"
)

type testApp struct {
	handler http.Handler
	db      *gorm.DB
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "marketpay",
			ExpirationMinutes: 60,
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8 * 1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		Ledger: config.LedgerConfig{CommitRetries: 25, CommitRetryBackoff: 0},
		Notifications: config.NotificationsConfig{
			QueueSize:     16,
			ChannelPrefix: "mp:notify",
		},
	}
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{}, &models.Account{}, &models.Store{},
		&models.Product{}, &models.Order{}, &models.Transaction{}, &models.Notification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	client := db.FromGorm(conn)
	usersRepo := users.NewRepository(conn)

	dispatcher, err := notifications.NewDispatcher(notifications.NewRepository(conn), nil, logg, cfg.Notifications)
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	t.Cleanup(dispatcher.Close)

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		TxRunner: client,
		Repo:     ledger.NewRepository(conn),
		Users:    usersRepo,
		Notifier: dispatcher,
		Logger:   logg,
		Config:   cfg.Ledger,
	})
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	authSvc, err := auth.NewService(auth.ServiceParams{
		TxRunner:       client,
		UserRepo:       usersRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	accountsSvc, err := accounts.NewService(accounts.NewRepository(conn), usersRepo)
	if err != nil {
		t.Fatalf("accounts service: %v", err)
	}
	storesSvc, err := stores.NewService(stores.NewRepository(conn))
	if err != nil {
		t.Fatalf("stores service: %v", err)
	}
	ordersSvc, err := orders.NewService(orders.NewRepository(conn))
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}
	notificationsSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		t.Fatalf("notifications service: %v", err)
	}
	adminSvc, err := admin.NewService(admin.ServiceParams{
		Repo:   admin.NewRepository(conn),
		Users:  usersRepo,
		Orders: ordersSvc,
		Ledger: ledgerSvc,
	})
	if err != nil {
		t.Fatalf("admin service: %v", err)
	}

	handler := NewRouter(cfg, logg, client, nil, nil, Services{
		Auth:          authSvc,
		Accounts:      accountsSvc,
		Ledger:        ledgerSvc,
		Stores:        storesSvc,
		Orders:        ordersSvc,
		Notifications: notificationsSvc,
		Admin:         adminSvc,
	})
	return &testApp{handler: handler, db: conn}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, path, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, r)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return envelope.Data
}

func (a *testApp) register(t *testing.T, email, name string) (string, string) {
	t.Helper()
	rec := a.do(t, "POST", "/api/v1/auth/register", "", map[string]any{
		"email":    email,
		"password": "password123",
		"name":     name,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%s)", email, rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	token, _ := data["token"].(string)
	user, _ := data["user"].(map[string]any)
	id, _ := user["id"].(string)
	if token == "" || id == "" {
		t.Fatalf("register %s: missing token or id: %v", email, data)
	}
	return token, id
}

func (a *testApp) fund(t *testing.T, userID string, amount int64) {
	t.Helper()
	id, err := uuid.Parse(userID)
	if err != nil {
		t.Fatalf("parse user id: %v", err)
	}
	res := a.db.Model(&models.Account{}).
		Where("user_id = ?", id).
		Update("balance", decimal.NewFromInt(amount))
	if res.Error != nil || res.RowsAffected != 1 {
		t.Fatalf("fund account: %v (rows %d)", res.Error, res.RowsAffected)
	}
}

func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	cfg := testConfig()
	hash, err := security.HashPassword("password123", cfg.Password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{Email: "admin@wallet.com", PasswordHash: hash, Name: "Admin User", Role: enums.UserRoleAdmin}
	if err := a.db.Create(&user).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := a.db.Create(&models.Account{UserID: user.ID, Balance: decimal.NewFromInt(10000)}).Error; err != nil {
		t.Fatalf("create admin account: %v", err)
	}
	rec := a.do(t, "POST", "/api/v1/auth/login", "", map[string]any{
		"email":    "admin@wallet.com",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	token, _ := decodeData(t, rec)["token"].(string)
	return token
}

func TestHealthAndPingEndpoints(t *testing.T) {
	app := newTestApp(t)

	if rec := app.do(t, "GET", "/health/live", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", rec.Code)
	}
	if rec := app.do(t, "GET", "/health/ready", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := app.do(t, "GET", "/api/public/ping", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("public ping: expected 200, got %d", rec.Code)
	}
	if rec := app.do(t, "GET", "/api/ping", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("private ping without token: expected 401, got %d", rec.Code)
	}
}

func TestTransferFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)

	aliceToken, aliceID := app.register(t, "alice@example.com", "Alice Smith")
	_, bobID := app.register(t, "bob@example.com", "Bob Johnson")
	app.fund(t, aliceID, 1000)
	app.fund(t, bobID, 500)

	rec := app.do(t, "POST", "/api/v1/transfers", aliceToken, map[string]any{
		"receiver_email": "bob@example.com",
		"amount":         "100.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("transfer: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if fmt.Sprintf("%v", data["new_balance"]) != "900" {
		t.Fatalf("expected new balance 900, got %v", data["new_balance"])
	}

	rec = app.do(t, "GET", "/api/v1/accounts/balance", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", rec.Code)
	}

	rec = app.do(t, "POST", "/api/v1/transfers", aliceToken, map[string]any{
		"receiver_email": "bob@example.com",
		"amount":         "100000.00",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overdraw: expected 422, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = app.do(t, "GET", "/api/v1/accounts/transactions", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", rec.Code)
	}
	items, _ := decodeData(t, rec)["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(items))
	}
}

func TestPurchaseAndAdminFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)

	aliceToken, aliceID := app.register(t, "alice@example.com", "Alice Smith")
	bobToken, bobID := app.register(t, "bob@example.com", "Bob Johnson")
	app.fund(t, aliceID, 1000)
	app.fund(t, bobID, 500)

	rec := app.do(t, "POST", "/api/v1/stores", bobToken, map[string]any{
		"name": "Bob's Books",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create store: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	storeID, _ := decodeData(t, rec)["id"].(string)

	rec = app.do(t, "POST", "/api/v1/stores/"+storeID+"/products", bobToken, map[string]any{
		"name":  "TypeScript Handbook",
		"price": "45.00",
		"stock": 20,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	productID, _ := decodeData(t, rec)["id"].(string)

	// Owner may not buy from their own store.
	rec = app.do(t, "POST", "/api/v1/orders", bobToken, map[string]any{
		"product_id": productID,
		"quantity":   1,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("self purchase: expected 422, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = app.do(t, "POST", "/api/v1/orders", aliceToken, map[string]any{
		"product_id": productID,
		"quantity":   2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("purchase: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = app.do(t, "GET", "/api/v1/orders", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("orders: expected 200, got %d", rec.Code)
	}

	// Admin endpoints reject regular users.
	rec = app.do(t, "GET", "/api/admin/v1/users", aliceToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin as user: expected 403, got %d", rec.Code)
	}

	adminToken := app.adminToken(t)
	rec = app.do(t, "GET", "/api/admin/v1/users", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin users: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = app.do(t, "GET", "/api/admin/v1/transactions?limit=5", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin transactions: expected 200, got %d", rec.Code)
	}

	// Reverse the transfer leg of a fresh peer-to-peer payment.
	rec = app.do(t, "POST", "/api/v1/transfers", aliceToken, map[string]any{
		"receiver_email": "bob@example.com",
		"amount":         "50.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("transfer: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	tx, _ := decodeData(t, rec)["transaction"].(map[string]any)
	txID, _ := tx["id"].(string)

	rec = app.do(t, "POST", "/api/admin/v1/reversals", adminToken, map[string]any{
		"transaction_id": txID,
		"reason":         "fraudulent charge reported",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("reversal: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	// Wait for the async dispatcher to persist notifications.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var count int64
		if err := app.db.WithContext(context.Background()).
			Model(&models.Notification{}).Count(&count).Error; err != nil {
			t.Fatalf("count notifications: %v", err)
		}
		if count >= 4 || time.Now().After(deadline) {
			if count == 0 {
				t.Fatal("expected notifications to be persisted")
			}
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = app.do(t, "GET", "/api/v1/notifications", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("notifications: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}
