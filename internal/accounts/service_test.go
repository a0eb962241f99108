package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marketpay/marketpay-backend/internal/users"
	"github.com/marketpay/marketpay-backend/pkg/db/models"
	"github.com/marketpay/marketpay-backend/pkg/enums"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:accounts_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Account{}, &models.Store{}, &models.Product{}, &models.Order{}, &models.Transaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func seedUser(t *testing.T, conn *gorm.DB, email, name string, balance decimal.Decimal) *models.User {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "x", Name: name, Role: enums.UserRoleUser}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := conn.Create(&models.Account{UserID: user.ID, Balance: balance}).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return &user
}

func TestGetBalanceAndDetails(t *testing.T) {
	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn), users.NewRepository(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	alice := seedUser(t, conn, "alice@example.com", "Alice", decimal.RequireFromString("123.45"))

	balance, err := svc.GetBalance(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !balance.Balance.Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("unexpected balance %s", balance.Balance)
	}

	details, err := svc.GetDetails(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get details: %v", err)
	}
	if details.User.Email != "alice@example.com" || !details.Balance.Equal(balance.Balance) {
		t.Fatalf("unexpected details %+v", details)
	}

	if _, err := svc.GetBalance(ctx, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestHistoryReturnsBothPerspectivesNewestFirst(t *testing.T) {
	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn), users.NewRepository(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	alice := seedUser(t, conn, "alice@example.com", "Alice", decimal.NewFromInt(100))
	bob := seedUser(t, conn, "bob@example.com", "Bob", decimal.NewFromInt(100))
	carol := seedUser(t, conn, "carol@example.com", "Carol", decimal.NewFromInt(100))

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := []models.Transaction{
		{Amount: decimal.NewFromInt(10), Kind: enums.TransactionKindTransferSent, SenderID: &alice.ID, ReceiverID: &bob.ID, CreatedAt: base},
		{Amount: decimal.NewFromInt(10), Kind: enums.TransactionKindTransferReceived, SenderID: &alice.ID, ReceiverID: &bob.ID, CreatedAt: base.Add(time.Second)},
		{Amount: decimal.NewFromInt(20), Kind: enums.TransactionKindTransferSent, SenderID: &bob.ID, ReceiverID: &alice.ID, CreatedAt: base.Add(2 * time.Second)},
		{Amount: decimal.NewFromInt(30), Kind: enums.TransactionKindTransferSent, SenderID: &bob.ID, ReceiverID: &carol.ID, CreatedAt: base.Add(3 * time.Second)},
	}
	for i := range rows {
		if err := conn.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}

	history, err := svc.History(ctx, HistoryParams{UserID: alice.ID, Limit: 10})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	// Alice appears in three rows; the bob->carol row is not hers.
	if len(history.Items) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(history.Items))
	}
	if !history.Items[0].CreatedAt.After(history.Items[2].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}
	if history.Items[0].Sender == nil || history.Items[0].Sender.Name != "Bob" {
		t.Fatalf("expected sender preloaded, got %+v", history.Items[0].Sender)
	}

	paged, err := svc.History(ctx, HistoryParams{UserID: alice.ID, Limit: 2})
	if err != nil {
		t.Fatalf("paged history: %v", err)
	}
	if len(paged.Items) != 2 || paged.Cursor == "" {
		t.Fatalf("expected 2 rows and a cursor, got %d %q", len(paged.Items), paged.Cursor)
	}
	rest, err := svc.History(ctx, HistoryParams{UserID: alice.ID, Limit: 2, Cursor: paged.Cursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest.Items) != 1 || rest.Cursor != "" {
		t.Fatalf("expected final page with 1 row, got %d %q", len(rest.Items), rest.Cursor)
	}
}
