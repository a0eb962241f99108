package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marketpay/marketpay-backend/pkg/db/models"
	"github.com/marketpay/marketpay-backend/pkg/enums"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Store{}, &models.Product{}, &models.Order{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedOrder(t *testing.T, conn *gorm.DB, buyer *models.User, product *models.Product, quantity int, at time.Time) *models.Order {
	t.Helper()
	order := models.Order{
		Quantity:   quantity,
		TotalPrice: product.Price.Mul(decimal.NewFromInt(int64(quantity))),
		BuyerID:    buyer.ID,
		ProductID:  product.ID,
		CreatedAt:  at,
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return &order
}

func TestListMineReturnsOwnOrdersNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	alice := models.User{Email: "alice@example.com", PasswordHash: "x", Name: "Alice Smith", Role: enums.UserRoleUser}
	bob := models.User{Email: "bob@example.com", PasswordHash: "x", Name: "Bob Johnson", Role: enums.UserRoleUser}
	for _, u := range []*models.User{&alice, &bob} {
		if err := conn.Create(u).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	store := models.Store{Name: "Bob's Books", OwnerID: bob.ID}
	if err := conn.Create(&store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	book := models.Product{StoreID: store.ID, Name: "TypeScript Handbook", Price: decimal.NewFromInt(45), Stock: 20}
	if err := conn.Create(&book).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	seedOrder(t, conn, &alice, &book, 1, base)
	second := seedOrder(t, conn, &alice, &book, 2, base.Add(time.Minute))
	seedOrder(t, conn, &bob, &book, 3, base.Add(2*time.Minute))

	got, err := svc.ListMine(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(got))
	}
	if got[0].ID != second.ID {
		t.Fatalf("expected newest order first, got %s", got[0].ID)
	}
	if got[0].ProductName != "TypeScript Handbook" || got[0].StoreName != "Bob's Books" {
		t.Fatalf("expected preloaded product and store, got %+v", got[0])
	}
	if !got[0].TotalPrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected total 90, got %s", got[0].TotalPrice)
	}
}

func TestListAllRespectsLimitAndIncludesBuyer(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	alice := models.User{Email: "alice@example.com", PasswordHash: "x", Name: "Alice Smith", Role: enums.UserRoleUser}
	if err := conn.Create(&alice).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	store := models.Store{Name: "Alice's Electronics", OwnerID: alice.ID}
	if err := conn.Create(&store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	product := models.Product{StoreID: store.ID, Name: "Wireless Headphones", Price: decimal.NewFromInt(150), Stock: 10}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedOrder(t, conn, &alice, &product, 1, base.Add(time.Duration(i)*time.Minute))
	}

	got, err := svc.ListAll(ctx, 2)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(got))
	}
	if got[0].BuyerName != "Alice Smith" {
		t.Fatalf("expected preloaded buyer, got %+v", got[0])
	}
	if !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Fatalf("expected newest first ordering")
	}
}
