package migrate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketpay/marketpay-backend/pkg/config"
	"github.com/marketpay/marketpay-backend/pkg/db"
	"github.com/marketpay/marketpay-backend/pkg/db/models"
	"github.com/marketpay/marketpay-backend/pkg/enums"
	"github.com/marketpay/marketpay-backend/pkg/logger"
	"github.com/marketpay/marketpay-backend/pkg/security"
)

const seedPassword = "password123"

type seedUser struct {
	Email   string
	Name    string
	Role    enums.UserRole
	Balance decimal.Decimal
}

type seedProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// MaybeSeedDev inserts demo users, stores and products when running in dev mode
// with an empty users table. It is a no-op everywhere else.
func MaybeSeedDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	var count int64
	if err := client.DB().WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := security.HashPassword(seedPassword, cfg.Password)
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}

	users := []seedUser{
		{Email: "admin@wallet.com", Name: "Admin User", Role: enums.UserRoleAdmin, Balance: decimal.NewFromInt(10000)},
		{Email: "alice@example.com", Name: "Alice Smith", Role: enums.UserRoleUser, Balance: decimal.NewFromInt(1000)},
		{Email: "bob@example.com", Name: "Bob Johnson", Role: enums.UserRoleUser, Balance: decimal.NewFromInt(500)},
	}

	productsByStore := map[string][]seedProduct{
		"Alice's Electronics": {
			{Name: "Wireless Headphones", Description: "Premium noise-cancelling headphones", Price: decimal.NewFromInt(150), Stock: 10},
			{Name: "Smartphone", Description: "Latest model smartphone", Price: decimal.NewFromInt(800), Stock: 5},
		},
		"Bob's Books": {
			{Name: "TypeScript Handbook", Description: "Complete guide to TypeScript", Price: decimal.NewFromInt(45), Stock: 20},
		},
	}
	storesByOwner := map[string]struct {
		Name        string
		Description string
	}{
		"alice@example.com": {Name: "Alice's Electronics", Description: "Best electronics in town"},
		"bob@example.com":   {Name: "Bob's Books", Description: "Quality books for everyone"},
	}

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, su := range users {
			user := models.User{
				Email:        su.Email,
				PasswordHash: hash,
				Name:         su.Name,
				Role:         su.Role,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("seeding user %s: %w", su.Email, err)
			}
			account := models.Account{UserID: user.ID, Balance: su.Balance}
			if err := tx.Create(&account).Error; err != nil {
				return fmt.Errorf("seeding account for %s: %w", su.Email, err)
			}

			spec, ok := storesByOwner[su.Email]
			if !ok {
				continue
			}
			desc := spec.Description
			store := models.Store{Name: spec.Name, Description: &desc, OwnerID: user.ID}
			if err := tx.Create(&store).Error; err != nil {
				return fmt.Errorf("seeding store %s: %w", spec.Name, err)
			}
			for _, sp := range productsByStore[spec.Name] {
				pdesc := sp.Description
				product := models.Product{
					StoreID:     store.ID,
					Name:        sp.Name,
					Description: &pdesc,
					Price:       sp.Price,
					Stock:       sp.Stock,
				}
				if err := tx.Create(&product).Error; err != nil {
					return fmt.Errorf("seeding product %s: %w", sp.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "dev seed data inserted")
	return nil
}
