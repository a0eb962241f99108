package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketpay/marketpay-backend/pkg/db/models"
)

// Repository provides persistence for stores and their product listings.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateStore(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

// storeRow pairs a store with its listing count for the catalog view.
type storeRow struct {
	Store        models.Store
	ProductCount int64
}

// ListStores returns every store with its owner and product count, oldest first.
func (r *Repository) ListStores(ctx context.Context) ([]storeRow, error) {
	var stores []models.Store
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Order("created_at ASC").
		Find(&stores).Error; err != nil {
		return nil, err
	}

	rows := make([]storeRow, 0, len(stores))
	for i := range stores {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("store_id = ?", stores[i].ID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		rows = append(rows, storeRow{Store: stores[i], ProductCount: count})
	}
	return rows, nil
}

// FindStoreByID loads a store with its owner and full product list.
func (r *Repository) FindStoreByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&store, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// ListAvailableProducts returns in-stock listings across all stores with
// store and owner preloaded, oldest first.
func (r *Repository) ListAvailableProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Store").
		Preload("Store.Owner").
		Where("stock > 0").
		Order("created_at ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
