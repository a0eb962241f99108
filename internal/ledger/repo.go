package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketpay/marketpay-backend/pkg/db/models"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
)

// Repository manages persistence for accounts, transactions and the rows a
// purchase commit touches. Balance and stock mutations are conditional
// single-statement updates so the commit re-validates the invariants the
// guard pre-checked; a lost update cannot slip through between read and
// write.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	DebitAccount(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	CreditAccount(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	FindProductForSale(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error

	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	CreateOrder(ctx context.Context, order *models.Order) error
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, err
	}
	return &account, nil
}

// DebitAccount subtracts amount from the balance only while the balance can
// cover it. Zero rows affected means the funds check failed at commit time
// (or the account vanished), regardless of what the pre-check saw.
func (r *repository) DebitAccount(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		UpdateColumns(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindAccount(ctx, userID); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient balance")
	}
	return nil
}

func (r *repository) CreditAccount(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return nil
}

// FindProductForSale loads the product together with its store and the
// owner's account, the full chain a purchase needs.
func (r *repository) FindProductForSale(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Store").
		Preload("Store.Owner").
		First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
	}
	return nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, err
	}
	return &txn, nil
}
