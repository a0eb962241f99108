package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketpay/marketpay-backend/pkg/config"
	"github.com/marketpay/marketpay-backend/pkg/db"
	"github.com/marketpay/marketpay-backend/pkg/db/models"
	"github.com/marketpay/marketpay-backend/pkg/enums"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
	"github.com/marketpay/marketpay-backend/pkg/logger"
	"github.com/marketpay/marketpay-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier receives best-effort post-commit events. Implementations must
// never block the caller; delivery failure never affects the commit.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event enums.NotificationEvent, payload map[string]any)
}

// Service executes the three money-moving operations. Every mutation happens
// inside one database transaction; serialization conflicts are retried a
// bounded number of times before surfacing as a retryable error.
type Service interface {
	Transfer(ctx context.Context, senderID uuid.UUID, input TransferInput) (*TransferResult, error)
	Purchase(ctx context.Context, buyerID uuid.UUID, input PurchaseInput) (*PurchaseResult, error)
	Reverse(ctx context.Context, input ReverseInput) (*ReverseResult, error)
}

// TransferInput carries validated arguments for a peer-to-peer transfer.
type TransferInput struct {
	ReceiverEmail string
	Amount        decimal.Decimal
	Description   *string
}

// TransferResult reports the sender-perspective row and the sender's balance
// after commit.
type TransferResult struct {
	Transaction *models.Transaction
	NewBalance  decimal.Decimal
}

// PurchaseInput carries validated arguments for a store purchase.
type PurchaseInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// PurchaseResult reports the created order and the buyer's balance after
// commit.
type PurchaseResult struct {
	Order      *models.Order
	NewBalance decimal.Decimal
}

// ReverseInput identifies the transaction an administrator wants undone.
type ReverseInput struct {
	TransactionID uuid.UUID
	Reason        string
}

// ReverseResult reports the REVERSAL-kind compensating row.
type ReverseResult struct {
	Reversal *models.Transaction
}

type service struct {
	tx       txRunner
	repo     Repository
	users    userDirectory
	notifier Notifier
	metrics  *metrics.LedgerMetrics
	logg     *logger.Logger
	cfg      config.LedgerConfig
}

// ServiceParams packages the service dependencies. Notifier and Metrics are
// optional.
type ServiceParams struct {
	TxRunner txRunner
	Repo     Repository
	Users    userDirectory
	Notifier Notifier
	Metrics  *metrics.LedgerMetrics
	Logger   *logger.Logger
	Config   config.LedgerConfig
}

// NewService wires the ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       params.TxRunner,
		repo:     params.Repo,
		users:    params.Users,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		cfg:      params.Config,
	}, nil
}

func (s *service) Transfer(ctx context.Context, senderID uuid.UUID, input TransferInput) (*TransferResult, error) {
	start := time.Now()
	result, err := s.transfer(ctx, senderID, input)
	s.observe(ctx, "transfer", start, err)
	return result, err
}

func (s *service) transfer(ctx context.Context, senderID uuid.UUID, input TransferInput) (*TransferResult, error) {
	if senderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender id required")
	}
	if err := CheckAmount(input.Amount); err != nil {
		return nil, err
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "sender not found")
	}
	receiver, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.ReceiverEmail)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "receiver not found")
	}
	if err := CheckDistinctParties(sender.ID, receiver.ID); err != nil {
		return nil, err
	}

	// Pre-check; the debit re-validates inside the commit.
	senderAccount, err := s.repo.FindAccount(ctx, sender.ID)
	if err != nil {
		return nil, err
	}
	if err := CheckSufficientFunds(senderAccount.Balance, input.Amount); err != nil {
		return nil, err
	}

	sentDesc := descriptionOrDefault(input.Description, fmt.Sprintf("Transfer to %s", receiver.Name))
	receivedDesc := descriptionOrDefault(input.Description, fmt.Sprintf("Transfer from %s", sender.Name))

	var (
		sentRow         *models.Transaction
		senderBalance   decimal.Decimal
		receiverBalance decimal.Decimal
	)
	err = s.runCommit(ctx, "transfer", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.DebitAccount(ctx, sender.ID, input.Amount); err != nil {
			return err
		}
		if err := repo.CreditAccount(ctx, receiver.ID, input.Amount); err != nil {
			return err
		}

		sent := &models.Transaction{
			Amount:      input.Amount,
			Kind:        enums.TransactionKindTransferSent,
			Description: &sentDesc,
			SenderID:    &sender.ID,
			ReceiverID:  &receiver.ID,
		}
		if err := repo.CreateTransaction(ctx, sent); err != nil {
			return err
		}
		received := &models.Transaction{
			Amount:      input.Amount,
			Kind:        enums.TransactionKindTransferReceived,
			Description: &receivedDesc,
			SenderID:    &sender.ID,
			ReceiverID:  &receiver.ID,
		}
		if err := repo.CreateTransaction(ctx, received); err != nil {
			return err
		}

		senderAfter, err := repo.FindAccount(ctx, sender.ID)
		if err != nil {
			return err
		}
		receiverAfter, err := repo.FindAccount(ctx, receiver.ID)
		if err != nil {
			return err
		}

		sentRow = sent
		senderBalance = senderAfter.Balance
		receiverBalance = receiverAfter.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, sender.ID, enums.NotificationEventTransferSent, map[string]any{
		"amount":      input.Amount,
		"to":          receiver.Name,
		"description": input.Description,
		"new_balance": senderBalance,
	})
	s.notify(ctx, receiver.ID, enums.NotificationEventTransferReceived, map[string]any{
		"amount":      input.Amount,
		"from":        sender.Name,
		"description": input.Description,
		"new_balance": receiverBalance,
	})

	return &TransferResult{Transaction: sentRow, NewBalance: senderBalance}, nil
}

func (s *service) Purchase(ctx context.Context, buyerID uuid.UUID, input PurchaseInput) (*PurchaseResult, error) {
	start := time.Now()
	result, err := s.purchase(ctx, buyerID, input)
	s.observe(ctx, "purchase", start, err)
	return result, err
}

func (s *service) purchase(ctx context.Context, buyerID uuid.UUID, input PurchaseInput) (*PurchaseResult, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if err := CheckQuantity(input.Quantity); err != nil {
		return nil, err
	}

	buyer, err := s.users.FindByID(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "buyer not found")
	}
	product, err := s.repo.FindProductForSale(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product has no owning store")
	}
	sellerID := product.Store.OwnerID

	if err := CheckDistinctParties(buyer.ID, sellerID); err != nil {
		return nil, err
	}
	if err := CheckStock(product.Stock, input.Quantity); err != nil {
		return nil, err
	}

	// Price snapshot read in the same pass that gets committed.
	totalPrice := product.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))
	if err := CheckAmount(totalPrice); err != nil {
		return nil, err
	}

	buyerAccount, err := s.repo.FindAccount(ctx, buyer.ID)
	if err != nil {
		return nil, err
	}
	if err := CheckSufficientFunds(buyerAccount.Balance, totalPrice); err != nil {
		return nil, err
	}

	purchaseDesc := fmt.Sprintf("Purchase: %dx %s", input.Quantity, product.Name)
	saleDesc := fmt.Sprintf("Sale: %dx %s", input.Quantity, product.Name)

	var (
		order         *models.Order
		buyerBalance  decimal.Decimal
		sellerBalance decimal.Decimal
	)
	err = s.runCommit(ctx, "purchase", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.DecrementStock(ctx, product.ID, input.Quantity); err != nil {
			return err
		}
		if err := repo.DebitAccount(ctx, buyer.ID, totalPrice); err != nil {
			return err
		}
		if err := repo.CreditAccount(ctx, sellerID, totalPrice); err != nil {
			return err
		}

		created := &models.Order{
			BuyerID:    buyer.ID,
			ProductID:  product.ID,
			Quantity:   input.Quantity,
			TotalPrice: totalPrice,
		}
		if err := repo.CreateOrder(ctx, created); err != nil {
			return err
		}

		for _, row := range []*models.Transaction{
			{
				Amount:      totalPrice,
				Kind:        enums.TransactionKindPurchase,
				Description: &purchaseDesc,
				SenderID:    &buyer.ID,
				ReceiverID:  &sellerID,
				OrderID:     &created.ID,
			},
			{
				Amount:      totalPrice,
				Kind:        enums.TransactionKindSale,
				Description: &saleDesc,
				SenderID:    &buyer.ID,
				ReceiverID:  &sellerID,
				OrderID:     &created.ID,
			},
		} {
			if err := repo.CreateTransaction(ctx, row); err != nil {
				return err
			}
		}

		buyerAfter, err := repo.FindAccount(ctx, buyer.ID)
		if err != nil {
			return err
		}
		sellerAfter, err := repo.FindAccount(ctx, sellerID)
		if err != nil {
			return err
		}

		order = created
		buyerBalance = buyerAfter.Balance
		sellerBalance = sellerAfter.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, buyer.ID, enums.NotificationEventPurchaseCompleted, map[string]any{
		"product":     product.Name,
		"quantity":    input.Quantity,
		"total_price": totalPrice,
		"new_balance": buyerBalance,
	})
	s.notify(ctx, sellerID, enums.NotificationEventSaleCompleted, map[string]any{
		"product":     product.Name,
		"quantity":    input.Quantity,
		"total_price": totalPrice,
		"buyer":       buyer.Name,
		"new_balance": sellerBalance,
	})

	return &PurchaseResult{Order: order, NewBalance: buyerBalance}, nil
}

func (s *service) Reverse(ctx context.Context, input ReverseInput) (*ReverseResult, error) {
	start := time.Now()
	result, err := s.reverse(ctx, input)
	s.observe(ctx, "reversal", start, err)
	return result, err
}

func (s *service) reverse(ctx context.Context, input ReverseInput) (*ReverseResult, error) {
	if input.TransactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}

	original, err := s.repo.FindTransactionByID(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if err := CheckReversible(original); err != nil {
		return nil, err
	}
	origSenderID := *original.SenderID
	origReceiverID := *original.ReceiverID

	// The original receiver refunds the original sender, so their current
	// balance must cover the amount.
	receiverAccount, err := s.repo.FindAccount(ctx, origReceiverID)
	if err != nil {
		return nil, err
	}
	if err := CheckSufficientFunds(receiverAccount.Balance, original.Amount); err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(models.ReversalMetadata{
		OriginalTransactionID: original.ID,
		Reason:                reason,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal reversal metadata")
	}

	origDesc := ""
	if original.Description != nil {
		origDesc = *original.Description
	}
	reversalDesc := fmt.Sprintf("REVERSAL: %s (Original: %s)", reason, origDesc)
	adjustmentDesc := fmt.Sprintf("REVERSAL RECEIVED: %s", reason)

	var (
		reversalRow     *models.Transaction
		senderBalance   decimal.Decimal
		receiverBalance decimal.Decimal
	)
	err = s.runCommit(ctx, "reversal", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.DebitAccount(ctx, origReceiverID, original.Amount); err != nil {
			return err
		}
		if err := repo.CreditAccount(ctx, origSenderID, original.Amount); err != nil {
			return err
		}

		// Money flows receiver -> sender, so the compensating pair carries
		// the mirrored perspective, matching the transfer convention.
		reversal := &models.Transaction{
			Amount:      original.Amount,
			Kind:        enums.TransactionKindReversal,
			Description: &reversalDesc,
			SenderID:    &origReceiverID,
			ReceiverID:  &origSenderID,
			Metadata:    metadata,
		}
		if err := repo.CreateTransaction(ctx, reversal); err != nil {
			return err
		}
		adjustment := &models.Transaction{
			Amount:      original.Amount,
			Kind:        enums.TransactionKindAdminAdjustment,
			Description: &adjustmentDesc,
			SenderID:    &origReceiverID,
			ReceiverID:  &origSenderID,
			Metadata:    metadata,
		}
		if err := repo.CreateTransaction(ctx, adjustment); err != nil {
			return err
		}

		senderAfter, err := repo.FindAccount(ctx, origSenderID)
		if err != nil {
			return err
		}
		receiverAfter, err := repo.FindAccount(ctx, origReceiverID)
		if err != nil {
			return err
		}

		reversalRow = reversal
		senderBalance = senderAfter.Balance
		receiverBalance = receiverAfter.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, origSenderID, enums.NotificationEventReversalCompleted, map[string]any{
		"amount":      original.Amount,
		"reason":      reason,
		"new_balance": senderBalance,
	})
	s.notify(ctx, origReceiverID, enums.NotificationEventReversalCompleted, map[string]any{
		"amount":      original.Amount,
		"reason":      reason,
		"new_balance": receiverBalance,
	})

	return &ReverseResult{Reversal: reversalRow}, nil
}

// runCommit executes fn in a transaction, retrying on serialization
// conflicts up to the configured bound.
func (s *service) runCommit(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	attempts := s.cfg.CommitRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			s.metrics.IncConflict(operation)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.CommitRetryBackoff * time.Duration(attempt)):
			}
		}
		err = s.tx.WithTx(ctx, fn)
		if err == nil || !db.IsSerializationConflict(err) {
			return err
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "commit retries exhausted")
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, event enums.NotificationEvent, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, event, payload)
}

func (s *service) observe(ctx context.Context, operation string, start time.Time, err error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err == nil {
		s.metrics.IncSuccess(operation)
		return
	}
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	s.metrics.IncFailure(operation, string(code))
	s.logg.Warn(s.logg.WithOperation(ctx, operation), "ledger operation rejected: "+err.Error())
}

func descriptionOrDefault(desc *string, fallback string) string {
	if desc != nil && strings.TrimSpace(*desc) != "" {
		return *desc
	}
	return fallback
}
