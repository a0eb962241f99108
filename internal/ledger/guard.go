package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketpay/marketpay-backend/pkg/db/models"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
)

// The guard is a set of pure predicates evaluated before any commit is
// attempted. It never mutates state; the repository re-validates balance and
// stock conditions inside the commit itself because state may change between
// the read and the write under concurrency.

// CheckAmount rejects zero/negative amounts and sub-cent precision.
func CheckAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive")
	}
	if amount.Exponent() < -2 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount precision is limited to cents")
	}
	return nil
}

// CheckQuantity rejects non-positive purchase quantities.
func CheckQuantity(quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "quantity must be positive")
	}
	return nil
}

// CheckDistinctParties rejects self-transfers and self-purchases.
func CheckDistinctParties(a, b uuid.UUID) error {
	if a == b {
		return pkgerrors.New(pkgerrors.CodeSelfDealing, "sender and receiver must be different users")
	}
	return nil
}

// CheckSufficientFunds verifies the paying account can cover the amount.
// Draining the balance exactly to zero is allowed.
func CheckSufficientFunds(balance, amount decimal.Decimal) error {
	if balance.LessThan(amount) {
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient balance")
	}
	return nil
}

// CheckStock verifies the product can cover the requested quantity.
func CheckStock(stock, quantity int) error {
	if stock < quantity {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
	}
	return nil
}

// CheckReversible verifies the original transaction is a peer-to-peer kind
// carrying both participants. Adjustments and prior reversals are not
// reversible.
func CheckReversible(txn *models.Transaction) error {
	if txn == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	if !txn.Kind.IsPeerToPeer() || txn.SenderID == nil || txn.ReceiverID == nil {
		return pkgerrors.New(pkgerrors.CodeUnsupportedReversal, "transaction kind cannot be reversed")
	}
	return nil
}
