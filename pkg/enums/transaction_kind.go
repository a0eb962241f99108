package enums

import "fmt"

// TransactionKind maps to the transaction_kind enum in Postgres. Every
// peer-to-peer movement produces two rows, one per participant perspective.
type TransactionKind string

const (
	TransactionKindTransferSent     TransactionKind = "TRANSFER_SENT"
	TransactionKindTransferReceived TransactionKind = "TRANSFER_RECEIVED"
	TransactionKindPurchase         TransactionKind = "PURCHASE"
	TransactionKindSale             TransactionKind = "SALE"
	TransactionKindReversal         TransactionKind = "REVERSAL"
	TransactionKindAdminAdjustment  TransactionKind = "ADMIN_ADJUSTMENT"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindTransferSent,
	TransactionKindTransferReceived,
	TransactionKindPurchase,
	TransactionKindSale,
	TransactionKindReversal,
	TransactionKindAdminAdjustment,
}

// IsValid reports whether the value matches the canonical enum.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsPeerToPeer reports whether rows of this kind carry both a sender and a
// receiver. Only peer-to-peer kinds are eligible for reversal.
func (k TransactionKind) IsPeerToPeer() bool {
	switch k {
	case TransactionKindTransferSent,
		TransactionKindTransferReceived,
		TransactionKindPurchase,
		TransactionKindSale:
		return true
	}
	return false
}

// ParseTransactionKind converts raw input into TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
