package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/marketpay/marketpay-backend/api/responses"
	"github.com/marketpay/marketpay-backend/api/validators"
	"github.com/marketpay/marketpay-backend/internal/accounts"
	"github.com/marketpay/marketpay-backend/internal/ledger"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
	"github.com/marketpay/marketpay-backend/pkg/logger"
)

type transferRequest struct {
	ReceiverEmail string  `json:"receiver_email" validate:"required,email"`
	Amount        string  `json:"amount" validate:"required"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// Transfer moves funds from the caller to another user by email.
func Transfer(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		senderID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidAmount, err, "amount must be a decimal number"))
			return
		}

		result, err := svc.Transfer(r.Context(), senderID, ledger.TransferInput{
			ReceiverEmail: req.ReceiverEmail,
			Amount:        amount,
			Description:   req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"transaction": accounts.FromTransactionModel(result.Transaction),
			"new_balance": result.NewBalance,
		})
	}
}
