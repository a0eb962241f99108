package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/marketpay/marketpay-backend/api/responses"
	"github.com/marketpay/marketpay-backend/api/validators"
	"github.com/marketpay/marketpay-backend/internal/accounts"
	"github.com/marketpay/marketpay-backend/internal/admin"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
	"github.com/marketpay/marketpay-backend/pkg/logger"
	"github.com/marketpay/marketpay-backend/pkg/pagination"
)

type reversalRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,uuid4"`
	Reason        string `json:"reason" validate:"required,min=5,max=500"`
}

// AdminListUsers returns every user with their balance.
func AdminListUsers(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListUsers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminListTransactions returns the most recent ledger rows system-wide.
func AdminListTransactions(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListTransactions(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, accounts.FromTransactionModels(rows))
	}
}

// AdminListOrders returns the most recent orders system-wide.
func AdminListOrders(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminReverseTransaction compensates a peer-to-peer transaction.
func AdminReverseTransaction(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reversalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactionID, err := uuid.Parse(req.TransactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
			return
		}

		result, err := svc.ReverseTransaction(r.Context(), transactionID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"reversal": accounts.FromTransactionModel(result.Reversal),
		})
	}
}
