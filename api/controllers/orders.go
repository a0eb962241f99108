package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/marketpay/marketpay-backend/api/responses"
	"github.com/marketpay/marketpay-backend/api/validators"
	"github.com/marketpay/marketpay-backend/internal/ledger"
	"github.com/marketpay/marketpay-backend/internal/orders"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
	"github.com/marketpay/marketpay-backend/pkg/logger"
)

type purchaseRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// OrderCreate purchases a product on behalf of the caller.
func OrderCreate(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req purchaseRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		result, err := svc.Purchase(r.Context(), buyerID, ledger.PurchaseInput{
			ProductID: productID,
			Quantity:  req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"order":       orders.FromModel(result.Order),
			"new_balance": result.NewBalance,
		})
	}
}

// OrderList returns the caller's purchase history.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
