package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/api/responses"
	"github.com/vinocave/vinocave-backend/api/validators"
	"github.com/vinocave/vinocave-backend/internal/sales"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
	"github.com/vinocave/vinocave-backend/pkg/logger"
)

type confirmSaleRequest struct {
	PurchaseRequestID string `json:"purchaseRequestId" validate:"required,uuid"`
}

type handlePurchaseRequestBody struct {
	PurchaseRequestID string  `json:"purchaseRequestId" validate:"required,uuid"`
	Action            string  `json:"action" validate:"required,oneof=confirm reject"`
	Reason            *string `json:"reason,omitempty"`
}

// ConfirmSale finalizes a pending purchase request into a sale record.
func ConfirmSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := uuid.Parse(payload.PurchaseRequestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchase request id"))
			return
		}

		sale, err := svc.Confirm(r.Context(), sellerID, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// HandlePurchaseRequest resolves a pending request either way in one
// call: confirm produces a sale, reject releases the bottles.
func HandlePurchaseRequest(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload handlePurchaseRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := uuid.Parse(payload.PurchaseRequestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchase request id"))
			return
		}

		switch payload.Action {
		case "confirm":
			sale, err := svc.Confirm(r.Context(), sellerID, requestID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, sale)
		case "reject":
			reason := ""
			if payload.Reason != nil {
				reason = strings.TrimSpace(*payload.Reason)
			}
			rejected, err := svc.Reject(r.Context(), sellerID, requestID, reason)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, rejected)
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "action must be confirm or reject"))
		}
	}
}
