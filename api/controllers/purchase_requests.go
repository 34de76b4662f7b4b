package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/api/responses"
	"github.com/vinocave/vinocave-backend/api/validators"
	reservation "github.com/vinocave/vinocave-backend/internal/reservations"
	"github.com/vinocave/vinocave-backend/internal/sales"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
	"github.com/vinocave/vinocave-backend/pkg/logger"
)

type sendPurchaseRequestBody struct {
	ListingID string `json:"listingId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// SendPurchaseRequest reserves bottles on a listing for the buyer. The
// Idempotency-Key header makes retries safe; a replay returns the
// original request.
func SendPurchaseRequest(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if idempotencyKey == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		}

		var payload sendPurchaseRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := uuid.Parse(payload.ListingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id"))
			return
		}

		request, err := svc.Reserve(r.Context(), buyerID, reservation.ReserveInput{
			ListingID:      listingID,
			Quantity:       payload.Quantity,
			IdempotencyKey: idempotencyKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// CancelPurchaseRequest lets the buyer withdraw a pending request,
// releasing the reserved bottles.
func CancelPurchaseRequest(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := parseRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cancelled, err := svc.Cancel(r.Context(), buyerID, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cancelled)
	}
}

// ListPurchaseRequests returns the caller's requests. The seller view
// is the default; role=buyer switches to requests the caller has made.
func ListPurchaseRequests(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := strings.TrimSpace(r.URL.Query().Get("role"))
		switch role {
		case "", "seller", "buyer":
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "role must be buyer or seller"))
			return
		}

		requests, err := svc.ListRequests(r.Context(), userID, reservation.ListRequestsInput{
			AsBuyer: role == "buyer",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, requests)
	}
}

// GetPurchaseRequest returns a single request visible to its buyer or seller.
func GetPurchaseRequest(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := parseRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.GetRequest(r.Context(), userID, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, request)
	}
}

func parseRequestID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "requestId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase request id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchase request id")
	}
	return id, nil
}
