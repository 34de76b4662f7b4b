package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/api/responses"
	"github.com/vinocave/vinocave-backend/api/validators"
	listing "github.com/vinocave/vinocave-backend/internal/listings"
	"github.com/vinocave/vinocave-backend/pkg/enums"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
	"github.com/vinocave/vinocave-backend/pkg/logger"
	"github.com/vinocave/vinocave-backend/pkg/pagination"
)

const maxSampleSize = 50

type addListingRequest struct {
	WineID    string  `json:"wineId" validate:"required,uuid"`
	Price     int64   `json:"price" validate:"required,min=1"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
	Condition *string `json:"condition,omitempty"`
}

type updateListingRequest struct {
	Price     *int64  `json:"price,omitempty" validate:"omitempty,min=1"`
	Quantity  *int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
	Condition *string `json:"condition,omitempty"`
	Status    *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// AddListing publishes bottles from the seller's cellar onto the marketplace.
func AddListing(svc listing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wineID, err := uuid.Parse(payload.WineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wine id"))
			return
		}

		created, err := svc.CreateListing(r.Context(), sellerID, listing.CreateListingInput{
			WineID:         wineID,
			UnitPriceCents: payload.Price,
			Quantity:       payload.Quantity,
			Condition:      payload.Condition,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// UpdateListing applies partial listing mutations. Price changes never
// rewrite snapshots already taken by purchase requests.
func UpdateListing(svc listing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := parseListingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := listing.UpdateListingInput{
			UnitPriceCents: payload.Price,
			Quantity:       payload.Quantity,
			Condition:      payload.Condition,
		}
		if payload.Status != nil {
			status, err := enums.ParseListingStatus(*payload.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}

		updated, err := svc.UpdateListing(r.Context(), sellerID, listingID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// DeleteListing withdraws a listing that has no pending purchase requests.
func DeleteListing(svc listing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := parseListingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteListing(r.Context(), sellerID, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// Marketplace serves the browsing feed with cursor pagination and an
// optional random sample.
func Marketplace(svc listing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sampleSize, err := validators.ParseQueryInt(r, "sampleSize", 0, 1, maxSampleSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		myListings, err := validators.ParseQueryBool(r, "myListings")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		result, err := svc.ListMarketplace(r.Context(), userID, listing.ListMarketplaceInput{
			Pagination: pagination.Params{Limit: limit, Cursor: cursor},
			SampleSize: sampleSize,
			MyListings: myListings,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func parseListingID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "listingId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id")
	}
	return id, nil
}
