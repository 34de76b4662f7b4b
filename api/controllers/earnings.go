package controllers

import (
	"net/http"

	"github.com/vinocave/vinocave-backend/api/responses"
	"github.com/vinocave/vinocave-backend/internal/earnings"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
	"github.com/vinocave/vinocave-backend/pkg/logger"
)

// SellerEarnings folds the caller's confirmed sales into an earnings summary.
func SellerEarnings(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}

		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.SellerSummary(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
