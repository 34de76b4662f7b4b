package controllers

import (
	"net/http"

	"github.com/vinocave/vinocave-backend/api/responses"
	"github.com/vinocave/vinocave-backend/internal/cellar"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
	"github.com/vinocave/vinocave-backend/pkg/logger"
)

// MyCellar lists the caller's wines, the pool they can list from.
func MyCellar(svc cellar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cellar service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wines, err := svc.ListMyWines(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"wines": wines})
	}
}
