package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vinocave/vinocave-backend/api/controllers"
	"github.com/vinocave/vinocave-backend/api/middleware"
	"github.com/vinocave/vinocave-backend/internal/cellar"
	"github.com/vinocave/vinocave-backend/internal/earnings"
	listing "github.com/vinocave/vinocave-backend/internal/listings"
	reservation "github.com/vinocave/vinocave-backend/internal/reservations"
	"github.com/vinocave/vinocave-backend/internal/sales"
	"github.com/vinocave/vinocave-backend/pkg/config"
	"github.com/vinocave/vinocave-backend/pkg/db"
	"github.com/vinocave/vinocave-backend/pkg/logger"
	pkgredis "github.com/vinocave/vinocave-backend/pkg/redis"
)

type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *pkgredis.Client
	Gatherer     prometheus.Gatherer
	Cellar       cellar.Service
	Listings     listing.Service
	Reservations reservation.Service
	Sales        sales.Service
	Earnings     earnings.Service
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DB, deps.Redis))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Config.JWT, deps.Logger))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, deps.Logger))
		}

		r.Get("/my-cellar", controllers.MyCellar(deps.Cellar, deps.Logger))

		r.Post("/add-listing", controllers.AddListing(deps.Listings, deps.Logger))
		r.Patch("/listings/{listingId}", controllers.UpdateListing(deps.Listings, deps.Logger))
		r.Delete("/listings/{listingId}", controllers.DeleteListing(deps.Listings, deps.Logger))
		r.Get("/marketplace", controllers.Marketplace(deps.Listings, deps.Logger))

		r.Post("/send-purchase-request", controllers.SendPurchaseRequest(deps.Reservations, deps.Logger))
		r.Get("/get-purchase-requests", controllers.ListPurchaseRequests(deps.Reservations, deps.Logger))
		r.Get("/get-purchase-request/{requestId}", controllers.GetPurchaseRequest(deps.Reservations, deps.Logger))
		r.Post("/purchase-requests/{requestId}/cancel", controllers.CancelPurchaseRequest(deps.Sales, deps.Logger))

		r.Route("/seller", func(r chi.Router) {
			r.Post("/confirm-sale", controllers.ConfirmSale(deps.Sales, deps.Logger))
			r.Post("/handle-purchase-request", controllers.HandlePurchaseRequest(deps.Sales, deps.Logger))
			r.Get("/earnings", controllers.SellerEarnings(deps.Earnings, deps.Logger))
		})
	})

	return r
}
