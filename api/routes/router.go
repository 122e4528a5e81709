package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openmarket/marketplace-backend/api/controllers"
	"github.com/openmarket/marketplace-backend/api/middleware"
	"github.com/openmarket/marketplace-backend/internal/auctions"
	"github.com/openmarket/marketplace-backend/internal/bids"
	cartsvc "github.com/openmarket/marketplace-backend/internal/cart"
	"github.com/openmarket/marketplace-backend/internal/governance"
	"github.com/openmarket/marketplace-backend/internal/listings"
	"github.com/openmarket/marketplace-backend/internal/policies"
	"github.com/openmarket/marketplace-backend/internal/purchases"
	"github.com/openmarket/marketplace-backend/pkg/config"
	"github.com/openmarket/marketplace-backend/pkg/logger"
)

// Pinger is a readiness probe over one backing dependency.
type Pinger = controllers.Pinger

// Deps carries everything the router wires into controllers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Readies  map[string]Pinger
	Registry prometheus.Gatherer

	Governance governance.Service
	Listings   listings.Service
	Cart       cartsvc.Service
	Policies   policies.Service
	Purchases  purchases.Service
	Bids       bids.Service
	Auctions   auctions.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readies))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))

		r.Route("/stores", func(r chi.Router) {
			r.Post("/", controllers.StoreCreate(deps.Governance, logg))
			r.Get("/", controllers.StoreList(deps.Governance, logg))

			r.Route("/{storeID}", func(r chi.Router) {
				r.Get("/", controllers.StoreGet(deps.Governance, logg))
				r.Post("/close", controllers.StoreClose(deps.Governance, logg))
				r.Post("/reopen", controllers.StoreReopen(deps.Governance, logg))
				r.Get("/roles", controllers.StoreRoles(deps.Governance, logg))

				r.Route("/owners", func(r chi.Router) {
					r.Post("/", controllers.OwnerAppoint(deps.Governance, logg))
					r.Delete("/{userID}", controllers.OwnerRemove(deps.Governance, logg))
				})
				r.Route("/managers", func(r chi.Router) {
					r.Post("/", controllers.ManagerAppoint(deps.Governance, logg))
					r.Delete("/{userID}", controllers.ManagerRemove(deps.Governance, logg))
					r.Post("/{userID}/permissions", controllers.PermissionGrant(deps.Governance, logg))
					r.Delete("/{userID}/permissions", controllers.PermissionRevoke(deps.Governance, logg))
				})

				r.Route("/listings", func(r chi.Router) {
					r.Post("/", controllers.ListingCreate(deps.Listings, logg))
					r.Get("/", controllers.ListingList(deps.Listings, logg))
					r.Put("/{listingID}", controllers.ListingUpdate(deps.Listings, logg))
					r.Delete("/{listingID}", controllers.ListingDelete(deps.Listings, logg))

					r.Route("/{listingID}/bids", func(r chi.Router) {
						r.Post("/", controllers.BidPlace(deps.Bids, logg))
						r.Get("/status", controllers.BidStatus(deps.Bids, logg))
						r.Post("/accept-counter", controllers.BidAcceptCounter(deps.Bids, logg))
						r.Post("/decline-counter", controllers.BidDeclineCounter(deps.Bids, logg))
						r.Post("/{buyerID}/approve", controllers.BidApprove(deps.Bids, logg))
						r.Post("/{buyerID}/reject", controllers.BidReject(deps.Bids, logg))
						r.Post("/{buyerID}/counter", controllers.BidCounter(deps.Bids, logg))
					})

					r.Post("/{listingID}/auctions", controllers.AuctionOpen(deps.Auctions, logg))
				})

				r.Route("/policies", func(r chi.Router) {
					r.Post("/", controllers.PolicyAdd(deps.Policies, logg))
					r.Get("/", controllers.PolicyList(deps.Policies, logg))
					r.Delete("/{ruleID}", controllers.PolicyRemove(deps.Policies, logg))
				})

				r.Get("/purchases", controllers.StoreHistory(deps.Purchases, logg))
			})
		})

		r.Get("/listings/{listingID}", controllers.ListingGet(deps.Listings, logg))

		r.Route("/auctions/{auctionID}", func(r chi.Router) {
			r.Post("/offers", controllers.AuctionOffer(deps.Auctions, logg))
			r.Get("/status", controllers.AuctionStatus(deps.Auctions, logg))
			r.Post("/close", controllers.AuctionClose(deps.Auctions, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Put("/items", controllers.CartSetQty(deps.Cart, logg))
			r.Delete("/items/{storeID}/{listingID}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Purchases, logg))
		r.Get("/purchases", controllers.BuyerHistory(deps.Purchases, logg))
	})

	return r
}
