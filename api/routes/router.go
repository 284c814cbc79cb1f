package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agustinromero/storefront-backend/api/controllers"
	"github.com/agustinromero/storefront-backend/api/middleware"
	cartsvc "github.com/agustinromero/storefront-backend/internal/cart"
	"github.com/agustinromero/storefront-backend/internal/catalog"
	checkoutsvc "github.com/agustinromero/storefront-backend/internal/checkout"
	ordersvc "github.com/agustinromero/storefront-backend/internal/orders"
	"github.com/agustinromero/storefront-backend/pkg/config"
	"github.com/agustinromero/storefront-backend/pkg/db"
	"github.com/agustinromero/storefront-backend/pkg/logger"
	pkgredis "github.com/agustinromero/storefront-backend/pkg/redis"
)

// Deps collects everything the HTTP surface needs. Optional pieces
// (redis, metrics gatherer) may be nil and the affected routes degrade
// rather than panic.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DBPinger db.Pinger
	Redis    *pkgredis.Client
	Gatherer prometheus.Gatherer

	CatalogService  catalog.Service
	CartService     cartsvc.Service
	CheckoutService checkoutsvc.Service
	OrdersService   ordersvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var redisPinger pkgredis.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, redisPinger))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.UserContext(logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductSearch(deps.CatalogService, logg))
			r.Post("/", controllers.ProductCreate(deps.CatalogService, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.CatalogService, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(deps.CatalogService, logg))
			r.Post("/{productId}/stock", controllers.ProductAdjustStock(deps.CatalogService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.CartService, logg))
			r.Delete("/", controllers.CartClear(deps.CartService, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.CartService, logg))
			r.Post("/reset", controllers.CartReset(deps.CartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.CheckoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.OrdersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.OrdersService, logg))
		})
	})

	return r
}
