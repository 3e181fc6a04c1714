package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/registro-bienes-backend/api/controllers"
	"github.com/angelmondragon/registro-bienes-backend/api/middleware"
	"github.com/angelmondragon/registro-bienes-backend/internal/goods"
	"github.com/angelmondragon/registro-bienes-backend/internal/traceability"
	"github.com/angelmondragon/registro-bienes-backend/internal/transactions"
	"github.com/angelmondragon/registro-bienes-backend/pkg/config"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db"
	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
	"github.com/angelmondragon/registro-bienes-backend/pkg/logger"
	"github.com/angelmondragon/registro-bienes-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/registro-bienes-backend/pkg/redis"
)

// Deps are the collaborators mounted by NewRouter. Redis is optional.
type Deps struct {
	DB           db.Pinger
	Redis        *pkgredis.Client
	Goods        goods.Service
	Transactions transactions.Service
	Traceability traceability.Service
	Gateway      controllers.PersonLookup
	Gatherer     prometheus.Gatherer
	HTTPMetrics  *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	if logg == nil {
		logg = logger.Nop()
	}
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
		middleware.DebugDetails(cfg.App.IsDev()),
	)

	var (
		idempotencyStore pkgredis.IdempotencyStore
		rateLimiter      pkgredis.RateLimiter
		redisPinger      controllers.Pinger
	)
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		rateLimiter = deps.Redis
		redisPinger = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": redisPinger,
		}, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/bienes", func(r chi.Router) {
			r.Post("/", controllers.CreateGood(deps.Goods, logg))
			r.Get("/", controllers.ListGoods(deps.Goods, logg))

			r.Route("/trazabilidad", func(r chi.Router) {
				r.Get("/identificador/{identifier}", controllers.IdentifierHistory(deps.Traceability, logg))
				r.Get("/{id}", controllers.GoodHistory(deps.Traceability, logg))
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controllers.GetGood(deps.Goods, logg))
				r.Patch("/", controllers.UpdateGood(deps.Goods, logg))
				r.With(middleware.RequireRole(enums.SystemRoleAdmin, logg)).Delete("/", controllers.DeleteGood(deps.Goods, logg))
				r.Get("/stock", controllers.GetGoodStock(deps.Goods, logg))
				r.Get("/items", controllers.ListGoodItems(deps.Goods, logg))
			})
		})

		r.Route("/transacciones", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Idempotency(idempotencyStore, cfg.HTTP.IdempotencyTTL, logg))
				r.Post("/comprar", controllers.RegisterPurchase(deps.Transactions, logg))
				r.Post("/vender", controllers.RegisterSale(deps.Transactions, logg))
			})
			r.Get("/{id}", controllers.GetTransaction(deps.Transactions, logg))
		})

		renaperPolicy := middleware.NewRateLimitPolicy("renaper", cfg.Renaper.RateLimitWindow, cfg.Renaper.RateLimit)
		r.With(middleware.RateLimit(renaperPolicy, rateLimiter, logg)).
			Get("/renaper/{nroDoc}", controllers.LookupPerson(deps.Gateway, logg))
	})

	return r
}
