package routes

import (
	"net/http"

	"puceats-api/handlers"
	"puceats-api/metrics"
	"puceats-api/middleware"
	"puceats-api/models"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, limiter *middleware.RateLimiterRegistry) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Directory browsing (no auth needed)
		public.GET("/establishments", h.ListEstablishments)
		public.GET("/establishments/types/:type", h.ListByType)
		public.GET("/establishments/:slug", h.GetEstablishment)
		public.GET("/categories", h.ListCategories)
		public.GET("/categories/:id/dishes", h.DishesByCategory)

		// Token lifecycle (handy for docs/Postman)
		public.GET("/tokens/lifecycle", h.GetTokenLifecycle)
	}

	// ── Token-guessing surface: rate limited per client ───────────
	limited := r.Group("/api")
	limited.Use(middleware.RateLimit(limiter))
	{
		limited.POST("/auth/register", h.Register)
		limited.POST("/auth/login", h.Login)
		limited.POST("/tokens/validate", h.ValidateToken)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(h.Auth.AuthRequired())
	{
		auth.GET("/profile", h.GetProfile)
	}

	// ── Establishment owner routes ─────────────────────────────────
	owner := r.Group("/api/owner")
	owner.Use(h.Auth.AuthRequired(), middleware.RoleRequired(models.RoleOwner, models.RoleAdmin))
	{
		// Establishment management
		owner.GET("/establishments", h.ListMyEstablishments)
		owner.POST("/establishments", h.CreateEstablishment)
		owner.PUT("/establishments/:id", h.UpdateEstablishment)
		owner.DELETE("/establishments/:id", h.DeleteEstablishment)

		// Menu management
		owner.GET("/establishments/:id/dishes", h.ListMyDishes)
		owner.POST("/establishments/:id/dishes", h.AddDish)
		owner.PUT("/dishes/:id", h.UpdateDish)
		owner.DELETE("/dishes/:id", h.DeleteDish)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(h.Auth.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.POST("/tokens", h.IssueTokens)
		admin.GET("/tokens", h.ListTokens)
		admin.GET("/tokens/:code", h.GetToken)

		admin.POST("/categories", h.CreateCategory)
		admin.PUT("/categories/:id", h.UpdateCategory)
		admin.DELETE("/categories/:id", h.DeleteCategory)

		admin.GET("/users", h.AdminGetAllUsers)
		admin.POST("/establishments/adopt", h.AdminAdoptOrphans)
	}
}

// Options configures the engine built by NewEngine.
type Options struct {
	Log         hclog.Logger
	Metrics     *metrics.Metrics
	Limiter     *middleware.RateLimiterRegistry
	CORSOrigins []string
}

// NewEngine builds the gin engine with the shared middleware, health and
// metrics endpoints and every API route.
func NewEngine(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(opts.Log, opts.Metrics),
		middleware.Recovery(opts.Log),
		middleware.CORS(opts.CORSOrigins),
	)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "PUC Eats directory API",
			"version": Version,
		})
	})
	r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	SetupRoutes(r, h, opts.Limiter)
	return r
}

// Version is overridden at build time with -ldflags.
var Version = "dev"
