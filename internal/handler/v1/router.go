package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vanessaachristy/mymedtrust-be/internal/config"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/pkg/auth"
	"github.com/vanessaachristy/mymedtrust-be/pkg/metrics"
)

// Handlers bundles what the router wires up.
type Handlers struct {
	Users     *UserHandler
	Records   *RecordHandler
	Identity  *IdentityHandler
	Whitelist *WhitelistHandler
	Audit     *AuditHandler
}

func NewRouter(cfg *config.Config, h Handlers, jwtManager *auth.JWTManager, collector *metrics.Collector, log *zap.Logger) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(Metrics(collector))
	r.Use(CORS(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": cfg.App.Version,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", h.Users.Signup)
		authGroup.POST("/login", h.Users.Login)
		authGroup.POST("/refresh", h.Users.Refresh)
		authGroup.GET("/me", RequireAuth(jwtManager), h.Users.Me)
	}

	protected := api.Group("", RequireAuth(jwtManager))
	{
		records := protected.Group("/records")
		{
			records.POST("", h.Records.Create)
			records.GET("/stranded", RequireUserType(domain.UserTypeAdmin), h.Records.Stranded)
			records.GET("/:id", h.Records.Get)
			records.GET("/:id/verify", h.Records.Verify)
			records.PUT("/:id", h.Records.Edit)
			records.DELETE("/:id", h.Records.Delete)
		}

		protected.GET("/documents/:kind", h.Records.ListDocuments)

		patients := protected.Group("/patients")
		{
			patients.POST("", h.Identity.CreatePatient)
			patients.GET("", h.Identity.ListPatients)
			patients.GET("/:address", h.Identity.GetPatient)
			patients.GET("/:address/records", h.Records.ListByPatient)
		}

		doctors := protected.Group("/doctors")
		{
			doctors.POST("", h.Identity.CreateDoctor)
			doctors.GET("", h.Identity.ListDoctors)
			doctors.GET("/:address", h.Identity.GetDoctor)
		}

		whitelist := protected.Group("/whitelist")
		{
			whitelist.POST("", h.Whitelist.Add)
			whitelist.POST("/remove", h.Whitelist.Remove)
		}

		protected.GET("/audit/:address", h.Audit.History)
	}

	return r
}
