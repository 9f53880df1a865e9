package router

import (
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/config"
	"github.com/DanielPaucar/control-coliseo/internal/handler"
	"github.com/DanielPaucar/control-coliseo/internal/infra"
	"github.com/DanielPaucar/control-coliseo/internal/middleware"
	"github.com/DanielPaucar/control-coliseo/internal/repository"
	"github.com/DanielPaucar/control-coliseo/internal/service"
	"github.com/DanielPaucar/control-coliseo/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators built in main and shared with the
// worker pool.
type Deps struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Mailer     *infra.Mailer
	Renderer   *infra.QRRenderer
	Dispatcher *worker.Dispatcher
	Config     service.ConfiguracionService
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 10 << 20

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	codigoRepo := repository.NewCodigoRepository(d.DB)
	personaRepo := repository.NewPersonaRepository(d.DB)
	ingresoRepo := repository.NewIngresoRepository(d.DB)
	cajaRepo := repository.NewCajaRepository(d.DB)
	importacionRepo := repository.NewImportacionRepository(d.DB)
	limpiezaRepo := repository.NewLimpiezaRepository(d.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	loc := cfg.Location()
	ingresoSvc := service.NewIngresoService(codigoRepo)
	codigoSvc := service.NewCodigoService(codigoRepo, personaRepo, d.Renderer, d.Dispatcher)
	cajaSvc := service.NewCajaService(cajaRepo, d.Config, d.Renderer, d.Dispatcher)
	dashboardSvc := service.NewDashboardService(ingresoRepo, loc)
	importacionSvc := service.NewImportacionService(personaRepo, codigoRepo, importacionRepo, codigoSvc, d.Renderer, d.Mailer,
		service.ImportOptions{Batch: cfg.ImportEmailBatch, Cooldown: cfg.ImportCooldown()})
	limpiezaSvc := service.NewLimpiezaService(limpiezaRepo, cfg.Directories(), cfg.PurgeDataPhraseHash, cfg.PurgeFilesPhraseHash)

	// ── Handlers ─────────────────────────────────────────────────────────────
	ingresoH := handler.NewIngresoHandler(ingresoSvc)
	codigosH := handler.NewCodigosHandler(codigoSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	dashboardH := handler.NewDashboardHandler(dashboardSvc, loc)
	importarH := handler.NewImportarHandler(importacionSvc, cfg.UploadStoragePath)
	limpiezaH := handler.NewLimpiezaHandler(limpiezaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.Mailer))

	jwtMW := middleware.JWTAuth(cfg.JWTSecret, middleware.RoleGroups{
		Admin:    cfg.GroupAdmin,
		Finanzas: cfg.GroupFinanzas,
	})
	todos := middleware.RequireRole(middleware.RolAdmin, middleware.RolFinanzas, middleware.RolOperador)
	finanzas := middleware.RequireRole(middleware.RolAdmin, middleware.RolFinanzas)
	admin := middleware.RequireRole(middleware.RolAdmin)

	v1 := r.Group("/v1", jwtMW)
	{
		v1.POST("/ingreso", todos, ingresoH.Registrar)

		v1.POST("/generar-qr", finanzas, codigosH.GenerarQR)
		v1.GET("/dashboard", finanzas, dashboardH.Resumen)

		// Per-action roles are enforced inside the handler
		v1.GET("/generar-visitantes", todos, cajaH.Overview)
		v1.POST("/generar-visitantes", todos, cajaH.Action)

		v1.POST("/importar", admin, importarH.Importar)

		qr := v1.Group("/gestion-qr", admin)
		{
			qr.GET("", codigosH.Buscar)
			qr.POST("", codigosH.Reenviar)
			qr.PATCH("", codigosH.ActualizarUsos)
		}

		// Both purges share one confirmation budget per IP
		confirmacion := middleware.ConfirmationRateLimiter()
		limpieza := v1.Group("/limpieza", admin)
		{
			limpieza.GET("", limpiezaH.Estado)
			limpieza.POST("/datos", confirmacion, limpiezaH.PurgarDatos)
			limpieza.POST("/archivos", confirmacion, limpiezaH.PurgarArchivos)
		}
	}

	// Swagger UI outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
