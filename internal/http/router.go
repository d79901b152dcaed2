package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/recipehub/recipehub/internal/auth"
	"github.com/recipehub/recipehub/internal/cache"
	"github.com/recipehub/recipehub/internal/config"
	"github.com/recipehub/recipehub/internal/http/handlers"
	"github.com/recipehub/recipehub/internal/http/middlewares"
	"github.com/recipehub/recipehub/internal/media"
	"github.com/recipehub/recipehub/internal/observability"
	"github.com/recipehub/recipehub/internal/reconcile"
	"github.com/recipehub/recipehub/internal/repo/postgres"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxJSONBodyBytes = 1 << 20 // 1 MiB; image uploads bypass this group

func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, prom *observability.Prom, c cache.Cache, images *media.Store) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	}

	r.Use(otelgin.Middleware("recipehub"))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	// health + metrics

	ping := func(ctx context.Context) error {
		if pool == nil {
			return nil
		}

		return pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// uploaded images are served straight off disk
	r.Static("/media", cfg.MediaDir)

	// wire up repositories

	usersRepo := postgres.NewUsersRepo(pool, prom)
	recipesRepo := postgres.NewRecipesRepo(pool, prom)
	tagsRepo := postgres.NewTagsRepo(pool, prom)
	ingredientsRepo := postgres.NewIngredientsRepo(pool, prom)

	tagEngine := reconcile.New(tagsRepo, tagsRepo)
	ingredientEngine := reconcile.New(ingredientsRepo, ingredientsRepo)

	jwtManager := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)

	usersHandler := handlers.NewUsersHandler(usersRepo, jwtManager, log)
	recipesHandler := handlers.NewRecipesHandler(recipesRepo, tagEngine, ingredientEngine, images, c, log)
	tagsHandler := handlers.NewAttrsHandler(tagsRepo, "tag", log)
	ingredientsHandler := handlers.NewAttrsHandler(ingredientsRepo, "ingredient", log)

	authMW := middlewares.NewAuthMiddleware(jwtManager)
	tokenLimiter := middlewares.NewRateLimiter(cfg.TokenRateLimit, cfg.TokenRateWindow)

	// public user routes

	public := r.Group("/users")
	public.Use(middlewares.RequireJSON(), middlewares.MaxBodyBytes(maxJSONBodyBytes))
	{
		public.POST("", usersHandler.SignUp)
		public.POST("/token",
			tokenLimiter.RateLimiterMiddleware(middlewares.KeyByIP),
			usersHandler.Token,
		)
	}

	// authenticated routes

	me := r.Group("/users/me")
	me.Use(authMW.RequireAuth(), middlewares.RequireJSON(), middlewares.MaxBodyBytes(maxJSONBodyBytes))
	{
		me.GET("", usersHandler.Me)
		me.PATCH("", usersHandler.UpdateMe)
		me.PUT("", usersHandler.UpdateMe)
	}

	recipes := r.Group("/recipes")
	recipes.Use(authMW.RequireAuth())
	{
		// multipart route; mounted before the JSON guard
		recipes.POST("/:id/upload-image", recipesHandler.UploadImage)

		jsonOnly := recipes.Group("")
		jsonOnly.Use(middlewares.RequireJSON(), middlewares.MaxBodyBytes(maxJSONBodyBytes))
		{
			jsonOnly.POST("", recipesHandler.Create)
			jsonOnly.GET("", recipesHandler.List)
			jsonOnly.GET("/:id", recipesHandler.Get)
			jsonOnly.PATCH("/:id", recipesHandler.Update)
			jsonOnly.PUT("/:id", recipesHandler.Update)
			jsonOnly.DELETE("/:id", recipesHandler.Delete)
		}
	}

	for path, h := range map[string]*handlers.AttrsHandler{
		"/tags":        tagsHandler,
		"/ingredients": ingredientsHandler,
	} {
		g := r.Group(path)
		g.Use(authMW.RequireAuth(), middlewares.RequireJSON(), middlewares.MaxBodyBytes(maxJSONBodyBytes))
		{
			g.GET("", h.List)
			g.PATCH("/:id", h.Rename)
			g.PUT("/:id", h.Rename)
			g.DELETE("/:id", h.Delete)
		}
	}

	return r
}
