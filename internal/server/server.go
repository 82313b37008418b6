package server

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/vitia/backend/internal/config"
	"github.com/emilythestrangee/vitia/backend/internal/database"
	"github.com/emilythestrangee/vitia/backend/internal/handlers"
	"github.com/emilythestrangee/vitia/backend/internal/middleware"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	deps    handlers.Deps
	handler *handlers.Handler
	logger  *slog.Logger
}

// NewServer wires the handlers. deps.DB defaults to db's connection.
func NewServer(cfg *config.Config, db database.Service, deps handlers.Deps) *Server {
	if deps.DB == nil {
		deps.DB = db.GetDB()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Server{
		cfg:     cfg,
		db:      db,
		deps:    deps,
		handler: handlers.NewHandler(deps),
		logger:  deps.Logger,
	}
}

// New builds the HTTP server for cfg.Port.
func New(cfg *config.Config, db database.Service, deps handlers.Deps) *http.Server {
	s := NewServer(cfg, db, deps)

	return &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	// Forwarding headers are only honored from listed proxies, so the
	// rate limiter keys on the peer address by default.
	if err := r.SetTrustedProxies(s.cfg.TrustedProxies); err != nil {
		s.logger.Warn("ignoring TRUSTED_PROXIES", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(s.logger))

	// CORS configuration
	allowAll, origins := corsOrigins(s.cfg.CORSAllowedOrigins)
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  allowAll,
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoints
	r.GET("/health", s.health)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := s.handler
	requireAuth := middleware.Auth(s.deps.Tokens, s.deps.DB)

	// Auth routes (public, rate limited per client IP)
	authRoutes := r.Group("/auth")
	authRoutes.Use(middleware.RateLimit(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/token", h.Auth.Token)
	}

	users := r.Group("/users", requireAuth)
	{
		users.GET("/me", h.User.GetMe)
		users.PATCH("/me", h.User.UpdateMe)
		users.DELETE("/me", h.User.DeleteMe)
	}

	varieties := r.Group("/variedades")
	{
		varieties.GET("", h.Variety.GetVarieties)
		varieties.GET("/:id", h.Variety.GetVariety)
		varieties.POST("", requireAuth, h.Variety.CreateVariety)
		varieties.PATCH("/:id", requireAuth, h.Variety.UpdateVariety)
		varieties.DELETE("/:id", requireAuth, h.Variety.DeleteVariety)
	}

	collection := r.Group("/coleccion", requireAuth)
	{
		collection.POST("", h.Collection.CreateItem)
		collection.POST("/upload", h.Collection.UploadItem)
		collection.GET("", h.Collection.GetItems)
		collection.GET("/:id", h.Collection.GetItem)
		collection.PATCH("/:id", h.Collection.UpdateItem)
		collection.DELETE("/:id", h.Collection.DeleteItem)
	}

	posts := r.Group("/publicaciones")
	{
		posts.GET("", h.Post.GetPosts)
		posts.GET("/me", requireAuth, h.Post.GetMyPosts)
		posts.GET("/:id", h.Post.GetPost)
		posts.POST("", requireAuth, h.Post.CreatePost)
		posts.PATCH("/:id", requireAuth, h.Post.UpdatePost)
		posts.DELETE("/:id", requireAuth, h.Post.DeletePost)
		posts.POST("/:id/voto", requireAuth, h.Post.VotePost)
	}

	commentRoutes := r.Group("/comentarios")
	{
		commentRoutes.GET("/publicacion/:id", h.Comment.GetComments)
		commentRoutes.POST("", requireAuth, h.Comment.CreateComment)
		commentRoutes.PATCH("/:id", requireAuth, h.Comment.UpdateComment)
		commentRoutes.DELETE("/:id", requireAuth, h.Comment.DeleteComment)
		commentRoutes.POST("/:id/voto", requireAuth, h.Comment.VoteComment)
	}

	r.POST("/ia/predict", h.Classify.Predict)

	return r
}

// corsOrigins turns an empty list or a "*" entry into allow-all.
func corsOrigins(configured []string) (bool, []string) {
	if len(configured) == 0 || slices.Contains(configured, "*") {
		return true, nil
	}
	return false, configured
}

func (s *Server) health(c *gin.Context) {
	stats := s.db.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
