package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/auth"
	"github.com/emilythestrangee/vitia/backend/internal/cache"
	"github.com/emilythestrangee/vitia/backend/internal/classify"
	"github.com/emilythestrangee/vitia/backend/internal/events"
	"github.com/emilythestrangee/vitia/backend/internal/models"
	"github.com/emilythestrangee/vitia/backend/internal/storage"
	"github.com/emilythestrangee/vitia/backend/internal/votes"
)

const (
	defaultLimit = 100
	maxLimit     = 100

	// maxUploadBytes bounds every single uploaded image.
	maxUploadBytes = 10 << 20
)

// Deps are the collaborators shared by all handlers. Store, Cache and
// Classifier may be nil when the matching backend is not configured.
type Deps struct {
	DB         *gorm.DB
	Tokens     *auth.TokenManager
	Votes      *votes.Engine
	Store      storage.ImageStore
	Cache      *cache.VarietyCache
	Events     events.Publisher
	Classifier *classify.Classifier
	Logger     *slog.Logger
}

// Handler combines all handler types
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Variety    *VarietyHandler
	Collection *CollectionHandler
	Post       *PostHandler
	Comment    *CommentHandler
	Classify   *ClassifyHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Votes == nil {
		d.Votes = votes.NewEngine(d.DB)
	}
	voter := &voteRecorder{engine: d.Votes, events: d.Events, logger: d.Logger}

	return &Handler{
		Auth:       NewAuthHandler(d.DB, d.Tokens),
		User:       NewUserHandler(d.DB, d.Logger),
		Variety:    NewVarietyHandler(d.DB, d.Cache, d.Logger),
		Collection: NewCollectionHandler(d.DB, d.Store, d.Logger),
		Post:       NewPostHandler(d.DB, d.Store, d.Events, voter, d.Logger),
		Comment:    NewCommentHandler(d.DB, voter),
		Classify:   NewClassifyHandler(d.Classifier),
	}
}

func respondError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func extractUserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// requireUserID is extractUserID for routes behind the auth middleware.
func requireUserID(c *gin.Context) (int, bool) {
	id, ok := extractUserID(c)
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		respondError(c, http.StatusUnauthorized, "Not authenticated")
	}
	return id, ok
}

func currentUser(c *gin.Context) (*models.User, bool) {
	raw, ok := c.Get("user")
	if !ok {
		return nil, false
	}
	user, ok := raw.(*models.User)
	return user, ok
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Identificador no válido")
		return 0, false
	}
	return id, true
}

// pagination reads skip and limit. limit is clamped to maxLimit.
func pagination(c *gin.Context) (skip, limit int, ok bool) {
	skip, limit = 0, defaultLimit
	if raw := c.Query("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			respondError(c, http.StatusBadRequest, "skip debe ser un entero no negativo")
			return 0, 0, false
		}
		skip = v
	}
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			respondError(c, http.StatusBadRequest, "limit debe ser un entero positivo")
			return 0, 0, false
		}
		limit = min(v, maxLimit)
	}
	return skip, limit, true
}
