package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/auth"
	"github.com/emilythestrangee/vitia/backend/internal/models"
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}

// Auth requires a valid bearer token and resolves its subject to a user
// row on every request, so a deleted account stops authenticating at once.
func Auth(tokens *auth.TokenManager, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c, "Not authenticated")
			return
		}

		userID, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			unauthorized(c, "Could not validate credentials")
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				unauthorized(c, "Could not validate credentials")
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load user"})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, &user)
		c.Next()
	}
}
