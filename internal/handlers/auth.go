package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/auth"
	"github.com/emilythestrangee/vitia/backend/internal/models"
)

type AuthHandler struct {
	db     *gorm.DB
	tokens *auth.TokenManager
}

func NewAuthHandler(db *gorm.DB, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register handles user registration. It accepts JSON, urlencoded and
// multipart bodies.
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if err := c.ShouldBind(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	input.Email = normalizeEmail(input.Email)

	var existing int64
	if err := h.db.Model(&models.User{}).Where("email = ?", input.Email).Count(&existing).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al registrar el usuario")
		return
	}
	if existing > 0 {
		respondError(c, http.StatusBadRequest, "El correo electrónico ya está registrado")
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		respondError(c, http.StatusBadRequest, "La contraseña no puede superar los 72 bytes")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al registrar el usuario")
		return
	}

	user := models.User{
		Email:        input.Email,
		Name:         strings.TrimSpace(input.Name),
		Surname:      strings.TrimSpace(input.Surname),
		PasswordHash: hash,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(c, http.StatusBadRequest, "El correo electrónico ya está registrado")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al registrar el usuario")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Token exchanges form-encoded credentials for a bearer token. The email
// travels in the username field.
func (h *AuthHandler) Token(c *gin.Context) {
	var input struct {
		Username string `form:"username" binding:"required"`
		Password string `form:"password" binding:"required"`
	}
	if err := c.ShouldBind(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var user models.User
	err := h.db.Where("email = ?", normalizeEmail(input.Username)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusInternalServerError, "Error al iniciar sesión")
		return
	}
	if err != nil || !auth.CheckPassword(user.PasswordHash, input.Password) {
		c.Header("WWW-Authenticate", "Bearer")
		respondError(c, http.StatusUnauthorized, "Email o contraseña incorrectos")
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al generar el token")
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}
