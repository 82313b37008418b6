package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/cache"
	"github.com/emilythestrangee/vitia/backend/internal/models"
)

// VarietyHandler serves the shared grape variety catalog.
type VarietyHandler struct {
	db     *gorm.DB
	cache  *cache.VarietyCache
	logger *slog.Logger
}

func NewVarietyHandler(db *gorm.DB, c *cache.VarietyCache, logger *slog.Logger) *VarietyHandler {
	return &VarietyHandler{db: db, cache: c, logger: logger}
}

func (h *VarietyHandler) invalidate(ctx context.Context) {
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Warn("invalidate variety cache", "error", err)
	}
}

func (h *VarietyHandler) nameTaken(name string, exceptID int) (bool, error) {
	var n int64
	err := h.db.Model(&models.Variety{}).Where("name = ? AND id <> ?", name, exceptID).Count(&n).Error
	return n > 0, err
}

func (h *VarietyHandler) GetVarieties(c *gin.Context) {
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if list, hit := h.cache.GetList(ctx, skip, limit); hit {
		c.JSON(http.StatusOK, list)
		return
	}

	varieties := []models.Variety{}
	if err := h.db.Order("id asc").Offset(skip).Limit(limit).Find(&varieties).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al obtener las variedades")
		return
	}
	if err := h.cache.SetList(ctx, skip, limit, varieties); err != nil {
		h.logger.Warn("cache varieties", "error", err)
	}

	c.JSON(http.StatusOK, varieties)
}

func (h *VarietyHandler) GetVariety(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if v, hit := h.cache.Get(ctx, id); hit {
		c.JSON(http.StatusOK, v)
		return
	}

	var variety models.Variety
	if err := h.db.First(&variety, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "Variedad no encontrada")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al obtener la variedad")
		return
	}
	if err := h.cache.Set(ctx, &variety); err != nil {
		h.logger.Warn("cache variety", "id", id, "error", err)
	}

	c.JSON(http.StatusOK, variety)
}

func (h *VarietyHandler) CreateVariety(c *gin.Context) {
	var input models.CreateVarietyRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		respondError(c, http.StatusBadRequest, "El nombre es obligatorio")
		return
	}

	taken, err := h.nameTaken(name, 0)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al crear la variedad")
		return
	}
	if taken {
		respondError(c, http.StatusBadRequest, "Ya existe una variedad con este nombre")
		return
	}

	variety := models.Variety{
		Name:         name,
		Description:  input.Description,
		OriginRegion: input.OriginRegion,
		GrapeColor:   input.GrapeColor,
		ImageLinks:   input.ImageLinks,
	}
	if variety.ImageLinks == nil {
		variety.ImageLinks = []string{}
	}
	if err := h.db.Create(&variety).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(c, http.StatusBadRequest, "Ya existe una variedad con este nombre")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al crear la variedad")
		return
	}
	h.invalidate(c.Request.Context())

	c.JSON(http.StatusCreated, variety)
}

// UpdateVariety changes only the fields present in the body.
func (h *VarietyHandler) UpdateVariety(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.UpdateVarietyRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var variety models.Variety
	if err := h.db.First(&variety, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "Variedad no encontrada")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al actualizar la variedad")
		return
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			respondError(c, http.StatusBadRequest, "El nombre es obligatorio")
			return
		}
		taken, err := h.nameTaken(name, id)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Error al actualizar la variedad")
			return
		}
		if taken {
			respondError(c, http.StatusBadRequest, "Ya existe una variedad con este nombre")
			return
		}
		variety.Name = name
	}
	if input.Description != nil {
		variety.Description = *input.Description
	}
	if input.OriginRegion != nil {
		variety.OriginRegion = *input.OriginRegion
	}
	if input.GrapeColor != nil {
		variety.GrapeColor = *input.GrapeColor
	}
	if input.ImageLinks != nil {
		variety.ImageLinks = *input.ImageLinks
	}

	if err := h.db.Save(&variety).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(c, http.StatusBadRequest, "Ya existe una variedad con este nombre")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al actualizar la variedad")
		return
	}
	h.invalidate(c.Request.Context())

	c.JSON(http.StatusOK, variety)
}

// DeleteVariety refuses to remove a variety that collection items still
// reference. Post tags are dropped with it.
func (h *VarietyHandler) DeleteVariety(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var variety models.Variety
	if err := h.db.First(&variety, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "Variedad no encontrada")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al eliminar la variedad")
		return
	}

	var inUse int64
	if err := h.db.Model(&models.CollectionItem{}).Where("variety_id = ?", id).Count(&inUse).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al eliminar la variedad")
		return
	}
	if inUse > 0 {
		respondError(c, http.StatusBadRequest, "La variedad está en uso en colecciones de usuarios")
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_varieties WHERE variety_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&variety).Error
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al eliminar la variedad")
		return
	}
	h.invalidate(c.Request.Context())

	c.JSON(http.StatusOK, variety)
}
