package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/classify"
	"github.com/emilythestrangee/vitia/backend/internal/models"
	"github.com/emilythestrangee/vitia/backend/internal/storage"
)

const collectionNotFound = "Item de colección no encontrado o no pertenece al usuario"

// CollectionHandler serves a user's own photographed vines. Every lookup
// is scoped to the caller, so another user's item looks exactly like a
// missing one.
type CollectionHandler struct {
	db     *gorm.DB
	store  storage.ImageStore
	logger *slog.Logger
}

func NewCollectionHandler(db *gorm.DB, store storage.ImageStore, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{db: db, store: store, logger: logger}
}

func (h *CollectionHandler) varietyExists(id int) (bool, error) {
	var n int64
	err := h.db.Model(&models.Variety{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// owned loads item id if it belongs to userID.
func (h *CollectionHandler) owned(c *gin.Context, userID int) (*models.CollectionItem, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	var item models.CollectionItem
	err := h.db.Preload("Variety").Where("id = ? AND user_id = ?", id, userID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, collectionNotFound)
			return nil, false
		}
		respondError(c, http.StatusInternalServerError, "Error al obtener el item de colección")
		return nil, false
	}
	return &item, true
}

func (h *CollectionHandler) create(c *gin.Context, item *models.CollectionItem) {
	exists, err := h.varietyExists(item.VarietyID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al guardar el item de colección")
		return
	}
	if !exists {
		respondError(c, http.StatusBadRequest, "Variedad no encontrada")
		return
	}

	if err := h.db.Create(item).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al guardar el item de colección")
		return
	}
	if err := h.db.Preload("Variety").First(item, item.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al guardar el item de colección")
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *CollectionHandler) CreateItem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var input models.CreateCollectionItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	capturedAt := time.Now().UTC()
	if input.CapturedAt != nil {
		capturedAt = input.CapturedAt.UTC()
	}
	h.create(c, &models.CollectionItem{
		UserID:     userID,
		VarietyID:  input.VarietyID,
		PhotoURL:   input.PhotoURL,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		Notes:      input.Notes,
		CapturedAt: capturedAt,
	})
}

// UploadItem stores the photo in the image host and records the item with
// the returned URL.
func (h *CollectionHandler) UploadItem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Debe enviar una imagen en el campo file")
		return
	}
	if !classify.IsImageContentType(file.Header.Get("Content-Type")) {
		respondError(c, http.StatusBadRequest, "File must be an image.")
		return
	}
	if file.Size > maxUploadBytes {
		respondError(c, http.StatusBadRequest, "La imagen es demasiado grande")
		return
	}

	varietyID, err := strconv.Atoi(c.PostForm("id_variedad"))
	if err != nil || varietyID <= 0 {
		respondError(c, http.StatusBadRequest, "id_variedad es obligatorio")
		return
	}
	lat, ok := optionalFloat(c, "latitud", -90, 90)
	if !ok {
		return
	}
	lon, ok := optionalFloat(c, "longitud", -180, 180)
	if !ok {
		return
	}

	exists, err := h.varietyExists(varietyID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al guardar el item de colección")
		return
	}
	if !exists {
		respondError(c, http.StatusBadRequest, "Variedad no encontrada")
		return
	}

	url, err := uploadFile(c, h.store, storage.FolderCollection, file)
	if err != nil {
		h.logger.Error("upload collection photo", "user_id", userID, "error", err)
		respondError(c, http.StatusInternalServerError, "Error al subir la imagen al servidor de archivos")
		return
	}

	h.create(c, &models.CollectionItem{
		UserID:     userID,
		VarietyID:  varietyID,
		PhotoURL:   url,
		Latitude:   lat,
		Longitude:  lon,
		Notes:      c.PostForm("notas"),
		CapturedAt: time.Now().UTC(),
	})
}

func (h *CollectionHandler) GetItems(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}

	items := []models.CollectionItem{}
	err := h.db.Preload("Variety").
		Where("user_id = ?", userID).
		Order("captured_at desc, id desc").
		Offset(skip).Limit(limit).
		Find(&items).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al obtener la colección")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *CollectionHandler) GetItem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	item, ok := h.owned(c, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *CollectionHandler) UpdateItem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	item, ok := h.owned(c, userID)
	if !ok {
		return
	}

	var input models.UpdateCollectionItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]any{}
	if input.VarietyID != nil && *input.VarietyID != item.VarietyID {
		exists, err := h.varietyExists(*input.VarietyID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Error al actualizar el item de colección")
			return
		}
		if !exists {
			respondError(c, http.StatusBadRequest, "Variedad no encontrada")
			return
		}
		updates["variety_id"] = *input.VarietyID
	}
	if input.PhotoURL != nil {
		updates["photo_url"] = *input.PhotoURL
	}
	if input.Latitude != nil {
		updates["latitude"] = *input.Latitude
	}
	if input.Longitude != nil {
		updates["longitude"] = *input.Longitude
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	if len(updates) > 0 {
		err := h.db.Model(&models.CollectionItem{}).
			Where("id = ? AND user_id = ?", item.ID, userID).
			Updates(updates).Error
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Error al actualizar el item de colección")
			return
		}
	}

	var updated models.CollectionItem
	if err := h.db.Preload("Variety").First(&updated, item.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al actualizar el item de colección")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CollectionHandler) DeleteItem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	item, ok := h.owned(c, userID)
	if !ok {
		return
	}

	if err := h.db.Where("id = ? AND user_id = ?", item.ID, userID).Delete(&models.CollectionItem{}).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al eliminar el item de colección")
		return
	}
	c.JSON(http.StatusOK, item)
}

// optionalFloat parses an optional form value within [lo, hi].
func optionalFloat(c *gin.Context, key string, lo, hi float64) (*float64, bool) {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < lo || v > hi {
		respondError(c, http.StatusBadRequest, key+" no es válido")
		return nil, false
	}
	return &v, true
}

// uploadFile streams one multipart file to store.
func uploadFile(c *gin.Context, store storage.ImageStore, folder string, file *multipart.FileHeader) (string, error) {
	if store == nil {
		return "", storage.ErrNotConfigured
	}
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	return store.Upload(c.Request.Context(), folder, file.Filename, f, file.Size, file.Header.Get("Content-Type"))
}
