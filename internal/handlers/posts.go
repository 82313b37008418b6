package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/classify"
	"github.com/emilythestrangee/vitia/backend/internal/events"
	"github.com/emilythestrangee/vitia/backend/internal/models"
	"github.com/emilythestrangee/vitia/backend/internal/storage"
	"github.com/emilythestrangee/vitia/backend/internal/votes"
)

const postNotFound = "Publicación no encontrada"

var errUnknownVariety = errors.New("unknown variety")

type PostHandler struct {
	db     *gorm.DB
	store  storage.ImageStore
	events events.Publisher
	voter  *voteRecorder
	logger *slog.Logger
}

func NewPostHandler(db *gorm.DB, store storage.ImageStore, pub events.Publisher, voter *voteRecorder, logger *slog.Logger) *PostHandler {
	return &PostHandler{db: db, store: store, events: pub, voter: voter, logger: logger}
}

func (h *PostHandler) withAssociations() *gorm.DB {
	return h.db.Preload("User").Preload("Varieties")
}

func (h *PostHandler) list(c *gin.Context, scope func(*gorm.DB) *gorm.DB) {
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}

	posts := []models.Post{}
	err := h.withAssociations().
		Scopes(scope).
		Order("created_at desc, id desc").
		Offset(skip).Limit(limit).
		Find(&posts).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al obtener las publicaciones")
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetPosts returns the feed, newest first.
func (h *PostHandler) GetPosts(c *gin.Context) {
	h.list(c, func(db *gorm.DB) *gorm.DB { return db })
}

// GetMyPosts returns the caller's posts, newest first.
func (h *PostHandler) GetMyPosts(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	h.list(c, func(db *gorm.DB) *gorm.DB { return db.Where("user_id = ?", userID) })
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var post models.Post
	if err := h.withAssociations().First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, postNotFound)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al obtener la publicación")
		return
	}
	c.JSON(http.StatusOK, post)
}

// loadVarieties resolves ids to varieties and fails on any unknown id.
func (h *PostHandler) loadVarieties(ids []int) ([]models.Variety, error) {
	unique := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	varieties := []models.Variety{}
	if len(unique) == 0 {
		return varieties, nil
	}
	if err := h.db.Where("id IN ?", unique).Find(&varieties).Error; err != nil {
		return nil, err
	}
	if len(varieties) != len(unique) {
		return nil, errUnknownVariety
	}
	return varieties, nil
}

// CreatePost accepts JSON or a multipart form. Files in the fotos field are
// uploaded to the image host; a failed upload drops that photo and the
// post is still created.
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var input models.CreatePostRequest
	if err := c.ShouldBind(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	title := strings.TrimSpace(input.Title)
	if title == "" || strings.TrimSpace(input.Text) == "" {
		respondError(c, http.StatusBadRequest, "El título y el texto son obligatorios")
		return
	}

	varieties, err := h.loadVarieties(input.VarietyIDs)
	if err != nil {
		if errors.Is(err, errUnknownVariety) {
			respondError(c, http.StatusBadRequest, "Variedad no encontrada")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al crear la publicación")
		return
	}

	links := append([]string{}, input.PhotoLinks...)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		links = append(links, h.uploadPhotos(c, userID)...)
	}

	post := models.Post{
		UserID:     userID,
		Title:      title,
		Text:       input.Text,
		PhotoLinks: links,
		Varieties:  varieties,
	}
	if err := h.db.Create(&post).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al crear la publicación")
		return
	}

	err = h.events.Publish(events.SubjectPostCreated, events.PostCreated{
		PostID:    post.ID,
		UserID:    userID,
		Title:     post.Title,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Warn("publish post event", "post_id", post.ID, "error", err)
	}

	if err := h.withAssociations().First(&post, post.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al crear la publicación")
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) uploadPhotos(c *gin.Context, userID int) []string {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}

	var urls []string
	for _, file := range form.File["fotos"] {
		if !classify.IsImageContentType(file.Header.Get("Content-Type")) || file.Size > maxUploadBytes {
			h.logger.Warn("skip post photo", "user_id", userID, "filename", file.Filename)
			continue
		}
		url, err := uploadFile(c, h.store, storage.FolderPosts, file)
		if err != nil {
			h.logger.Warn("upload post photo", "user_id", userID, "filename", file.Filename, "error", err)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

// authored loads post :id and checks that userID wrote it.
func (h *PostHandler) authored(c *gin.Context, userID int, action string) (*models.Post, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	var post models.Post
	if err := h.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, postNotFound)
			return nil, false
		}
		respondError(c, http.StatusInternalServerError, "Error al obtener la publicación")
		return nil, false
	}
	if post.UserID != userID {
		respondError(c, http.StatusForbidden, "No tienes permiso para "+action+" esta publicación")
		return nil, false
	}
	return &post, true
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	post, ok := h.authored(c, userID, "editar")
	if !ok {
		return
	}

	var input models.UpdatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			respondError(c, http.StatusBadRequest, "El título es obligatorio")
			return
		}
		updates["title"] = title
	}
	if input.Text != nil {
		if strings.TrimSpace(*input.Text) == "" {
			respondError(c, http.StatusBadRequest, "El texto es obligatorio")
			return
		}
		updates["text"] = *input.Text
	}

	var varieties []models.Variety
	if input.VarietyIDs != nil {
		var err error
		varieties, err = h.loadVarieties(*input.VarietyIDs)
		if err != nil {
			if errors.Is(err, errUnknownVariety) {
				respondError(c, http.StatusBadRequest, "Variedad no encontrada")
				return
			}
			respondError(c, http.StatusInternalServerError, "Error al actualizar la publicación")
			return
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if input.PhotoLinks != nil {
			post.PhotoLinks = append([]string{}, (*input.PhotoLinks)...)
			if err := tx.Model(post).Select("photo_links").Updates(post).Error; err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(post).Updates(updates).Error; err != nil {
				return err
			}
		}
		if input.VarietyIDs != nil {
			return tx.Model(post).Association("Varieties").Replace(varieties)
		}
		return nil
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al actualizar la publicación")
		return
	}

	var updated models.Post
	if err := h.withAssociations().First(&updated, post.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al actualizar la publicación")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeletePost removes the post with its comments, votes and tags.
func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	post, ok := h.authored(c, userID, "eliminar")
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return deletePosts(tx, []int{post.ID})
	})
	if err != nil {
		h.logger.Error("delete post", "post_id", post.ID, "error", err)
		respondError(c, http.StatusInternalServerError, "Error al eliminar la publicación")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Publicación eliminada"})
}

func (h *PostHandler) VotePost(c *gin.Context) {
	h.voter.handle(c, votes.PostTarget, func(id int) error {
		return h.db.Select("id").First(&models.Post{}, id).Error
	}, postNotFound)
}
