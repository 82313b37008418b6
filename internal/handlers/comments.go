package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/comments"
	"github.com/emilythestrangee/vitia/backend/internal/models"
	"github.com/emilythestrangee/vitia/backend/internal/votes"
)

const commentNotFound = "Comentario no encontrado"

type CommentHandler struct {
	db    *gorm.DB
	voter *voteRecorder
}

func NewCommentHandler(db *gorm.DB, voter *voteRecorder) *CommentHandler {
	return &CommentHandler{db: db, voter: voter}
}

// parentError maps comments.CheckParent failures to a response.
func parentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, comments.ErrParentNotFound):
		respondError(c, http.StatusBadRequest, "El comentario padre no existe en esta publicación")
	case errors.Is(err, comments.ErrCycle):
		respondError(c, http.StatusBadRequest, "Un comentario no puede responder a sí mismo ni a sus respuestas")
	case errors.Is(err, comments.ErrTooDeep):
		respondError(c, http.StatusBadRequest, "El hilo de comentarios es demasiado profundo")
	default:
		respondError(c, http.StatusInternalServerError, "Error al guardar el comentario")
	}
}

// GetComments lists the comments of a post, oldest first. With arbol=true
// replies are nested under their parents.
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}
	tree := false
	if raw := c.Query("arbol"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "arbol debe ser true o false")
			return
		}
		tree = v
	}

	if err := h.db.Select("id").First(&models.Post{}, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, postNotFound)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al obtener los comentarios")
		return
	}

	flat := []models.Comment{}
	err := h.db.Preload("User").
		Where("post_id = ?", postID).
		Order("created_at asc, id asc").
		Offset(skip).Limit(limit).
		Find(&flat).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al obtener los comentarios")
		return
	}

	if tree {
		c.JSON(http.StatusOK, comments.BuildTree(flat, comments.MaxDepth))
		return
	}
	c.JSON(http.StatusOK, flat)
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(input.Text) == "" {
		respondError(c, http.StatusBadRequest, "El texto es obligatorio")
		return
	}

	if err := h.db.Select("id").First(&models.Post{}, input.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, postNotFound)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al guardar el comentario")
		return
	}

	comment := models.Comment{
		PostID:   input.PostID,
		UserID:   userID,
		ParentID: input.ParentID,
		Text:     input.Text,
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if input.ParentID != nil {
			if err := comments.CheckParent(tx, 0, input.PostID, *input.ParentID); err != nil {
				return err
			}
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		parentError(c, err)
		return
	}

	if err := h.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al guardar el comentario")
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// authored loads comment :id and checks that userID wrote it.
func (h *CommentHandler) authored(c *gin.Context, userID int, action string) (*models.Comment, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	var comment models.Comment
	if err := h.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, commentNotFound)
			return nil, false
		}
		respondError(c, http.StatusInternalServerError, "Error al obtener el comentario")
		return nil, false
	}
	if comment.UserID != userID {
		respondError(c, http.StatusForbidden, "No tienes permiso para "+action+" este comentario")
		return nil, false
	}
	return &comment, true
}

// UpdateComment edits the text and can move the comment under another
// comment of the same post, or back to the top level.
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	comment, ok := h.authored(c, userID, "editar")
	if !ok {
		return
	}

	var input models.UpdateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if input.ClearParent && input.ParentID != nil {
		respondError(c, http.StatusBadRequest, "id_padre y quitar_padre son incompatibles")
		return
	}

	updates := map[string]any{}
	if input.Text != nil {
		if strings.TrimSpace(*input.Text) == "" {
			respondError(c, http.StatusBadRequest, "El texto es obligatorio")
			return
		}
		updates["text"] = *input.Text
	}
	if input.ClearParent {
		updates["parent_id"] = nil
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if input.ParentID != nil {
			if err := comments.CheckParent(tx, comment.ID, comment.PostID, *input.ParentID); err != nil {
				return err
			}
			updates["parent_id"] = *input.ParentID
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.Comment{}).Where("id = ?", comment.ID).Updates(updates).Error
	})
	if err != nil {
		parentError(c, err)
		return
	}

	var updated models.Comment
	if err := h.db.Preload("User").First(&updated, comment.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al obtener el comentario")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteComment removes the comment, all of its replies and their votes.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	comment, ok := h.authored(c, userID, "eliminar")
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		ids, err := comments.Subtree(tx, comment.ID)
		if err != nil {
			return err
		}
		return deleteComments(tx, ids)
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error al eliminar el comentario")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Comentario eliminado"})
}

func (h *CommentHandler) VoteComment(c *gin.Context) {
	h.voter.handle(c, votes.CommentTarget, func(id int) error {
		return h.db.Select("id").First(&models.Comment{}, id).Error
	}, commentNotFound)
}
