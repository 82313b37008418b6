package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/comments"
	"github.com/emilythestrangee/vitia/backend/internal/models"
	"github.com/emilythestrangee/vitia/backend/internal/votes"
)

type UserHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewUserHandler(db *gorm.DB, logger *slog.Logger) *UserHandler {
	return &UserHandler{db: db, logger: logger}
}

// GetMe returns the authenticated user.
func (h *UserHandler) GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe changes only the fields present in the body.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var input models.UpdateUserRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]any{}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email != user.Email {
			var taken int64
			if err := h.db.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken).Error; err != nil {
				respondError(c, http.StatusInternalServerError, "Error al actualizar el usuario")
				return
			}
			if taken > 0 {
				respondError(c, http.StatusBadRequest, "Este correo electrónico ya está registrado por otro usuario.")
				return
			}
			updates["email"] = email
		}
	}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Surname != nil {
		updates["surname"] = strings.TrimSpace(*input.Surname)
	}

	if len(updates) > 0 {
		if err := h.db.Model(user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, http.StatusBadRequest, "Este correo electrónico ya está registrado por otro usuario.")
				return
			}
			respondError(c, http.StatusInternalServerError, "Error al actualizar el usuario")
			return
		}
	}

	var updated models.User
	if err := h.db.First(&updated, user.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Error al actualizar el usuario")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteMe removes the account and everything it owns, then returns the
// deleted user.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		return deleteAccount(tx, user.ID)
	})
	if err != nil {
		h.logger.Error("delete account", "user_id", user.ID, "error", err)
		respondError(c, http.StatusInternalServerError, "Error al eliminar el usuario")
		return
	}

	c.JSON(http.StatusOK, user)
}

// deleteAccount removes the votes, comments, posts and collection of userID
// and the user row itself. Counters on targets the user voted on are
// recomputed.
func deleteAccount(tx *gorm.DB, userID int) error {
	if err := votes.ClearVoter(tx, votes.PostTarget, userID); err != nil {
		return err
	}
	if err := votes.ClearVoter(tx, votes.CommentTarget, userID); err != nil {
		return err
	}

	var postIDs []int
	if err := tx.Model(&models.Post{}).Where("user_id = ?", userID).Pluck("id", &postIDs).Error; err != nil {
		return fmt.Errorf("load posts: %w", err)
	}
	if err := deletePosts(tx, postIDs); err != nil {
		return err
	}

	// Comments the user left on other people's posts, with their replies.
	var rootIDs []int
	if err := tx.Model(&models.Comment{}).Where("user_id = ?", userID).Pluck("id", &rootIDs).Error; err != nil {
		return fmt.Errorf("load comments: %w", err)
	}
	seen := make(map[int]bool)
	var commentIDs []int
	for _, id := range rootIDs {
		if seen[id] {
			continue
		}
		subtree, err := comments.Subtree(tx, id)
		if err != nil {
			return err
		}
		for _, sid := range subtree {
			if !seen[sid] {
				seen[sid] = true
				commentIDs = append(commentIDs, sid)
			}
		}
	}
	if err := deleteComments(tx, commentIDs); err != nil {
		return err
	}

	if err := tx.Where("user_id = ?", userID).Delete(&models.CollectionItem{}).Error; err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if err := tx.Delete(&models.User{}, userID).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// deletePosts removes posts with their comments, votes and variety tags.
func deletePosts(tx *gorm.DB, postIDs []int) error {
	if len(postIDs) == 0 {
		return nil
	}

	var commentIDs []int
	if err := tx.Model(&models.Comment{}).Where("post_id IN ?", postIDs).Pluck("id", &commentIDs).Error; err != nil {
		return fmt.Errorf("load post comments: %w", err)
	}
	if err := deleteComments(tx, commentIDs); err != nil {
		return err
	}
	if err := votes.DeleteForTargets(tx, votes.PostTarget, postIDs); err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM post_varieties WHERE post_id IN ?", postIDs).Error; err != nil {
		return fmt.Errorf("delete post varieties: %w", err)
	}
	if err := tx.Where("id IN ?", postIDs).Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}
	return nil
}

// deleteComments removes comments and their votes. Callers pass complete
// subtrees.
func deleteComments(tx *gorm.DB, commentIDs []int) error {
	if len(commentIDs) == 0 {
		return nil
	}
	if err := votes.DeleteForTargets(tx, votes.CommentTarget, commentIDs); err != nil {
		return err
	}
	if err := tx.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}
