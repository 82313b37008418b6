package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/events"
	"github.com/emilythestrangee/vitia/backend/internal/models"
	"github.com/emilythestrangee/vitia/backend/internal/votes"
)

// voteRecorder serves POST /{target}/:id/voto for posts and comments.
type voteRecorder struct {
	engine *votes.Engine
	events events.Publisher
	logger *slog.Logger
}

// handle applies the vote in the request body to the target row loaded by
// exists. exists returns gorm.ErrRecordNotFound for a missing target.
func (v *voteRecorder) handle(c *gin.Context, target votes.Target, exists func(id int) error, notFound string) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := exists(targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, notFound)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error al registrar el voto")
		return
	}

	out, err := v.engine.Set(c.Request.Context(), target, userID, targetID, votes.StateFromLike(input.IsLike))
	if err != nil {
		v.logger.Error("vote failed", "target", target.Kind, "target_id", targetID, "user_id", userID, "error", err)
		respondError(c, http.StatusInternalServerError, "Error al registrar el voto")
		return
	}

	if out.Result.Changed() {
		err := v.events.Publish(events.SubjectVoteChanged, events.VoteChanged{
			Target:    target.Kind,
			TargetID:  targetID,
			UserID:    userID,
			Result:    string(out.Result),
			Likes:     out.Likes,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			v.logger.Warn("publish vote event", "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"msg": string(out.Result), "likes": out.Likes})
}
