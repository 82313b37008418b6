// Package votes keeps per-user like/dislike votes on posts and comments and
// the denormalized like counter stored on each target.
//
// A (user, target) pair has at most one vote row; no row means neutral. After
// every insert, update or delete the target's counter is recomputed from the
// vote rows instead of being adjusted in place, so a counter that drifted
// under concurrent writers is repaired by the next vote on that target.
package votes

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// State is the desired vote of a user on a target.
type State int

const (
	Neutral State = iota
	Like
	Dislike
)

func (s State) String() string {
	switch s {
	case Like:
		return "like"
	case Dislike:
		return "dislike"
	default:
		return "neutral"
	}
}

// StateFromLike maps the es_like wire value: true, false, or null.
func StateFromLike(isLike *bool) State {
	switch {
	case isLike == nil:
		return Neutral
	case *isLike:
		return Like
	default:
		return Dislike
	}
}

// Result reports what a call to Set did.
type Result string

const (
	Created   Result = "created"
	Updated   Result = "updated"
	Deleted   Result = "deleted"
	Unchanged Result = "unchanged"
)

// Changed reports whether the vote row was written.
func (r Result) Changed() bool {
	return r != Unchanged
}

// Target describes where votes of one kind live and which counter they feed.
type Target struct {
	Kind          string
	VoteTable     string
	ForeignKey    string
	CounterTable  string
	CounterColumn string
}

var (
	PostTarget = Target{
		Kind:          "post",
		VoteTable:     "post_votes",
		ForeignKey:    "post_id",
		CounterTable:  "posts",
		CounterColumn: "likes",
	}
	CommentTarget = Target{
		Kind:          "comment",
		VoteTable:     "comment_votes",
		ForeignKey:    "comment_id",
		CounterTable:  "comments",
		CounterColumn: "likes",
	}
)

// Outcome is the result of Set together with the target's like count after it.
type Outcome struct {
	Result Result
	Likes  int64
}

type voteRow struct {
	ID     int
	IsLike bool
}

// Engine applies votes inside their own transaction.
type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Set moves the vote of voterID on targetID to state. The counter is only
// recomputed when a row changed; an unchanged call reads the stored counter.
func (e *Engine) Set(ctx context.Context, t Target, voterID, targetID int, state State) (Outcome, error) {
	var out Outcome
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result, err := Apply(tx, t, voterID, targetID, state)
		if err != nil {
			return err
		}
		out.Result = result

		if result.Changed() {
			out.Likes, err = Recount(tx, t, targetID)
		} else {
			out.Likes, err = Likes(tx, t, targetID)
		}
		return err
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// Apply performs the vote row transition without touching the counter.
func Apply(tx *gorm.DB, t Target, voterID, targetID int, state State) (Result, error) {
	var existing voteRow
	err := tx.Table(t.VoteTable).
		Select("id, is_like").
		Where("user_id = ? AND "+t.ForeignKey+" = ?", voterID, targetID).
		Take(&existing).Error

	found := true
	if errors.Is(err, gorm.ErrRecordNotFound) {
		found = false
	} else if err != nil {
		return "", fmt.Errorf("load %s vote: %w", t.Kind, err)
	}

	if state == Neutral {
		if !found {
			return Unchanged, nil
		}
		if err := tx.Exec("DELETE FROM "+t.VoteTable+" WHERE id = ?", existing.ID).Error; err != nil {
			return "", fmt.Errorf("delete %s vote: %w", t.Kind, err)
		}
		return Deleted, nil
	}

	isLike := state == Like
	now := tx.NowFunc()

	if !found {
		row := map[string]any{
			"user_id":    voterID,
			t.ForeignKey: targetID,
			"is_like":    isLike,
			"created_at": now,
			"updated_at": now,
		}
		if err := tx.Table(t.VoteTable).Create(row).Error; err != nil {
			return "", fmt.Errorf("create %s vote: %w", t.Kind, err)
		}
		return Created, nil
	}

	if existing.IsLike == isLike {
		return Unchanged, nil
	}

	err = tx.Table(t.VoteTable).
		Where("id = ?", existing.ID).
		Updates(map[string]any{"is_like": isLike, "updated_at": now}).Error
	if err != nil {
		return "", fmt.Errorf("update %s vote: %w", t.Kind, err)
	}
	return Updated, nil
}

// Recount writes count(votes where is_like) back onto the target and returns it.
func Recount(tx *gorm.DB, t Target, targetID int) (int64, error) {
	var likes int64
	err := tx.Table(t.VoteTable).
		Where(t.ForeignKey+" = ? AND is_like = ?", targetID, true).
		Count(&likes).Error
	if err != nil {
		return 0, fmt.Errorf("count %s likes: %w", t.Kind, err)
	}

	err = tx.Table(t.CounterTable).
		Where("id = ?", targetID).
		UpdateColumn(t.CounterColumn, likes).Error
	if err != nil {
		return 0, fmt.Errorf("store %s likes: %w", t.Kind, err)
	}
	return likes, nil
}

// Likes reads the stored counter of a target.
func Likes(tx *gorm.DB, t Target, targetID int) (int64, error) {
	var likes int64
	err := tx.Table(t.CounterTable).
		Select(t.CounterColumn).
		Where("id = ?", targetID).
		Scan(&likes).Error
	if err != nil {
		return 0, fmt.Errorf("read %s likes: %w", t.Kind, err)
	}
	return likes, nil
}

// DeleteForTargets removes every vote on the given targets. The targets are
// expected to be deleted right after, so no counter is recomputed.
func DeleteForTargets(tx *gorm.DB, t Target, targetIDs []int) error {
	if len(targetIDs) == 0 {
		return nil
	}
	err := tx.Exec("DELETE FROM "+t.VoteTable+" WHERE "+t.ForeignKey+" IN ?", targetIDs).Error
	if err != nil {
		return fmt.Errorf("delete %s votes: %w", t.Kind, err)
	}
	return nil
}

// ClearVoter deletes every vote cast by userID on targets of kind t and
// recomputes the counters it fed.
func ClearVoter(tx *gorm.DB, t Target, userID int) error {
	var targetIDs []int
	err := tx.Table(t.VoteTable).
		Where("user_id = ?", userID).
		Distinct().
		Pluck(t.ForeignKey, &targetIDs).Error
	if err != nil {
		return fmt.Errorf("list %s votes of user: %w", t.Kind, err)
	}
	if len(targetIDs) == 0 {
		return nil
	}

	if err := tx.Exec("DELETE FROM "+t.VoteTable+" WHERE user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("delete %s votes of user: %w", t.Kind, err)
	}
	for _, id := range targetIDs {
		if _, err := Recount(tx, t, id); err != nil {
			return err
		}
	}
	return nil
}
