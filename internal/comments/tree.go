// Package comments handles the reply structure of post comments: comments
// are stored flat with a nullable parent id and assembled into trees on
// request.
package comments

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/models"
)

// MaxDepth bounds both tree assembly and ancestor walks.
const MaxDepth = 32

var (
	ErrParentNotFound = errors.New("parent comment not found on this post")
	ErrCycle          = errors.New("a comment cannot reply to itself or to one of its replies")
	ErrTooDeep        = errors.New("comment thread is too deep")
)

// BuildTree nests flat into reply trees and returns the roots in input
// order. Comments whose parent is not in flat become roots. Replies deeper
// than maxDepth are attached to their ancestor at maxDepth.
func BuildTree(flat []models.Comment, maxDepth int) []*models.Comment {
	if maxDepth < 2 {
		maxDepth = 2
	}

	nodes := make(map[int]*models.Comment, len(flat))
	for i := range flat {
		c := flat[i]
		c.Replies = nil
		nodes[c.ID] = &c
	}

	depth := func(c *models.Comment) int {
		d := 0
		seen := map[int]bool{c.ID: true}
		for c.ParentID != nil {
			parent, ok := nodes[*c.ParentID]
			if !ok || seen[parent.ID] {
				break
			}
			seen[parent.ID] = true
			c = parent
			d++
		}
		return d
	}

	var roots []*models.Comment
	for i := range flat {
		node := nodes[flat[i].ID]
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*node.ParentID]
		if !ok || parent.ID == node.ID {
			roots = append(roots, node)
			continue
		}
		for climbs := 0; depth(parent) >= maxDepth-1 && parent.ParentID != nil && climbs < len(flat); climbs++ {
			up, ok := nodes[*parent.ParentID]
			if !ok {
				break
			}
			parent = up
		}
		parent.Replies = append(parent.Replies, node)
	}
	if roots == nil {
		roots = []*models.Comment{}
	}
	return roots
}

// CheckParent validates parentID as the parent of comment commentID on post
// postID. commentID is zero for a comment that does not exist yet.
func CheckParent(tx *gorm.DB, commentID, postID, parentID int) error {
	if commentID != 0 && parentID == commentID {
		return ErrCycle
	}

	var parent models.Comment
	err := tx.Select("id", "post_id", "parent_id").
		Where("id = ? AND post_id = ?", parentID, postID).
		Take(&parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrParentNotFound
	}
	if err != nil {
		return fmt.Errorf("load parent comment: %w", err)
	}

	// Walk up from the new parent; meeting commentID means the new parent
	// is one of its descendants.
	current := parent.ParentID
	for steps := 1; current != nil; steps++ {
		if steps >= MaxDepth {
			return ErrTooDeep
		}
		if commentID != 0 && *current == commentID {
			return ErrCycle
		}
		var next models.Comment
		err := tx.Select("id", "parent_id").Where("id = ?", *current).Take(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load ancestor comment: %w", err)
		}
		current = next.ParentID
	}
	return nil
}

// Subtree returns rootID followed by the ids of all its descendants.
func Subtree(tx *gorm.DB, rootID int) ([]int, error) {
	ids := []int{rootID}
	frontier := []int{rootID}
	seen := map[int]bool{rootID: true}

	for len(frontier) > 0 {
		var children []int
		if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, fmt.Errorf("load replies: %w", err)
		}
		frontier = frontier[:0]
		for _, id := range children {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			frontier = append(frontier, id)
		}
	}
	return ids, nil
}
