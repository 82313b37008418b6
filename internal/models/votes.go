package models

import "time"

// PostVote is a user's like (IsLike) or dislike on a post. No row means neutral.
type PostVote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_post_votes_user_post" json:"id_usuario"`
	PostID    int       `gorm:"not null;uniqueIndex:idx_post_votes_user_post;index" json:"id_publicacion"`
	IsLike    bool      `gorm:"not null" json:"es_like"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// CommentVote mirrors PostVote for comments.
type CommentVote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_comment_votes_user_comment" json:"id_usuario"`
	CommentID int       `gorm:"not null;uniqueIndex:idx_comment_votes_user_comment;index" json:"id_comentario"`
	IsLike    bool      `gorm:"not null" json:"es_like"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// VoteRequest maps es_like true/false/null onto like/dislike/neutral.
type VoteRequest struct {
	IsLike *bool `json:"es_like"`
}

// All lists every table the backend migrates, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Variety{},
		&CollectionItem{},
		&Post{},
		&Comment{},
		&PostVote{},
		&CommentVote{},
	}
}
