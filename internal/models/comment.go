package models

import "time"

// Comment belongs to a post and optionally replies to another comment on
// the same post. Likes is denormalized from comment_votes.
type Comment struct {
	ID       int    `gorm:"primaryKey" json:"id_comentario"`
	PostID   int    `gorm:"not null;index" json:"id_publicacion"`
	UserID   int    `gorm:"not null;index" json:"id_usuario"`
	User     *User  `gorm:"foreignKey:UserID" json:"autor,omitempty"`
	ParentID *int   `gorm:"index" json:"id_padre"`
	Text     string `gorm:"type:text;not null" json:"texto"`
	Likes    int    `gorm:"not null;default:0" json:"likes"`

	Replies []*Comment `gorm:"-" json:"respuestas,omitempty"`

	CreatedAt time.Time `json:"fecha_comentario"`
	UpdatedAt time.Time `json:"-"`
}

type CreateCommentRequest struct {
	PostID   int    `json:"id_publicacion" binding:"required"`
	Text     string `json:"texto" binding:"required"`
	ParentID *int   `json:"id_padre"`
}

// UpdateCommentRequest can re-parent a comment. ClearParent moves it back
// to the top level.
type UpdateCommentRequest struct {
	Text        *string `json:"texto"`
	ParentID    *int    `json:"id_padre"`
	ClearParent bool    `json:"quitar_padre"`
}
