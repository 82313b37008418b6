package models

import "time"

// Post is a forum entry. Likes is denormalized from post_votes.
type Post struct {
	ID         int       `gorm:"primaryKey" json:"id_publicacion"`
	UserID     int       `gorm:"not null;index" json:"id_usuario"`
	User       *User     `gorm:"foreignKey:UserID" json:"autor,omitempty"`
	Title      string    `gorm:"size:200;not null" json:"titulo"`
	Text       string    `gorm:"type:text;not null" json:"texto"`
	PhotoLinks []string  `gorm:"type:text;serializer:json" json:"links_fotos"`
	Likes      int       `gorm:"not null;default:0" json:"likes"`
	Varieties  []Variety `gorm:"many2many:post_varieties;" json:"variedades"`

	CreatedAt time.Time `gorm:"index" json:"fecha_publicacion"`
	UpdatedAt time.Time `json:"-"`
}

type CreatePostRequest struct {
	Title      string   `json:"titulo" form:"titulo" binding:"required,max=200"`
	Text       string   `json:"texto" form:"texto" binding:"required"`
	PhotoLinks []string `json:"links_fotos" form:"links_fotos"`
	VarietyIDs []int    `json:"variedades" form:"variedades"`
}

type UpdatePostRequest struct {
	Title      *string   `json:"titulo" binding:"omitempty,max=200"`
	Text       *string   `json:"texto"`
	PhotoLinks *[]string `json:"links_fotos"`
	VarietyIDs *[]int    `json:"variedades"`
}
