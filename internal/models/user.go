package models

import "time"

type User struct {
	ID           int    `gorm:"primaryKey" json:"id_usuario"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name         string `gorm:"size:100" json:"nombre"`
	Surname      string `gorm:"size:150" json:"apellidos"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsPremium    bool   `gorm:"not null;default:false" json:"es_premium"`

	CreatedAt time.Time `json:"fecha_registro"`
	UpdatedAt time.Time `json:"-"`
}

type RegisterRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=6,max=72"`
	Name     string `json:"nombre" form:"nombre"`
	Surname  string `json:"apellidos" form:"apellidos"`
}

// UpdateUserRequest only touches the fields that were sent.
type UpdateUserRequest struct {
	Email   *string `json:"email" binding:"omitempty,email"`
	Name    *string `json:"nombre"`
	Surname *string `json:"apellidos"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
