package models

import "time"

// CollectionItem is one photographed vine in a user's personal collection.
type CollectionItem struct {
	ID         int       `gorm:"primaryKey" json:"id_coleccion"`
	UserID     int       `gorm:"not null;index" json:"id_usuario"`
	VarietyID  int       `gorm:"not null;index" json:"id_variedad"`
	Variety    *Variety  `gorm:"foreignKey:VarietyID" json:"variedad,omitempty"`
	PhotoURL   string    `gorm:"type:text;not null" json:"path_foto_usuario"`
	Latitude   *float64  `json:"latitud"`
	Longitude  *float64  `json:"longitud"`
	Notes      string    `gorm:"type:text" json:"notas"`
	CapturedAt time.Time `json:"fecha_captura"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type CreateCollectionItemRequest struct {
	PhotoURL   string     `json:"path_foto_usuario" binding:"required"`
	VarietyID  int        `json:"id_variedad" binding:"required"`
	Latitude   *float64   `json:"latitud" binding:"omitempty,min=-90,max=90"`
	Longitude  *float64   `json:"longitud" binding:"omitempty,min=-180,max=180"`
	Notes      string     `json:"notas"`
	CapturedAt *time.Time `json:"fecha_captura"`
}

type UpdateCollectionItemRequest struct {
	PhotoURL  *string  `json:"path_foto_usuario"`
	VarietyID *int     `json:"id_variedad"`
	Latitude  *float64 `json:"latitud" binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitud" binding:"omitempty,min=-180,max=180"`
	Notes     *string  `json:"notas"`
}
