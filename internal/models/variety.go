package models

import "time"

// Variety is a grape cultivar in the shared catalog.
type Variety struct {
	ID           int      `gorm:"primaryKey" json:"id_variedad"`
	Name         string   `gorm:"size:100;uniqueIndex;not null" json:"nombre"`
	Description  string   `gorm:"type:text" json:"descripcion"`
	OriginRegion string   `gorm:"size:150" json:"region_origen,omitempty"`
	GrapeColor   string   `gorm:"size:50" json:"color_uva,omitempty"`
	ImageLinks   []string `gorm:"type:text;serializer:json" json:"links_imagenes"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type CreateVarietyRequest struct {
	Name         string   `json:"nombre" binding:"required,max=100"`
	Description  string   `json:"descripcion"`
	OriginRegion string   `json:"region_origen"`
	GrapeColor   string   `json:"color_uva"`
	ImageLinks   []string `json:"links_imagenes"`
}

type UpdateVarietyRequest struct {
	Name         *string   `json:"nombre" binding:"omitempty,max=100"`
	Description  *string   `json:"descripcion"`
	OriginRegion *string   `json:"region_origen"`
	GrapeColor   *string   `json:"color_uva"`
	ImageLinks   *[]string `json:"links_imagenes"`
}
