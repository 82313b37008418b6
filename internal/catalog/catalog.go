// Package catalog seeds the variety table from a TOML file:
//
//	[[variedad]]
//	nombre = "Tempranillo"
//	descripcion = "Tinta de ciclo corto"
//	region_origen = "Rioja"
//	color_uva = "tinta"
//	links_imagenes = ["https://..."]
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/models"
)

type Entry struct {
	Name         string   `toml:"nombre"`
	Description  string   `toml:"descripcion"`
	OriginRegion string   `toml:"region_origen"`
	GrapeColor   string   `toml:"color_uva"`
	ImageLinks   []string `toml:"links_imagenes"`
}

type file struct {
	Varieties []Entry `toml:"variedad"`
}

// Result counts what Import wrote.
type Result struct {
	Created int
	Updated int
}

// Load reads and validates a catalog file.
func Load(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes catalog TOML. Names are trimmed and must be unique.
func Parse(raw []byte) ([]Entry, error) {
	var f file
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Varieties))
	for i := range f.Varieties {
		e := &f.Varieties[i]
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return nil, fmt.Errorf("catalog entry %d: nombre is required", i+1)
		}
		key := strings.ToLower(e.Name)
		if seen[key] {
			return nil, fmt.Errorf("catalog entry %d: duplicate variety %q", i+1, e.Name)
		}
		seen[key] = true
	}
	return f.Varieties, nil
}

// Import inserts new varieties and overwrites existing ones matched by
// name, in a single transaction.
func Import(ctx context.Context, db *gorm.DB, entries []Entry) (Result, error) {
	var res Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			links := e.ImageLinks
			if links == nil {
				links = []string{}
			}

			var existing models.Variety
			err := tx.Where("name = ?", e.Name).Take(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				v := models.Variety{
					Name:         e.Name,
					Description:  e.Description,
					OriginRegion: e.OriginRegion,
					GrapeColor:   e.GrapeColor,
					ImageLinks:   links,
				}
				if err := tx.Create(&v).Error; err != nil {
					return fmt.Errorf("create %s: %w", e.Name, err)
				}
				res.Created++
			case err != nil:
				return fmt.Errorf("load %s: %w", e.Name, err)
			default:
				existing.Description = e.Description
				existing.OriginRegion = e.OriginRegion
				existing.GrapeColor = e.GrapeColor
				existing.ImageLinks = links
				if err := tx.Save(&existing).Error; err != nil {
					return fmt.Errorf("update %s: %w", e.Name, err)
				}
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
