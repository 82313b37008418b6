package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/vitia/backend/internal/catalog"
	"github.com/emilythestrangee/vitia/backend/internal/models"
	"github.com/emilythestrangee/vitia/backend/internal/testsupport"
)

const sample = `
[[variedad]]
nombre = "Tempranillo"
descripcion = "Tinta de ciclo corto"
region_origen = "Rioja"
color_uva = "tinta"
links_imagenes = ["https://img.vitia.test/tempranillo.jpg"]

[[variedad]]
nombre = "  Albariño "
color_uva = "blanca"
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "variedades.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	entries, err := catalog.Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Tempranillo", entries[0].Name)
	assert.Equal(t, []string{"https://img.vitia.test/tempranillo.jpg"}, entries[0].ImageLinks)
	assert.Equal(t, "Albariño", entries[1].Name)
}

func TestParseRejectsBadEntries(t *testing.T) {
	_, err := catalog.Parse([]byte("[[variedad]]\ndescripcion = \"sin nombre\"\n"))
	assert.Error(t, err)

	_, err = catalog.Parse([]byte("[[variedad]]\nnombre = \"Bobal\"\n[[variedad]]\nnombre = \"bobal\"\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = catalog.Parse([]byte("not toml ["))
	assert.Error(t, err)

	_, err = catalog.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestImportUpsertsByName(t *testing.T) {
	db := testsupport.OpenDB(t)
	testsupport.CreateVariety(t, db, "Tempranillo")
	entries, err := catalog.Parse([]byte(sample))
	require.NoError(t, err)

	res, err := catalog.Import(context.Background(), db, entries)
	require.NoError(t, err)
	assert.Equal(t, catalog.Result{Created: 1, Updated: 1}, res)

	var tempranillo models.Variety
	require.NoError(t, db.Where("name = ?", "Tempranillo").First(&tempranillo).Error)
	assert.Equal(t, "Rioja", tempranillo.OriginRegion)
	assert.Equal(t, []string{"https://img.vitia.test/tempranillo.jpg"}, tempranillo.ImageLinks)

	res, err = catalog.Import(context.Background(), db, entries)
	require.NoError(t, err)
	assert.Equal(t, catalog.Result{Created: 0, Updated: 2}, res)

	var n int64
	require.NoError(t, db.Model(&models.Variety{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}
