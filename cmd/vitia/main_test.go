package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/models"
)

func TestRootCommandListsSubcommands(t *testing.T) {
	cmd := newRootCommand()
	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "varieties"})
}

func TestVarietiesImport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "vitia.db")
	envPath := filepath.Join(dir, "test.env")
	catalogPath := filepath.Join(dir, "variedades.toml")

	require.NoError(t, os.WriteFile(envPath, []byte("DB_DRIVER=sqlite\nDB_DSN="+dbPath+"\nLOG_FORMAT=text\nLOG_LEVEL=error\n"), 0o600))
	require.NoError(t, os.WriteFile(catalogPath, []byte("[[variedad]]\nnombre = \"Prieto Picudo\"\n"), 0o600))
	// godotenv never overrides variables that are already set.
	for _, key := range []string{"DB_DRIVER", "DB_DSN", "LOG_FORMAT", "LOG_LEVEL", "REDIS_ADDR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", envPath, "varieties", "import", catalogPath})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "1 created, 0 updated\n", out.String())

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	var v models.Variety
	require.NoError(t, db.Where("name = ?", "Prieto Picudo").First(&v).Error)
}
