package storage

import (
	"path"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	name := ObjectName(FolderCollection, "Cepa Vieja.JPG")

	assert.True(t, strings.HasPrefix(name, FolderCollection+"/"))
	assert.Equal(t, ".jpg", path.Ext(name))

	id := strings.TrimSuffix(path.Base(name), ".jpg")
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestObjectNameIsUnique(t *testing.T) {
	assert.NotEqual(t, ObjectName(FolderPosts, "a.png"), ObjectName(FolderPosts, "a.png"))
}

func TestObjectNameWithoutExtension(t *testing.T) {
	name := ObjectName(FolderPosts, "blob")
	assert.Equal(t, "", path.Ext(name))
}
