package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/emilythestrangee/vitia/backend/internal/models"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*VarietyCache{nil, NewVarietyCache(nil, time.Minute)} {
		require.NoError(t, c.Set(ctx, &models.Variety{ID: 1, Name: "Tempranillo"}))
		require.NoError(t, c.SetList(ctx, 0, 100, []models.Variety{{ID: 1}}))
		require.NoError(t, c.Invalidate(ctx))

		_, ok := c.Get(ctx, 1)
		assert.False(t, ok)
		_, ok = c.GetList(ctx, 0, 100)
		assert.False(t, ok)
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "variedades:list:0:100", listKey(0, 100))
	assert.Equal(t, "variedades:id:7", itemKey(7))
}

func TestRedisRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := Connect(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := NewVarietyCache(client, time.Minute)
	v := &models.Variety{ID: 3, Name: "Garnacha", ImageLinks: []string{"https://img/garnacha.jpg"}}
	require.NoError(t, c.Set(ctx, v))
	require.NoError(t, c.SetList(ctx, 0, 10, []models.Variety{*v}))

	got, ok := c.Get(ctx, 3)
	require.True(t, ok)
	assert.Equal(t, "Garnacha", got.Name)
	assert.Equal(t, v.ImageLinks, got.ImageLinks)

	list, ok := c.GetList(ctx, 0, 10)
	require.True(t, ok)
	assert.Len(t, list, 1)

	require.NoError(t, c.Invalidate(ctx))
	_, ok = c.Get(ctx, 3)
	assert.False(t, ok)
	_, ok = c.GetList(ctx, 0, 10)
	assert.False(t, ok)
}
