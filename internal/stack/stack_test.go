package stack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

const shopYAML = `services:
  web:
    image: nginx:1.25
    depends_on: [api]
  api:
    image: node:20
`

func newManager(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "shop")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compose.yaml"), []byte(shopYAML), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))
	return NewManager(map[string]string{"local": root}), dir
}

var shop = models.StackRef{Server: "local", Stack: "shop"}

func TestFetch(t *testing.T) {
	m, _ := newManager(t)

	raw, err := m.Fetch(context.Background(), shop)
	require.NoError(t, err)
	assert.Equal(t, "compose.yaml", raw.ComposeFile)
	assert.Equal(t, []string{"web", "api"}, raw.ServiceOrder)
	assert.Contains(t, raw.Services, "api")
}

func TestFetchErrors(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	tests := []struct {
		name string
		ref  models.StackRef
		want error
	}{
		{"unknown server", models.StackRef{Server: "remote", Stack: "shop"}, ErrUnknownServer},
		{"path escape", models.StackRef{Server: "local", Stack: "../etc"}, ErrInvalidStack},
		{"no compose file", models.StackRef{Server: "local", Stack: "empty"}, ErrStackNotFound},
		{"missing stack", models.StackRef{Server: "local", Stack: "gone"}, ErrStackNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Fetch(ctx, tt.ref)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStacks(t *testing.T) {
	m, _ := newManager(t)
	stacks, err := m.Stacks("local")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop"}, stacks)
}

func TestUpdatePreviewDoesNotWrite(t *testing.T) {
	m, dir := newManager(t)

	resp, err := m.Update(context.Background(), shop, models.UpdateRequest{
		Preview: true,
		Changes: models.ComposeChanges{DeleteServices: []string{"web"}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, shopYAML, resp.OriginalYAML)
	assert.NotContains(t, resp.ModifiedYAML, "web:")

	data, err := os.ReadFile(filepath.Join(dir, "compose.yaml"))
	require.NoError(t, err)
	assert.Equal(t, shopYAML, string(data))
	assert.NoDirExists(t, filepath.Join(dir, ".compose-edit"))
}

func TestUpdateWritesAndSnapshots(t *testing.T) {
	m, dir := newManager(t)

	resp, err := m.Update(context.Background(), shop, models.UpdateRequest{
		Changes: models.ComposeChanges{RenameServices: map[string]string{"api": "backend"}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.ModifiedYAML)

	data, err := os.ReadFile(filepath.Join(dir, "compose.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend:")
	assert.Contains(t, string(data), "depends_on: [backend]")

	snaps, err := m.Snapshots(shop)
	require.NoError(t, err)
	list, err := snaps.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, shopYAML, list[0].Content)
	assert.Equal(t, "local/shop", list[0].Stack)
}

func TestUpdateRejectsInvalidChange(t *testing.T) {
	m, dir := newManager(t)

	_, err := m.Update(context.Background(), shop, models.UpdateRequest{
		Changes: models.ComposeChanges{AddServices: map[string]models.NewServiceConfig{"web": {Image: "nginx"}}},
	})
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "compose.yaml"))
	require.NoError(t, err)
	assert.Equal(t, shopYAML, string(data))
}

func TestUpdateCanceled(t *testing.T) {
	m, _ := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Update(ctx, shop, models.UpdateRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateSnapshotsStayOrdered(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	for _, rename := range []map[string]string{{"api": "backend"}, {"backend": "svc"}} {
		_, err := m.Update(ctx, shop, models.UpdateRequest{
			Changes: models.ComposeChanges{RenameServices: rename},
		})
		require.NoError(t, err)
	}

	snaps, err := m.Snapshots(shop)
	require.NoError(t, err)
	again, err := m.Snapshots(shop)
	require.NoError(t, err)
	assert.Same(t, snaps, again)

	list, err := snaps.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Greater(t, list[0].ID, list[1].ID)
	assert.Contains(t, list[0].Content, "backend:")
	assert.Equal(t, shopYAML, list[1].Content)
}
