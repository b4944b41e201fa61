package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgen-cli/compose-edit/internal/edit"
	"github.com/stackgen-cli/compose-edit/internal/models"
	"github.com/stackgen-cli/compose-edit/internal/server"
	"github.com/stackgen-cli/compose-edit/internal/session"
	"github.com/stackgen-cli/compose-edit/internal/stack"
)

const shopYAML = `services:
  web:
    image: nginx:1.25
    depends_on: [api]
  api:
    image: node:20
`

var shop = models.StackRef{Server: "local", Stack: "shop"}

func newServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "shop")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "compose.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shopYAML), 0644))

	srv := httptest.NewServer(server.NewRouter(stack.NewManager(map[string]string{"local": root})))
	t.Cleanup(srv.Close)
	return srv, path
}

func TestFetch(t *testing.T) {
	srv, _ := newServer(t)
	c := New(srv.URL + "/")

	raw, err := c.Fetch(context.Background(), shop)
	require.NoError(t, err)
	assert.Equal(t, "compose.yaml", raw.ComposeFile)
	assert.Equal(t, []string{"web", "api"}, raw.ServiceOrder)

	stacks, err := c.Stacks(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop"}, stacks)
}

func TestStatusError(t *testing.T) {
	srv, _ := newServer(t)
	c := New(srv.URL)

	_, err := c.Fetch(context.Background(), models.StackRef{Server: "local", Stack: "gone"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Message, "stack not found")

	_, err = c.Update(context.Background(), shop, models.UpdateRequest{Changes: models.ComposeChanges{
		AddServices: map[string]models.NewServiceConfig{"web": {Image: "nginx"}},
	}})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.Code)
}

func TestNonEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Fetch(context.Background(), shop)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "bad gateway", se.Message)
}

func TestRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(RequestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"compose_file":"compose.yaml","services":{}}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Fetch(context.Background(), shop)
	require.NoError(t, err)
	_, err = uuid.Parse(got)
	assert.NoError(t, err)
}

func TestCanceledContext(t *testing.T) {
	srv, _ := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL).Fetch(ctx, shop)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionOverHTTP(t *testing.T) {
	srv, path := newServer(t)
	ctx := context.Background()

	s := session.New(New(srv.URL), shop)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, []string{"web", "api"}, s.Services())

	require.NoError(t, s.Edit("api", func(e *edit.ServiceEdit) error {
		e.SetImage("node:22")
		return nil
	}))

	require.NoError(t, s.Preview(ctx))
	preview := s.Status().Preview
	require.NotNil(t, preview.Report)
	assert.NotEmpty(t, preview.Report.Changes)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, shopYAML, string(data), "preview does not write")

	require.NoError(t, s.SaveService(ctx, "api"))
	assert.False(t, s.Status().Dirty)
	svc, ok := s.Effective("api")
	require.True(t, ok)
	assert.Equal(t, "node:22", *svc.Image)

	require.NoError(t, s.RenameService(ctx, "api", "backend"))
	assert.Equal(t, []string{"web", "backend"}, s.Services())
	assert.Equal(t, []string{"web"}, s.Dependents("backend"))
}
