package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/immarkus/immarkus-engine/pkg/annotations"
	"github.com/immarkus/immarkus-engine/pkg/config"
	"github.com/immarkus/immarkus-engine/pkg/datamodel"
	"github.com/immarkus/immarkus-engine/pkg/docstore"
	"github.com/immarkus/immarkus-engine/pkg/graph"
	"github.com/immarkus/immarkus-engine/pkg/images"
	"github.com/immarkus/immarkus-engine/pkg/models"
)

type workspace struct {
	root     string
	docsPath string
}

// newWorkspace creates an image root with one image and points the
// configuration at it through the environment.
func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "letters"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "letters", "a.jpg"), []byte("jpeg"), 0o644))

	ws := &workspace{root: root, docsPath: filepath.Join(root, "_immarkus")}
	t.Setenv("IMAGES_ROOT", root)
	t.Setenv("STORAGE_DRIVER", config.DriverFile)
	t.Setenv("STORAGE_PATH", ws.docsPath)
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("MCP_ENABLED", "true")
	return ws
}

func (ws *workspace) docs(t *testing.T) docstore.Store {
	t.Helper()
	docs, err := docstore.NewFileStore(ws.docsPath, zap.NewNop())
	require.NoError(t, err)
	return docs
}

// seed stores person > worker and tags the image with worker.
func (ws *workspace) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	docs := ws.docs(t)

	model, err := datamodel.Load(ctx, docs, zap.NewNop())
	require.NoError(t, err)
	_, err = model.AddEntityType(ctx, models.EntityType{ID: "person"})
	require.NoError(t, err)
	_, err = model.AddEntityType(ctx, models.EntityType{ID: "worker", ParentID: "person"})
	require.NoError(t, err)

	catalog, err := images.Scan(ws.root, zap.NewNop())
	require.NoError(t, err)
	store := annotations.NewStore(docs, catalog, model, zap.NewNop())
	_, err = store.UpsertAnnotation(ctx, images.ImageID("letters/a.jpg"), models.Annotation{
		Target: models.AnnotationTarget{Selector: json.RawMessage(`{"type":"FragmentSelector"}`)},
		Body:   models.AnnotationBodies{{Purpose: "classifying", Source: "worker"}},
	})
	require.NoError(t, err)
}

func (ws *workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(ws.root, "missing.yaml")))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGraphCommand_JSON(t *testing.T) {
	ws := newWorkspace(t)
	ws.seed(t)

	out, err := ws.run(t, "graph")
	require.NoError(t, err)

	var g graph.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Links, 2)
	assert.Equal(t, 1, g.MinDegree)
	assert.Equal(t, 2, g.MaxDegree)
}

func TestGraphCommand_YAML(t *testing.T) {
	ws := newWorkspace(t)
	ws.seed(t)

	out, err := ws.run(t, "graph", "--format", "yaml")
	require.NoError(t, err)

	var g graph.Graph
	require.NoError(t, yaml.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Nodes, 3)
	assert.Contains(t, out, "maxLinkWeight: 1")
}

func TestGraphCommand_EmptyWorkspace(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, "graph")
	require.NoError(t, err)

	var g graph.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	require.Len(t, g.Nodes, 1, "only the image")
	assert.Equal(t, models.GraphNodeImage, g.Nodes[0].Type)
	assert.Empty(t, g.Links)
}

func TestGraphCommand_RejectsUnknownFormat(t *testing.T) {
	ws := newWorkspace(t)

	_, err := ws.run(t, "graph", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestRepairCommand(t *testing.T) {
	ws := newWorkspace(t)
	raw := `{"entityTypes":[{"id":"a"},{"id":"a","label":"dup"},{"id":""},{"id":"b","parentId":"gone"}],` +
		`"imageSchemas":[{"name":"letter"},{"name":"letter"}],"folderSchemas":[]}`
	require.NoError(t, ws.docs(t).Write(context.Background(), models.DataModelKey, []byte(raw)))

	out, err := ws.run(t, "repair")
	require.NoError(t, err)
	assert.Equal(t, "data model saved: 2 entity types, 1 image schemas, 0 folder schemas\n", out)

	var model models.DataModel
	found, err := docstore.ReadJSON(context.Background(), ws.docs(t), models.DataModelKey, &model)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, model.EntityTypes, 2)
	assert.Equal(t, "a", model.EntityTypes[0].ID)
	assert.Empty(t, model.EntityTypes[0].Label)
	assert.Empty(t, model.EntityTypes[1].ParentID)
}

func TestCommands_FailOnBadConfig(t *testing.T) {
	ws := newWorkspace(t)
	t.Setenv("STORAGE_DRIVER", "floppy")

	_, err := ws.run(t, "repair")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floppy")
}

func TestApp_Handler(t *testing.T) {
	ws := newWorkspace(t)
	ws.seed(t)

	cfg, err := config.Load(filepath.Join(ws.root, "missing.yaml"), "test")
	require.NoError(t, err)
	app, err := OpenApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/entity-types/worker/children")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "get_knowledge_graph_summary")
}

func TestOpenApp_MissingImageRoot(t *testing.T) {
	ws := newWorkspace(t)
	t.Setenv("IMAGES_ROOT", filepath.Join(ws.root, "nowhere"))

	cfg, err := config.Load(filepath.Join(ws.root, "missing.yaml"), "test")
	require.NoError(t, err)
	_, err = OpenApp(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan images")
}
