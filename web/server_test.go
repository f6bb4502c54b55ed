package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effibem/bemviewer/metrics"
	"github.com/effibem/bemviewer/status"
	"github.com/effibem/bemviewer/utils/gltfutils"
	"github.com/effibem/bemviewer/viewer"
)

type testServer struct {
	*httptest.Server
	viewer   *viewer.Viewer
	viewport *viewer.Viewport
	hub      *status.Hub
	server   *Server
}

func newTestServer(t *testing.T, opts viewer.Options) *testServer {
	reg := prometheus.NewRegistry()
	opts.Metrics = metrics.NewCollector("bemviewer", reg)
	opts.FrameInterval = 5 * time.Millisecond

	vp := viewer.NewViewport(64, 48)
	v := viewer.New(vp, opts)
	hub := status.NewHub()
	s := &Server{Viewer: v, Viewport: vp, Hub: hub, Gatherer: reg}

	ts := &testServer{Server: httptest.NewServer(s.Router()), viewer: v, viewport: vp, hub: hub, server: s}
	t.Cleanup(func() {
		ts.Close()
		v.Dispose()
	})
	return ts
}

func exampleJSON(t *testing.T) []byte {
	data, err := gltfutils.EncodeJSON(gltfutils.ExampleBuilding())
	require.NoError(t, err)
	return data
}

func (ts *testServer) post(t *testing.T, path string, body io.Reader) (*http.Response, map[string]interface{}) {
	resp, err := http.Post(ts.URL+path, "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestLoadAndState(t *testing.T) {
	ts := newTestServer(t, viewer.Options{})

	resp, out := ts.post(t, "/api/load", bytes.NewReader(exampleJSON(t)))
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, true, out["loaded"])
	assert.Equal(t, []interface{}{"Building Story 1", "Second Story"}, out["stories"])

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st viewer.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.Loaded)
	assert.True(t, st.Filters["walls"])
}

func TestLoadErrors(t *testing.T) {
	ts := newTestServer(t, viewer.Options{})

	resp, out := ts.post(t, "/api/load", strings.NewReader("{broken"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "ParseError")

	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()
	resp, out = ts.post(t, "/api/load?url="+missing.URL+"/a.gltf", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, out["error"], "FetchError")
}

func TestLoadLocationsOutsideSourceRoot(t *testing.T) {
	ts := newTestServer(t, viewer.Options{})

	resp, out := ts.post(t, "/api/load?url=/etc/passwd", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.NotContains(t, out["error"], "ParseError")

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "model.gltf"), exampleJSON(t), 0644))
	outside := filepath.Join(t.TempDir(), "outside.gltf")
	require.NoError(t, os.WriteFile(outside, exampleJSON(t), 0644))
	ts.server.SourceRoot = root

	for _, location := range []string{
		"/etc/passwd",
		outside,
		"file://" + filepath.ToSlash(outside),
		"../" + filepath.Base(filepath.Dir(outside)) + "/outside.gltf",
	} {
		resp, _ := ts.post(t, "/api/load?url="+url.QueryEscape(location), nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, location)
	}
	assert.False(t, ts.viewer.Loaded())

	resp, _ = ts.post(t, "/api/load?url=gopher://example.com/a", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out = ts.post(t, "/api/load?url=model.gltf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.True(t, ts.viewer.Loaded())

	resp, out = ts.post(t, "/api/load?url="+url.QueryEscape(filepath.Join(root, "model.gltf")), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t, viewer.Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("data", "example.gltf")
	require.NoError(t, err)
	fw.Write(exampleJSON(t))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, ts.viewer.Loaded())
}

func TestControls(t *testing.T) {
	ts := newTestServer(t, viewer.Options{IncludeGeometryDiagnostics: true})
	require.NoError(t, ts.viewer.LoadFromJSON(exampleJSON(t)))

	resp, out := ts.post(t, "/api/filter/showWalls/off", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, false, out["filters"].(map[string]interface{})["walls"])

	resp, _ = ts.post(t, "/api/filter/attic/off", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.post(t, "/api/filter/walls/maybe", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out = ts.post(t, "/api/story", strings.NewReader(`{"story":"Second Story"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Second Story", out["story"])

	resp, out = ts.post(t, "/api/renderby/thermalZone", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "thermalZone", out["renderBy"])

	resp, _ = ts.post(t, "/api/renderby/color", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, out = ts.post(t, "/api/edges/off", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["showEdges"])

	resp, out = ts.post(t, "/api/diagnostics/showOnlyNonConvexSurfaces/on", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["diagnostics"].(map[string]interface{})["showOnlyNonConvexSurfaces"])

	resp, out = ts.post(t, "/api/resize?width=32&height=32", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 1, out["camera"].(map[string]interface{})["aspect"], 1e-6)
}

func TestDiagnosticsDisabled(t *testing.T) {
	ts := newTestServer(t, viewer.Options{})
	resp, _ := ts.post(t, "/api/diagnostics/showOnlyNonConvexSurfaces/on", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPick(t *testing.T) {
	ts := newTestServer(t, viewer.Options{})
	require.NoError(t, ts.viewer.LoadFromJSON(exampleJSON(t)))

	resp, out := ts.post(t, "/api/pick?x=32&y=24", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["hit"])

	resp, out = ts.post(t, "/api/pick?x=nope&y=1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "x")
}

func TestFrameAndDebug(t *testing.T) {
	ts := newTestServer(t, viewer.Options{})

	resp, err := http.Get(ts.URL + "/frame.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, ts.viewer.LoadFromJSON(exampleJSON(t)))
	require.Eventually(t, func() bool { return ts.viewer.Frames() > 0 }, 5*time.Second, 5*time.Millisecond)

	resp, err = http.Get(ts.URL + "/frame.png")
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	resp, err = http.Get(ts.URL + "/debug/scene")
	require.NoError(t, err)
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(data), "Building Story 1")
}

func TestStaticAndMetrics(t *testing.T) {
	ts := newTestServer(t, viewer.Options{})
	require.NoError(t, ts.viewer.LoadFromJSON(exampleJSON(t)))

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(data), "showPartitions")

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(data), `bemviewer_loads_total{result="ok",source="json"} 1`)
}

func TestWebsocketInput(t *testing.T) {
	ts := newTestServer(t, viewer.Options{})
	require.NoError(t, ts.viewer.LoadFromJSON(exampleJSON(t)))
	before := ts.viewer.State().Camera.Position

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "rotate", "dx": 20, "dy": 0}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "resize", "width": 100, "height": 50}))

	assert.Eventually(t, func() bool {
		return ts.viewport.ClientWidth() == 100 && ts.viewer.State().Camera.Position != before
	}, 5*time.Second, 5*time.Millisecond)

	ts.hub.Info("hello")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg status.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "hello", msg.Message)
}
