package web

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/effibem/bemviewer/utils"
	"github.com/effibem/bemviewer/viewer"
	"github.com/effibem/bemviewer/webutils"
)

func loadStatusCode(err error) int {
	switch {
	case errors.Is(err, viewer.ErrSuperseded):
		return http.StatusConflict
	case viewer.IsKind(err, viewer.ParseError), viewer.IsKind(err, viewer.ReadError):
		return http.StatusBadRequest
	case viewer.IsKind(err, viewer.FetchError):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func parseSwitch(state string) (bool, error) {
	switch state {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, errors.Errorf("state %q is not 'on' or 'off'", state)
}

func (s *Server) loaded(w http.ResponseWriter, err error) {
	if err != nil {
		webutils.WriteError(w, loadStatusCode(err), err)
		return
	}
	st := s.Viewer.State()
	if s.Hub != nil {
		s.Hub.Info("loaded %s: %d surfaces", st.LastLoad.Source, st.Surfaces)
	}
	webutils.WriteJson(w, st)
}

var errLocalSourcesDisabled = errors.New("local sources are disabled, set source.root")

// resolveLocation admits http(s) urls as is. Paths and file urls must
// resolve inside SourceRoot, relative ones are taken from it.
func (s *Server) resolveLocation(location string) (string, int, error) {
	u, err := url.Parse(location)
	if err == nil && len(u.Scheme) > 1 {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return location, http.StatusOK, nil
		case "file":
			location = u.Path
		default:
			return "", http.StatusBadRequest, errors.Errorf("unsupported scheme %q", u.Scheme)
		}
	}

	if s.SourceRoot == "" {
		return "", http.StatusForbidden, errLocalSourcesDisabled
	}
	root, err := filepath.Abs(s.SourceRoot)
	if err != nil {
		return "", http.StatusInternalServerError, errors.Wrap(err, "source root")
	}
	path := filepath.FromSlash(location)
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", http.StatusForbidden, errors.Errorf("%q is outside of the source root", location)
	}
	return path, http.StatusOK, nil
}

func (s *Server) HandlerLoad(w http.ResponseWriter, r *http.Request) {
	if location := r.URL.Query().Get("url"); location != "" {
		resolved, code, err := s.resolveLocation(location)
		if err != nil {
			webutils.WriteError(w, code, err)
			return
		}
		s.loaded(w, s.Viewer.LoadFromFile(r.Context(), resolved))
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, webutils.MaxBodySize))
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, errors.Wrap(err, "read body"))
		return
	}
	s.loaded(w, s.Viewer.LoadFromJSON(data))
}

func (s *Server) HandlerUpload(w http.ResponseWriter, r *http.Request) {
	f, _, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	defer f.Close()
	s.loaded(w, s.Viewer.LoadFromFileObject(r.Context(), f))
}

func (s *Server) HandlerFilter(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	category, ok := viewer.ParseCategory(vars["category"])
	if !ok {
		webutils.WriteError(w, http.StatusNotFound, errors.Errorf("unknown category %q", vars["category"]))
		return
	}
	on, err := parseSwitch(vars["state"])
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.Viewer.SetFilter(category, on)
	webutils.WriteJson(w, s.Viewer.State())
}

func (s *Server) HandlerStory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Story string `json:"story"`
	}
	if err := webutils.ReadJson(r, &req); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.Viewer.SetStory(req.Story)
	webutils.WriteJson(w, s.Viewer.State())
}

func (s *Server) HandlerRenderBy(w http.ResponseWriter, r *http.Request) {
	mode := mux.Vars(r)["mode"]
	if !s.Viewer.SetRenderBy(viewer.RenderMode(mode)) {
		webutils.WriteError(w, http.StatusNotFound, errors.Errorf("unknown render mode %q", mode))
		return
	}
	webutils.WriteJson(w, s.Viewer.State())
}

func (s *Server) HandlerEdges(w http.ResponseWriter, r *http.Request) {
	on, err := parseSwitch(mux.Vars(r)["state"])
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.Viewer.SetShowEdges(on)
	webutils.WriteJson(w, s.Viewer.State())
}

func (s *Server) HandlerDiagnostics(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !s.Viewer.Options().IncludeGeometryDiagnostics {
		webutils.WriteError(w, http.StatusNotFound, errors.New("geometry diagnostics are disabled"))
		return
	}
	kind, ok := viewer.ParseDiagnosticFilter(vars["kind"])
	if !ok {
		webutils.WriteError(w, http.StatusNotFound, errors.Errorf("unknown diagnostic filter %q", vars["kind"]))
		return
	}
	on, err := parseSwitch(vars["state"])
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.Viewer.SetDiagnosticFilter(kind, on)
	webutils.WriteJson(w, s.Viewer.State())
}

func queryFloat(r *http.Request, key string) (float32, error) {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 32)
	if err != nil {
		return 0, errors.Wrapf(err, "parameter %q", key)
	}
	return float32(v), nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0, errors.Wrapf(err, "parameter %q", key)
	}
	return v, nil
}

type pickResult struct {
	Hit       bool              `json:"hit"`
	Selection *viewer.Selection `json:"selection,omitempty"`
}

func (s *Server) HandlerPick(w http.ResponseWriter, r *http.Request) {
	x, err := queryFloat(r, "x")
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	y, err := queryFloat(r, "y")
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	sel, hit := s.Viewer.Pick(x, y)
	webutils.WriteJson(w, pickResult{Hit: hit, Selection: sel})
}

func (s *Server) HandlerResize(w http.ResponseWriter, r *http.Request) {
	if s.Viewport == nil {
		webutils.WriteError(w, http.StatusNotFound, errors.New("container is not resizable"))
		return
	}
	width, err := queryInt(r, "width")
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	height, err := queryInt(r, "height")
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.Viewport.Resize(width, height)
	webutils.WriteJson(w, s.Viewer.State())
}

func (s *Server) HandlerState(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.Viewer.State())
}

func (s *Server) HandlerFrame(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.Viewer.WriteFrame(&buf); err != nil {
		webutils.WriteError(w, http.StatusServiceUnavailable, err)
		return
	}
	webutils.WriteFileHeaders(w, "frame.png", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	webutils.WriteResult(w, buf.Bytes())
}

func (s *Server) HandlerDebugScene(w http.ResponseWriter, r *http.Request) {
	summary := s.Viewer.SceneSummary()
	if summary == nil {
		webutils.WriteError(w, http.StatusNotFound, errors.New("nothing loaded"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, utils.SDump(summary))
}
