// Package viewer displays building geometry scenes decoded from GLTF
// documents, with surface type filtering and camera framing taken from
// scene metadata.
package viewer

import (
	"context"
	"io"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/effibem/bemviewer/scene"
	"github.com/effibem/bemviewer/utils"
	"github.com/effibem/bemviewer/utils/gltfutils"
)

// session is everything a successful load produced. It is replaced as a
// whole by the next load.
type session struct {
	id       string
	source   string
	loadedAt time.Time

	scene    *scene.Scene
	camera   *scene.Camera
	controls *scene.OrbitControls
	surface  Surface
	meta     gltfutils.SceneMetadata

	filterable []*scene.Node
	stories    []string

	removeResize func()
	cancel       context.CancelFunc
	done         chan struct{}

	frames       uint64
	renderFailed bool
}

type Viewer struct {
	container Container
	opts      Options

	// loadMu serializes teardown and install of sessions
	loadMu sync.Mutex

	mu          sync.Mutex
	generation  uint64
	session     *session
	filters     FilterState
	story       string
	showEdges   bool
	diagnostics [diagnosticFiltersCount]bool
	renderBy    RenderMode
	colors      colorCache
	selected    *scene.Node
	lastLoad    LoadInfo
}

// LoadInfo describes the most recent load attempt.
type LoadInfo struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
	Error  string    `json:"error,omitempty"`
}

// New binds a viewer to container. Nothing is rendered until a load succeeds.
func New(container Container, opts Options) *Viewer {
	if container == nil {
		container = NewViewport(DefaultWidth, DefaultHeight)
	}
	return &Viewer{
		container: container,
		opts:      opts.withDefaults(),
		filters:   DefaultFilterState(),
		showEdges: true,
		renderBy:  RenderBySurfaceType,
		colors:    make(colorCache),
	}
}

func (v *Viewer) Container() Container {
	return v.container
}

func (v *Viewer) Options() Options {
	return v.opts
}

// Dispose stops rendering and releases the session. Loads still in flight
// complete as no-ops. Calling Dispose again does nothing.
func (v *Viewer) Dispose() {
	v.mu.Lock()
	v.generation++
	v.mu.Unlock()

	v.loadMu.Lock()
	defer v.loadMu.Unlock()
	v.teardown()
}

// teardown stops the current session. Caller must hold loadMu.
func (v *Viewer) teardown() {
	v.mu.Lock()
	sess := v.session
	v.session = nil
	v.selected = nil
	v.mu.Unlock()

	if sess == nil {
		return
	}

	if sess.removeResize != nil {
		sess.removeResize()
	}
	sess.cancel()
	<-sess.done

	sess.surface.Dispose()
	sess.scene.Dispose()
	v.opts.Metrics.SessionStopped()
	log.Printf("[viewer] session %s disposed after %d frames", sess.id, atomic.LoadUint64(&sess.frames))
}

// Loaded reports whether a session is installed.
func (v *Viewer) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session != nil
}

func (v *Viewer) SetFilter(category Category, checked bool) {
	if category < 0 || category >= categoriesCount {
		return
	}
	v.mu.Lock()
	v.filters[category] = checked
	v.updateVisibility()
	v.mu.Unlock()
}

func (v *Viewer) Filters() FilterState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filters
}

// SetStory restricts filterable surfaces to one building story.
// An empty name shows all stories.
func (v *Viewer) SetStory(name string) {
	v.mu.Lock()
	v.story = name
	v.updateVisibility()
	v.mu.Unlock()
}

func (v *Viewer) Story() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.story
}

// Stories lists the distinct story names of the current scene.
func (v *Viewer) Stories() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return nil
	}
	return append([]string(nil), v.session.stories...)
}

func (v *Viewer) SetShowEdges(show bool) {
	v.mu.Lock()
	v.showEdges = show
	v.updateVisibility()
	v.mu.Unlock()
}

// SetDiagnosticFilter toggles a geometry diagnostic filter. The filters
// only take effect when IncludeGeometryDiagnostics is set.
func (v *Viewer) SetDiagnosticFilter(filter DiagnosticFilter, on bool) {
	if filter < 0 || filter >= diagnosticFiltersCount {
		return
	}
	v.mu.Lock()
	v.diagnostics[filter] = on
	v.updateVisibility()
	v.mu.Unlock()
}

// UpdateVisibility recomputes the visibility of every filterable surface.
func (v *Viewer) UpdateVisibility() {
	v.mu.Lock()
	v.updateVisibility()
	v.mu.Unlock()
}

func (v *Viewer) visibilityState() VisibilityState {
	return VisibilityState{
		Filters:            v.filters,
		Story:              v.story,
		DiagnosticsEnabled: v.opts.IncludeGeometryDiagnostics,
		Diagnostics:        v.diagnostics,
	}
}

func (v *Viewer) updateVisibility() {
	if v.session == nil {
		return
	}
	st := v.visibilityState()
	for _, n := range v.session.filterable {
		n.Visible = Visible(n.UserData, st)
		n.EdgesVisible = n.Visible && v.showEdges
	}
}

func (v *Viewer) SetRenderBy(mode RenderMode) bool {
	if _, ok := ParseRenderMode(string(mode)); !ok {
		return false
	}
	v.mu.Lock()
	v.renderBy = mode
	v.applyColors()
	v.mu.Unlock()
	return true
}

func (v *Viewer) RenderBy() RenderMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renderBy
}

func (v *Viewer) applyColors() {
	if v.session == nil {
		return
	}
	for _, n := range v.session.filterable {
		ext, in := v.colors.colorsFor(n.UserData, v.renderBy)
		n.Material.Exterior = utils.NewColorFloatHex(ext)
		n.Material.Interior = utils.NewColorFloatHex(in)
	}
}

// Rotate orbits the camera by a pointer drag in container pixels.
func (v *Viewer) Rotate(dx, dy float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session != nil {
		v.session.controls.RotatePixels(dx, dy, v.container.ClientHeight())
	}
}

// Pan moves the orbit target by a pointer drag in container pixels.
func (v *Viewer) Pan(dx, dy float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session != nil {
		v.session.controls.PanPixels(dx, dy, v.container.ClientHeight())
	}
}

// Zoom dollies the camera by wheel units, positive zooms in.
func (v *Viewer) Zoom(delta float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session != nil {
		v.session.controls.Zoom(delta)
	}
}

// Frames returns the number of frames rendered by the current session.
func (v *Viewer) Frames() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return 0
	}
	return atomic.LoadUint64(&v.session.frames)
}

type CameraState struct {
	Position [3]float32 `json:"position"`
	Target   [3]float32 `json:"target"`
	Aspect   float32    `json:"aspect"`
	FOV      float32    `json:"fov"`
}

type State struct {
	Loaded      bool            `json:"loaded"`
	Session     string          `json:"session,omitempty"`
	Filters     map[string]bool `json:"filters"`
	Story       string          `json:"story"`
	Stories     []string        `json:"stories"`
	ShowEdges   bool            `json:"showEdges"`
	RenderBy    RenderMode      `json:"renderBy"`
	Diagnostics map[string]bool `json:"diagnostics,omitempty"`
	Camera      *CameraState    `json:"camera,omitempty"`
	Frames      uint64          `json:"frames"`
	Surfaces    int             `json:"surfaces"`
	Selection   *Selection      `json:"selection,omitempty"`
	LastLoad    LoadInfo        `json:"lastLoad"`
}

func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := State{
		Filters:   v.filters.Map(),
		Story:     v.story,
		Stories:   []string{},
		ShowEdges: v.showEdges,
		RenderBy:  v.renderBy,
		LastLoad:  v.lastLoad,
	}
	if v.opts.IncludeGeometryDiagnostics {
		st.Diagnostics = make(map[string]bool, len(v.diagnostics))
		for i, on := range v.diagnostics {
			st.Diagnostics[DiagnosticFilter(i).String()] = on
		}
	}
	if v.session == nil {
		return st
	}

	sess := v.session
	st.Loaded = true
	st.Session = sess.id
	st.Stories = append(st.Stories, sess.stories...)
	st.Frames = atomic.LoadUint64(&sess.frames)
	st.Surfaces = len(sess.filterable)
	st.Camera = &CameraState{
		Position: sess.camera.Position,
		Target:   sess.controls.Target,
		Aspect:   sess.camera.Aspect,
		FOV:      sess.camera.FOV,
	}
	if v.selected != nil {
		st.Selection = v.selection(v.selected)
	}
	return st
}

// SceneSummary is a debug view of the current session.
type SceneSummary struct {
	Session  string
	Source   string
	Metadata gltfutils.SceneMetadata
	Nodes    []NodeSummary
}

type NodeSummary struct {
	Name      string
	Triangles int
	Visible   bool
	UserData  map[string]interface{}
}

func (v *Viewer) SceneSummary() *SceneSummary {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return nil
	}
	summary := &SceneSummary{
		Session:  v.session.id,
		Source:   v.session.source,
		Metadata: v.session.meta,
	}
	for _, n := range v.session.scene.Meshes() {
		summary.Nodes = append(summary.Nodes, NodeSummary{
			Name:      n.Name,
			Triangles: n.Mesh.TrianglesCount(),
			Visible:   n.Visible,
			UserData:  n.UserData,
		})
	}
	return summary
}

type pngEncoder interface {
	EncodePNG(w io.Writer) error
}

// WriteFrame encodes the last rendered frame as PNG.
func (v *Viewer) WriteFrame(w io.Writer) error {
	v.mu.Lock()
	var surface Surface
	if v.session != nil {
		surface = v.session.surface
	}
	v.mu.Unlock()

	if surface == nil {
		return errors.New("nothing loaded")
	}
	enc, ok := surface.(pngEncoder)
	if !ok {
		return errors.Errorf("surface %T cannot encode frames", surface)
	}
	return enc.EncodePNG(w)
}

// report logs err and forwards it to the caller supplied callback.
func (v *Viewer) report(err error) {
	if err == nil {
		return
	}
	log.Printf("[viewer] %v", err)
	if v.opts.OnError != nil {
		v.opts.OnError(err)
	}
}

func sortedStories(nodes []*scene.Node) []string {
	seen := make(map[string]bool)
	stories := make([]string, 0)
	for _, n := range nodes {
		if story := n.StringData("buildingStoryName"); story != "" && !seen[story] {
			seen[story] = true
			stories = append(stories, story)
		}
	}
	sort.Strings(stories)
	return stories
}
