package viewer

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/effibem/bemviewer/metrics"
	"github.com/effibem/bemviewer/scene"
	"github.com/effibem/bemviewer/utils/gltfutils"
)

// Crease angle in degrees above which a shared edge is outlined.
const edgeThresholdDeg = 1

type loadAttempt struct {
	id         string
	source     string
	kind       string
	generation uint64
	started    time.Time
}

func (v *Viewer) beginLoad(kind, source string) *loadAttempt {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	la := &loadAttempt{
		id:         uuid.New().String(),
		source:     source,
		kind:       kind,
		generation: v.generation,
		started:    time.Now(),
	}
	v.lastLoad = LoadInfo{ID: la.id, Source: source, At: la.started}
	log.Printf("[viewer] load %s from %s", la.id, source)
	return la
}

func (v *Viewer) finishLoad(la *loadAttempt, err error) error {
	result := metrics.ResultOK
	switch {
	case err == nil:
		log.Printf("[viewer] load %s done in %v", la.id, time.Since(la.started))
	case errors.Is(err, ErrSuperseded):
		result = metrics.ResultSuperseded
		log.Printf("[viewer] load %s superseded", la.id)
	default:
		result = metrics.ResultError
		v.mu.Lock()
		if v.lastLoad.ID == la.id {
			v.lastLoad.Error = err.Error()
		}
		v.mu.Unlock()
		v.report(err)
	}
	v.opts.Metrics.RecordLoad(la.kind, result, time.Since(la.started))
	return err
}

// LoadFromJSON displays an in memory GLTF document: raw JSON as []byte,
// json.RawMessage or string, a decoded *gltf.Document, or any value that
// marshals into a GLTF JSON document.
func (v *Viewer) LoadFromJSON(document interface{}) error {
	la := v.beginLoad(metrics.SourceJSON, "json")
	doc, err := documentFromJSON(document)
	if err != nil {
		return v.finishLoad(la, err)
	}
	return v.finishLoad(la, v.install(la, doc))
}

// LoadFromFile fetches a GLTF document from an http(s) url, a file url or
// a local path and displays it.
func (v *Viewer) LoadFromFile(ctx context.Context, location string) error {
	la := v.beginLoad(metrics.SourceFile, location)

	data, err := v.fetch(ctx, location)
	if err != nil {
		return v.finishLoad(la, newError(FetchError, "load "+location, err))
	}
	doc, err := v.parseSource("load "+location, data)
	if err != nil {
		return v.finishLoad(la, err)
	}
	return v.finishLoad(la, v.install(la, doc))
}

// LoadFromFileObject reads a caller supplied file handle fully and displays
// the GLTF document it contains.
func (v *Viewer) LoadFromFileObject(ctx context.Context, r io.Reader) error {
	name := "file object"
	if f, ok := r.(interface{ Name() string }); ok {
		name = f.Name()
	}
	la := v.beginLoad(metrics.SourceFileObject, name)

	data, err := ioutil.ReadAll(&ctxReader{ctx: ctx, r: r})
	if err != nil {
		return v.finishLoad(la, newError(ReadError, "read "+name, err))
	}
	doc, err := v.parseSource("read "+name, data)
	if err != nil {
		return v.finishLoad(la, err)
	}
	return v.finishLoad(la, v.install(la, doc))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

func documentFromJSON(document interface{}) (*gltf.Document, error) {
	const op = "load json"
	var data []byte
	switch d := document.(type) {
	case nil:
		return nil, newError(ParseError, op, errors.New("nil document"))
	case *gltf.Document:
		if d == nil {
			return nil, newError(ParseError, op, errors.New("nil document"))
		}
		return d, nil
	case []byte:
		data = d
	case json.RawMessage:
		data = d
	case string:
		data = []byte(d)
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, newError(ParseError, op, errors.Wrap(err, "marshal document"))
		}
		data = raw
	}

	doc, err := gltfutils.Decode(data)
	if err != nil {
		return nil, newError(ParseError, op, err)
	}
	return doc, nil
}

func (v *Viewer) parseSource(op string, data []byte) (*gltf.Document, error) {
	if v.opts.Decode != nil {
		decoded, err := v.opts.Decode(data)
		if err != nil {
			return nil, newError(ParseError, op, errors.Wrap(err, "decode source"))
		}
		data = decoded
	}
	doc, err := gltfutils.Decode(data)
	if err != nil {
		return nil, newError(ParseError, op, err)
	}
	return doc, nil
}

func (v *Viewer) fetch(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, errors.New("empty location")
	}

	u, err := url.Parse(location)
	// single letter schemes are windows drive letters
	if err != nil || len(u.Scheme) <= 1 {
		return readLocalFile(location)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return v.fetchHTTP(ctx, location)
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return readLocalFile(filepath.FromSlash(path))
	}
	return nil, errors.Errorf("unsupported scheme %q", u.Scheme)
}

func (v *Viewer) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "model/gltf+json, application/json")

	resp, err := v.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("unexpected status %s", resp.Status)
	}

	limit := v.opts.MaxFetchSize
	data, err := ioutil.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if int64(len(data)) > limit {
		return nil, errors.Errorf("document larger than %d bytes", limit)
	}
	return data, nil
}

func readLocalFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// build converts a document into a session that is not yet bound to a
// surface, loop or container.
func build(la *loadAttempt, doc *gltf.Document) (*session, error) {
	converted, err := gltfutils.ToScene(doc)
	if err != nil {
		return nil, newError(ParseError, "build scene", err)
	}

	sc := scene.New()
	sc.Add(converted.Root)
	sc.Root.UpdateWorld()

	filterable := make([]*scene.Node, 0)
	sc.Root.Traverse(func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		n.Edges = n.Mesh.Edges(edgeThresholdDeg)
		if n.StringData("surfaceType") != "" {
			filterable = append(filterable, n)
		}
	})
	sc.AddAxes(axesSize(converted.Metadata), converted.Metadata.NorthAxis)

	return &session{
		id:         la.id,
		source:     la.source,
		scene:      sc,
		meta:       converted.Metadata,
		filterable: filterable,
		stories:    sortedStories(filterable),
		done:       make(chan struct{}),
	}, nil
}

func (v *Viewer) current(generation uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.generation == generation
}

// install replaces the current session with one built from doc. Nothing
// is touched when the document cannot be converted or a newer load or
// Dispose happened in the meantime.
func (v *Viewer) install(la *loadAttempt, doc *gltf.Document) error {
	sess, err := build(la, doc)
	if err != nil {
		return err
	}

	v.loadMu.Lock()
	defer v.loadMu.Unlock()

	if !v.current(la.generation) {
		sess.scene.Dispose()
		return ErrSuperseded
	}
	v.teardown()

	width, height := v.container.ClientWidth(), v.container.ClientHeight()
	surface, err := v.opts.NewSurface(width, height)
	if err != nil {
		sess.scene.Dispose()
		return newError(RenderContextError, "create surface", err)
	}
	if surface == nil {
		sess.scene.Dispose()
		return newError(RenderContextError, "create surface", errors.New("factory returned no surface"))
	}
	sess.surface = surface

	sess.camera = newCamera(width, height)
	sess.controls = scene.NewOrbitControls(sess.camera)
	sess.controls.EnableDamping = v.opts.EnableDamping
	sess.controls.DampingFactor = v.opts.DampingFactor
	frameCamera(sess.camera, sess.controls, sess.meta)
	sess.loadedAt = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel

	v.mu.Lock()
	if v.generation != la.generation {
		v.mu.Unlock()
		cancel()
		surface.Dispose()
		sess.scene.Dispose()
		return ErrSuperseded
	}
	v.session = sess
	v.selected = nil
	v.applyColors()
	v.updateVisibility()
	v.mu.Unlock()

	sess.removeResize = v.container.OnResize(func() { v.resize(sess) })
	v.opts.Metrics.SessionStarted()
	go v.loop(ctx, sess)

	log.Printf("[viewer] session %s: %d surfaces, %d stories, %dx%d",
		sess.id, len(sess.filterable), len(sess.stories), width, height)
	return nil
}

func (v *Viewer) resize(sess *session) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session != sess {
		return
	}
	width, height := v.container.ClientWidth(), v.container.ClientHeight()
	sess.camera.SetAspect(width, height)
	sess.surface.SetSize(width, height)
}
