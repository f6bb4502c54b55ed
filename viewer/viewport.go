package viewer

import "sync"

const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Container is the host element the viewer draws into.
type Container interface {
	ClientWidth() int
	ClientHeight() int
	// OnResize registers fn to be called after the size changed and
	// returns a function removing the registration.
	OnResize(fn func()) (remove func())
}

// Viewport is a Container whose size is driven by the host.
type Viewport struct {
	mu        sync.Mutex
	width     int
	height    int
	listeners map[int]func()
	nextID    int
}

func NewViewport(width, height int) *Viewport {
	return &Viewport{
		width:     width,
		height:    height,
		listeners: make(map[int]func()),
	}
}

func (vp *Viewport) ClientWidth() int {
	vp.mu.Lock()
	defer vp.mu.Unlock()
	return vp.width
}

func (vp *Viewport) ClientHeight() int {
	vp.mu.Lock()
	defer vp.mu.Unlock()
	return vp.height
}

func (vp *Viewport) OnResize(fn func()) func() {
	vp.mu.Lock()
	defer vp.mu.Unlock()
	id := vp.nextID
	vp.nextID++
	vp.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			vp.mu.Lock()
			defer vp.mu.Unlock()
			delete(vp.listeners, id)
		})
	}
}

func (vp *Viewport) Listeners() int {
	vp.mu.Lock()
	defer vp.mu.Unlock()
	return len(vp.listeners)
}

// Resize updates the size and notifies listeners when it changed.
// Non positive sizes are ignored.
func (vp *Viewport) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	vp.mu.Lock()
	if width == vp.width && height == vp.height {
		vp.mu.Unlock()
		return
	}
	vp.width = width
	vp.height = height
	listeners := make([]func(), 0, len(vp.listeners))
	for _, fn := range vp.listeners {
		listeners = append(listeners, fn)
	}
	vp.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
