package viewer

import (
	"net/http"
	"time"

	"github.com/effibem/bemviewer/metrics"
	"github.com/effibem/bemviewer/raster"
	"github.com/effibem/bemviewer/scene"
)

// Surface is where a session draws its frames.
type Surface interface {
	SetSize(width, height int)
	Render(sc *scene.Scene, cam *scene.Camera) error
	Dispose()
}

// SurfaceFactory acquires a surface of the given size. An error is reported
// as a RenderContextError.
type SurfaceFactory func(width, height int) (Surface, error)

const (
	DefaultFrameInterval = time.Second / 60
	DefaultDampingFactor = 0.05
	DefaultFetchTimeout  = 30 * time.Second
	DefaultMaxFetchSize  = 256 << 20
)

type Options struct {
	IncludeGeometryDiagnostics bool

	FrameInterval time.Duration
	EnableDamping bool
	DampingFactor float32

	NewSurface SurfaceFactory
	HTTPClient *http.Client
	// MaxFetchSize bounds documents fetched over http.
	MaxFetchSize int64

	// OnError receives every load and render failure after it was logged.
	OnError func(error)
	// Decode transcodes file sources before they are parsed as JSON.
	Decode func([]byte) ([]byte, error)

	Metrics *metrics.Collector
}

// RunOptions configure the Run* entry points. A nil Container is replaced
// by a Viewport of DefaultWidth x DefaultHeight.
type RunOptions struct {
	Options
	Container Container
}

func RasterSurface(width, height int) (Surface, error) {
	s, err := raster.New(width, height)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (o Options) withDefaults() Options {
	if o.FrameInterval <= 0 {
		o.FrameInterval = DefaultFrameInterval
	}
	if o.DampingFactor <= 0 || o.DampingFactor > 1 {
		o.DampingFactor = DefaultDampingFactor
	}
	if o.NewSurface == nil {
		o.NewSurface = RasterSurface
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: DefaultFetchTimeout}
	}
	if o.MaxFetchSize <= 0 {
		o.MaxFetchSize = DefaultMaxFetchSize
	}
	return o
}
