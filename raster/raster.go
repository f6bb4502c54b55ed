// Package raster is a software rendering surface: a z-buffered, flat shaded
// triangle rasterizer producing RGBA frames of a scene.
package raster

import (
	"image"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/effibem/bemviewer/scene"
	"github.com/effibem/bemviewer/utils"
)

var ErrNoContext = errors.New("rendering context unavailable")

// MaxDimension bounds the frame size a surface accepts.
const MaxDimension = 8192

var (
	selectedColor    = utils.NewColorFloatHex(0xffff00)
	selectedEmissive = utils.NewColorFloatHex(0x444400)
	edgeColor        = utils.NewColorFloatHex(0x000000)
)

type Surface struct {
	mu sync.Mutex

	width, height int
	color         *image.NRGBA
	depth         []float32

	frames   uint64
	disposed bool
}

func New(width, height int) (*Surface, error) {
	if !validSize(width, height) {
		return nil, errors.Wrapf(ErrNoContext, "invalid surface size %dx%d", width, height)
	}
	s := &Surface{}
	s.allocate(width, height)
	return s, nil
}

func validSize(width, height int) bool {
	return width > 0 && height > 0 && width <= MaxDimension && height <= MaxDimension
}

func (s *Surface) allocate(width, height int) {
	s.width = width
	s.height = height
	s.color = image.NewNRGBA(image.Rect(0, 0, width, height))
	s.depth = make([]float32, width*height)
}

// SetSize reallocates the frame buffers. Invalid sizes are ignored.
func (s *Surface) SetSize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || !validSize(width, height) || (width == s.width && height == s.height) {
		return
	}
	s.allocate(width, height)
}

func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *Surface) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.color = nil
	s.depth = nil
}

func (s *Surface) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *Surface) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Frame returns a copy of the last rendered frame.
func (s *Surface) Frame() (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, ErrNoContext
	}
	frame := image.NewNRGBA(s.color.Rect)
	copy(frame.Pix, s.color.Pix)
	return frame, nil
}

func (s *Surface) EncodePNG(w io.Writer) error {
	frame, err := s.Frame()
	if err != nil {
		return err
	}
	return errors.Wrap(png.Encode(w, frame), "encode png")
}

func (s *Surface) Render(sc *scene.Scene, cam *scene.Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrNoContext
	}

	r := renderer{
		surface:  s,
		viewProj: cam.ViewProjection(),
		near:     cam.Near,
		lights:   sc.Lights,
	}
	r.clear(sc.Background)

	sc.Root.TraverseVisible(func(n *scene.Node) {
		if n.Mesh != nil {
			r.mesh(n)
		}
	})
	sc.Root.TraverseVisible(func(n *scene.Node) {
		if n.Edges != nil && n.EdgesVisible {
			r.lines(n.World(), n.Edges.Points, edgeColor)
		}
	})
	for _, axis := range sc.Axes {
		r.lines(mgl32.Ident4(), axis.Points, utils.ColorFloat{axis.Color[0], axis.Color[1], axis.Color[2], 1})
	}

	s.frames++
	return nil
}

type renderer struct {
	surface  *Surface
	viewProj mgl32.Mat4
	near     float32
	lights   scene.Lights
}

type screenVertex struct {
	x, y, z float32
}

func (r *renderer) clear(background utils.ColorFloat) {
	c := background.NRGBA()
	pix := r.surface.color.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	for i := range r.surface.depth {
		r.surface.depth[i] = float32(math.Inf(1))
	}
}

func (r *renderer) toScreen(clip mgl32.Vec4) screenVertex {
	inv := 1 / clip.W()
	return screenVertex{
		x: (clip.X()*inv + 1) * 0.5 * float32(r.surface.width),
		y: (1 - clip.Y()*inv) * 0.5 * float32(r.surface.height),
		z: clip.Z() * inv,
	}
}

// clipNear cuts a convex clip space polygon against the near plane (w >= near)
// and appends the result to out.
func clipNear(out, in []mgl32.Vec4, near float32) []mgl32.Vec4 {
	for i, a := range in {
		b := in[(i+1)%len(in)]
		aIn, bIn := a.W() >= near, b.W() >= near
		if aIn {
			out = append(out, a)
		}
		if aIn != bIn {
			t := (near - a.W()) / (b.W() - a.W())
			out = append(out, a.Add(b.Sub(a).Mul(t)))
		}
	}
	return out
}

func (r *renderer) mesh(n *scene.Node) {
	world := n.World()
	mvp := r.viewProj.Mul4(world)

	var clipped [3]mgl32.Vec4
	polygon := make([]mgl32.Vec4, 0, 4)
	screen := make([]screenVertex, 0, 4)

	for i := 0; i < n.Mesh.TrianglesCount(); i++ {
		a, b, c := n.Mesh.Triangle(i)

		clipped[0] = mvp.Mul4x1(a.Vec4(1))
		clipped[1] = mvp.Mul4x1(b.Vec4(1))
		clipped[2] = mvp.Mul4x1(c.Vec4(1))
		polygon = clipNear(polygon[:0], clipped[:], r.near)
		if len(polygon) < 3 {
			continue
		}

		wa := utils.TransformPoint(world, a)
		normal := utils.TransformPoint(world, b).Sub(wa).Cross(utils.TransformPoint(world, c).Sub(wa))
		if normal.Len() == 0 {
			continue
		}
		normal = normal.Normalize()

		screen = screen[:0]
		for _, v := range polygon {
			screen = append(screen, r.toScreen(v))
		}

		area := edgeFunction(screen[0], screen[1], screen[2].x, screen[2].y)
		if area == 0 {
			continue
		}

		// counter-clockwise in NDC is clockwise on the y-down screen
		front := area < 0
		base := n.Material.Exterior
		if !front {
			base = n.Material.Interior
			normal = normal.Mul(-1)
		}

		var color utils.ColorFloat
		if n.Selected {
			color = r.lights.Shade(selectedColor, normal).Add(selectedEmissive)
		} else {
			color = r.lights.Shade(base, normal)
		}

		// the clipped polygon is convex, draw it as a fan
		for j := 1; j+1 < len(screen); j++ {
			fanArea := edgeFunction(screen[0], screen[j], screen[j+1].x, screen[j+1].y)
			if fanArea == 0 {
				continue
			}
			r.triangle(screen[0], screen[j], screen[j+1], fanArea, color)
		}
	}
}

func edgeFunction(a, b screenVertex, x, y float32) float32 {
	return (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
}

func (r *renderer) triangle(a, b, c screenVertex, area float32, color utils.ColorFloat) {
	w, h := r.surface.width, r.surface.height

	minX := int(math.Floor(float64(min3(a.x, b.x, c.x))))
	maxX := int(math.Ceil(float64(max3(a.x, b.x, c.x))))
	minY := int(math.Floor(float64(min3(a.y, b.y, c.y))))
	maxY := int(math.Ceil(float64(max3(a.y, b.y, c.y))))
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > w-1 {
		maxX = w - 1
	}
	if maxY > h-1 {
		maxY = h - 1
	}

	rgba := color.NRGBA()
	invArea := 1 / area

	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edgeFunction(b, c, px, py) * invArea
			w1 := edgeFunction(c, a, px, py) * invArea
			w2 := edgeFunction(a, b, px, py) * invArea
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.z + w1*b.z + w2*c.z
			r.plot(x, y, z, rgba.R, rgba.G, rgba.B, rgba.A)
		}
	}
}

func (r *renderer) plot(x, y int, z float32, cr, cg, cb, ca uint8) {
	if z < -1 || z > 1 {
		return
	}
	i := y*r.surface.width + x
	if z >= r.surface.depth[i] {
		return
	}
	r.surface.depth[i] = z
	p := r.surface.color.PixOffset(x, y)
	pix := r.surface.color.Pix
	pix[p], pix[p+1], pix[p+2], pix[p+3] = cr, cg, cb, ca
}

// lines draws segments with a small depth bias so edges win over their own faces.
func (r *renderer) lines(world mgl32.Mat4, points []mgl32.Vec3, color utils.ColorFloat) {
	const depthBias = 1e-4
	mvp := r.viewProj.Mul4(world)
	rgba := color.NRGBA()

	for i := 0; i+1 < len(points); i += 2 {
		ca := mvp.Mul4x1(points[i].Vec4(1))
		cb := mvp.Mul4x1(points[i+1].Vec4(1))
		aIn, bIn := ca.W() >= r.near, cb.W() >= r.near
		if !aIn && !bIn {
			continue
		}
		if aIn != bIn {
			t := (r.near - ca.W()) / (cb.W() - ca.W())
			cut := ca.Add(cb.Sub(ca).Mul(t))
			if aIn {
				cb = cut
			} else {
				ca = cut
			}
		}
		a, b, ok := r.clipToViewport(r.toScreen(ca), r.toScreen(cb))
		if !ok {
			continue
		}

		dx, dy := b.x-a.x, b.y-a.y
		steps := int(math.Ceil(math.Max(math.Abs(float64(dx)), math.Abs(float64(dy)))))
		if steps == 0 {
			steps = 1
		}
		for s := 0; s <= steps; s++ {
			t := float32(s) / float32(steps)
			x := int(a.x + dx*t)
			y := int(a.y + dy*t)
			if x < 0 || y < 0 || x >= r.surface.width || y >= r.surface.height {
				continue
			}
			z := a.z + (b.z-a.z)*t - depthBias
			r.plot(x, y, z, rgba.R, rgba.G, rgba.B, rgba.A)
		}
	}
}

// clipToViewport trims a screen segment to the frame so near plane
// intersections far outside it do not cost one step per off screen pixel.
func (r *renderer) clipToViewport(a, b screenVertex) (screenVertex, screenVertex, bool) {
	t0, t1 := float32(0), float32(1)
	dx, dy := b.x-a.x, b.y-a.y
	bounds := [4][2]float32{
		{-dx, a.x},
		{dx, float32(r.surface.width) - a.x},
		{-dy, a.y},
		{dy, float32(r.surface.height) - a.y},
	}
	for _, pq := range bounds {
		p, q := pq[0], pq[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return a, b, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return a, b, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}
	lerp := func(t float32) screenVertex {
		return screenVertex{x: a.x + dx*t, y: a.y + dy*t, z: a.z + (b.z-a.z)*t}
	}
	return lerp(t0), lerp(t1), true
}

func min3(a, b, c float32) float32 {
	return float32(math.Min(float64(a), math.Min(float64(b), float64(c))))
}

func max3(a, b, c float32) float32 {
	return float32(math.Max(float64(a), math.Max(float64(b), float64(c))))
}
