package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/effibem/bemviewer/utils"
)

type AmbientLight struct {
	Color utils.ColorFloat
}

type HemisphereLight struct {
	Sky       utils.ColorFloat
	Ground    utils.ColorFloat
	Intensity float32
}

type DirectionalLight struct {
	Color     utils.ColorFloat
	Position  mgl32.Vec3
	Intensity float32
}

type Lights struct {
	Ambient     AmbientLight
	Hemisphere  HemisphereLight
	Directional DirectionalLight
}

func DefaultLights() Lights {
	return Lights{
		Ambient: AmbientLight{Color: utils.NewColorFloatHex(0x888888)},
		Hemisphere: HemisphereLight{
			Sky:       utils.NewColorFloatHex(0xffffff),
			Ground:    utils.NewColorFloatHex(0x444444),
			Intensity: 0.6,
		},
		Directional: DirectionalLight{
			Color:     utils.NewColorFloatHex(0xffffff),
			Position:  mgl32.Vec3{1, 2, 1},
			Intensity: 0.6,
		},
	}
}

// Shade returns the lit color of a surface with the given world normal.
func (l Lights) Shade(base utils.ColorFloat, normal mgl32.Vec3) utils.ColorFloat {
	light := l.Ambient.Color

	// hemisphere blend by the normal's vertical component
	w := 0.5*normal[1] + 0.5
	hemi := l.Hemisphere.Sky.Scale(w).Add(l.Hemisphere.Ground.Scale(1 - w))
	light = light.Add(hemi.Scale(l.Hemisphere.Intensity))

	if d := normal.Dot(l.Directional.Position.Normalize()); d > 0 {
		light = light.Add(l.Directional.Color.Scale(d * l.Directional.Intensity))
	}

	c := base.Mul(light)
	c[3] = base[3]
	return c
}

type Scene struct {
	Background utils.ColorFloat
	Lights     Lights
	Root       *Node
	Axes       []*Lines
}

func New() *Scene {
	return &Scene{
		Background: utils.NewColorFloatHex(0xf5f5f5),
		Lights:     DefaultLights(),
		Root:       NewNode("root"),
	}
}

func (s *Scene) Add(n *Node) {
	s.Root.Add(n)
}

// Meshes returns every mesh-bearing node of the scene.
func (s *Scene) Meshes() []*Node {
	nodes := make([]*Node, 0)
	s.Root.Traverse(func(n *Node) {
		if n.Mesh != nil {
			nodes = append(nodes, n)
		}
	})
	return nodes
}

// Dispose drops the graph so held geometry can be collected.
func (s *Scene) Dispose() {
	if s.Root != nil {
		s.Root.Traverse(func(n *Node) {
			n.Mesh = nil
			n.Edges = nil
			n.Parent = nil
		})
		s.Root.Childs = nil
	}
	s.Axes = nil
}

// AddAxes adds the source coordinate system axes converted to Y-up:
// X red, source Y green along -Z, source Z blue along +Y.
// northAxisDeg rotates an extra orange axis when non zero.
func (s *Scene) AddAxes(size float32, northAxisDeg float64) {
	origin := mgl32.Vec3{}
	s.Axes = append(s.Axes,
		&Lines{Points: []mgl32.Vec3{origin, {size, 0, 0}}, Color: [3]float32{1, 0, 0}},
		&Lines{Points: []mgl32.Vec3{origin, {0, 0, -size}}, Color: [3]float32{0, 1, 0}},
		&Lines{Points: []mgl32.Vec3{origin, {0, size, 0}}, Color: [3]float32{0, 0, 1}},
	)
	if northAxisDeg != 0 {
		n := -utils.DegToRad64(northAxisDeg)
		dir := mgl32.Vec3{-float32(math.Sin(n)) * size, 0, -float32(math.Cos(n)) * size}
		s.Axes = append(s.Axes, &Lines{
			Points: []mgl32.Vec3{origin, dir},
			Color:  [3]float32{1, 0x99 / 255.0, 0x33 / 255.0},
		})
	}
}
