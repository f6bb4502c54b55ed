package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/effibem/bemviewer/utils"
)

type Hit struct {
	Node     *Node
	Distance float32
	Point    mgl32.Vec3
}

// Raycast returns the nearest intersection of the ray with the meshes of
// the candidate nodes. Both triangle sides are hit.
func Raycast(origin, dir mgl32.Vec3, candidates []*Node) (Hit, bool) {
	best := Hit{Distance: float32(math.Inf(1))}
	found := false

	for _, n := range candidates {
		if n.Mesh == nil {
			continue
		}
		world := n.World()
		for i := 0; i < n.Mesh.TrianglesCount(); i++ {
			a, b, c := n.Mesh.Triangle(i)
			t, ok := intersectTriangle(origin, dir,
				utils.TransformPoint(world, a),
				utils.TransformPoint(world, b),
				utils.TransformPoint(world, c))
			if ok && t < best.Distance {
				best = Hit{Node: n, Distance: t, Point: origin.Add(dir.Mul(t))}
				found = true
			}
		}
	}
	return best, found
}

// Moller-Trumbore
func intersectTriangle(origin, dir, a, b, c mgl32.Vec3) (float32, bool) {
	const eps = 1e-7
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if det > -eps && det < eps {
		return 0, false
	}
	inv := 1 / det
	s := origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t <= eps {
		return 0, false
	}
	return t, true
}
