package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is an indexed triangle list in node local space.
type Mesh struct {
	Positions []mgl32.Vec3
	Indices   []uint32
}

func (m *Mesh) TrianglesCount() int {
	return len(m.Indices) / 3
}

func (m *Mesh) Triangle(i int) (a, b, c mgl32.Vec3) {
	return m.Positions[m.Indices[i*3]], m.Positions[m.Indices[i*3+1]], m.Positions[m.Indices[i*3+2]]
}

// Lines is a list of segments, two points per segment.
type Lines struct {
	Points []mgl32.Vec3
	Color  [3]float32
}

type edgeKey [2][3]int64

type edgeInfo struct {
	a, b    mgl32.Vec3
	normals []mgl32.Vec3
}

const edgePrecision = 1e4

func quantize(v mgl32.Vec3) [3]int64 {
	return [3]int64{
		int64(math.Round(float64(v[0]) * edgePrecision)),
		int64(math.Round(float64(v[1]) * edgePrecision)),
		int64(math.Round(float64(v[2]) * edgePrecision)),
	}
}

func lessKey(a, b [3]int64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Edges extracts the outline of a mesh: boundary edges and edges shared by
// faces whose normals differ by more than thresholdDeg degrees.
func (m *Mesh) Edges(thresholdDeg float32) *Lines {
	cosThreshold := float32(math.Cos(float64(mgl32.DegToRad(thresholdDeg))))

	edges := make(map[edgeKey]*edgeInfo)
	order := make([]edgeKey, 0)

	for i := 0; i < m.TrianglesCount(); i++ {
		a, b, c := m.Triangle(i)
		normal := b.Sub(a).Cross(c.Sub(a))
		if normal.Len() == 0 {
			continue
		}
		normal = normal.Normalize()

		for _, e := range [3][2]mgl32.Vec3{{a, b}, {b, c}, {c, a}} {
			ka, kb := quantize(e[0]), quantize(e[1])
			if ka == kb {
				continue
			}
			if lessKey(kb, ka) {
				ka, kb = kb, ka
			}
			key := edgeKey{ka, kb}
			info, ok := edges[key]
			if !ok {
				info = &edgeInfo{a: e[0], b: e[1]}
				edges[key] = info
				order = append(order, key)
			}
			info.normals = append(info.normals, normal)
		}
	}

	lines := &Lines{}
	for _, key := range order {
		info := edges[key]
		if len(info.normals) == 1 || info.normals[0].Dot(info.normals[1]) <= cosThreshold {
			lines.Points = append(lines.Points, info.a, info.b)
		}
	}
	return lines
}
