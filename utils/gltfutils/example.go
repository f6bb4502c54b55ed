package gltfutils

import (
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Surface is a planar convex polygon in the source Z-up system.
type Surface struct {
	Name     string
	Vertices [][3]float32
	Extras   map[string]interface{}
}

// AddSurface appends the surface as a node of the first scene. The polygon
// is fan triangulated and converted to Y-up.
func AddSurface(doc *gltf.Document, s Surface) uint32 {
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, new(gltf.Buffer))
	}
	if len(doc.Scenes) == 0 {
		doc.Scenes = append(doc.Scenes, &gltf.Scene{Name: "Root Scene"})
		doc.Scene = gltf.Index(0)
	}

	positions := make([][3]float32, len(s.Vertices))
	for i, v := range s.Vertices {
		positions[i] = [3]float32{v[0], v[2], -v[1]}
	}
	indices := make([]uint32, 0, (len(s.Vertices)-2)*3)
	for i := 1; i+1 < len(s.Vertices); i++ {
		indices = append(indices, 0, uint32(i), uint32(i+1))
	}

	positionAccessor := modeler.WritePosition(doc, positions)
	indicesAccessor := modeler.WriteIndices(doc, indices)

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: s.Name,
		Primitives: []*gltf.Primitive{
			{
				Indices:    gltf.Index(indicesAccessor),
				Attributes: map[string]uint32{"POSITION": positionAccessor},
			},
		},
	})

	iNode := uint32(len(doc.Nodes))
	node := &gltf.Node{
		Name: s.Name,
		Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
	}
	if s.Extras != nil {
		node.Extras = s.Extras
	}
	doc.Nodes = append(doc.Nodes, node)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, iNode)
	return iNode
}

// SetBoundingBox stores the framing metadata on the first scene.
func SetBoundingBox(doc *gltf.Document, bbox BoundingBox, northAxis float64) {
	extras := map[string]interface{}{
		"boundingbox": map[string]interface{}{
			"lookAtX": bbox.LookAtX,
			"lookAtY": bbox.LookAtY,
			"lookAtZ": bbox.LookAtZ,
			"lookAtR": bbox.LookAtR,
		},
	}
	if northAxis != 0 {
		extras["northAxis"] = northAxis
	}
	doc.Scenes[0].Extras = extras
}

func rect(x0, y0, z0, x1, y1, z1 float32) [][3]float32 {
	if z0 == z1 {
		return [][3]float32{{x0, y0, z0}, {x1, y0, z0}, {x1, y1, z0}, {x0, y1, z0}}
	}
	return [][3]float32{{x0, y0, z0}, {x1, y1, z0}, {x1, y1, z1}, {x0, y0, z1}}
}

func reversed(v [][3]float32) [][3]float32 {
	r := make([][3]float32, len(v))
	for i := range v {
		r[len(v)-1-i] = v[i]
	}
	return r
}

// ExampleBuilding builds a two story 10x8 m building with one window, one door,
// a site shading and an interior partition per story.
func ExampleBuilding() *gltf.Document {
	const (
		width, depth, height = float32(10), float32(8), float32(3)
	)
	doc := NewDocument()

	stories := []string{"Building Story 1", "Second Story"}
	for iStory, story := range stories {
		z0 := float32(iStory) * height
		z1 := z0 + height
		space := fmt.Sprintf("Space %d", iStory+1)
		zone := fmt.Sprintf("Thermal Zone %d", iStory+1)

		data := func(surfaceType, name, construction, boundary string) map[string]interface{} {
			m := map[string]interface{}{
				"name":                     name,
				"surfaceType":              surfaceType,
				"spaceName":                space,
				"thermalZoneName":          zone,
				"buildingStoryName":        story,
				"constructionName":         construction,
				"outsideBoundaryCondition": boundary,
				"convex":                   true,
				"correctlyOriented":        true,
				"spaceConvex":              true,
				"spaceEnclosed":            true,
			}
			if boundary == "Outdoors" {
				m["sunExposure"] = "SunExposed"
				m["windExposure"] = "WindExposed"
			}
			if iStory == 0 {
				m["spaceTypeName"] = "Office"
			}
			return m
		}

		floorBoundary, floorConstruction := "Ground", "Slab"
		roofBoundary, roofConstruction := "Outdoors", "Roof"
		if iStory > 0 {
			floorBoundary, floorConstruction = "Surface", "Interior Floor"
		}
		if iStory < len(stories)-1 {
			roofBoundary, roofConstruction = "Surface", "Interior Ceiling"
		}

		AddSurface(doc, Surface{
			Name:     fmt.Sprintf("%s Floor", space),
			Vertices: reversed(rect(0, 0, z0, width, depth, z0)),
			Extras:   data("Floor", fmt.Sprintf("%s Floor", space), floorConstruction, floorBoundary),
		})
		AddSurface(doc, Surface{
			Name:     fmt.Sprintf("%s Roof", space),
			Vertices: rect(0, 0, z1, width, depth, z1),
			Extras:   data("RoofCeiling", fmt.Sprintf("%s Roof", space), roofConstruction, roofBoundary),
		})

		walls := []struct {
			side   string
			x0, y0 float32
			x1, y1 float32
		}{
			{"South", 0, 0, width, 0},
			{"East", width, 0, width, depth},
			{"North", width, depth, 0, depth},
			{"West", 0, depth, 0, 0},
		}
		for _, w := range walls {
			name := fmt.Sprintf("%s %s Wall", space, w.side)
			AddSurface(doc, Surface{
				Name:     name,
				Vertices: rect(w.x0, w.y0, z0, w.x1, w.y1, z1),
				Extras:   data("Wall", name, "Exterior Wall", "Outdoors"),
			})
		}

		// sub surfaces slightly offset outwards from the south wall
		window := fmt.Sprintf("%s Window", space)
		AddSurface(doc, Surface{
			Name:     window,
			Vertices: rect(2, -0.01, z0+1, 4, -0.01, z0+2.2),
			Extras:   data("FixedWindow", window, "Glazing", "Outdoors"),
		})
		door := fmt.Sprintf("%s Door", space)
		AddSurface(doc, Surface{
			Name:     door,
			Vertices: rect(6, -0.01, z0, 7, -0.01, z0+2.1),
			Extras:   data("Door", door, "Exterior Door", "Outdoors"),
		})
		partition := fmt.Sprintf("%s Partition", space)
		AddSurface(doc, Surface{
			Name:     partition,
			Vertices: rect(5, 0, z0, 5, depth, z0+height),
			Extras:   data("InteriorPartitionSurface", partition, "Interior Partition", ""),
		})
	}

	AddSurface(doc, Surface{
		Name:     "Site Shading",
		Vertices: rect(-2, -4, 4, 12, -2, 4),
		Extras: map[string]interface{}{
			"name":        "Site Shading",
			"surfaceType": "SiteShading",
		},
	})

	radius := math.Sqrt(float64(width*width+depth*depth+(2*height)*(2*height))) / 2
	SetBoundingBox(doc, BoundingBox{
		LookAtX: float64(width) / 2,
		LookAtY: float64(depth) / 2,
		LookAtZ: float64(height),
		LookAtR: radius,
	}, 45)

	return doc
}
