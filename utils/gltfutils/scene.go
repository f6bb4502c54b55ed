package gltfutils

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/effibem/bemviewer/scene"
	"github.com/effibem/bemviewer/utils"
)

// BoundingBox is the view target of a scene in the source Z-up system.
type BoundingBox struct {
	LookAtX float64 `json:"lookAtX"`
	LookAtY float64 `json:"lookAtY"`
	LookAtZ float64 `json:"lookAtZ"`
	LookAtR float64 `json:"lookAtR"`
}

type SceneMetadata struct {
	BoundingBox *BoundingBox `json:"boundingbox,omitempty"`
	NorthAxis   float64      `json:"northAxis,omitempty"`
}

type Converted struct {
	Root     *scene.Node
	Metadata SceneMetadata
}

// SceneIndex returns the scene to display: the default scene if set, else the first.
func SceneIndex(doc *gltf.Document) (uint32, bool) {
	if len(doc.Scenes) == 0 {
		return 0, false
	}
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		return *doc.Scene, true
	}
	return 0, true
}

// ReadMetadata reads the framing extras of the displayed scene, see SceneIndex.
func ReadMetadata(doc *gltf.Document) (SceneMetadata, error) {
	var meta SceneMetadata
	iScene, ok := SceneIndex(doc)
	if !ok {
		return meta, nil
	}
	extras, err := ExtrasMap(doc.Scenes[iScene].Extras)
	if err != nil {
		return meta, errors.Wrap(err, "scene extras")
	}
	if extras == nil {
		return meta, nil
	}

	if bbox, ok := extras["boundingbox"].(map[string]interface{}); ok {
		meta.BoundingBox = &BoundingBox{
			LookAtX: number(bbox["lookAtX"]),
			LookAtY: number(bbox["lookAtY"]),
			LookAtZ: number(bbox["lookAtZ"]),
			LookAtR: number(bbox["lookAtR"]),
		}
	}
	meta.NorthAxis = number(extras["northAxis"])
	return meta, nil
}

func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// ToScene converts the displayed scene of doc into a scene graph.
// Each gltf node becomes one scene node carrying merged mesh and node extras
// as user data, with all triangle primitives of its mesh joined.
func ToScene(doc *gltf.Document) (*Converted, error) {
	meta, err := ReadMetadata(doc)
	if err != nil {
		return nil, err
	}

	root := scene.NewNode("gltf")
	conv := &Converted{Root: root, Metadata: meta}

	iScene, ok := SceneIndex(doc)
	if !ok {
		return conv, nil
	}

	c := converter{
		doc:     doc,
		meshes:  make(map[uint32]*scene.Mesh),
		visited: make(map[uint32]bool),
	}
	for _, iNode := range doc.Scenes[iScene].Nodes {
		n, err := c.node(iNode)
		if err != nil {
			return nil, err
		}
		root.Add(n)
	}
	root.UpdateWorld()
	return conv, nil
}

type converter struct {
	doc     *gltf.Document
	meshes  map[uint32]*scene.Mesh
	visited map[uint32]bool
}

func (c *converter) node(iNode uint32) (*scene.Node, error) {
	if int(iNode) >= len(c.doc.Nodes) {
		return nil, errors.Errorf("node index %d out of range", iNode)
	}
	if c.visited[iNode] {
		return nil, errors.Errorf("node %d referenced twice", iNode)
	}
	c.visited[iNode] = true

	gn := c.doc.Nodes[iNode]
	name := gn.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", iNode)
	}
	n := scene.NewNode(name)
	n.Transform = localTransform(gn)

	userData := make(map[string]interface{})
	if gn.Mesh != nil {
		iMesh := *gn.Mesh
		mesh, err := c.mesh(iMesh)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", name)
		}
		n.Mesh = mesh
		base := c.baseColor(iMesh)
		n.Material = scene.Material{Exterior: base, Interior: base}

		meshExtras, err := ExtrasMap(c.doc.Meshes[iMesh].Extras)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %d", iMesh)
		}
		for k, v := range meshExtras {
			userData[k] = v
		}
	}

	nodeExtras, err := ExtrasMap(gn.Extras)
	if err != nil {
		return nil, errors.Wrapf(err, "node %q", name)
	}
	for k, v := range nodeExtras {
		userData[k] = v
	}
	if len(userData) != 0 {
		n.UserData = userData
	}

	for _, iChild := range gn.Children {
		child, err := c.node(iChild)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

// DefaultSurfaceColor is used for meshes without a base color factor.
const DefaultSurfaceColor = 0xcccccc

// baseColor returns the base color factor of the first primitive material
// of a mesh, forced opaque.
func (c *converter) baseColor(iMesh uint32) utils.ColorFloat {
	for _, p := range c.doc.Meshes[iMesh].Primitives {
		if p.Material == nil || int(*p.Material) >= len(c.doc.Materials) {
			continue
		}
		pbr := c.doc.Materials[*p.Material].PBRMetallicRoughness
		if pbr == nil || pbr.BaseColorFactor == nil {
			continue
		}
		color := utils.ColorFloat(pbr.BaseColorFactorOrDefault())
		color[3] = 1
		return color
	}
	return utils.NewColorFloatHex(DefaultSurfaceColor)
}

func localTransform(n *gltf.Node) mgl32.Mat4 {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		return mgl32.Mat4(m)
	}

	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()

	rotation := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

func (c *converter) mesh(iMesh uint32) (*scene.Mesh, error) {
	if m, ok := c.meshes[iMesh]; ok {
		return m, nil
	}
	if int(iMesh) >= len(c.doc.Meshes) {
		return nil, errors.Errorf("mesh index %d out of range", iMesh)
	}

	result := &scene.Mesh{}
	for iPrimitive, p := range c.doc.Meshes[iMesh].Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			continue
		}
		iPosition, ok := p.Attributes["POSITION"]
		if !ok {
			continue
		}
		if int(iPosition) >= len(c.doc.Accessors) {
			return nil, errors.Errorf("primitive %d: position accessor %d out of range", iPrimitive, iPosition)
		}
		positions, err := modeler.ReadPosition(c.doc, c.doc.Accessors[iPosition], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "primitive %d positions", iPrimitive)
		}

		var indices []uint32
		if p.Indices != nil {
			if int(*p.Indices) >= len(c.doc.Accessors) {
				return nil, errors.Errorf("primitive %d: index accessor %d out of range", iPrimitive, *p.Indices)
			}
			indices, err = modeler.ReadIndices(c.doc, c.doc.Accessors[*p.Indices], nil)
			if err != nil {
				return nil, errors.Wrapf(err, "primitive %d indices", iPrimitive)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		base := uint32(len(result.Positions))
		for _, p := range positions {
			result.Positions = append(result.Positions, mgl32.Vec3(p))
		}
		for i := 0; i+2 < len(indices); i += 3 {
			for _, index := range indices[i : i+3] {
				if int(index) >= len(positions) {
					return nil, errors.Errorf("primitive %d: vertex index %d out of range", iPrimitive, index)
				}
				result.Indices = append(result.Indices, base+index)
			}
		}
	}

	c.meshes[iMesh] = result
	return result, nil
}
