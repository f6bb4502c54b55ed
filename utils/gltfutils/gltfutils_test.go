package gltfutils

import (
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effibem/bemviewer/scene"
	"github.com/effibem/bemviewer/utils"
)

func TestExampleBuildingRoundTrip(t *testing.T) {
	data, err := EncodeJSON(ExampleBuilding())
	require.NoError(t, err)

	doc, err := Decode(data)
	require.NoError(t, err)

	conv, err := ToScene(doc)
	require.NoError(t, err)

	require.NotNil(t, conv.Metadata.BoundingBox)
	assert.InDelta(t, 5, conv.Metadata.BoundingBox.LookAtX, 1e-9)
	assert.InDelta(t, 4, conv.Metadata.BoundingBox.LookAtY, 1e-9)
	assert.InDelta(t, 45, conv.Metadata.NorthAxis, 1e-9)

	surfaceTypes := make(map[string]int)
	conv.Root.Traverse(func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		assert.NotEmpty(t, n.Mesh.Indices, n.Name)
		surfaceTypes[n.StringData("surfaceType")]++
	})
	assert.Equal(t, 2, surfaceTypes["Floor"])
	assert.Equal(t, 8, surfaceTypes["Wall"])
	assert.Equal(t, 2, surfaceTypes["FixedWindow"])
	assert.Equal(t, 1, surfaceTypes["SiteShading"])
}

func TestEncodeJSONWritesJSON(t *testing.T) {
	data, err := EncodeJSON(ExampleBuilding())
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Equal(t, byte('{'), data[0])
	assert.Contains(t, string(data), "data:application/octet-stream;base64,")
}

func TestDecodeRejectsInvalidInput(t *testing.T) {
	_, err := Decode([]byte(`{"asset": `))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"foo": 1}`))
	assert.Error(t, err)
}

func TestDocumentWithoutMetadata(t *testing.T) {
	doc := NewDocument()
	AddSurface(doc, Surface{
		Name:     "untagged",
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
	})
	data, err := EncodeJSON(doc)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	conv, err := ToScene(decoded)
	require.NoError(t, err)

	assert.Nil(t, conv.Metadata.BoundingBox)
	require.Len(t, conv.Root.Childs, 1)
	n := conv.Root.Childs[0]
	assert.Nil(t, n.UserData)
	require.Len(t, n.Mesh.Positions, 3)
	// source (1, 1, 0) is (1, 0, -1) once Y-up
	assert.Equal(t, mgl32.Vec3{1, 0, -1}, n.Mesh.Positions[2])
}

func TestLocalTransformFromTRS(t *testing.T) {
	n := &gltf.Node{
		Translation: [3]float32{1, 2, 3},
		Scale:       [3]float32{2, 2, 2},
		Rotation:    [4]float32{0, 0, 0, 1},
	}
	p := localTransform(n).Mul4x1(mgl32.Vec4{1, 1, 1, 1})
	assert.InDelta(t, 3, p[0], 1e-6)
	assert.InDelta(t, 4, p[1], 1e-6)
	assert.InDelta(t, 5, p[2], 1e-6)
}

func TestChildNodesAndNodeExtrasOverrideMeshExtras(t *testing.T) {
	doc := NewDocument()
	iParent := AddSurface(doc, Surface{
		Name:     "parent",
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
	})
	iChild := AddSurface(doc, Surface{
		Name:     "child",
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
		Extras:   map[string]interface{}{"surfaceType": "Wall"},
	})
	doc.Meshes[*doc.Nodes[iChild].Mesh].Extras = map[string]interface{}{"surfaceType": "Floor", "meshOnly": "yes"}
	doc.Scenes[0].Nodes = []uint32{iParent}
	doc.Nodes[iParent].Children = []uint32{iChild}

	conv, err := ToScene(doc)
	require.NoError(t, err)
	require.Len(t, conv.Root.Childs, 1)
	require.Len(t, conv.Root.Childs[0].Childs, 1)
	child := conv.Root.Childs[0].Childs[0]
	assert.Equal(t, "Wall", child.StringData("surfaceType"))
	assert.Equal(t, "yes", child.StringData("meshOnly"))
}

func TestNodeCycleIsRejected(t *testing.T) {
	doc := NewDocument()
	i := AddSurface(doc, Surface{
		Name:     "loop",
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
	})
	doc.Nodes[i].Children = []uint32{i}

	_, err := ToScene(doc)
	assert.Error(t, err)
}

func TestSurfaceMaterials(t *testing.T) {
	doc := NewDocument()
	AddSurface(doc, Surface{
		Name:     "plain",
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
	})
	iColored := AddSurface(doc, Surface{
		Name:     "colored",
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
	})
	doc.Materials = append(doc.Materials, &gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 0, 0, 0.5},
		},
	})
	iMaterial := uint32(len(doc.Materials) - 1)
	doc.Meshes[*doc.Nodes[iColored].Mesh].Primitives[0].Material = &iMaterial

	conv, err := ToScene(doc)
	require.NoError(t, err)
	require.Len(t, conv.Root.Childs, 2)

	plain := conv.Root.Childs[0].Material
	assert.Equal(t, utils.NewColorFloatHex(DefaultSurfaceColor), plain.Exterior)
	assert.Equal(t, plain.Exterior, plain.Interior)
	assert.Equal(t, float32(1), plain.Exterior[3])

	colored := conv.Root.Childs[1].Material
	assert.Equal(t, utils.ColorFloat{1, 0, 0, 1}, colored.Exterior)
	assert.Equal(t, colored.Exterior, colored.Interior)
}

func TestMetadataOfDisplayedScene(t *testing.T) {
	doc := NewDocument()
	AddSurface(doc, Surface{
		Name:     "first",
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
	})
	SetBoundingBox(doc, BoundingBox{LookAtX: 1, LookAtR: 1}, 0)

	doc.Scenes = append(doc.Scenes, &gltf.Scene{
		Nodes:  []uint32{0},
		Extras: map[string]interface{}{"boundingbox": map[string]interface{}{"lookAtX": 7.0, "lookAtR": 3.0}},
	})
	displayed := uint32(1)
	doc.Scene = &displayed

	meta, err := ReadMetadata(doc)
	require.NoError(t, err)
	require.NotNil(t, meta.BoundingBox)
	assert.Equal(t, 7.0, meta.BoundingBox.LookAtX)
	assert.Equal(t, 3.0, meta.BoundingBox.LookAtR)

	conv, err := ToScene(doc)
	require.NoError(t, err)
	assert.Equal(t, meta, conv.Metadata)
}
