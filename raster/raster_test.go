package raster

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effibem/bemviewer/scene"
	"github.com/effibem/bemviewer/utils"
)

func quadScene() *scene.Scene {
	s := scene.New()
	n := scene.NewNode("quad")
	n.Mesh = &scene.Mesh{
		Positions: []mgl32.Vec3{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
	n.Material = scene.Material{
		Exterior: utils.NewColorFloatHex(0xff0000),
		Interior: utils.NewColorFloatHex(0x00ff00),
	}
	s.Add(n)
	s.Root.UpdateWorld()
	return s
}

func cameraAt(z float32) *scene.Camera {
	cam := scene.NewPerspectiveCamera(45, 1, 0.1, 100)
	cam.Position = mgl32.Vec3{0, 0, z}
	return cam
}

func TestNewRejectsEmptySurface(t *testing.T) {
	_, err := New(0, 10)
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestRenderFrontAndBackColors(t *testing.T) {
	s, err := New(64, 64)
	require.NoError(t, err)
	sc := quadScene()

	require.NoError(t, s.Render(sc, cameraAt(5)))
	frame, err := s.Frame()
	require.NoError(t, err)
	front := frame.NRGBAAt(32, 32)
	assert.Greater(t, front.R, front.G)

	require.NoError(t, s.Render(sc, cameraAt(-5)))
	frame, err = s.Frame()
	require.NoError(t, err)
	back := frame.NRGBAAt(32, 32)
	assert.Greater(t, back.G, back.R)

	corner := frame.NRGBAAt(0, 0)
	assert.Equal(t, sc.Background.NRGBA(), corner)
	assert.Equal(t, uint64(2), s.Frames())
}

func TestHiddenNodesAreNotDrawn(t *testing.T) {
	s, err := New(32, 32)
	require.NoError(t, err)
	sc := quadScene()
	sc.Root.Childs[0].Visible = false

	require.NoError(t, s.Render(sc, cameraAt(5)))
	frame, err := s.Frame()
	require.NoError(t, err)
	assert.Equal(t, sc.Background.NRGBA(), frame.NRGBAAt(16, 16))
}

func TestSetSizeAndEncode(t *testing.T) {
	s, err := New(16, 16)
	require.NoError(t, err)
	s.SetSize(40, 20)
	s.SetSize(-1, 20)
	w, h := s.Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 20, h)

	require.NoError(t, s.Render(quadScene(), cameraAt(5)))
	var buf bytes.Buffer
	require.NoError(t, s.EncodePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestDisposedSurface(t *testing.T) {
	s, err := New(16, 16)
	require.NoError(t, err)
	s.Dispose()
	s.Dispose()
	assert.True(t, s.Disposed())
	assert.ErrorIs(t, s.Render(quadScene(), cameraAt(5)), ErrNoContext)
	_, err = s.Frame()
	assert.ErrorIs(t, err, ErrNoContext)
}

func groundCamera() *scene.Camera {
	cam := scene.NewPerspectiveCamera(45, 1, 0.1, 1000)
	cam.Position = mgl32.Vec3{0, 2, 0}
	cam.LookAt = mgl32.Vec3{0, 0, -10}
	return cam
}

func TestTrianglesCrossingNearPlaneAreClipped(t *testing.T) {
	sc := scene.New()
	floor := scene.NewNode("floor")
	floor.Mesh = &scene.Mesh{
		Positions: []mgl32.Vec3{{-100, 0, 100}, {100, 0, 100}, {100, 0, -100}, {-100, 0, -100}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
	floor.Material = scene.Material{
		Exterior: utils.NewColorFloatHex(0x0000ff),
		Interior: utils.NewColorFloatHex(0x0000ff),
	}
	sc.Add(floor)
	sc.Root.UpdateWorld()

	s, err := New(64, 64)
	require.NoError(t, err)
	require.NoError(t, s.Render(sc, groundCamera()))
	frame, err := s.Frame()
	require.NoError(t, err)

	below := frame.NRGBAAt(32, 60)
	assert.NotEqual(t, sc.Background.NRGBA(), below)
	assert.Greater(t, below.B, below.R)
	assert.Equal(t, uint8(255), below.A)
	assert.Equal(t, sc.Background.NRGBA(), frame.NRGBAAt(32, 2))
}

func TestLinesCrossingNearPlaneAreClipped(t *testing.T) {
	sc := scene.New()
	sc.Axes = []*scene.Lines{{
		Points: []mgl32.Vec3{{0, 0, 10}, {0, 0, -50}},
		Color:  [3]float32{1, 0, 0},
	}}

	s, err := New(64, 64)
	require.NoError(t, err)
	require.NoError(t, s.Render(sc, groundCamera()))
	frame, err := s.Frame()
	require.NoError(t, err)

	drawn := 0
	for y := 40; y < 64; y++ {
		for x := 30; x <= 33; x++ {
			if frame.NRGBAAt(x, y) != sc.Background.NRGBA() {
				drawn++
			}
		}
	}
	assert.Greater(t, drawn, 10)
}
