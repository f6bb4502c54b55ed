package viewer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/effibem/bemviewer/utils/gltfutils"
)

func TestFramingPose(t *testing.T) {
	for _, bbox := range []gltfutils.BoundingBox{
		{LookAtX: 0, LookAtY: 0, LookAtZ: 0, LookAtR: 1},
		{LookAtX: 5, LookAtY: 4, LookAtZ: 3, LookAtR: 7.07},
		{LookAtX: -120, LookAtY: 33.5, LookAtZ: 2, LookAtR: 250},
	} {
		position, target := FramingPose(bbox)
		assert.InDelta(t, bbox.LookAtX, target[0], 1e-4)
		assert.InDelta(t, bbox.LookAtZ, target[1], 1e-4)
		assert.InDelta(t, -bbox.LookAtY, target[2], 1e-4)

		offset := position.Sub(target)
		assert.InDelta(t, 2.5*bbox.LookAtR, offset.Len(), 1e-3*bbox.LookAtR)

		// 30 degrees above the horizon
		horizontal := math.Hypot(float64(offset[0]), float64(offset[2]))
		elevation := math.Atan2(float64(offset[1]), horizontal) * 180 / math.Pi
		assert.InDelta(t, 30, elevation, 1e-3)

		// azimuth -30 degrees: in front of +X, towards +Z
		azimuth := math.Atan2(-float64(offset[2]), float64(offset[0])) * 180 / math.Pi
		assert.InDelta(t, -30, azimuth, 1e-3)
	}
}

func TestAxesSize(t *testing.T) {
	assert.Equal(t, float32(10), axesSize(gltfutils.SceneMetadata{}))
	assert.Equal(t, float32(20), axesSize(gltfutils.SceneMetadata{BoundingBox: &gltfutils.BoundingBox{LookAtR: 5}}))
	// a bounding box always sizes the axes from its radius, even a zero one
	assert.Equal(t, float32(0), axesSize(gltfutils.SceneMetadata{BoundingBox: &gltfutils.BoundingBox{}}))
}
