package viewer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/effibem/bemviewer/scene"
	"github.com/effibem/bemviewer/utils"
	"github.com/effibem/bemviewer/utils/gltfutils"
)

const (
	cameraFOV  = 45
	cameraNear = 0.1
	cameraFar  = 5000

	framingRadiusScale = 2.5
	framingAzimuthDeg  = -30
	framingElevation   = 30

	defaultAxesSize = 10
)

// DefaultCameraPosition is used when a scene carries no bounding box.
var DefaultCameraPosition = mgl32.Vec3{0, 0, 10}

// FramingPose returns the camera position and target for a bounding box
// given in the source Z-up system.
func FramingPose(bbox gltfutils.BoundingBox) (position, target mgl32.Vec3) {
	target = utils.ZUpToYUp(bbox.LookAtX, bbox.LookAtY, bbox.LookAtZ)
	radius := bbox.LookAtR * framingRadiusScale

	az := utils.DegToRad64(framingAzimuthDeg)
	el := utils.DegToRad64(framingElevation)
	offset := mgl32.Vec3{
		float32(radius * math.Cos(az) * math.Cos(el)),
		float32(radius * math.Sin(el)),
		float32(-radius * math.Sin(az) * math.Cos(el)),
	}
	return target.Add(offset), target
}

func newCamera(width, height int) *scene.Camera {
	cam := scene.NewPerspectiveCamera(cameraFOV, 1, cameraNear, cameraFar)
	cam.SetAspect(width, height)
	return cam
}

// frameCamera poses the camera and controls; without a bounding box the
// default pose is kept and no framing happens.
func frameCamera(cam *scene.Camera, controls *scene.OrbitControls, meta gltfutils.SceneMetadata) {
	if meta.BoundingBox == nil {
		cam.Position = DefaultCameraPosition
		cam.LookAt = mgl32.Vec3{}
		controls.Target = mgl32.Vec3{}
		return
	}
	position, target := FramingPose(*meta.BoundingBox)
	cam.Position = position
	cam.LookAt = target
	controls.Target = target
}

func axesSize(meta gltfutils.SceneMetadata) float32 {
	if meta.BoundingBox == nil {
		return defaultAxesSize
	}
	return float32(meta.BoundingBox.LookAtR * 4)
}
