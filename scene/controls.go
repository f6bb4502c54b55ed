package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const minPolarEpsilon = 1e-6

// OrbitControls keeps the camera on a sphere around Target.
// Input deltas are accumulated and applied by Update, which also
// performs damping when enabled.
type OrbitControls struct {
	Camera *Camera
	Target mgl32.Vec3

	EnableDamping bool
	DampingFactor float32

	MinDistance float32
	MaxDistance float32

	RotateSpeed float32
	ZoomSpeed   float32
	PanSpeed    float32

	deltaYaw   float32
	deltaPitch float32
	scale      float32
	panOffset  mgl32.Vec3
}

func NewOrbitControls(camera *Camera) *OrbitControls {
	return &OrbitControls{
		Camera:        camera,
		DampingFactor: 0.05,
		MinDistance:   0,
		MaxDistance:   float32(math.Inf(1)),
		RotateSpeed:   1,
		ZoomSpeed:     1,
		PanSpeed:      1,
		scale:         1,
	}
}

// Rotate queues an orbit by angles in radians: yaw around the up axis,
// pitch towards the poles.
func (c *OrbitControls) Rotate(yaw, pitch float32) {
	c.deltaYaw -= yaw * c.RotateSpeed
	c.deltaPitch -= pitch * c.RotateSpeed
}

// RotatePixels converts a pointer drag over a viewport of the given height.
func (c *OrbitControls) RotatePixels(dx, dy float32, height int) {
	if height <= 0 {
		return
	}
	k := 2 * math.Pi / float32(height)
	c.Rotate(dx*k, dy*k)
}

// Dolly queues a zoom: factors above 1 move the camera away.
func (c *OrbitControls) Dolly(factor float32) {
	if factor <= 0 {
		return
	}
	c.scale *= factor
}

// Zoom converts wheel units into a dolly factor.
func (c *OrbitControls) Zoom(delta float32) {
	c.Dolly(float32(math.Pow(0.95, float64(-delta*c.ZoomSpeed))))
}

// PanPixels moves the target in the camera plane by a pointer drag
// over a viewport of the given height.
func (c *OrbitControls) PanPixels(dx, dy float32, height int) {
	if height <= 0 {
		return
	}
	offset := c.Camera.Position.Sub(c.Target)
	targetDistance := offset.Len() * float32(math.Tan(float64(mgl32.DegToRad(c.Camera.FOV/2))))

	view := c.Camera.ViewMatrix()
	right := mgl32.Vec3{view.At(0, 0), view.At(0, 1), view.At(0, 2)}
	up := mgl32.Vec3{view.At(1, 0), view.At(1, 1), view.At(1, 2)}

	k := 2 * targetDistance / float32(height) * c.PanSpeed
	c.panOffset = c.panOffset.Add(right.Mul(-dx * k)).Add(up.Mul(dy * k))
}

// Update applies pending input to the camera and reports whether it moved.
func (c *OrbitControls) Update() bool {
	offset := c.Camera.Position.Sub(c.Target)
	radius := offset.Len()

	yaw := float32(math.Atan2(float64(offset[0]), float64(offset[2])))
	var polar float32
	if radius > 0 {
		polar = float32(math.Acos(float64(mgl32.Clamp(offset[1]/radius, -1, 1))))
	}

	factor := float32(1)
	if c.EnableDamping {
		factor = c.DampingFactor
	}

	yaw += c.deltaYaw * factor
	polar += c.deltaPitch * factor
	polar = mgl32.Clamp(polar, minPolarEpsilon, math.Pi-minPolarEpsilon)

	radius = mgl32.Clamp(radius*c.scale, c.MinDistance, c.MaxDistance)
	c.Target = c.Target.Add(c.panOffset.Mul(factor))

	sinPolar := float32(math.Sin(float64(polar)))
	newOffset := mgl32.Vec3{
		radius * sinPolar * float32(math.Sin(float64(yaw))),
		radius * float32(math.Cos(float64(polar))),
		radius * sinPolar * float32(math.Cos(float64(yaw))),
	}
	if radius == 0 {
		newOffset = offset
	}

	moved := c.deltaYaw != 0 || c.deltaPitch != 0 || c.scale != 1 || c.panOffset.Len() != 0

	if moved {
		c.Camera.Position = c.Target.Add(newOffset)
	}
	c.Camera.LookAt = c.Target

	if c.EnableDamping {
		c.deltaYaw *= 1 - c.DampingFactor
		c.deltaPitch *= 1 - c.DampingFactor
		c.panOffset = c.panOffset.Mul(1 - c.DampingFactor)
		if abs32(c.deltaYaw) < 1e-6 && abs32(c.deltaPitch) < 1e-6 && c.panOffset.Len() < 1e-6 {
			c.deltaYaw, c.deltaPitch, c.panOffset = 0, 0, mgl32.Vec3{}
		}
	} else {
		c.deltaYaw, c.deltaPitch, c.panOffset = 0, 0, mgl32.Vec3{}
	}
	c.scale = 1

	return moved
}

// Distance returns the current camera to target distance.
func (c *OrbitControls) Distance() float32 {
	return c.Camera.Position.Sub(c.Target).Len()
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
