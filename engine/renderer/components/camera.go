package components

import (
	"fmt"

	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

const (
	DefaultFOVDegrees float32 = 60
	DefaultNearClip   float32 = 0.1
	DefaultFarClip    float32 = 1000
)

// Viewport is a pixel rectangle inside the camera destination.
type Viewport struct {
	X, Y          uint32
	Width, Height uint32
}

func (v Viewport) HasArea() bool {
	return v.Width > 0 && v.Height > 0
}

// Within reports whether the viewport lies inside a width x height surface.
func (v Viewport) Within(width, height uint32) bool {
	return uint64(v.X)+uint64(v.Width) <= uint64(width) &&
		uint64(v.Y)+uint64(v.Height) <= uint64(height)
}

func (v Viewport) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", v.X, v.Y, v.Width, v.Height)
}

/**
 * @brief Represents a camera that renders the scene into a destination.
 */
type Camera struct {
	/** @brief The camera name, used in logs and errors. */
	Name string
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position math.Vec3
	/**
	 * @brief The rotation of this camera using Euler angles (pitch, yaw, roll).
	 * NOTE: Do not set this directly, use SetEulerRotation() instead
	 * so the view matrix is recalculated when needed.
	 */
	EulerRotation math.Vec3
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/**
	 * @brief The view matrix of this camera.
	 * NOTE: IMPORTANT: Do not get this directly, use GetView() instead.
	 */
	ViewMatrix math.Mat4

	/** @brief Vertical field of view in radians. */
	FOV      float32
	NearClip float32
	FarClip  float32
	/** @brief When set, replaces the perspective projection built from FOV/NearClip/FarClip. */
	Projection *math.Mat4

	Viewport    Viewport
	Destination metadata.Destination
	/** @brief Samples per pixel for this camera. 0 uses the pipeline default. */
	SampleCount uint8
	Enabled     bool
}

func NewCamera(name string, destination metadata.Destination) *Camera {
	camera := &Camera{Name: name}
	camera.Reset()
	camera.SetDestination(destination)
	return camera
}

// SetDestination retargets the camera and resets its viewport to cover the
// whole destination.
func (c *Camera) SetDestination(destination metadata.Destination) {
	c.Destination = destination
	c.Viewport = Viewport{Width: destination.Width, Height: destination.Height}
}

func (c *Camera) Reset() {
	c.EulerRotation = math.NewVec3Zero()
	c.Position = math.NewVec3Zero()
	c.IsDirty = false
	c.ViewMatrix = math.NewMat4Identity()
	c.FOV = math.DegToRad(DefaultFOVDegrees)
	c.NearClip = DefaultNearClip
	c.FarClip = DefaultFarClip
	c.Projection = nil
	c.SampleCount = 0
	c.Enabled = true
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.Position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) GetEulerRotation() math.Vec3 {
	return c.EulerRotation
}

func (c *Camera) SetEulerRotation(rotation math.Vec3) {
	c.EulerRotation = rotation
	c.IsDirty = true
}

func (c *Camera) GetView() math.Mat4 {
	if c.IsDirty {
		rotation := math.NewMat4EulerXYZ(c.EulerRotation.X, c.EulerRotation.Y, c.EulerRotation.Z)
		translation := math.NewMat4Translation(c.Position)

		c.ViewMatrix = rotation.Mul(translation)
		c.ViewMatrix = c.ViewMatrix.Inverse()

		c.IsDirty = false
	}
	return c.ViewMatrix
}

// AspectRatio of the viewport, 1 when the viewport has no height.
func (c *Camera) AspectRatio() float32 {
	if c.Viewport.Height == 0 {
		return 1
	}
	return float32(c.Viewport.Width) / float32(c.Viewport.Height)
}

func (c *Camera) GetProjection() math.Mat4 {
	if c.Projection != nil {
		return *c.Projection
	}
	return math.NewMat4Perspective(c.FOV, c.AspectRatio(), c.NearClip, c.FarClip)
}

func (c *Camera) SetProjection(projection math.Mat4) {
	c.Projection = &projection
}

func (c *Camera) ViewProjection() math.Mat4 {
	return c.GetView().Mul(c.GetProjection())
}

func (c *Camera) Forward() math.Vec3 {
	view := c.GetView()
	return view.Forward()
}

func (c *Camera) Backward() math.Vec3 {
	view := c.GetView()
	return view.Backward()
}

func (c *Camera) Left() math.Vec3 {
	view := c.GetView()
	return view.Left()
}

func (c *Camera) Right() math.Vec3 {
	view := c.GetView()
	return view.Right()
}

func (c *Camera) move(direction math.Vec3, amount float32) {
	c.Position = c.Position.Add(direction.MulScalar(amount))
	c.IsDirty = true
}

func (c *Camera) MoveForward(amount float32)  { c.move(c.Forward(), amount) }
func (c *Camera) MoveBackward(amount float32) { c.move(c.Backward(), amount) }
func (c *Camera) MoveLeft(amount float32)     { c.move(c.Left(), amount) }
func (c *Camera) MoveRight(amount float32)    { c.move(c.Right(), amount) }
func (c *Camera) MoveUp(amount float32)       { c.move(math.NewVec3Up(), amount) }
func (c *Camera) MoveDown(amount float32)     { c.move(math.NewVec3Down(), amount) }

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation.Y += amount
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation.X += amount

	// Clamp to avoid Gimbal lock.
	limit := float32(1.55334306) // 89 degrees
	c.EulerRotation.X = math.Clamp(c.EulerRotation.X, -limit, limit)

	c.IsDirty = true
}
