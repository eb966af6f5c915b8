package camera

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraCount is an atomic counter used to generate unique bind group provider names for each camera instance.
var cameraCount atomic.Uint64

type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	fovY     float32
	fovX     float32 // when > 0 the vertical fov is derived from it and the aspect
	aspect   float32
	near     float32
	far      float32
	reverseZ bool

	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4

	controller        CameraController
	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Camera holds perspective settings and computes view/projection matrices from an attached
// CameraController each frame via Update().
type Camera interface {
	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// FovY returns the effective vertical field of view in radians. When a horizontal field of
	// view was configured this is derived from it and the current aspect ratio.
	//
	// Returns:
	//   - float32: vertical field of view in radians
	FovY() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance. Ignored when ReverseZ is set.
	Far() float32

	// ReverseZ reports whether the projection maps the near plane to depth 1 and infinity
	// to depth 0. A reverse-Z camera must be drawn with a Greater depth compare and a depth
	// clear value of 0.
	//
	// Returns:
	//   - bool: true for an infinite reverse-Z projection
	ReverseZ() bool

	// ViewMatrix returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the column-major view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the column-major projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns the combined projection * view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the column-major view-projection matrix
	ViewProjectionMatrix() mgl32.Mat4

	// Uniform returns the camera uniform for the debug pipeline's group 0.
	//
	// Returns:
	//   - GPUCameraUniform: the uniform holding the view-projection matrix
	Uniform() GPUCameraUniform

	// Controller returns the attached CameraController, or nil.
	Controller() CameraController

	// BindGroupProvider returns the camera's bind group provider.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Update reads position and target from the controller and recomputes the matrices.
	// If no controller is attached, this method does nothing.
	Update()

	// SetUp sets the camera's up vector.
	SetUp(up mgl32.Vec3)

	// SetFovY sets the vertical field of view in radians and clears any horizontal setting.
	SetFovY(fov float32)

	// SetFovX sets the horizontal field of view in radians. The vertical field of view
	// follows the aspect ratio from then on.
	SetFovX(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	SetFar(far float32)

	// SetReverseZ switches between a finite [0, 1] projection and an infinite reverse-Z one.
	SetReverseZ(enabled bool)

	// SetController attaches a CameraController to the camera and recomputes matrices.
	SetController(ctrl CameraController)

	// SetBindGroupProvider replaces the camera's bind group provider.
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings: 45 degree vertical fov,
// aspect 1, near 0.1, far 100. A controller must be attached via SetController or the
// WithController option before the view matrix leaves identity.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:                   &sync.Mutex{},
		up:                   mgl32.Vec3{0, 1, 0},
		fovY:                 45.0 * (math.Pi / 180.0),
		aspect:               1.0,
		near:                 0.1,
		far:                  100.0,
		viewMatrix:           mgl32.Ident4(),
		projectionMatrix:     mgl32.Ident4(),
		viewProjectionMatrix: mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	if c.bindGroupProvider == nil {
		c.bindGroupProvider = bind_group_provider.NewBindGroupProvider(
			"camera_" + strconv.FormatUint(cameraCount.Add(1)-1, 10),
		)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) FovY() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effectiveFovY()
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ReverseZ() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reverseZ
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{ViewProj: c.viewProjectionMatrix}
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindGroupProvider
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetFovY(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fovY = fov
	c.fovX = 0
	c.updateMatrices()
}

func (c *cameraImpl) SetFovX(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fovX = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetReverseZ(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reverseZ = enabled
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

func (c *cameraImpl) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindGroupProvider = provider
}

// effectiveFovY must be called with mu held.
func (c *cameraImpl) effectiveFovY() float32 {
	if c.fovX > 0 {
		return common.FovYFromX(c.fovX, c.aspect)
	}
	return c.fovY
}

// updateMatrices recomputes the projection and, when a controller is attached, the view and
// view-projection matrices. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	fovY := c.effectiveFovY()
	if c.reverseZ {
		c.projectionMatrix = common.InfiniteReversePerspective(fovY, c.aspect, c.near)
	} else {
		c.projectionMatrix = common.Perspective(fovY, c.aspect, c.near, c.far)
	}

	if c.controller != nil {
		c.viewMatrix = mgl32.LookAtV(c.controller.Position(), c.controller.Target(), c.up)
	}
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
}
