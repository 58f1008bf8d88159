package renderer

import (
	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

// Backend is the device the pipeline records for. It owns render target
// memory and executes command buffers on Submit.
type Backend interface {
	Name() string
	CreateTarget(spec metadata.RenderTargetSpec) (metadata.TargetHandle, error)
	// DestroyTarget frees a target. Backends defer the free while a
	// recorded but unsubmitted command buffer still references it.
	DestroyTarget(handle metadata.TargetHandle) error
	NewCommandBuffer(label string) CommandBuffer
	Submit(cb CommandBuffer) error
}

// CommandBuffer records commands for later execution. Every method
// validates its arguments at record time.
type CommandBuffer interface {
	Label() string
	SetRenderTarget(color, depth metadata.TargetHandle) error
	ClearRenderTarget(flags metadata.ClearFlag, colour math.Vec4, depth float32) error
	DrawRenderers(pass string, view *ViewPacket, objects []*VisibleObject) error
	DrawSkybox(view *ViewPacket) error
	SetGlobalTexture(name string, handle metadata.TargetHandle) error
	// Blit runs material over src and writes the result into the viewport
	// rectangle of dst.
	Blit(src metadata.TargetHandle, dst metadata.Destination, viewport components.Viewport, material *metadata.ResolveMaterial) error
	Release()
}

// ViewPacket carries everything a backend needs to draw for one camera.
type ViewPacket struct {
	CameraName     string
	View           math.Mat4
	Projection     math.Mat4
	ViewProjection math.Mat4
	Position       math.Vec3
	Viewport       components.Viewport
	Samples        uint8
	SkyboxColour   math.Vec4
}

func newViewPacket(camera *components.Camera, samples uint8, skybox math.Vec4) *ViewPacket {
	view := camera.GetView()
	projection := camera.GetProjection()
	return &ViewPacket{
		CameraName:     camera.Name,
		View:           view,
		Projection:     projection,
		ViewProjection: view.Mul(projection),
		Position:       camera.GetPosition(),
		Viewport:       camera.Viewport,
		Samples:        samples,
		SkyboxColour:   skybox,
	}
}
