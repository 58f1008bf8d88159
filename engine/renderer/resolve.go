package renderer

import (
	"fmt"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

// ResolveResult describes the image a resolve produced.
type ResolveResult struct {
	Destination metadata.Destination
	Width       uint32
	Height      uint32
	// Region of the destination that was written.
	Viewport components.Viewport
	// Samples per pixel of the colour target that was consumed.
	Samples uint8
}

// ResolveStage turns the multisampled colour target into the camera
// destination through a resolve material.
type ResolveStage struct {
	material *metadata.ResolveMaterial
}

func NewResolveStage(material *metadata.ResolveMaterial) (*ResolveStage, error) {
	if material == nil || material.ShaderName == "" {
		return nil, fmt.Errorf("resolve material without shader: %w", core.ErrInvalidConfig)
	}
	return &ResolveStage{material: material}, nil
}

func (rs *ResolveStage) Material() *metadata.ResolveMaterial {
	return rs.material
}

// Record binds depth to the material's depth slot and blits colour into the
// viewport rectangle of dst.
func (rs *ResolveStage) Record(cb CommandBuffer, color, depth *PooledTarget, dst metadata.Destination, viewport components.Viewport) (*ResolveResult, error) {
	if !viewport.HasArea() || !viewport.Within(dst.Width, dst.Height) {
		return nil, fmt.Errorf("viewport %s does not fit %s", viewport, dst)
	}
	if err := cb.SetGlobalTexture(rs.material.DepthSlot, depth.Handle); err != nil {
		return nil, fmt.Errorf("bind %s: %w", rs.material.DepthSlot, err)
	}
	if err := cb.Blit(color.Handle, dst, viewport, rs.material); err != nil {
		return nil, fmt.Errorf("blit to %s: %w", dst, err)
	}
	return &ResolveResult{
		Destination: dst,
		Width:       dst.Width,
		Height:      dst.Height,
		Viewport:    viewport,
		Samples:     color.Spec.Samples,
	}, nil
}
