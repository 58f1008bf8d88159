package metadata

import (
	"slices"

	"github.com/spaghettifunk/resolvepipe/engine/math"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/** @brief The shader pass tag used by the forward passes unless configured otherwise. */
const DefaultShaderPass string = "BasicPass"

// Render queue ranges. Everything above RenderQueueGeometryLast is drawn in
// the transparent pass.
const (
	RenderQueueBackground   int = 1000
	RenderQueueGeometry     int = 2000
	RenderQueueAlphaTest    int = 2450
	RenderQueueGeometryLast int = 2500
	RenderQueueTransparent  int = 3000
	RenderQueueOverlay      int = 4000
)

/**
 * @brief A material, which decides in which pass a surface is drawn
 * and with what colour.
 */
type Material struct {
	/** @brief The material id. */
	ID uint32
	/** @brief The material name. */
	Name string
	/** @brief The id of the shader the material uses. */
	ShaderID uint32
	/** @brief The name of the shader the material uses. */
	ShaderName string
	/** @brief Shader pass tags this material can be drawn with. */
	Passes []string
	/** @brief The diffuse colour. Alpha is used for blending in the transparent pass. */
	DiffuseColour math.Vec4
	/** @brief The render queue. */
	RenderQueue int
}

func NewMaterial(id uint32, name string, colour math.Vec4, queue int) *Material {
	return &Material{
		ID:            id,
		Name:          name,
		ShaderID:      1,
		ShaderName:    "Builtin.Unlit",
		Passes:        []string{DefaultShaderPass},
		DiffuseColour: colour,
		RenderQueue:   queue,
	}
}

// Transparent reports whether the material belongs to the transparent bucket.
func (m *Material) Transparent() bool {
	return m.RenderQueue > RenderQueueGeometryLast
}

func (m *Material) HasPass(tag string) bool {
	return slices.Contains(m.Passes, tag)
}

const (
	/** @brief Slot the resolve material samples the multisampled colour from. */
	ResolveColorSlot string = "_MainTex"
	/** @brief Global texture slot the depth target is bound to before resolving. */
	ResolveDepthSlot string = "_DepthBuffer"
)

/**
 * @brief The material used by the resolve stage to turn the multisampled
 * colour target into the final image.
 */
type ResolveMaterial struct {
	/** @brief The material name. */
	Name string
	/** @brief The resolve shader the backend looks up. */
	ShaderName string
	/** @brief Slot the colour target is bound to. */
	ColorSlot string
	/** @brief Slot the depth target is bound to. */
	DepthSlot string
}

func NewResolveMaterial(name, shaderName string) *ResolveMaterial {
	return &ResolveMaterial{
		Name:       name,
		ShaderName: shaderName,
		ColorSlot:  ResolveColorSlot,
		DepthSlot:  ResolveDepthSlot,
	}
}
