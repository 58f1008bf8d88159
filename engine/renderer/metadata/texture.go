package metadata

import (
	"fmt"

	"github.com/spaghettifunk/resolvepipe/engine/core"
)

/** @brief The pixel format of a render target. */
type TextureFormat int

const (
	/** @brief An unknown format. Never valid for allocation. */
	FormatUnknown TextureFormat = iota
	/** @brief 8 bits per channel, normalized. Used by presentation targets. */
	FormatRGBA8
	/** @brief The default high dynamic range colour format of the pipeline. */
	FormatDefaultHDR
	/** @brief 32 bit floating point depth. */
	FormatDepth32
)

func (f TextureFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatDefaultHDR:
		return "DefaultHDR"
	case FormatDepth32:
		return "Depth32"
	default:
		return "Unknown"
	}
}

func (f TextureFormat) IsDepth() bool {
	return f == FormatDepth32
}

/** @brief Holds bit flags describing how a render target is used. */
type TextureUsage uint8

const (
	/** @brief The target can be bound as a colour attachment. */
	TextureUsageColorAttachment TextureUsage = 0x1
	/** @brief The target can be bound as a depth attachment. */
	TextureUsageDepthAttachment TextureUsage = 0x2
	/** @brief The target can be sampled by a shader, e.g. during resolve. */
	TextureUsageSampled TextureUsage = 0x4
	/** @brief The target only lives for the duration of a camera render. */
	TextureUsageTransient TextureUsage = 0x8
)

func (u TextureUsage) Has(flag TextureUsage) bool {
	return u&flag == flag
}

/**
 * @brief Describes a render target. It is a comparable value and
 * is used as-is as the key of the render target pool, so two specs are
 * interchangeable iff they are equal.
 */
type RenderTargetSpec struct {
	/** @brief Width in pixels. */
	Width uint32
	/** @brief Height in pixels. */
	Height uint32
	/** @brief The pixel format. */
	Format TextureFormat
	/** @brief Samples per pixel. 1 means no multisampling. */
	Samples uint8
	/** @brief Usage flags. */
	Usage TextureUsage
	/** @brief Whether the target is bound as a multisampled texture (no implicit resolve). */
	BindMS bool
}

func (s RenderTargetSpec) Validate() error {
	if s.Width == 0 || s.Height == 0 {
		return fmt.Errorf("render target %dx%d has no area: %w", s.Width, s.Height, core.ErrInvalidConfig)
	}
	if s.Format == FormatUnknown {
		return fmt.Errorf("render target format is unknown: %w", core.ErrInvalidConfig)
	}
	switch s.Samples {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("render target sample count %d is not a power of two up to 8: %w", s.Samples, core.ErrInvalidConfig)
	}
	if s.BindMS && s.Samples < 2 {
		return fmt.Errorf("render target bound as multisampled with %d sample: %w", s.Samples, core.ErrInvalidConfig)
	}
	return nil
}

func (s RenderTargetSpec) String() string {
	return fmt.Sprintf("%dx%d %s x%d", s.Width, s.Height, s.Format, s.Samples)
}

/** @brief Opaque backend identifier of an allocated render target. */
type TargetHandle uint32

/** @brief The handle value that never refers to a live target. */
const InvalidTargetHandle TargetHandle = 0

/** @brief Selects which attachments a clear affects. */
type ClearFlag uint8

const (
	ClearFlagNone  ClearFlag = 0x0
	ClearFlagColor ClearFlag = 0x1
	ClearFlagDepth ClearFlag = 0x2
	ClearFlagAll   ClearFlag = ClearFlagColor | ClearFlagDepth
)
