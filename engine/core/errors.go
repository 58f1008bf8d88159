package core

import (
	"errors"
)

var (
	// ErrAllocation is returned when the backend rejects a render target
	// description, e.g. an unsupported format or MSAA level.
	ErrAllocation = errors.New("render target allocation failed")
	// ErrCulling is returned when culling parameters cannot be derived
	// from a camera.
	ErrCulling = errors.New("culling parameters unavailable")
	// ErrPassSubmission is returned when the backend rejects a draw,
	// clear or blit command.
	ErrPassSubmission = errors.New("pass submission failed")

	ErrTargetNotAcquired     = errors.New("render target not acquired from this pool")
	ErrInvalidPassTransition = errors.New("invalid pass transition")
	ErrMissingShaderPass     = errors.New("material has no such shader pass")
	ErrUnknownShader         = errors.New("unknown shader")
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrPoolClosed            = errors.New("resource pool shut down")
	ErrUnknown               = errors.New("unknown")
)
