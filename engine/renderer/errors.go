package renderer

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

// AllocationError is returned when a render target cannot be created.
type AllocationError struct {
	Spec    metadata.RenderTargetSpec
	Backend string
	Err     error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate render target %s on %s: %v", e.Spec, e.Backend, e.Err)
}

func (e *AllocationError) Unwrap() []error {
	return []error{core.ErrAllocation, e.Err}
}

// CullingError is returned when a camera yields no usable frustum.
type CullingError struct {
	Camera string
	Reason string
}

func (e *CullingError) Error() string {
	return fmt.Sprintf("camera %s: %s", e.Camera, e.Reason)
}

func (e *CullingError) Unwrap() error {
	return core.ErrCulling
}

// PassSubmissionError is returned when recording or submitting a pass fails.
type PassSubmissionError struct {
	Camera string
	Pass   PassState
	Err    error
}

func (e *PassSubmissionError) Error() string {
	return fmt.Sprintf("camera %s: %s: %v", e.Camera, e.Pass, e.Err)
}

func (e *PassSubmissionError) Unwrap() []error {
	return []error{core.ErrPassSubmission, e.Err}
}

// CameraError ties a failure to the camera it happened on.
type CameraError struct {
	Camera *components.Camera
	Err    error
}

func (e *CameraError) Error() string {
	return fmt.Sprintf("render camera %q: %v", e.Camera.Name, e.Err)
}

func (e *CameraError) Unwrap() error {
	return e.Err
}

// FrameErrors collects the per camera failures of one frame.
type FrameErrors []*CameraError

func (fe FrameErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("%d camera(s) failed: %s", len(fe), strings.Join(msgs, "; "))
}

func (fe FrameErrors) Unwrap() []error {
	errs := make([]error, 0, len(fe))
	for _, e := range fe {
		errs = append(errs, e)
	}
	return errs
}
