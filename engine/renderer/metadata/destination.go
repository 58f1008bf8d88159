package metadata

import "fmt"

type DestinationKind int

const (
	// The presentation surface.
	DestinationBackbuffer DestinationKind = iota
	// A named texture that outlives the frame.
	DestinationRenderTexture
)

// Destination is where a camera's resolved image ends up.
type Destination struct {
	Kind   DestinationKind
	Name   string
	Width  uint32
	Height uint32
}

func BackbufferDestination(width, height uint32) Destination {
	return Destination{Kind: DestinationBackbuffer, Name: "backbuffer", Width: width, Height: height}
}

func RenderTextureDestination(name string, width, height uint32) Destination {
	return Destination{Kind: DestinationRenderTexture, Name: name, Width: width, Height: height}
}

func (d Destination) String() string {
	return fmt.Sprintf("%s(%dx%d)", d.Name, d.Width, d.Height)
}
