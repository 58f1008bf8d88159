package engine

import (
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/scene"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnLoadScene       LoadScene
	FnUpdate          Update
	FnOnResize        OnResize
}

// LoadScene builds the scene and cameras used when no scene file is given.
type LoadScene func(width uint32, height uint32) (*scene.Scene, []*components.Camera, error)
type Update func(deltaTime float64, s *scene.Scene, cameras []*components.Camera) error
type OnResize func(width uint32, height uint32) error
