package testbed

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/resolvepipe/engine"
	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
	"github.com/spaghettifunk/resolvepipe/engine/scene"
)

// Radians per second the spinning cube turns.
const spinSpeed float32 = 0.5

type DemoGame struct {
	*engine.Game
}

type gameState struct {
	spinning    *scene.Object
	worldCamera *components.Camera
	totalTime   float64
}

func NewDemo() *DemoGame {
	dg := &DemoGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:     "Resolvepipe Demo",
				Width:    320,
				Height:   180,
				LogLevel: "info",
			},
			State: &gameState{},
		},
	}
	dg.FnLoadScene = dg.LoadScene
	dg.FnUpdate = dg.Update
	return dg
}

// LoadScene builds three opaque cubes behind a transparent pane, seen by
// the main camera and by a top down minimap camera rendering to a texture.
func (dg *DemoGame) LoadScene(width, height uint32) (*scene.Scene, []*components.Camera, error) {
	state := dg.State.(*gameState)

	s := scene.New("demo")
	s.SetSkyboxColour(math.NewVec4(0.25, 0.45, 0.75, 1))

	red := metadata.NewMaterial(1, "red", math.NewVec4(0.9, 0.2, 0.2, 1), metadata.RenderQueueGeometry)
	green := metadata.NewMaterial(2, "green", math.NewVec4(0.2, 0.8, 0.3, 1), metadata.RenderQueueGeometry)
	glass := metadata.NewMaterial(3, "glass", math.NewVec4(0.6, 0.8, 1.0, 0.4), metadata.RenderQueueTransparent)
	glass.ShaderID = 2
	glass.ShaderName = "Builtin.Glass"
	for _, m := range []*metadata.Material{red, green, glass} {
		if err := s.AddMaterial(m); err != nil {
			return nil, nil, err
		}
	}

	cube := math.NewExtents3DFromCenter(math.NewVec3Zero(), math.NewVec3One())
	spinning := scene.NewObject("spinning_cube", math.TransformFromPosition(math.NewVec3(0, 0, -4)), cube, red)
	left := scene.NewObject("left_cube", math.TransformFromPosition(math.NewVec3(-3, 0, -6)), cube, green)
	right := scene.NewObject("right_cube", math.TransformFromPositionRotationScale(
		math.NewVec3(3, 0.5, -8),
		math.NewQuatFromAxisAngle(math.NewVec3Up(), math.DegToRad(30), true),
		math.NewVec3(1.5, 1.5, 1.5)), cube, red)
	pane := scene.NewObject("glass_pane", math.TransformFromPosition(math.NewVec3(1, 0, 0)),
		math.NewExtents3DFromCenter(math.NewVec3Zero(), math.NewVec3(2, 1.5, 0.05)), glass)
	if err := s.Add(spinning, left, right, pane); err != nil {
		return nil, nil, err
	}
	state.spinning = spinning

	main := components.NewCamera("main", metadata.BackbufferDestination(width, height))
	main.SetPosition(math.NewVec3(0, 0, 6))
	state.worldCamera = main

	minimap := components.NewCamera("minimap", metadata.RenderTextureDestination("minimap-"+uuid.NewString()[:8], 64, 64))
	minimap.SetPosition(math.NewVec3(0, 20, -4))
	minimap.SetEulerRotation(math.NewVec3(math.DegToRad(-90), 0, 0))
	minimap.SampleCount = 1

	return s, []*components.Camera{main, minimap}, nil
}

func (dg *DemoGame) Update(deltaTime float64, s *scene.Scene, cameras []*components.Camera) error {
	state := dg.State.(*gameState)
	state.totalTime += deltaTime
	if state.spinning != nil {
		rotation := math.NewQuatFromAxisAngle(math.NewVec3Up(), spinSpeed*float32(deltaTime), false)
		state.spinning.Transform.Rotate(rotation)
	}
	return nil
}
