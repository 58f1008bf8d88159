package loaders

import (
	"bytes"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
	"github.com/spaghettifunk/resolvepipe/engine/scene"
)

type MaterialEntry struct {
	Name   string     `toml:"name"`
	Shader string     `toml:"shader"`
	Colour [4]float32 `toml:"colour"`
	Queue  int        `toml:"queue"`
	Passes []string   `toml:"passes"`
}

type ObjectEntry struct {
	Name     string `toml:"name"`
	Material string `toml:"material"`
	// Euler angles in degrees.
	Rotation    [3]float32  `toml:"rotation"`
	Position    [3]float32  `toml:"position"`
	Scale       *[3]float32 `toml:"scale"`
	HalfExtents [3]float32  `toml:"half_extents"`
}

type CameraEntry struct {
	Name     string     `toml:"name"`
	Position [3]float32 `toml:"position"`
	// Euler angles in degrees.
	Rotation [3]float32 `toml:"rotation"`
	FOV      float32    `toml:"fov"`
	Near     float32    `toml:"near"`
	Far      float32    `toml:"far"`
	Samples  uint8      `toml:"samples"`
	// "backbuffer" (default) or "texture".
	Target string `toml:"target"`
	// Name of the render texture. Generated when empty.
	Texture  string     `toml:"texture"`
	Width    uint32     `toml:"width"`
	Height   uint32     `toml:"height"`
	Viewport *[4]uint32 `toml:"viewport"`
	Enabled  *bool      `toml:"enabled"`
}

// SceneFile is the TOML layout of a *.scene.toml file.
type SceneFile struct {
	Name      string          `toml:"name"`
	Skybox    *[4]float32     `toml:"skybox"`
	Materials []MaterialEntry `toml:"materials"`
	Objects   []ObjectEntry   `toml:"objects"`
	Cameras   []CameraEntry   `toml:"cameras"`
}

// SceneParams carries the backbuffer extent backbuffer cameras render to.
type SceneParams struct {
	Width  uint32
	Height uint32
}

type SceneAsset struct {
	Scene   *scene.Scene
	Cameras []*components.Camera
}

func ParseScene(data []byte, params SceneParams) (*SceneAsset, error) {
	var file SceneFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return file.Build(params)
}

// Build turns the file description into a scene and its cameras.
func (f *SceneFile) Build(params SceneParams) (*SceneAsset, error) {
	s := scene.New(f.Name)
	if f.Skybox != nil {
		s.SetSkyboxColour(vec4(*f.Skybox))
	}

	shaderIDs := map[string]uint32{}
	for i, me := range f.Materials {
		if me.Name == "" {
			return nil, fmt.Errorf("material %d has no name: %w", i, core.ErrInvalidConfig)
		}
		queue := me.Queue
		if queue == 0 {
			queue = metadata.RenderQueueGeometry
		}
		m := metadata.NewMaterial(uint32(i+1), me.Name, vec4(me.Colour), queue)
		if me.Shader != "" {
			m.ShaderName = me.Shader
		}
		if _, ok := shaderIDs[m.ShaderName]; !ok {
			shaderIDs[m.ShaderName] = uint32(len(shaderIDs) + 1)
		}
		m.ShaderID = shaderIDs[m.ShaderName]
		if len(me.Passes) > 0 {
			m.Passes = me.Passes
		}
		if err := s.AddMaterial(m); err != nil {
			return nil, err
		}
	}

	for _, oe := range f.Objects {
		m, ok := s.Material(oe.Material)
		if !ok {
			return nil, fmt.Errorf("object %q uses unknown material %q: %w", oe.Name, oe.Material, core.ErrInvalidConfig)
		}
		scale := math.NewVec3One()
		if oe.Scale != nil {
			scale = vec3(*oe.Scale)
		}
		transform := math.TransformFromPositionRotationScale(vec3(oe.Position), eulerDegrees(oe.Rotation), scale)
		bounds := math.NewExtents3DFromCenter(math.NewVec3Zero(), vec3(oe.HalfExtents))
		if err := s.Add(scene.NewObject(oe.Name, transform, bounds, m)); err != nil {
			return nil, err
		}
	}

	cameras := make([]*components.Camera, 0, len(f.Cameras))
	for _, ce := range f.Cameras {
		c, err := ce.build(params)
		if err != nil {
			return nil, err
		}
		cameras = append(cameras, c)
	}
	return &SceneAsset{Scene: s, Cameras: cameras}, nil
}

func (ce CameraEntry) build(params SceneParams) (*components.Camera, error) {
	var dst metadata.Destination
	switch ce.Target {
	case "", "backbuffer":
		dst = metadata.BackbufferDestination(params.Width, params.Height)
	case "texture":
		name := ce.Texture
		if name == "" {
			name = "rt-" + uuid.NewString()
		}
		if ce.Width == 0 || ce.Height == 0 {
			return nil, fmt.Errorf("camera %q renders to a texture without a size: %w", ce.Name, core.ErrInvalidConfig)
		}
		dst = metadata.RenderTextureDestination(name, ce.Width, ce.Height)
	default:
		return nil, fmt.Errorf("camera %q has unknown target %q: %w", ce.Name, ce.Target, core.ErrInvalidConfig)
	}

	switch ce.Samples {
	case 0, 1, 2, 4:
	default:
		return nil, fmt.Errorf("camera %q: samples must be 1, 2 or 4, got %d: %w", ce.Name, ce.Samples, core.ErrInvalidConfig)
	}

	c := components.NewCamera(ce.Name, dst)
	c.SetPosition(vec3(ce.Position))
	c.SetEulerRotation(math.NewVec3(
		math.DegToRad(ce.Rotation[0]),
		math.DegToRad(ce.Rotation[1]),
		math.DegToRad(ce.Rotation[2]),
	))
	if ce.FOV > 0 {
		c.FOV = math.DegToRad(ce.FOV)
	}
	if ce.Near != 0 {
		c.NearClip = ce.Near
	}
	if ce.Far != 0 {
		c.FarClip = ce.Far
	}
	c.SampleCount = ce.Samples
	if ce.Viewport != nil {
		v := *ce.Viewport
		c.Viewport = components.Viewport{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	}
	if ce.Enabled != nil {
		c.Enabled = *ce.Enabled
	}
	return c, nil
}

type SceneLoader struct{}

// Load reads a scene file. params must be a SceneParams.
func (sl *SceneLoader) Load(path string, params interface{}) (interface{}, error) {
	p, ok := params.(SceneParams)
	if !ok {
		return nil, fmt.Errorf("scene loader expects SceneParams, got %T", params)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	asset, err := ParseScene(data, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return asset, nil
}

func vec3(v [3]float32) math.Vec3 {
	return math.NewVec3(v[0], v[1], v[2])
}

func vec4(v [4]float32) math.Vec4 {
	return math.NewVec4(v[0], v[1], v[2], v[3])
}

func eulerDegrees(deg [3]float32) math.Quaternion {
	qx := math.NewQuatFromAxisAngle(math.NewVec3(1, 0, 0), math.DegToRad(deg[0]), true)
	qy := math.NewQuatFromAxisAngle(math.NewVec3Up(), math.DegToRad(deg[1]), true)
	qz := math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), math.DegToRad(deg[2]), true)
	return qx.Mul(qy).Mul(qz)
}
