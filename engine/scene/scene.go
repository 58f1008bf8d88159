package scene

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

// Object is a renderable entry of the scene.
type Object struct {
	Name      string
	Transform *math.Transform
	// Bounds in local space.
	Bounds   math.Extents3D
	Material *metadata.Material
}

func NewObject(name string, transform *math.Transform, bounds math.Extents3D, material *metadata.Material) *Object {
	if transform == nil {
		transform = math.TransformCreate()
	}
	return &Object{
		Name:      name,
		Transform: transform,
		Bounds:    bounds,
		Material:  material,
	}
}

// WorldBounds is the axis aligned box enclosing the transformed local bounds.
func (o *Object) WorldBounds() math.Extents3D {
	return o.Bounds.Transform(o.Transform.GetWorld())
}

// Scene is an ordered collection of objects. The order of Objects() is the
// stable input order the renderer uses to break ties.
type Scene struct {
	Name string

	mu        sync.RWMutex
	objects   []*Object
	materials map[string]*metadata.Material
	skybox    math.Vec4
}

func New(name string) *Scene {
	return &Scene{
		Name:      name,
		materials: make(map[string]*metadata.Material),
		skybox:    math.NewVec4(0.1, 0.1, 0.15, 1),
	}
}

func (s *Scene) AddMaterial(m *metadata.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.materials[m.Name]; ok {
		return fmt.Errorf("material %q already registered in scene %q", m.Name, s.Name)
	}
	s.materials[m.Name] = m
	return nil
}

func (s *Scene) Material(name string) (*metadata.Material, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.materials[name]
	return m, ok
}

func (s *Scene) Add(objects ...*Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range objects {
		if o.Material == nil {
			return fmt.Errorf("object %q has no material", o.Name)
		}
		s.objects = append(s.objects, o)
	}
	return nil
}

// Objects returns a snapshot of the scene objects in insertion order.
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

func (s *Scene) SkyboxColour() math.Vec4 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skybox
}

func (s *Scene) SetSkyboxColour(colour math.Vec4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skybox = colour
}
