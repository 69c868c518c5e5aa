// Package prefab loads entity templates from YAML and spawns them into a
// scene.
//
// A prefab file looks like:
//
//	prefabs:
//	  leader:
//	    position: {x: 0, y: 0}
//	    velocity: {dx: 1, dy: 0}
//	    leader: {}
package prefab

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/edwinsyarief/scenecs"
	"github.com/edwinsyarief/scenecs/internal/component"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownPrefab is returned when building a prefab the catalog lacks.
	ErrUnknownPrefab = errors.New("unknown prefab")
	// ErrUnknownComponent is returned when a prefab file names a component
	// the registry does not know.
	ErrUnknownComponent = errors.New("unknown component")
)

// applier adds one decoded component to an entity.
type applier func(e scenecs.Entity) error

type entry struct {
	compile func(node *yaml.Node) (applier, error)
	key     scenecs.TypeKey
}

// Registry maps component names used in prefab files to Go types.
type Registry struct {
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register makes T available under name. Values are decoded once, when the
// catalog is loaded, and copied into every spawned entity.
func Register[T any](r *Registry, name string) {
	r.entries[name] = entry{
		key: scenecs.KeyFor[T](),
		compile: func(node *yaml.Node) (applier, error) {
			var v T
			if err := node.Decode(&v); err != nil {
				return nil, err
			}
			return func(e scenecs.Entity) error {
				_, err := scenecs.Append(e, v)
				return err
			}, nil
		},
	}
}

// DefaultRegistry knows every decodable simulation component.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	Register[component.Position](r, "position")
	Register[component.Velocity](r, "velocity")
	Register[component.Lifetime](r, "lifetime")
	Register[component.Spawner](r, "spawner")
	Register[component.Speed](r, "speed")
	Register[component.Leader](r, "leader")
	return r
}

type prefab struct {
	keys     []scenecs.TypeKey
	appliers []applier
}

// Catalog is an immutable set of compiled prefabs.
type Catalog struct {
	prefabs map[string]prefab
}

type file struct {
	Prefabs map[string]map[string]yaml.Node `yaml:"prefabs"`
}

// Load reads and compiles the prefab file at path.
//
// Parameters:
//   - path: The YAML file to read.
//   - reg: Resolves component names to Go types.
//
// Returns:
//   - The compiled catalog.
//   - An error naming path when the file cannot be read or parsed.
func Load(path string, reg *Registry) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefabs %s: %w", path, err)
	}
	c, err := Parse(data, reg)
	if err != nil {
		return nil, fmt.Errorf("parse prefabs %s: %w", path, err)
	}
	return c, nil
}

// Parse compiles a prefab document. Every component value is decoded here, so
// a catalog that parses only fails to build on conflicting component types.
// An empty document yields an empty catalog.
func Parse(data []byte, reg *Registry) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := &Catalog{prefabs: make(map[string]prefab, len(f.Prefabs))}
	for name, comps := range f.Prefabs {
		var p prefab
		for compName, node := range comps {
			ent, ok := reg.entries[compName]
			if !ok {
				return nil, fmt.Errorf("prefab %q: %w %q", name, ErrUnknownComponent, compName)
			}
			apply, err := ent.compile(&node)
			if err != nil {
				return nil, fmt.Errorf("prefab %q component %q: %w", name, compName, err)
			}
			p.keys = append(p.keys, ent.key)
			p.appliers = append(p.appliers, apply)
		}
		c.prefabs[name] = p
	}
	return c, nil
}

// Names returns the prefab names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.prefabs))
	for n := range c.prefabs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Has reports whether the catalog defines name.
func (c *Catalog) Has(name string) bool {
	_, ok := c.prefabs[name]
	return ok
}

// Build creates a sceneless entity from the named prefab.
func (c *Catalog) Build(name string) (scenecs.Entity, error) {
	p, ok := c.prefabs[name]
	if !ok {
		return scenecs.Entity{}, fmt.Errorf("%w %q", ErrUnknownPrefab, name)
	}
	e := scenecs.NewScenelessEntity()
	e.ReserveForMore(p.keys...)
	for _, apply := range p.appliers {
		if err := apply(e); err != nil {
			e.Release()
			return scenecs.Entity{}, fmt.Errorf("build %q: %w", name, err)
		}
	}
	return e, nil
}

// Spawn builds the named prefab and stages it in s.
//
// Parameters:
//   - s: The scene the entity joins at its next UpdateEntities.
//   - name: The prefab to build.
//
// Returns:
//   - The staged entity. The caller owns the handle and must release it.
//   - An error wrapping ErrUnknownPrefab for a missing name; nothing is
//     staged on failure.
func (c *Catalog) Spawn(s *scenecs.Scene, name string) (scenecs.Entity, error) {
	e, err := c.Build(name)
	if err != nil {
		return scenecs.Entity{}, err
	}
	if err := s.AddEntity(e); err != nil {
		e.Release()
		return scenecs.Entity{}, err
	}
	return e, nil
}
