// Package component holds the components used by the simulation.
package component

import "github.com/edwinsyarief/scenecs"

// Position is a point in world units.
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Velocity is added to Position once per tick.
type Velocity struct {
	DX float64 `yaml:"dx"`
	DY float64 `yaml:"dy"`
}

// Lifetime counts down once per tick; the entity is deleted at zero.
type Lifetime struct {
	Ticks int `yaml:"ticks"`
}

// Spawner makes a copy of its entity every Every ticks.
type Spawner struct {
	Every   int `yaml:"every"`
	Counter int `yaml:"-"`
}

// Speed caps how fast a follower closes in on its target.
type Speed struct {
	Max float64 `yaml:"max"`
}

// Follow steers an entity towards Target. It owns a weak reference, which
// it releases when destroyed and duplicates when cloned.
type Follow struct {
	Target scenecs.EntityRef
}

// Destroy releases the target reference.
func (f *Follow) Destroy() {
	f.Target.Release()
}

// Clone gives the copy its own target reference.
func (f *Follow) Clone() Follow {
	return Follow{Target: f.Target.Clone()}
}

// Leader marks entities that followers may attach to.
type Leader struct{}
