package scenecs

import "errors"

var (
	// ErrNotInScene is returned when deletion is requested for an entity that
	// is not in the active set of its home scene, including sceneless
	// entities.
	ErrNotInScene = errors.New("scenecs: entity does not belong to its own scene")
	// ErrComponentExists is returned when appending a component type the
	// entity already holds.
	ErrComponentExists = errors.New("scenecs: component already present")
	// ErrNilEntity is returned by operations given a null entity handle.
	ErrNilEntity = errors.New("scenecs: nil entity")
	// ErrAlreadyInScene is returned when adding an entity that a scene is
	// already tracking.
	ErrAlreadyInScene = errors.New("scenecs: entity already tracked by a scene")
)
