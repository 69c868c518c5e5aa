package scenecs

import "fmt"

// Entity is a strong handle to an entity body. Two entities are the same
// entity when they wrap the same body.
//
// An Entity obtained from a constructor, Clone, MakeEntity or a resolved
// EntityRef owns a reference and must be released with Release once the
// caller is done with it. Entities passed to callbacks are borrowed.
type Entity struct {
	ptr Shared[Body]
}

// NewScenelessEntity returns a new entity with an empty component table and
// no home scene.
func NewScenelessEntity() Entity {
	return newEntity(&Body{}, TagOf[Body]())
}

// IsNil reports whether e is a null handle.
func (e Entity) IsNil() bool {
	return e.ptr.IsNil()
}

// ID returns the identity hash of the entity, 0 for a null handle.
func (e Entity) ID() uint64 {
	if b := e.ptr.Get(); b != nil {
		return b.id
	}
	return 0
}

// Equal reports whether e and o wrap the same body.
func (e Entity) Equal(o Entity) bool {
	return e.ptr.Get() == o.ptr.Get()
}

// Body returns the underlying body, or nil.
func (e Entity) Body() *Body {
	return e.ptr.Get()
}

// Table returns the component table of e. It panics on a null handle.
func (e Entity) Table() *ComponentTable {
	return &e.mustBody().table
}

// Clone returns a second owning handle to the same body.
func (e Entity) Clone() Entity {
	return Entity{ptr: e.ptr.Clone()}
}

// Release drops the handle's reference. The body is destroyed, and all its
// components with it, when the last owning handle is released.
func (e *Entity) Release() {
	e.ptr.Release()
}

// Swap exchanges the bodies of e and o.
func (e *Entity) Swap(o *Entity) {
	e.ptr, o.ptr = o.ptr, e.ptr
}

// AsConstant returns a read-only owning handle to the same body. The result
// must be released separately.
func (e Entity) AsConstant() ConstEntity {
	return ConstEntity{ptr: e.ptr.Clone()}
}

// MakeEntity creates a new entity whose table is a copy of e's, homed in e's
// scene. The home scene is notified through OnCreate, so a scene-owned
// entity becomes active at the next UpdateEntities.
//
// Returns:
//   - The new entity, owned by the caller.
//   - ErrNilEntity when e is null.
func (e Entity) MakeEntity() (Entity, error) {
	b := e.ptr.Get()
	if b == nil {
		return Entity{}, ErrNilEntity
	}
	child := NewScenelessEntity()
	if err := child.Table().CopyFrom(&b.table); err != nil {
		child.Release()
		return Entity{}, fmt.Errorf("make entity from %v: %w", e, err)
	}
	cb := child.ptr.Get()
	cb.home = b.home
	cb.homeScene().OnCreate(child)
	return child, nil
}

// RequestDeletion asks the home scene to remove e at its next update. Repeated
// requests within one update cycle are collapsed.
//
// Returns:
//   - nil once the request is staged.
//   - ErrNotInScene when e is not in the active set of its home scene,
//     including sceneless entities.
//   - ErrNilEntity when e is null.
func (e Entity) RequestDeletion() error {
	b := e.ptr.Get()
	if b == nil {
		return ErrNilEntity
	}
	return b.homeScene().OnDeletionRequest(e)
}

// SetHomeScene rebinds the scene notified by MakeEntity and
// RequestDeletion. A nil scene detaches the entity.
func (e Entity) SetHomeScene(s *Scene) {
	e.mustBody().setHome(s)
}

// HomeScene returns the home scene, or nil when sceneless.
func (e Entity) HomeScene() *Scene {
	if b := e.ptr.Get(); b != nil {
		return b.home.Value()
	}
	return nil
}

// RemoveAll destroys every component of e.
func (e Entity) RemoveAll() {
	e.mustBody().table.RemoveAll()
}

// ReserveForMore pre-sizes e's table for the given component types.
func (e Entity) ReserveForMore(keys ...TypeKey) {
	e.mustBody().table.ReserveForMore(keys...)
}

// String formats e for logs as entity(<id>).
func (e Entity) String() string {
	if e.IsNil() {
		return "entity(nil)"
	}
	return fmt.Sprintf("entity(%d)", e.ID())
}

func (e Entity) mustBody() *Body {
	b := e.ptr.Get()
	if b == nil {
		panic("scenecs: use of nil entity")
	}
	return b
}

// ConstEntity is a read-only strong handle. It shares the body of the Entity
// it was made from but offers no mutation.
type ConstEntity struct {
	ptr Shared[Body]
}

// IsNil reports whether c is a null handle.
func (c ConstEntity) IsNil() bool {
	return c.ptr.IsNil()
}

// ID returns the identity hash, equal to the ID of the originating Entity.
func (c ConstEntity) ID() uint64 {
	if b := c.ptr.Get(); b != nil {
		return b.id
	}
	return 0
}

// Equal reports whether c and o wrap the same body.
func (c ConstEntity) Equal(o ConstEntity) bool {
	return c.ptr.Get() == o.ptr.Get()
}

// Is reports whether c views the body of e.
func (c ConstEntity) Is(e Entity) bool {
	return c.ptr.Get() == e.ptr.Get()
}

// Len returns the number of components.
func (c ConstEntity) Len() int {
	if b := c.ptr.Get(); b != nil {
		return b.table.Len()
	}
	return 0
}

// Clone returns a second owning read-only handle.
func (c ConstEntity) Clone() ConstEntity {
	return ConstEntity{ptr: c.ptr.Clone()}
}

// Release drops the handle's reference.
func (c *ConstEntity) Release() {
	c.ptr.Release()
}

// String formats c for logs as const-entity(<id>).
func (c ConstEntity) String() string {
	if c.IsNil() {
		return "const-entity(nil)"
	}
	return fmt.Sprintf("const-entity(%d)", c.ID())
}
