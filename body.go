package scenecs

import (
	"fmt"
	"sync/atomic"
	"unsafe"
	"weak"
)

var nextBodyID atomic.Uint64

// HomeScene receives the structural notifications of the entities it hosts.
// Scene is the implementation used by entities added to a scene; entities
// without one route to a null object that accepts creations silently and
// rejects deletion requests.
type HomeScene interface {
	// OnCreate records a freshly made entity.
	OnCreate(e Entity)
	// OnDeletionRequest records a deletion request or fails with
	// ErrNotInScene.
	OnDeletionRequest(e Entity) error
}

// noScene is the home of sceneless entities.
type noScene struct{}

func (noScene) OnCreate(Entity) {}

func (noScene) OnDeletionRequest(e Entity) error {
	return fmt.Errorf("%w: %v has no home scene (home set wrong?)", ErrNotInScene, e)
}

// Body is the heap object an Entity owns: the component table plus a weak
// back-reference to the home scene. Client types may embed Body as their
// first field to make leaf bodies (see NewLeafEntity).
type Body struct {
	table ComponentTable
	home  weak.Pointer[Scene]
	id    uint64
}

// base gives the Leaf constraint access to the embedded Body.
func (b *Body) base() *Body {
	return b
}

// ID returns the identity of the body. IDs are never reused.
func (b *Body) ID() uint64 {
	return b.id
}

// Table returns the component table.
func (b *Body) Table() *ComponentTable {
	return &b.table
}

// homeScene resolves the back-reference, falling back to noScene when the
// body was never homed or its scene has been collected.
func (b *Body) homeScene() HomeScene {
	if s := b.home.Value(); s != nil {
		return s
	}
	return noScene{}
}

func (b *Body) setHome(s *Scene) {
	if s == nil {
		b.home = weak.Pointer[Scene]{}
		return
	}
	b.home = weak.Make(s)
}

// destroy runs when the last strong handle is released.
func (b *Body) destroy() {
	b.table.RemoveAll()
}

// Leaf is satisfied by pointers to client structs that embed Body.
type Leaf[L any] interface {
	*L
	base() *Body
}

// NewLeafEntity creates a sceneless entity whose body is a new L. L must
// embed Body as its first field; init, if non-nil, runs before the entity is
// returned. The body is tagged with TagOf[L] so GetBody[L] can recover it.
func NewLeafEntity[L any, P Leaf[L]](init func(P)) Entity {
	leaf := P(new(L))
	b := leaf.base()
	if unsafe.Pointer(b) != unsafe.Pointer(leaf) {
		panic(fmt.Sprintf("scenecs: %T must embed Body as its first field", leaf))
	}
	if init != nil {
		init(leaf)
	}
	return newEntity(b, TagOf[L]())
}

// downcastBody converts a body to its leaf type after checking the tag.
func downcastBody[L any](b *Body, tag SafetyTag) *L {
	if b == nil || tag != TagOf[L]() {
		return nil
	}
	return reinterpret[L](b)
}

func newEntity(b *Body, tag SafetyTag) Entity {
	b.id = nextBodyID.Add(1)
	return Entity{ptr: NewShared(b, tag, (*Body).destroy)}
}
