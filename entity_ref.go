package scenecs

import "fmt"

// EntityRef is a weak handle to an entity. It never keeps the body alive and
// reports expiry once every owning handle has been released. Components that
// point at other entities should hold an EntityRef, not an Entity.
//
// An EntityRef made with NewEntityRef or Clone must be released.
type EntityRef struct {
	ptr Weak[Body]
}

// NewEntityRef returns a weak reference to e's body. A null e yields a null
// reference.
func NewEntityRef(e Entity) EntityRef {
	return EntityRef{ptr: e.ptr.Weak()}
}

// Expired reports whether the body is gone or the reference was never bound.
func (r EntityRef) Expired() bool {
	return r.ptr.Expired()
}

// Lock resolves the reference into an owning Entity, which the caller must
// release. It fails once the body has been destroyed.
func (r EntityRef) Lock() (Entity, bool) {
	s, ok := r.ptr.Lock()
	if !ok {
		return Entity{}, false
	}
	return Entity{ptr: s}, true
}

// Refers reports whether r was made from e's body. It does not resolve r.
func (r EntityRef) Refers(e Entity) bool {
	return !r.ptr.IsNil() && r.ptr.ptr == e.ptr.Get()
}

// ID hashes the reference by its control block. Two references to the same
// entity share an ID.
func (r EntityRef) ID() uint64 {
	return r.ptr.ID()
}

// Clone returns a second weak reference.
func (r EntityRef) Clone() EntityRef {
	return EntityRef{ptr: r.ptr.Clone()}
}

// Release drops the reference.
func (r *EntityRef) Release() {
	r.ptr.Release()
}

// String formats r for logs, marking expired references.
func (r EntityRef) String() string {
	switch {
	case r.ptr.IsNil():
		return "ref(nil)"
	case r.Expired():
		return fmt.Sprintf("ref(%d, expired)", r.ID())
	}
	return fmt.Sprintf("ref(%d)", r.ID())
}

// GetBody resolves r and downcasts its body to the leaf type L. The result is
// null when r has expired or the body was not created as an L; otherwise it
// is an owning handle the caller must release. GetBody[Body] accepts only
// plain bodies made by NewScenelessEntity, MakeEntity or Scene.MakeEntity.
func GetBody[L any](r EntityRef) Shared[L] {
	s, ok := r.ptr.Lock()
	if !ok {
		return Shared[L]{}
	}
	defer s.Release()
	return CastShared(s, downcastBody[L])
}

// ConstEntityRef is the weak counterpart of ConstEntity.
type ConstEntityRef struct {
	ptr Weak[Body]
}

// NewConstEntityRef returns a weak reference to c's body.
func NewConstEntityRef(c ConstEntity) ConstEntityRef {
	return ConstEntityRef{ptr: c.ptr.Weak()}
}

// Expired reports whether the body is gone or the reference was never bound.
func (r ConstEntityRef) Expired() bool {
	return r.ptr.Expired()
}

// Lock resolves the reference into an owning ConstEntity.
func (r ConstEntityRef) Lock() (ConstEntity, bool) {
	s, ok := r.ptr.Lock()
	if !ok {
		return ConstEntity{}, false
	}
	return ConstEntity{ptr: s}, true
}

// ID hashes the reference by its control block.
func (r ConstEntityRef) ID() uint64 {
	return r.ptr.ID()
}

// Clone returns a second weak reference.
func (r ConstEntityRef) Clone() ConstEntityRef {
	return ConstEntityRef{ptr: r.ptr.Clone()}
}

// Release drops the reference.
func (r *ConstEntityRef) Release() {
	r.ptr.Release()
}

// GetConstBody is GetBody for read-only references.
func GetConstBody[L any](r ConstEntityRef) Shared[L] {
	s, ok := r.ptr.Lock()
	if !ok {
		return Shared[L]{}
	}
	defer s.Release()
	return CastShared(s, downcastBody[L])
}
