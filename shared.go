package scenecs

import (
	"sync/atomic"
	"unsafe"
)

// SafetyTag guards the one unchecked conversion in the package: a Shared
// handle may be reinterpreted as another pointer type only when the tag
// recorded at construction matches the tag expected for the target type.
type SafetyTag TypeKey

// TagOf returns the safety tag for type L.
func TagOf[L any]() SafetyTag {
	return SafetyTag(KeyFor[L]())
}

var (
	liveBlocks  atomic.Int64
	nextBlockID atomic.Uint64
)

// LiveBlocks reports how many control blocks are still reachable through a
// strong or weak handle. Leak tests compare it before and after a scenario.
func LiveBlocks() int64 {
	return liveBlocks.Load()
}

// controlBlock carries the reference counts shared by every Shared and Weak
// handle to one payload. Owners collectively hold one observer count, so the
// block retires exactly once: when the last observer, strong or weak, goes.
type controlBlock struct {
	owners    atomic.Int32
	observers atomic.Int32
	destroy   func()
	id        uint64
	tag       SafetyTag
}

func newControlBlock(tag SafetyTag, destroy func()) *controlBlock {
	b := &controlBlock{tag: tag, destroy: destroy, id: nextBlockID.Add(1)}
	b.owners.Store(1)
	b.observers.Store(1)
	liveBlocks.Add(1)
	return b
}

func (b *controlBlock) retainOwner() {
	if b.owners.Add(1) <= 1 {
		panic("scenecs: retain of a released handle")
	}
}

// tryRetainOwner refuses to resurrect a payload whose owner count already
// reached zero.
func (b *controlBlock) tryRetainOwner() bool {
	for {
		n := b.owners.Load()
		if n == 0 {
			return false
		}
		if b.owners.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (b *controlBlock) releaseOwner() {
	switch n := b.owners.Add(-1); {
	case n == 0:
		if b.destroy != nil {
			b.destroy()
			b.destroy = nil
		}
		b.releaseObserver()
	case n < 0:
		panic("scenecs: handle released twice")
	}
}

func (b *controlBlock) retainObserver() {
	b.observers.Add(1)
}

func (b *controlBlock) releaseObserver() {
	switch n := b.observers.Add(-1); {
	case n == 0:
		liveBlocks.Add(-1)
	case n < 0:
		panic("scenecs: weak handle released twice")
	}
}

// Shared is a strong, reference-counted handle. The zero value is a null
// handle. Copying a Shared value does not retain it: use Clone for a second
// owner and Release exactly once per owner.
type Shared[T any] struct {
	blk *controlBlock
	ptr *T
}

// NewShared wraps v in a new control block with one owner. destroy, if
// non-nil, runs when the last owner releases.
func NewShared[T any](v *T, tag SafetyTag, destroy func(*T)) Shared[T] {
	var fn func()
	if destroy != nil {
		fn = func() { destroy(v) }
	}
	return Shared[T]{blk: newControlBlock(tag, fn), ptr: v}
}

// Get returns the payload, or nil for a null handle.
func (s Shared[T]) Get() *T {
	return s.ptr
}

// IsNil reports whether s is a null handle.
func (s Shared[T]) IsNil() bool {
	return s.blk == nil
}

// Tag returns the safety tag recorded at construction.
func (s Shared[T]) Tag() SafetyTag {
	if s.blk == nil {
		return 0
	}
	return s.blk.tag
}

// UseCount returns the current number of owners.
func (s Shared[T]) UseCount() int {
	if s.blk == nil {
		return 0
	}
	return int(s.blk.owners.Load())
}

// Clone returns a new owner of the same payload.
func (s Shared[T]) Clone() Shared[T] {
	if s.blk != nil {
		s.blk.retainOwner()
	}
	return s
}

// Release drops this owner and nulls the handle. Releasing a null handle is a
// no-op.
func (s *Shared[T]) Release() {
	if s.blk == nil {
		return
	}
	blk := s.blk
	*s = Shared[T]{}
	blk.releaseOwner()
}

// Weak returns a new observer of the payload.
func (s Shared[T]) Weak() Weak[T] {
	if s.blk == nil {
		return Weak[T]{}
	}
	s.blk.retainObserver()
	return Weak[T]{blk: s.blk, ptr: s.ptr}
}

// CastShared reinterprets s through downcast, which receives the payload and
// the block's safety tag and returns nil when the tag does not belong to U.
// On success the result is a new owner sharing s's control block; s is left
// untouched. On mismatch the result is a null handle.
func CastShared[U, T any](s Shared[T], downcast func(*T, SafetyTag) *U) Shared[U] {
	if s.blk == nil {
		return Shared[U]{}
	}
	u := downcast(s.ptr, s.blk.tag)
	if u == nil {
		return Shared[U]{}
	}
	s.blk.retainOwner()
	return Shared[U]{blk: s.blk, ptr: u}
}

// Weak is a non-owning handle that can detect when its payload has been
// destroyed. The zero value is never resolvable.
type Weak[T any] struct {
	blk *controlBlock
	ptr *T
}

// Lock upgrades w to a strong handle. It fails when w is null or the payload
// has already been destroyed, and is safe against a concurrent final Release.
func (w Weak[T]) Lock() (Shared[T], bool) {
	if w.blk == nil || !w.blk.tryRetainOwner() {
		return Shared[T]{}, false
	}
	return Shared[T]{blk: w.blk, ptr: w.ptr}, true
}

// Expired reports whether the payload is gone or w was never bound.
func (w Weak[T]) Expired() bool {
	return w.blk == nil || w.blk.owners.Load() == 0
}

// IsNil reports whether w was never bound or has been released.
func (w Weak[T]) IsNil() bool {
	return w.blk == nil
}

// ID identifies the control block. Unlike an address it is never reused.
func (w Weak[T]) ID() uint64 {
	if w.blk == nil {
		return 0
	}
	return w.blk.id
}

// Clone returns a second observer.
func (w Weak[T]) Clone() Weak[T] {
	if w.blk != nil {
		w.blk.retainObserver()
	}
	return w
}

// Release drops this observer and nulls the handle.
func (w *Weak[T]) Release() {
	if w.blk == nil {
		return
	}
	blk := w.blk
	*w = Weak[T]{}
	blk.releaseObserver()
}

// reinterpret is the single unchecked pointer conversion behind safety-tag
// downcasts. Callers compare tags before using it.
func reinterpret[U, T any](p *T) *U {
	return (*U)(unsafe.Pointer(p))
}
