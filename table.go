package scenecs

import (
	"fmt"
	"slices"
	"unsafe"
)

// slot is one stored component: its key, its operations and a pointer to the
// heap storage created by ops.New.
type slot struct {
	ops *TypeOperations
	ptr unsafe.Pointer
	key TypeKey
}

// ComponentTable is the per-entity heterogeneous component store. Slots are
// kept sorted by TypeKey and a presence mask over type ordinals answers most
// negative lookups without searching. At most one value of each type is
// stored.
//
// A ComponentTable is not safe for concurrent mutation.
type ComponentTable struct {
	slots []slot
	mask  bitmask256
}

// Len returns the number of stored components.
func (t *ComponentTable) Len() int {
	return len(t.slots)
}

// Keys returns the keys of the stored components in ascending order.
func (t *ComponentTable) Keys() []TypeKey {
	keys := make([]TypeKey, len(t.slots))
	for i, s := range t.slots {
		keys[i] = s.key
	}
	return keys
}

// Has reports whether a component with the given key is stored.
func (t *ComponentTable) Has(key TypeKey) bool {
	_, ok := t.search(key)
	return ok
}

// search finds the slot index for key, or its insertion point.
func (t *ComponentTable) search(key TypeKey) (int, bool) {
	return slices.BinarySearchFunc(t.slots, key, func(s slot, k TypeKey) int {
		switch {
		case s.key < k:
			return -1
		case s.key > k:
			return 1
		}
		return 0
	})
}

// lookup returns the storage for ops, or nil.
func (t *ComponentTable) lookup(ops *TypeOperations) unsafe.Pointer {
	if !t.mask.mayContain(ops.ordinal) {
		return nil
	}
	i, ok := t.search(ops.Key)
	if !ok {
		return nil
	}
	return t.slots[i].ptr
}

// insert places already initialized storage into the table. It refuses to
// overwrite a present component.
func (t *ComponentTable) insert(ops *TypeOperations, ptr unsafe.Pointer) error {
	i, ok := t.search(ops.Key)
	if ok {
		return fmt.Errorf("%w: %s", ErrComponentExists, ops.Name)
	}
	t.slots = slices.Insert(t.slots, i, slot{ops: ops, ptr: ptr, key: ops.Key})
	t.mask.set(ops.ordinal)
	ops.noteInstantiated()
	return nil
}

// remove destroys and drops the component for ops. It reports whether one
// was present.
func (t *ComponentTable) remove(ops *TypeOperations) bool {
	if !t.mask.mayContain(ops.ordinal) {
		return false
	}
	i, ok := t.search(ops.Key)
	if !ok {
		return false
	}
	s := t.slots[i]
	t.slots = slices.Delete(t.slots, i, i+1)
	t.mask.unset(ops.ordinal)
	s.ops.Destroy(s.ptr)
	return true
}

// RemoveAll destroys every stored component.
func (t *ComponentTable) RemoveAll() {
	slots := t.slots
	t.slots = t.slots[:0]
	t.mask.reset()
	for i := range slots {
		slots[i].ops.Destroy(slots[i].ptr)
		slots[i] = slot{}
	}
}

// ReserveForMore pre-sizes the table for the given forthcoming component
// types. Keys already present are ignored. It never changes observable
// contents.
func (t *ComponentTable) ReserveForMore(keys ...TypeKey) {
	missing := 0
	for _, k := range keys {
		if _, ok := t.search(k); !ok {
			missing++
		}
	}
	if missing > 0 {
		t.slots = reserve(t.slots, missing)
	}
}

// CopyFrom copies every component of src into t. If any type of src is
// already present in t nothing is copied and ErrComponentExists is returned.
func (t *ComponentTable) CopyFrom(src *ComponentTable) error {
	if err := t.checkDisjoint(src); err != nil {
		return err
	}
	t.slots = reserve(t.slots, len(src.slots))
	for _, s := range src.slots {
		ptr := s.ops.New()
		s.ops.Copy(ptr, s.ptr)
		if err := t.insert(s.ops, ptr); err != nil {
			return err
		}
	}
	return nil
}

// MoveFrom relocates every component of src into t and leaves src empty.
// Moved values do not run their Destroy hook. If any type of src is already
// present in t nothing is moved and ErrComponentExists is returned.
func (t *ComponentTable) MoveFrom(src *ComponentTable) error {
	if err := t.checkDisjoint(src); err != nil {
		return err
	}
	t.slots = reserve(t.slots, len(src.slots))
	for i, s := range src.slots {
		ptr := s.ops.New()
		s.ops.Move(ptr, s.ptr)
		if err := t.insert(s.ops, ptr); err != nil {
			return err
		}
		src.slots[i] = slot{}
	}
	src.slots = src.slots[:0]
	src.mask.reset()
	return nil
}

func (t *ComponentTable) checkDisjoint(src *ComponentTable) error {
	if t == src {
		return fmt.Errorf("%w: table copied onto itself", ErrComponentExists)
	}
	for _, s := range src.slots {
		if _, ok := t.search(s.key); ok {
			return fmt.Errorf("%w: %s", ErrComponentExists, s.ops.Name)
		}
	}
	return nil
}

// AppendTo stores v in t. It fails with ErrComponentExists, leaving the
// present value untouched, when t already holds a T.
func AppendTo[T any](t *ComponentTable, v T) (*T, error) {
	ops := OperationsFor[T]()
	if p := t.lookup(ops); p != nil {
		return nil, fmt.Errorf("%w: %s", ErrComponentExists, ops.Name)
	}
	p := (*T)(ops.New())
	*p = v
	if err := t.insert(ops, unsafe.Pointer(p)); err != nil {
		return nil, err
	}
	return p, nil
}

// SetIn stores v in t, replacing (and destroying) any present T.
func SetIn[T any](t *ComponentTable, v T) *T {
	ops := OperationsFor[T]()
	if p := t.lookup(ops); p != nil {
		ops.Destroy(p)
		*(*T)(p) = v
		return (*T)(p)
	}
	p := (*T)(ops.New())
	*p = v
	if err := t.insert(ops, unsafe.Pointer(p)); err != nil {
		panic(err)
	}
	return p
}

// GetFrom returns the stored T, or nil.
func GetFrom[T any](t *ComponentTable) *T {
	return (*T)(t.lookup(OperationsFor[T]()))
}

// RemoveFrom destroys the stored T. It reports whether one was present.
func RemoveFrom[T any](t *ComponentTable) bool {
	return t.remove(OperationsFor[T]())
}
