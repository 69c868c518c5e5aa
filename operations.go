package scenecs

import (
	"reflect"
	"sync/atomic"
	"unsafe"
)

// Destroyer is implemented by components that own resources which must be
// released when the component leaves its table (Remove, RemoveAll, or the
// death of the entity body).
type Destroyer interface {
	Destroy()
}

// Cloner is implemented by components that need a deep copy when an entity
// is cloned through MakeEntity. Without it a plain value copy is made.
type Cloner[T any] interface {
	Clone() T
}

// TypeOperations is the type-erased function table for one component type.
// It lets a ComponentTable create, relocate, copy and destroy values of
// arbitrary types without a common base type. Instances are process-wide
// singletons created on first use and never freed.
type TypeOperations struct {
	// Type is the reflected Go type.
	Type reflect.Type
	// Name is the printable type name reported to the type-addition hook.
	Name string
	// Size and Align describe the storage of one value.
	Size  uintptr
	Align uintptr
	// Key is the process-wide TypeKey.
	Key TypeKey

	// New allocates zeroed storage for one value.
	New func() unsafe.Pointer
	// Move relocates the value at src into dst and leaves src zeroed without
	// running its Destroy hook.
	Move func(dst, src unsafe.Pointer)
	// Copy writes a copy of src into dst, using Cloner when implemented.
	Copy func(dst, src unsafe.Pointer)
	// Destroy runs the Destroyer hook, if any, then zeroes obj.
	Destroy func(obj unsafe.Pointer)

	ordinal  uint32
	reported atomic.Bool
}

// OperationsFor returns the operations singleton for T, creating it on first
// call. Safe for concurrent use.
func OperationsFor[T any]() *TypeOperations {
	t := reflect.TypeFor[T]()
	if ops, ok := lookupOperations(t); ok {
		return ops
	}
	typeRegistry.mu.Lock()
	defer typeRegistry.mu.Unlock()
	if ops, ok := lookupOperations(t); ok {
		return ops
	}
	ops := buildOperations[T](t)
	typeRegistry.byType.Store(t, ops)
	return ops
}

// buildOperations fills the function table for T. Caller holds
// typeRegistry.mu.
func buildOperations[T any](t reflect.Type) *TypeOperations {
	_, destroyable := any((*T)(nil)).(Destroyer)
	_, clonable := any((*T)(nil)).(Cloner[T])
	ops := &TypeOperations{
		Type:    t,
		Name:    t.String(),
		Size:    t.Size(),
		Align:   uintptr(t.Align()),
		Key:     assignKey[T](),
		ordinal: typeRegistry.nextOrdinal,
	}
	typeRegistry.nextOrdinal++

	ops.New = func() unsafe.Pointer {
		return unsafe.Pointer(new(T))
	}
	ops.Move = func(dst, src unsafe.Pointer) {
		var zero T
		*(*T)(dst) = *(*T)(src)
		*(*T)(src) = zero
	}
	if clonable {
		ops.Copy = func(dst, src unsafe.Pointer) {
			*(*T)(dst) = any((*T)(src)).(Cloner[T]).Clone()
		}
	} else {
		ops.Copy = func(dst, src unsafe.Pointer) {
			*(*T)(dst) = *(*T)(src)
		}
	}
	if destroyable {
		ops.Destroy = func(obj unsafe.Pointer) {
			var zero T
			any((*T)(obj)).(Destroyer).Destroy()
			*(*T)(obj) = zero
		}
	} else {
		ops.Destroy = func(obj unsafe.Pointer) {
			var zero T
			*(*T)(obj) = zero
		}
	}
	return ops
}

// typeReporter is the installed type-addition hook.
type typeReporter struct {
	fn       func(name string, userData any)
	userData any
}

var reporter atomic.Pointer[typeReporter]

// SetTypeAdditionReporter installs a hook called at most once per component
// type, the first time a value of that type is placed in any table. It is
// meant to be set once at startup; types instantiated before the hook is set
// are not reported retroactively. Passing a nil fn disables reporting.
func SetTypeAdditionReporter(fn func(name string, userData any), userData any) {
	if fn == nil {
		reporter.Store(nil)
		return
	}
	reporter.Store(&typeReporter{fn: fn, userData: userData})
}

// noteInstantiated fires the type-addition hook the first time it is called
// for ops.
func (ops *TypeOperations) noteInstantiated() {
	if ops.reported.Load() || !ops.reported.CompareAndSwap(false, true) {
		return
	}
	if r := reporter.Load(); r != nil {
		r.fn(ops.Name, r.userData)
	}
}
