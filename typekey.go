package scenecs

import (
	"reflect"
	"sync"
)

// TypeKey identifies a component type for the lifetime of the process. Two
// distinct types never share a key unless both pick the same preferred key.
type TypeKey uint64

// autoKeyBase is the first automatically assigned key. Manual keys are
// expected to stay below it.
const autoKeyBase TypeKey = 1 << 63

// PreferredKeyer is implemented by component types that want a stable,
// developer-chosen TypeKey instead of an automatically assigned one. The
// method is called on the zero value, so it must not depend on field values.
//
// Two different types returning the same key is undefined behaviour and is
// not detected.
type PreferredKeyer interface {
	PreferredTypeKey() TypeKey
}

// typeRegistry maps a reflect.Type to its operations singleton. Reads go
// through the sync.Map; the mutex serializes first-use registration so key
// and ordinal assignment stay dense and race free.
var typeRegistry struct {
	mu          sync.Mutex
	byType      sync.Map // reflect.Type -> *TypeOperations
	nextAuto    TypeKey
	nextOrdinal uint32
}

// KeyFor returns the TypeKey of T. Calling it twice for the same T returns the
// same value.
func KeyFor[T any]() TypeKey {
	return OperationsFor[T]().Key
}

// assignKey picks the key for a type being registered. Caller holds
// typeRegistry.mu.
func assignKey[T any]() TypeKey {
	var zero T
	if pk, ok := any(zero).(PreferredKeyer); ok {
		return pk.PreferredTypeKey()
	}
	if pk, ok := any(&zero).(PreferredKeyer); ok {
		return pk.PreferredTypeKey()
	}
	k := autoKeyBase + typeRegistry.nextAuto
	typeRegistry.nextAuto++
	return k
}

// lookupOperations is the lock-free fast path.
func lookupOperations(t reflect.Type) (*TypeOperations, bool) {
	if v, ok := typeRegistry.byType.Load(t); ok {
		return v.(*TypeOperations), true
	}
	return nil, false
}
