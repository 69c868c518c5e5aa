package scenecs

// Append adds v to e. It fails with ErrComponentExists when e already holds a
// T; the present value is not touched. Use Set to replace.
//
// Parameters:
//   - e: The entity to modify.
//   - v: The component value, copied into the entity's table.
//
// Returns:
//   - A pointer to the stored component, valid until it is removed.
//   - ErrNilEntity or ErrComponentExists on failure.
func Append[T any](e Entity, v T) (*T, error) {
	b := e.ptr.Get()
	if b == nil {
		return nil, ErrNilEntity
	}
	return AppendTo(&b.table, v)
}

// Set stores v in e, replacing any present T. A replaced value runs its
// Destroy hook first.
func Set[T any](e Entity, v T) *T {
	return SetIn(&e.mustBody().table, v)
}

// Get returns e's T, or nil when absent or e is null.
func Get[T any](e Entity) *T {
	b := e.ptr.Get()
	if b == nil {
		return nil
	}
	return GetFrom[T](&b.table)
}

// Has reports whether e holds a T.
func Has[T any](e Entity) bool {
	return Get[T](e) != nil
}

// Remove destroys e's T if present and reports whether it was.
func Remove[T any](e Entity) bool {
	b := e.ptr.Get()
	if b == nil {
		return false
	}
	return RemoveFrom[T](&b.table)
}

// GetConst returns a copy of c's T and whether it was present.
func GetConst[T any](c ConstEntity) (T, bool) {
	var zero T
	b := c.ptr.Get()
	if b == nil {
		return zero, false
	}
	p := GetFrom[T](&b.table)
	if p == nil {
		return zero, false
	}
	return *p, true
}

// HasConst reports whether c holds a T.
func HasConst[T any](c ConstEntity) bool {
	b := c.ptr.Get()
	return b != nil && GetFrom[T](&b.table) != nil
}

// Ptr2 looks up two component types at once. Absent components are nil.
func Ptr2[A, B any](e Entity) (*A, *B) {
	b := e.ptr.Get()
	if b == nil {
		return nil, nil
	}
	return GetFrom[A](&b.table), GetFrom[B](&b.table)
}

// Ptr3 looks up three component types at once. Absent components are nil.
func Ptr3[A, B, C any](e Entity) (*A, *B, *C) {
	b := e.ptr.Get()
	if b == nil {
		return nil, nil, nil
	}
	return GetFrom[A](&b.table), GetFrom[B](&b.table), GetFrom[C](&b.table)
}

// Ptr4 looks up four component types at once. Absent components are nil.
func Ptr4[A, B, C, D any](e Entity) (*A, *B, *C, *D) {
	b := e.ptr.Get()
	if b == nil {
		return nil, nil, nil, nil
	}
	t := &b.table
	return GetFrom[A](t), GetFrom[B](t), GetFrom[C](t), GetFrom[D](t)
}
