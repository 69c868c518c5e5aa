// Package scenecs implements a reference-counted Entity Component System.
//
// Features:
//   - Entities are strong handles to bodies holding a type-erased component
//     table; any Go type can be a component, no common base is required.
//   - Weak EntityRef handles detect expiry and never keep a body alive.
//   - Scenes stage creations and deletions and apply them at one explicit
//     synchronization point, so iteration is never invalidated.
//   - Reference counts are atomic: handles may be cloned, released and
//     resolved from several goroutines at once.
//
// Go has no destructors, so every owning handle (Entity, ConstEntity,
// EntityRef, Shared, Weak) is released explicitly with Release.
package scenecs
