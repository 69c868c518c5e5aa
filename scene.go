package scenecs

import (
	"cmp"
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"
)

// Scene manages entity membership. Creations and deletion requests are
// staged and only applied by UpdateEntities, so the active set never changes
// while a caller iterates over it.
//
// Entity lifecycle with respect to a scene:
//
//	new --UpdateEntities--> active --RequestDeletion--> pending removal --UpdateEntities--> removed
//
// Pending-removal entities stay iterable until the update. A removed entity's
// body lives on for as long as outside handles retain it.
//
// Scene performs no locking. UpdateEntities must not run concurrently with
// iteration or with other calls on the same scene.
type Scene struct {
	newEntities []Entity // staged creations, unsorted
	active      []Entity // sorted by ID, no duplicates
	toRemove    []Entity // staged deletion requests, unsorted
	log         *zap.Logger
	bus         *EventBus
	updates     uint64
}

// SceneOption configures a Scene.
type SceneOption func(*Scene)

// WithLogger sets the logger used for update summaries and rejected
// deletion requests.
func WithLogger(log *zap.Logger) SceneOption {
	return func(s *Scene) {
		if log != nil {
			s.log = log
		}
	}
}

// WithEventBus makes the scene publish EntityCreated and EntityRemoved.
func WithEventBus(bus *EventBus) SceneOption {
	return func(s *Scene) {
		s.bus = bus
	}
}

// WithCapacity preallocates the buffers for n active entities.
func WithCapacity(n int) SceneOption {
	return func(s *Scene) {
		s.active = make([]Entity, 0, n)
		s.newEntities = make([]Entity, 0, n/4+1)
		s.toRemove = make([]Entity, 0, n/4+1)
	}
}

// NewScene creates an empty scene.
func NewScene(opts ...SceneOption) *Scene {
	s := &Scene{log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MakeEntity creates an empty entity homed in s. It becomes active at the
// next UpdateEntities. The returned handle is the caller's to release; the
// scene keeps its own.
func (s *Scene) MakeEntity() Entity {
	e := NewScenelessEntity()
	e.SetHomeScene(s)
	s.OnCreate(e)
	return e
}

// AddEntity adopts e, typically a sceneless entity, into s. It becomes active
// at the next UpdateEntities. The scene takes its own handle; the caller keeps
// e.
//
// Parameters:
//   - e: The entity to adopt. It may come from another scene once that scene
//     has removed it.
//
// Returns:
//   - ErrNilEntity for a null handle.
//   - ErrAlreadyInScene when any scene still has e active or staged.
func (s *Scene) AddEntity(e Entity) error {
	if e.IsNil() {
		return ErrNilEntity
	}
	if home := e.HomeScene(); home != nil && home.tracks(e) {
		return fmt.Errorf("%w: %v", ErrAlreadyInScene, e)
	}
	e.SetHomeScene(s)
	s.OnCreate(e)
	return nil
}

// OnCreate stages e for activation. Part of HomeScene.
func (s *Scene) OnCreate(e Entity) {
	s.newEntities = append(s.newEntities, e.Clone())
}

// OnDeletionRequest stages e for removal. Part of HomeScene. Only active
// entities can be removed; anything else fails with ErrNotInScene and leaves
// the buffers untouched. Repeated requests for one entity within a cycle are
// collapsed by UpdateEntities.
func (s *Scene) OnDeletionRequest(e Entity) error {
	if _, ok := s.findActive(e.ID()); !ok {
		s.log.Warn("deletion requested for entity outside the active set",
			zap.Uint64("entity", e.ID()))
		return fmt.Errorf("%w: %v (home set wrong?)", ErrNotInScene, e)
	}
	s.toRemove = append(s.toRemove, e.Clone())
	return nil
}

// UpdateEntities applies staged changes: pending removals leave the active
// set and new entities join it, keeping it sorted by ID.
func (s *Scene) UpdateEntities() {
	s.updates++
	removed := s.applyRemovals()
	created := s.applyCreations()
	if removed > 0 || created > 0 {
		s.log.Debug("scene updated",
			zap.Uint64("update", s.updates),
			zap.Int("created", created),
			zap.Int("removed", removed),
			zap.Int("active", len(s.active)))
	}
}

// applyRemovals merges the sorted removal list against the sorted active set,
// tombstones matches and compacts.
func (s *Scene) applyRemovals() int {
	if len(s.toRemove) == 0 {
		return 0
	}
	sortEntities(s.active)
	sortEntities(s.toRemove)

	removed := 0
	i := 0
	var last uint64
	for _, r := range s.toRemove {
		id := r.ID()
		if removed > 0 && id == last {
			continue
		}
		for i < len(s.active) && s.active[i].ID() < id {
			i++
		}
		if i == len(s.active) || s.active[i].ID() != id {
			panic(fmt.Sprintf("scenecs: staged removal of %v missing from the active set", r))
		}
		Publish(s.bus, EntityRemoved{Scene: s, Entity: s.active[i]})
		s.active[i].Release()
		last = id
		removed++
		i++
	}
	for k := range s.toRemove {
		s.toRemove[k].Release()
	}
	s.toRemove = s.toRemove[:0]
	s.active = slices.DeleteFunc(s.active, Entity.IsNil)
	return removed
}

// applyCreations merges the staged entities into the active set in place,
// back to front, so the whole step is linear after sorting the new batch.
func (s *Scene) applyCreations() int {
	n := len(s.newEntities)
	if n == 0 {
		return 0
	}
	sortEntities(s.newEntities)

	a := len(s.active)
	s.active = slices.Grow(s.active, n)[:a+n]
	i, j, k := a-1, n-1, a+n-1
	for j >= 0 {
		if i >= 0 && s.active[i].ID() > s.newEntities[j].ID() {
			s.active[k] = s.active[i]
			i--
		} else {
			s.active[k] = s.newEntities[j]
			j--
		}
		k--
	}
	if HasSubscribers[EntityCreated](s.bus) {
		for _, e := range s.newEntities {
			Publish(s.bus, EntityCreated{Scene: s, Entity: e})
		}
	}
	clear(s.newEntities)
	s.newEntities = s.newEntities[:0]
	return n
}

// Count returns the number of active entities.
func (s *Scene) Count() int {
	return len(s.active)
}

// Pending returns the number of staged creations and deletion requests.
func (s *Scene) Pending() (created, removed int) {
	return len(s.newEntities), len(s.toRemove)
}

// Active iterates over the active entities in ID order. Yielded entities are
// borrowed; Clone one to keep it.
func (s *Scene) Active() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, e := range s.active {
			if !yield(e) {
				return
			}
		}
	}
}

// Entities returns the active set in ID order. The slice is owned by the
// scene and is only valid until the next UpdateEntities.
func (s *Scene) Entities() []Entity {
	return s.active
}

// Contains reports whether e is in the active set.
func (s *Scene) Contains(e Entity) bool {
	_, ok := s.findActive(e.ID())
	return ok
}

// Close releases every handle the scene holds, staged or active.
func (s *Scene) Close() {
	for _, buf := range [][]Entity{s.newEntities, s.active, s.toRemove} {
		for i := range buf {
			buf[i].Release()
		}
	}
	s.newEntities = s.newEntities[:0]
	s.active = s.active[:0]
	s.toRemove = s.toRemove[:0]
}

// tracks reports whether e is active or staged for activation in s.
func (s *Scene) tracks(e Entity) bool {
	if s.Contains(e) {
		return true
	}
	return slices.ContainsFunc(s.newEntities, e.Equal)
}

func (s *Scene) findActive(id uint64) (int, bool) {
	if id == 0 {
		return 0, false
	}
	return slices.BinarySearchFunc(s.active, id, func(e Entity, id uint64) int {
		return cmp.Compare(e.ID(), id)
	})
}

func sortEntities(es []Entity) {
	if slices.IsSortedFunc(es, compareEntities) {
		return
	}
	slices.SortFunc(es, compareEntities)
}

func compareEntities(a, b Entity) int {
	return cmp.Compare(a.ID(), b.ID())
}

// Each calls fn for every active entity holding a T.
func Each[T any](s *Scene, fn func(Entity, *T)) {
	ops := OperationsFor[T]()
	for _, e := range s.active {
		if p := e.ptr.Get().table.lookup(ops); p != nil {
			fn(e, (*T)(p))
		}
	}
}

// Each2 calls fn for every active entity holding both an A and a B.
func Each2[A, B any](s *Scene, fn func(Entity, *A, *B)) {
	opsA, opsB := OperationsFor[A](), OperationsFor[B]()
	for _, e := range s.active {
		t := &e.ptr.Get().table
		pa := t.lookup(opsA)
		if pa == nil {
			continue
		}
		if pb := t.lookup(opsB); pb != nil {
			fn(e, (*A)(pa), (*B)(pb))
		}
	}
}
