package scenecs

// EventBus is a small synchronous, type-keyed publish/subscribe hub. A Scene
// given a bus through WithEventBus publishes EntityCreated and EntityRemoved
// while it applies staged changes in UpdateEntities.
//
// Publish does not allocate. The bus is not safe for concurrent use.
type EventBus struct {
	handlers map[TypeKey][]any
}

// EntityCreated is published when a staged entity joins the active set.
type EntityCreated struct {
	Scene  *Scene
	Entity Entity // borrowed for the duration of the handler
}

// EntityRemoved is published when an entity leaves the active set, before the
// scene drops its reference.
type EntityRemoved struct {
	Scene  *Scene
	Entity Entity // borrowed for the duration of the handler
}

// Subscribe registers handler for events of type T. Handlers run in
// subscription order.
func Subscribe[T any](bus *EventBus, handler func(T)) {
	if bus.handlers == nil {
		bus.handlers = make(map[TypeKey][]any)
	}
	k := KeyFor[T]()
	hs := bus.handlers[k]
	if cap(hs) == 0 {
		hs = make([]any, 0, 4)
	}
	bus.handlers[k] = append(hs, handler)
}

// Publish calls every handler subscribed to T with event.
func Publish[T any](bus *EventBus, event T) {
	if bus == nil || len(bus.handlers) == 0 {
		return
	}
	for _, h := range bus.handlers[KeyFor[T]()] {
		h.(func(T))(event)
	}
}

// HasSubscribers reports whether any handler listens for T.
func HasSubscribers[T any](bus *EventBus) bool {
	return bus != nil && len(bus.handlers[KeyFor[T]()]) > 0
}
