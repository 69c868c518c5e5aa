package scenecs

import (
	"fmt"
	"testing"
)

func BenchmarkEventBusPublishNoHandlers(b *testing.B) {
	bus := &EventBus{}
	event := TestEvent{Value: 42}
	b.ReportAllocs()
	for b.Loop() {
		Publish(bus, event)
	}
}

func BenchmarkEventBusPublishOneHandler(b *testing.B) {
	bus := &EventBus{}
	Subscribe(bus, func(e TestEvent) {})
	event := TestEvent{Value: 42}
	b.ReportAllocs()
	for b.Loop() {
		Publish(bus, event)
	}
}

func BenchmarkEventBusPublishManyHandlers(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprint(size), func(b *testing.B) {
			bus := &EventBus{}
			for range size {
				Subscribe(bus, func(e TestEvent) {})
			}
			event := TestEvent{Value: 42}
			b.ReportAllocs()
			for b.Loop() {
				Publish(bus, event)
			}
		})
	}
}

// BenchmarkSceneUpdateWithEvents measures the cost lifecycle events add to
// UpdateEntities.
func BenchmarkSceneUpdateWithEvents(b *testing.B) {
	for _, size := range benchSizes() {
		b.Run(sizeName(size), func(b *testing.B) {
			bus := &EventBus{}
			created, removed := 0, 0
			Subscribe(bus, func(EntityCreated) { created++ })
			Subscribe(bus, func(EntityRemoved) { removed++ })
			b.ReportAllocs()
			for b.Loop() {
				s := NewScene(WithEventBus(bus), WithCapacity(size))
				for range size {
					e := s.MakeEntity()
					e.Release()
				}
				s.UpdateEntities()
				for _, e := range s.Entities() {
					_ = e.RequestDeletion()
				}
				s.UpdateEntities()
				s.Close()
			}
			if created != removed {
				b.Fatalf("unbalanced events: %d created, %d removed", created, removed)
			}
		})
	}
}
