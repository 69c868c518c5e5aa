package scenecs

import (
	"fmt"
	"testing"
)

func benchSizes() []int {
	return []int{1000, 10000, 100000}
}

func sizeName(size int) string {
	return fmt.Sprintf("%dK", size/1000)
}

func BenchmarkSceneMakeAndUpdate(b *testing.B) {
	for _, size := range benchSizes() {
		b.Run(sizeName(size), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				s := NewScene(WithCapacity(size))
				for range size {
					e := s.MakeEntity()
					e.Release()
				}
				s.UpdateEntities()
				s.Close()
			}
		})
	}
}

func BenchmarkSceneRemoveHalf(b *testing.B) {
	for _, size := range benchSizes() {
		b.Run(sizeName(size), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				b.StopTimer()
				s := NewScene(WithCapacity(size))
				for range size {
					e := s.MakeEntity()
					e.Release()
				}
				s.UpdateEntities()
				b.StartTimer()
				for i, e := range s.Entities() {
					if i%2 == 0 {
						_ = e.RequestDeletion()
					}
				}
				s.UpdateEntities()
				b.StopTimer()
				s.Close()
				b.StartTimer()
			}
		})
	}
}

func BenchmarkEach2(b *testing.B) {
	for _, size := range benchSizes() {
		b.Run(sizeName(size), func(b *testing.B) {
			s := NewScene(WithCapacity(size))
			for range size {
				e := s.MakeEntity()
				Append(e, Position{})
				Append(e, Velocity{VX: 1, VY: 1})
				e.Release()
			}
			s.UpdateEntities()
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				Each2(s, func(_ Entity, p *Position, v *Velocity) {
					p.X += v.VX
					p.Y += v.VY
				})
			}
			b.StopTimer()
			s.Close()
		})
	}
}

func BenchmarkGetComponent(b *testing.B) {
	e := NewScenelessEntity()
	defer e.Release()
	Append(e, Position{})
	Append(e, Velocity{})
	Append(e, Health{})
	b.ReportAllocs()
	for b.Loop() {
		p := Get[Velocity](e)
		p.VX++
	}
}

func BenchmarkEntityRefResolve(b *testing.B) {
	e := NewScenelessEntity()
	defer e.Release()
	ref := NewEntityRef(e)
	defer ref.Release()
	b.ReportAllocs()
	for b.Loop() {
		l, ok := ref.Lock()
		if ok {
			l.Release()
		}
	}
}
