// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/edwinsyarief/scenecs"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	count := 50
	iters := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

// run churns the whole active set every iteration: create, update, delete,
// update.
func run(rounds, iters, numEntities int) {
	for range rounds {
		s := scenecs.NewScene(scenecs.WithCapacity(numEntities))

		for range iters {
			for range numEntities {
				e := s.MakeEntity()
				scenecs.Append(e, comp1{})
				scenecs.Append(e, comp2{V: 1, W: 1})
				e.Release()
			}
			s.UpdateEntities()
			scenecs.Each2(s, func(e scenecs.Entity, c1 *comp1, c2 *comp2) {
				c1.V += c2.V
				c1.W += c2.W
				_ = e.RequestDeletion()
			})
			s.UpdateEntities()
		}
		s.Close()
	}
}
