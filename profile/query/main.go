// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query mem.prof

package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/edwinsyarief/scenecs"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

type comp3 struct {
	V int64
	W int64
}

type comp4 struct {
	V int64
	W int64
}

func main() {
	// CPU Profiling
	f, _ := os.Create("cpu.prof")
	_ = pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	count := 20
	iters := 1000
	entities := 100000
	run(count, iters, entities)

	// Memory Profiling
	memFile, _ := os.Create("mem.prof")
	defer memFile.Close()
	runtime.GC() // Trigger garbage collection
	_ = pprof.WriteHeapProfile(memFile)
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		s := scenecs.NewScene(scenecs.WithCapacity(numEntities))
		for range numEntities {
			e := s.MakeEntity()
			scenecs.Append(e, comp1{})
			scenecs.Append(e, comp2{V: 1, W: 2})
			scenecs.Append(e, comp3{})
			scenecs.Append(e, comp4{})
			e.Release()
		}
		s.UpdateEntities()

		for range iters {
			for e := range s.Active() {
				c1, c2, _, _ := scenecs.Ptr4[comp1, comp2, comp3, comp4](e)
				c1.V += c2.V
				c1.W += c2.W
			}
		}
		s.Close()
	}
}
