package scenecs

import (
	"errors"
	"sync/atomic"
	"testing"
)

// --- Test Components ---
type Position struct{ X, Y float32 }
type Velocity struct{ VX, VY float32 }
type Health struct{ Current, Max int }
type Tag struct{}

// tracked counts live instances through its Destroy hook.
type tracked struct {
	live *atomic.Int64
	n    int
}

func newTracked(live *atomic.Int64, n int) tracked {
	live.Add(1)
	return tracked{live: live, n: n}
}

func (t *tracked) Destroy() {
	if t.live != nil {
		t.live.Add(-1)
	}
}

func (t *tracked) Clone() tracked {
	return newTracked(t.live, t.n)
}

func TestTableAppendGetRemove(t *testing.T) {
	var tbl ComponentTable
	p, err := AppendTo(&tbl, Position{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	p.X = 10
	if got := GetFrom[Position](&tbl); got == nil || got.X != 10 || got.Y != 2 {
		t.Errorf("expected {10 2}, got %+v", got)
	}
	if GetFrom[Velocity](&tbl) != nil {
		t.Error("expected nil for absent Velocity")
	}
	if !RemoveFrom[Position](&tbl) {
		t.Error("expected Remove to report a present component")
	}
	if GetFrom[Position](&tbl) != nil {
		t.Error("expected Position gone after Remove")
	}
	if RemoveFrom[Position](&tbl) {
		t.Error("expected second Remove to be a no-op")
	}
}

func TestTableAppendDuplicateRejected(t *testing.T) {
	var tbl ComponentTable
	if _, err := AppendTo(&tbl, Health{Current: 5, Max: 10}); err != nil {
		t.Fatal(err)
	}
	_, err := AppendTo(&tbl, Health{Current: 1, Max: 1})
	if !errors.Is(err, ErrComponentExists) {
		t.Fatalf("expected ErrComponentExists, got %v", err)
	}
	if h := GetFrom[Health](&tbl); h.Current != 5 {
		t.Errorf("existing value was overwritten: %+v", h)
	}
	SetIn(&tbl, Health{Current: 7, Max: 10})
	if h := GetFrom[Health](&tbl); h.Current != 7 {
		t.Errorf("Set did not replace: %+v", h)
	}
	if tbl.Len() != 1 {
		t.Errorf("expected 1 component, got %d", tbl.Len())
	}
}

func TestTableKeysSorted(t *testing.T) {
	var tbl ComponentTable
	AppendTo(&tbl, Tag{})
	AppendTo(&tbl, Velocity{})
	AppendTo(&tbl, Position{})
	keys := tbl.Keys()
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("keys not strictly ascending: %v", keys)
		}
	}
	if !tbl.Has(KeyFor[Velocity]()) || tbl.Has(KeyFor[Health]()) {
		t.Error("Has disagrees with contents")
	}
}

func TestTableDestroyHooks(t *testing.T) {
	var live atomic.Int64
	var tbl ComponentTable
	AppendTo(&tbl, newTracked(&live, 1))
	AppendTo(&tbl, Position{})
	if live.Load() != 1 {
		t.Fatalf("expected 1 live, got %d", live.Load())
	}
	RemoveFrom[tracked](&tbl)
	if live.Load() != 0 {
		t.Errorf("Remove did not destroy: %d live", live.Load())
	}

	AppendTo(&tbl, newTracked(&live, 2))
	SetIn(&tbl, newTracked(&live, 3))
	if live.Load() != 1 {
		t.Errorf("Set did not destroy replaced value: %d live", live.Load())
	}
	tbl.RemoveAll()
	if live.Load() != 0 || tbl.Len() != 0 {
		t.Errorf("RemoveAll left %d live, %d slots", live.Load(), tbl.Len())
	}
}

func TestTableReserveForMoreIsInvisible(t *testing.T) {
	var tbl ComponentTable
	AppendTo(&tbl, Position{X: 3})
	before := tbl.Keys()
	tbl.ReserveForMore(KeyFor[Position](), KeyFor[Velocity](), KeyFor[Health]())
	after := tbl.Keys()
	if len(before) != len(after) || before[0] != after[0] {
		t.Errorf("reserve changed contents: %v -> %v", before, after)
	}
	if cap(tbl.slots) < 3 {
		t.Errorf("expected capacity >= 3, got %d", cap(tbl.slots))
	}
	if GetFrom[Position](&tbl).X != 3 {
		t.Error("reserve corrupted stored value")
	}
}

func TestTableCopyFrom(t *testing.T) {
	var live atomic.Int64
	var src, dst ComponentTable
	AppendTo(&src, Position{X: 1})
	AppendTo(&src, newTracked(&live, 9))

	if err := dst.CopyFrom(&src); err != nil {
		t.Fatal(err)
	}
	if live.Load() != 2 {
		t.Errorf("expected Clone to produce a second live value, got %d", live.Load())
	}
	GetFrom[Position](&dst).X = 100
	if GetFrom[Position](&src).X != 1 {
		t.Error("copy aliases the source")
	}
	if err := dst.CopyFrom(&src); !errors.Is(err, ErrComponentExists) {
		t.Errorf("expected ErrComponentExists on overlapping copy, got %v", err)
	}
	src.RemoveAll()
	dst.RemoveAll()
	if live.Load() != 0 {
		t.Errorf("leaked %d tracked values", live.Load())
	}
}

func TestTableMoveFrom(t *testing.T) {
	var live atomic.Int64
	var src, dst ComponentTable
	AppendTo(&src, newTracked(&live, 4))
	AppendTo(&src, Velocity{VX: 2})

	if err := dst.MoveFrom(&src); err != nil {
		t.Fatal(err)
	}
	if src.Len() != 0 || GetFrom[Velocity](&src) != nil {
		t.Error("source not emptied by move")
	}
	if live.Load() != 1 {
		t.Errorf("move must neither clone nor destroy, live=%d", live.Load())
	}
	if tr := GetFrom[tracked](&dst); tr == nil || tr.n != 4 {
		t.Errorf("moved value wrong: %+v", tr)
	}
	dst.RemoveAll()
	if live.Load() != 0 {
		t.Errorf("leaked %d tracked values", live.Load())
	}
}

func TestTableManyTypesPastMask(t *testing.T) {
	// Ordinals beyond the presence mask still resolve through the search.
	var tbl ComponentTable
	AppendTo(&tbl, Position{X: 1})
	ops := OperationsFor[Position]()
	saved := ops.ordinal
	if saved < maskBits {
		if !tbl.mask.mayContain(saved) {
			t.Error("mask missing a stored ordinal")
		}
	}
	if !tbl.mask.mayContain(maskBits + 5) {
		t.Error("ordinals past the mask must answer mayContain=true")
	}
}
