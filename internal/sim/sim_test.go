package sim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/edwinsyarief/scenecs"
	"github.com/edwinsyarief/scenecs/internal/component"
	"github.com/edwinsyarief/scenecs/internal/config"
	"github.com/edwinsyarief/scenecs/internal/prefab"
	"github.com/edwinsyarief/scenecs/internal/sim"
)

const prefabs = `
prefabs:
  leader:
    velocity: {dx: 1, dy: 0}
    lifetime: {ticks: 5}
  follower:
    speed: {max: 2}
  immortal:
    velocity: {}
  breeder:
    spawner: {every: 2}
    lifetime: {ticks: 3}
`

func testConfig() config.SimConfig {
	return config.SimConfig{
		Ticks:              3,
		Workers:            3,
		Seed:               42,
		Leaders:            2,
		FollowersPerLeader: 5,
		LeaderPrefab:       "leader",
		FollowerPrefab:     "follower",
	}
}

func newSim(t *testing.T, cfg config.SimConfig) *sim.Sim {
	t.Helper()
	cat, err := prefab.Parse([]byte(prefabs), prefab.DefaultRegistry())
	require.NoError(t, err)
	s, err := sim.New(cfg, cat, zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func leaders(s *scenecs.Scene) []scenecs.Entity {
	var out []scenecs.Entity
	scenecs.Each(s, func(e scenecs.Entity, _ *component.Leader) { out = append(out, e) })
	return out
}

func TestNewRejectsUnknownPrefab(t *testing.T) {
	cat, err := prefab.Parse([]byte(prefabs), prefab.DefaultRegistry())
	require.NoError(t, err)
	cfg := testConfig()
	cfg.FollowerPrefab = "ghost"
	_, err = sim.New(cfg, cat, nil)
	assert.ErrorIs(t, err, prefab.ErrUnknownPrefab)

	_, err = sim.New(testConfig(), nil, nil)
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	s := newSim(t, testConfig())
	require.NoError(t, s.Seed())

	st := s.Stats()
	assert.Equal(t, 12, st.Active)
	assert.Equal(t, 12, st.Spawned)
	assert.Len(t, leaders(s.Scene()), 2)

	followers := 0
	scenecs.Each(s.Scene(), func(e scenecs.Entity, f *component.Follow) {
		followers++
		target, ok := f.Target.Lock()
		require.True(t, ok)
		assert.True(t, scenecs.Has[component.Leader](target))
		assert.NotNil(t, scenecs.Get[component.Velocity](e))
		target.Release()
	})
	assert.Equal(t, 10, followers)
}

func TestFollowersSteerTowardsLeader(t *testing.T) {
	s := newSim(t, testConfig())
	require.NoError(t, s.Seed())
	require.NoError(t, s.Tick(context.Background()))

	scenecs.Each2(s.Scene(), func(e scenecs.Entity, f *component.Follow, v *component.Velocity) {
		target, ok := f.Target.Lock()
		require.True(t, ok)
		defer target.Release()
		p := scenecs.Get[component.Position](e)
		tp := scenecs.Get[component.Position](target)
		dx, dy := tp.X-p.X, tp.Y-p.Y
		assert.GreaterOrEqual(t, dx*v.DX+dy*v.DY, 0.0, "velocity must point at the leader")
		assert.LessOrEqual(t, v.DX*v.DX+v.DY*v.DY, 4.0+1e-9, "speed cap exceeded")
	})
}

func TestOrphanedFollowersAreRemoved(t *testing.T) {
	s := newSim(t, testConfig())
	require.NoError(t, s.Seed())
	before := leaders(s.Scene())
	ids := []uint64{before[0].ID(), before[1].ID()}

	ctx := context.Background()
	// Leaders expire on tick 5 and leave the scene in its update.
	for range 5 {
		require.NoError(t, s.Tick(ctx))
	}
	for _, e := range s.Scene().Entities() {
		assert.NotContains(t, ids, e.ID(), "expired leader still active")
	}
	// Tick 6 finds every follower's target gone.
	require.NoError(t, s.Tick(ctx))
	st := s.Stats()
	assert.Equal(t, 10, st.Orphaned)
	scenecs.Each(s.Scene(), func(scenecs.Entity, *component.Follow) {
		t.Error("orphaned follower survived")
	})
	// Replacement leaders keep the count up.
	assert.Len(t, leaders(s.Scene()), 2)
}

func TestSpawnerCopiesWithoutSpawner(t *testing.T) {
	cfg := testConfig()
	cfg.Leaders = 0
	s := newSim(t, cfg)
	require.NoError(t, s.Seed())

	cat, err := prefab.Parse([]byte(prefabs), prefab.DefaultRegistry())
	require.NoError(t, err)
	b, err := cat.Spawn(s.Scene(), "breeder")
	require.NoError(t, err)
	b.Release()
	s.Scene().UpdateEntities()

	ctx := context.Background()
	require.NoError(t, s.Tick(ctx))
	assert.Equal(t, 1, s.Scene().Count())
	require.NoError(t, s.Tick(ctx))
	assert.Equal(t, 2, s.Scene().Count(), "breeder should have copied itself")

	spawners := 0
	scenecs.Each(s.Scene(), func(scenecs.Entity, *component.Spawner) { spawners++ })
	assert.Equal(t, 1, spawners, "copies must not spawn")

	// The copy inherited a lifetime of 1, so both expire on tick 3.
	require.NoError(t, s.Tick(ctx))
	assert.Equal(t, 0, s.Scene().Count())
}

func TestSetCatalogSwapsPrefabs(t *testing.T) {
	cfg := testConfig()
	cfg.FollowersPerLeader = 0
	s := newSim(t, cfg)
	require.NoError(t, s.Seed())

	cat, err := prefab.Parse([]byte(`
prefabs:
  leader:
    velocity: {dx: 0, dy: 3}
  follower: {}
`), prefab.DefaultRegistry())
	require.NoError(t, err)
	require.NoError(t, s.SetCatalog(cat))
	assert.Error(t, s.SetCatalog(nil))

	ctx := context.Background()
	for range 6 {
		require.NoError(t, s.Tick(ctx))
	}
	// The seeded leaders expired; replacements come from the new catalog and
	// carry no lifetime.
	ls := leaders(s.Scene())
	require.Len(t, ls, 2)
	for _, l := range ls {
		assert.False(t, scenecs.Has[component.Lifetime](l))
		assert.Equal(t, 3.0, scenecs.Get[component.Velocity](l).DY)
	}
}

func TestSetCatalogRejectsIncompleteCatalog(t *testing.T) {
	cfg := testConfig()
	cfg.FollowersPerLeader = 0
	s := newSim(t, cfg)
	require.NoError(t, s.Seed())

	empty, err := prefab.Parse(nil, prefab.DefaultRegistry())
	require.NoError(t, err, "an empty prefab file parses")
	assert.ErrorIs(t, s.SetCatalog(empty), prefab.ErrUnknownPrefab)

	partial, err := prefab.Parse([]byte("prefabs:\n  leader: {}\n"), prefab.DefaultRegistry())
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetCatalog(partial), prefab.ErrUnknownPrefab)

	// The seeded leaders expire on tick 5; replacements still come from the
	// original catalog.
	ctx := context.Background()
	for range 7 {
		require.NoError(t, s.Tick(ctx))
	}
	ls := leaders(s.Scene())
	require.Len(t, ls, 2)
	for _, l := range ls {
		assert.True(t, scenecs.Has[component.Lifetime](l))
	}
}

func TestSpawnFailureStagesNothing(t *testing.T) {
	reg := prefab.DefaultRegistry()
	// A second name for Position makes a prefab using both fail to build.
	prefab.Register[component.Position](reg, "pos")
	cat, err := prefab.Parse([]byte(`
prefabs:
  leader:
    velocity: {}
  follower:
    position: {}
    pos: {}
`), reg)
	require.NoError(t, err)
	s, err := sim.New(testConfig(), cat, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	before := scenecs.LiveBlocks()
	err = s.Seed()
	assert.ErrorIs(t, err, scenecs.ErrComponentExists)
	created, _ := s.Scene().Pending()
	assert.Zero(t, created, "partial leader group left staged")
	assert.Zero(t, s.Scene().Count())
	assert.Equal(t, before, scenecs.LiveBlocks(), "failed group leaked handles")
}

func TestRunStopsAfterTicks(t *testing.T) {
	cfg := testConfig()
	cfg.TickRate = time.Millisecond
	s := newSim(t, cfg)
	require.NoError(t, s.Seed())
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 3, s.Stats().Ticks)
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Ticks = 0
	s := newSim(t, cfg)
	require.NoError(t, s.Seed())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, s.Run(ctx))
	assert.Positive(t, s.Stats().Ticks)
}
