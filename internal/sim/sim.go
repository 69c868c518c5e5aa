// Package sim drives a scene of leaders and followers built from prefabs.
//
// Each tick moves everything with a velocity, steers followers towards their
// leader, counts down lifetimes, lets spawners copy themselves and finally
// applies the staged changes with UpdateEntities. Follow targets are held as
// weak references, so a follower whose leader has been removed notices on its
// next tick and requests its own deletion.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/edwinsyarief/scenecs"
	"github.com/edwinsyarief/scenecs/internal/component"
	"github.com/edwinsyarief/scenecs/internal/config"
	"github.com/edwinsyarief/scenecs/internal/prefab"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// worldExtent bounds the random placement of seeded leaders.
const worldExtent = 1000

// Stats counts what happened since the simulation was created.
type Stats struct {
	Ticks    int
	Spawned  int
	Removed  int
	Orphaned int
	Active   int
}

// Sim owns a scene and advances it one tick at a time. Tick, Seed, Run and
// Close must be called from one goroutine; SetCatalog may be called from any.
type Sim struct {
	cfg     config.SimConfig
	scene   *scenecs.Scene
	bus     *scenecs.EventBus
	catalog atomic.Pointer[prefab.Catalog]
	log     *zap.Logger
	rng     *rand.Rand
	stats   Stats

	steer   []steerJob
	orphans [][]scenecs.Entity
}

// steerJob is one follower visited by the steering workers. The pointers
// stay valid for the tick because the active set only changes in
// UpdateEntities.
type steerJob struct {
	e      scenecs.Entity
	pos    *component.Position
	follow *component.Follow
}

// New creates a simulation over an empty scene. The catalog must define the
// configured leader and follower prefabs.
//
// Parameters:
//   - cfg: Tick, worker and population settings.
//   - catalog: The prefabs entities are spawned from.
//   - log: Logger for the simulation and its scene; nil disables logging.
//
// Returns:
//   - The simulation, not yet seeded.
//   - An error wrapping prefab.ErrUnknownPrefab when a configured prefab is
//     missing.
func New(cfg config.SimConfig, catalog *prefab.Catalog, log *zap.Logger) (*Sim, error) {
	if err := checkCatalog(cfg, catalog); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	workers := max(cfg.Workers, 1)
	s := &Sim{
		cfg:     cfg,
		bus:     &scenecs.EventBus{},
		log:     log,
		rng:     rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15)),
		orphans: make([][]scenecs.Entity, workers),
	}
	s.catalog.Store(catalog)
	s.scene = scenecs.NewScene(
		scenecs.WithLogger(log.Named("scene")),
		scenecs.WithEventBus(s.bus),
		scenecs.WithCapacity(cfg.Leaders*(1+cfg.FollowersPerLeader)),
	)
	scenecs.Subscribe(s.bus, func(scenecs.EntityCreated) { s.stats.Spawned++ })
	scenecs.Subscribe(s.bus, func(scenecs.EntityRemoved) { s.stats.Removed++ })
	return s, nil
}

// checkCatalog reports whether c can serve every prefab the simulation spawns.
func checkCatalog(cfg config.SimConfig, c *prefab.Catalog) error {
	if c == nil {
		return errors.New("sim: nil prefab catalog")
	}
	for _, name := range []string{cfg.LeaderPrefab, cfg.FollowerPrefab} {
		if !c.Has(name) {
			return fmt.Errorf("sim: %w %q", prefab.ErrUnknownPrefab, name)
		}
	}
	return nil
}

// Scene exposes the simulated scene. It must not be used concurrently with
// Tick.
func (s *Sim) Scene() *scenecs.Scene {
	return s.scene
}

// SetCatalog swaps the prefab catalog. Safe to call from any goroutine; the
// new catalog is used from the next spawn on. A catalog lacking the leader or
// follower prefab is rejected and the current one stays in place.
func (s *Sim) SetCatalog(c *prefab.Catalog) error {
	if err := checkCatalog(s.cfg, c); err != nil {
		return err
	}
	s.catalog.Store(c)
	s.log.Info("prefab catalog replaced", zap.Strings("prefabs", c.Names()))
	return nil
}

// Stats returns the counters so far, with Active taken from the scene.
func (s *Sim) Stats() Stats {
	st := s.stats
	st.Active = s.scene.Count()
	return st
}

// Seed spawns the configured leaders, each with its followers, and activates
// them.
func (s *Sim) Seed() error {
	for range s.cfg.Leaders {
		if err := s.spawnLeader(s.cfg.FollowersPerLeader); err != nil {
			return err
		}
	}
	s.scene.UpdateEntities()
	s.log.Info("scene seeded",
		zap.Int("leaders", s.cfg.Leaders),
		zap.Int("followers_per_leader", s.cfg.FollowersPerLeader),
		zap.Int("active", s.scene.Count()))
	return nil
}

// spawnLeader builds a leader and its followers and stages them together.
// Nothing is staged when any of them fails to build.
func (s *Sim) spawnLeader(followers int) error {
	cat := s.catalog.Load()
	leader, err := cat.Build(s.cfg.LeaderPrefab)
	if err != nil {
		return fmt.Errorf("spawn leader: %w", err)
	}
	defer leader.Release()
	origin := component.Position{
		X: (s.rng.Float64()*2 - 1) * worldExtent,
		Y: (s.rng.Float64()*2 - 1) * worldExtent,
	}
	scenecs.Set(leader, origin)
	if !scenecs.Has[component.Leader](leader) {
		scenecs.Set(leader, component.Leader{})
	}

	group := make([]scenecs.Entity, 0, followers)
	defer func() {
		for i := range group {
			group[i].Release()
		}
	}()
	for range followers {
		f, err := cat.Build(s.cfg.FollowerPrefab)
		if err != nil {
			return fmt.Errorf("spawn follower: %w", err)
		}
		group = append(group, f)
		scenecs.Set(f, component.Position{
			X: origin.X + s.rng.NormFloat64()*10,
			Y: origin.Y + s.rng.NormFloat64()*10,
		})
		if scenecs.Get[component.Velocity](f) == nil {
			scenecs.Set(f, component.Velocity{})
		}
		scenecs.Set(f, component.Follow{Target: scenecs.NewEntityRef(leader)})
	}

	if err := s.scene.AddEntity(leader); err != nil {
		return fmt.Errorf("spawn leader: %w", err)
	}
	for _, f := range group {
		if err := s.scene.AddEntity(f); err != nil {
			return fmt.Errorf("spawn follower: %w", err)
		}
	}
	return nil
}

// Tick advances the simulation by one step.
func (s *Sim) Tick(ctx context.Context) error {
	s.move()
	if err := s.steerFollowers(ctx); err != nil {
		return err
	}
	s.age()
	s.spawn()
	s.scene.UpdateEntities()
	if err := s.replenish(); err != nil {
		return err
	}
	s.stats.Ticks++
	return nil
}

func (s *Sim) move() {
	scenecs.Each2(s.scene, func(_ scenecs.Entity, p *component.Position, v *component.Velocity) {
		p.X += v.DX
		p.Y += v.DY
	})
}

// steerFollowers resolves every follow target on the worker pool. Workers
// only read other entities and only write the follower they are visiting.
// Followers whose target has expired are deleted afterwards on the calling
// goroutine.
func (s *Sim) steerFollowers(ctx context.Context) error {
	s.steer = s.steer[:0]
	scenecs.Each2(s.scene, func(e scenecs.Entity, p *component.Position, f *component.Follow) {
		s.steer = append(s.steer, steerJob{e: e, pos: p, follow: f})
	})
	if len(s.steer) == 0 {
		return nil
	}

	workers := len(s.orphans)
	chunk := (len(s.steer) + workers - 1) / workers
	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		lo := w * chunk
		if lo >= len(s.steer) {
			s.orphans[w] = s.orphans[w][:0]
			continue
		}
		hi := min(lo+chunk, len(s.steer))
		jobs := s.steer[lo:hi]
		g.Go(func() error {
			orphans := s.orphans[w][:0]
			for i, job := range jobs {
				if i%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				if !steer(job) {
					orphans = append(orphans, job.e)
				}
			}
			s.orphans[w] = orphans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for w := range s.orphans {
		for _, e := range s.orphans[w] {
			if err := e.RequestDeletion(); err != nil {
				return err
			}
			s.stats.Orphaned++
		}
		clear(s.orphans[w])
		s.orphans[w] = s.orphans[w][:0]
	}
	clear(s.steer)
	return nil
}

// steer points the follower's velocity at its target. It reports false when
// the target no longer exists.
func steer(job steerJob) bool {
	target, ok := job.follow.Target.Lock()
	if !ok {
		return false
	}
	defer target.Release()
	tp := scenecs.Get[component.Position](target)
	if tp == nil {
		return true
	}
	v := scenecs.Get[component.Velocity](job.e)
	if v == nil {
		return true
	}
	dx, dy := tp.X-job.pos.X, tp.Y-job.pos.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		v.DX, v.DY = 0, 0
		return true
	}
	speed := dist
	if sp := scenecs.Get[component.Speed](job.e); sp != nil && sp.Max < speed {
		speed = sp.Max
	}
	v.DX, v.DY = dx/dist*speed, dy/dist*speed
	return true
}

// age counts lifetimes down and requests deletion at zero.
func (s *Sim) age() {
	scenecs.Each(s.scene, func(e scenecs.Entity, l *component.Lifetime) {
		l.Ticks--
		if l.Ticks <= 0 {
			if err := e.RequestDeletion(); err != nil {
				s.log.Error("lifetime expiry", zap.Stringer("entity", e), zap.Error(err))
			}
		}
	})
}

// spawn lets every due spawner copy its entity. Copies do not spawn.
func (s *Sim) spawn() {
	scenecs.Each(s.scene, func(e scenecs.Entity, sp *component.Spawner) {
		if sp.Every <= 0 {
			return
		}
		sp.Counter++
		if sp.Counter < sp.Every {
			return
		}
		sp.Counter = 0
		child, err := e.MakeEntity()
		if err != nil {
			s.log.Error("spawn copy", zap.Stringer("parent", e), zap.Error(err))
			return
		}
		scenecs.Remove[component.Spawner](child)
		child.Release()
	})
}

// replenish spawns lone leaders until the configured count is active again.
func (s *Sim) replenish() error {
	leaders := 0
	scenecs.Each(s.scene, func(scenecs.Entity, *component.Leader) { leaders++ })
	if leaders >= s.cfg.Leaders {
		return nil
	}
	for range s.cfg.Leaders - leaders {
		if err := s.spawnLeader(0); err != nil {
			return err
		}
	}
	s.log.Debug("leaders replenished", zap.Int("count", s.cfg.Leaders-leaders))
	return nil
}

// Run ticks until the configured tick count is reached or ctx is done. A
// zero tick count runs until cancellation. Cancellation is not an error.
func (s *Sim) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if s.cfg.TickRate > 0 {
		t := time.NewTicker(s.cfg.TickRate)
		defer t.Stop()
		tick = t.C
	}
	start := time.Now()
	for n := 0; s.cfg.Ticks == 0 || n < s.cfg.Ticks; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}
		if err := s.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if s.stats.Ticks%60 == 0 {
			st := s.Stats()
			s.log.Debug("tick",
				zap.Int("tick", st.Ticks),
				zap.Int("active", st.Active),
				zap.Int("spawned", st.Spawned),
				zap.Int("removed", st.Removed))
		}
	}
	s.log.Info("run finished",
		zap.Int("ticks", s.stats.Ticks),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Close releases the scene.
func (s *Sim) Close() {
	s.scene.Close()
}
