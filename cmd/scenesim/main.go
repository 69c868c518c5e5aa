// Command scenesim runs a leader/follower simulation on a scenecs scene.
//
//	scenesim -config config/scenesim.toml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edwinsyarief/scenecs"
	"github.com/edwinsyarief/scenecs/internal/config"
	"github.com/edwinsyarief/scenecs/internal/prefab"
	"github.com/edwinsyarief/scenecs/internal/sim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config/scenesim.toml", "path to the TOML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if stop := startProfile(cfg.Profile); stop != nil {
		defer stop()
	}

	scenecs.SetTypeAdditionReporter(func(name string, _ any) {
		log.Debug("component type instantiated", zap.String("type", name))
	}, nil)

	reg := prefab.DefaultRegistry()
	catalog, err := prefab.Load(cfg.Prefabs.Path, reg)
	if err != nil {
		return err
	}
	log.Info("prefabs loaded",
		zap.String("path", cfg.Prefabs.Path),
		zap.Strings("prefabs", catalog.Names()))

	s, err := sim.New(cfg.Sim, catalog, log.Named("sim"))
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Prefabs.Watch {
		w, err := prefab.NewWatcher(cfg.Prefabs.Path)
		if err != nil {
			return fmt.Errorf("watch prefabs: %w", err)
		}
		defer w.Close()
		go reloadPrefabs(ctx, w, cfg.Prefabs.Path, s, reg, log)
	}

	if err := s.Seed(); err != nil {
		return err
	}
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	st := s.Stats()
	log.Info("simulation stopped",
		zap.Int("ticks", st.Ticks),
		zap.Int("active", st.Active),
		zap.Int("spawned", st.Spawned),
		zap.Int("removed", st.Removed),
		zap.Int("orphaned", st.Orphaned))
	return nil
}

// reloadPrefabs swaps in a fresh catalog whenever the prefab file changes. A
// file that fails to parse leaves the running catalog in place.
func reloadPrefabs(ctx context.Context, w *prefab.Watcher, path string, s *sim.Sim, reg *prefab.Registry, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case changed, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(changed) != filepath.Clean(path) {
				continue
			}
			cat, err := prefab.Load(path, reg)
			if err != nil {
				log.Warn("prefab reload failed", zap.String("path", path), zap.Error(err))
				continue
			}
			if err := s.SetCatalog(cat); err != nil {
				log.Warn("prefab reload rejected", zap.String("path", path), zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("prefab watcher", zap.Error(err))
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// startProfile starts the configured pprof profile. It returns nil when
// profiling is off.
func startProfile(cfg config.ProfileConfig) func() {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	case "allocs":
		mode = profile.MemProfileAllocs
	case "block":
		mode = profile.BlockProfile
	case "mutex":
		mode = profile.MutexProfile
	default:
		return nil
	}
	p := profile.Start(mode, profile.ProfilePath(cfg.Path), profile.NoShutdownHook, profile.Quiet)
	return p.Stop
}
