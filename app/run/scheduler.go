package run

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shelfwatch/app/source"
)

// Scheduler drives the runner on a fixed interval. The first run
// starts immediately so a fresh deployment produces snapshots without
// waiting a full interval; subsequent runs follow the ticker. Digest
// due checks piggyback on the same ticks.
type Scheduler struct {
	runner      *Runner
	configCache *source.ConfigCache
	interval    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(runner *Runner, configCache *source.ConfigCache, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:      runner,
		configCache: configCache,
		interval:    interval,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) tick() {
	sources := s.configCache.GetEnabledConfigs()
	if len(sources) == 0 {
		slog.Debug("No enabled source configurations found")
	} else {
		s.runner.RunOnce(s.ctx, sources)
	}

	s.runner.RunDigest(s.ctx)
}
