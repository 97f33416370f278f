// Package sched drives automatic spawning: a single cancellable loop
// that periodically asks the spawn engine to create a spawn in one of
// the registered channels.
package sched

import (
	"context"
	"log/slog"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/oskarv/chat-safari/internal/creature"
	"github.com/oskarv/chat-safari/internal/spawn"
)

// Engine is the slice of the spawn engine the scheduler drives.
type Engine interface {
	CreateSpawn(ctx context.Context, channelId int64) (bool, *spawn.Spawn, error)
}

type Options struct {
	// Interval overrides the jittered sleep between iterations. Tests
	// supply a fixed duration here instead of true randomness.
	Interval func() time.Duration

	MinInterval  time.Duration // default 30s
	MaxInterval  time.Duration // default 60s
	IdleSleep    time.Duration // sleep while no channels are registered, default 5s
	ErrorBackoff time.Duration // sleep after a failed iteration, default 10s

	Logger *slog.Logger
	Rng    *mrand.Rand
}

type Scheduler struct {
	eng      Engine
	interval func() time.Duration
	idle     time.Duration
	backoff  time.Duration
	log      *slog.Logger

	mu       sync.Mutex
	channels map[int64]struct{}
	rng      *mrand.Rand
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(eng Engine, opts Options) *Scheduler {
	if opts.MinInterval <= 0 {
		opts.MinInterval = 30 * time.Second
	}
	if opts.MaxInterval < opts.MinInterval {
		opts.MaxInterval = 2 * opts.MinInterval
	}
	if opts.IdleSleep <= 0 {
		opts.IdleSleep = 5 * time.Second
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Rng == nil {
		opts.Rng = mrand.New(mrand.NewSource(creature.SeedFromEntropy()))
	}

	s := &Scheduler{
		eng:      eng,
		idle:     opts.IdleSleep,
		backoff:  opts.ErrorBackoff,
		log:      opts.Logger.With("component", "sched"),
		channels: make(map[int64]struct{}),
		rng:      opts.Rng,
	}

	s.interval = opts.Interval
	if s.interval == nil {
		min, span := opts.MinInterval, opts.MaxInterval-opts.MinInterval
		s.interval = func() time.Duration {
			if span <= 0 {
				return min
			}
			s.mu.Lock()
			jitter := time.Duration(s.rng.Int63n(int64(span)))
			s.mu.Unlock()
			return min + jitter
		}
	}

	return s
}

func (s *Scheduler) RegisterChannel(channelId int64) {
	s.mu.Lock()
	s.channels[channelId] = struct{}{}
	s.mu.Unlock()
}

func (s *Scheduler) UnregisterChannel(channelId int64) {
	s.mu.Lock()
	delete(s.channels, channelId)
	s.mu.Unlock()
}

func (s *Scheduler) Channels() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	return out
}

// Start launches the spawn loop. No-op if already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.log.Info("auto-spawning started")
}

// Stop cancels the loop and blocks until it has exited, so no iteration
// or sleep outlives the call.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("auto-spawning stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		channelId, ok := s.pickChannel()
		if !ok {
			if !sleepCtx(ctx, s.idle) {
				return
			}
			continue
		}

		created, sp, err := s.eng.CreateSpawn(ctx, channelId)
		if err != nil {
			// Transient engine errors are never fatal to the loop.
			s.log.Warn("spawn iteration failed", "channel", channelId, "err", err)
			if !sleepCtx(ctx, s.backoff) {
				return
			}
			continue
		}
		if created {
			s.log.Info("auto-spawned", "channel", channelId, "spawn", sp.Id, "species", sp.Species)
		}

		if !sleepCtx(ctx, s.interval()) {
			return
		}
	}
}

func (s *Scheduler) pickChannel() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.channels) == 0 {
		return 0, false
	}
	n := s.rng.Intn(len(s.channels))
	for ch := range s.channels {
		if n == 0 {
			return ch, true
		}
		n--
	}
	return 0, false // unreachable
}

// sleepCtx sleeps for d or until ctx is cancelled; false means cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
