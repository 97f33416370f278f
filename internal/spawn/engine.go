package spawn

import (
	"context"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/oskarv/chat-safari/internal/creature"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Store is the durable backend the engine runs against. The two
// conditional operations (CreateSpawnIfNone, CaptureSpawn/EscapeSpawn)
// must each be a single atomic check-and-set whose return value reports
// whether this call's write took effect.
type Store interface {
	CreateSpawnIfNone(ctx context.Context, s *Spawn) (bool, error)
	ActiveSpawn(ctx context.Context, channelId int64, now time.Time) (*Spawn, error)
	SpawnById(ctx context.Context, spawnId string) (*Spawn, error)
	CaptureSpawn(ctx context.Context, spawnId string, userId int64, now time.Time) (bool, error)
	EscapeSpawn(ctx context.Context, spawnId string, now time.Time) (bool, error)
	AddCreature(ctx context.Context, c creature.Creature) error
	GrantCatchRewards(ctx context.Context, userId int64, exp, coins int) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
	SpawnStats(ctx context.Context, channelId int64) (Stats, error)
}

// Stats aggregates spawn history, optionally scoped to one channel
// (channelId 0 means everything).
type Stats struct {
	Total    int64
	Caught   int64
	Shiny    int64
	AvgLevel float64
}

// Catalog supplies species payload data for new spawns.
type Catalog interface {
	RandomSpeciesId() creature.SpeciesId
	LookupSpecies(id creature.SpeciesId) (creature.Species, bool)
	FallbackIds() []creature.SpeciesId
}

type Config struct {
	Window    time.Duration // capture window per spawn
	CatchRate float64       // chance the race winner's catch roll succeeds
	ShinyRate float64       // flat shiny chance, independent of tier
	LevelMin  int
	LevelMax  int
}

func (c *Config) applyDefaults() {
	if c.Window <= 0 {
		c.Window = 10 * time.Minute
	}
	if c.CatchRate <= 0 || c.CatchRate > 1 {
		c.CatchRate = 0.98
	}
	if c.ShinyRate < 0 || c.ShinyRate >= 1 {
		c.ShinyRate = 0.002
	}
	if c.LevelMin < 1 {
		c.LevelMin = 1
	}
	if c.LevelMax == 0 {
		c.LevelMax = 50
	}
	if c.LevelMax < c.LevelMin {
		c.LevelMax = c.LevelMin
	}
}

// Engine owns the spawn lifecycle: creation under the one-active-spawn
// invariant, the two-tier read path, and race-safe capture resolution.
type Engine struct {
	store   Store
	catalog Catalog
	cfg     Config
	cache   *cache
	clk     Clock
	log     *slog.Logger

	rollMu sync.Mutex
	rng    *mrand.Rand
}

func NewEngine(store Store, catalog Catalog, cfg Config, clk Clock, rng *mrand.Rand) *Engine {
	cfg.applyDefaults()
	if clk == nil {
		clk = RealClock{}
	}
	if rng == nil {
		rng = mrand.New(mrand.NewSource(creature.SeedFromEntropy()))
	}
	return &Engine{
		store:   store,
		catalog: catalog,
		cfg:     cfg,
		cache:   newCache(),
		clk:     clk,
		log:     slog.Default().With("component", "spawn"),
		rng:     rng,
	}
}

// CreateSpawn synthesizes a new spawn for the channel unless one is
// already active. The store's conditional insert is the authority for
// the one-active-spawn invariant; the cache is written only after the
// row is durably committed.
func (e *Engine) CreateSpawn(ctx context.Context, channelId int64) (bool, *Spawn, error) {
	now := e.clk.Now()

	s, err := e.newSpawn(channelId, now)
	if err != nil {
		return false, nil, err
	}

	created, err := e.store.CreateSpawnIfNone(ctx, s)
	if err != nil {
		return false, nil, fmt.Errorf("create spawn in channel %d: %w", channelId, err)
	}
	if !created {
		return false, nil, nil
	}

	e.cache.put(s)
	return true, s, nil
}

func (e *Engine) newSpawn(channelId int64, now time.Time) (*Spawn, error) {
	id := e.catalog.RandomSpeciesId()
	sp, ok := e.catalog.LookupSpecies(id)
	if !ok {
		// Rolled id has no catalog entry; retry once against the
		// fallback set rather than persisting a spawn with no payload.
		fallback := e.catalog.FallbackIds()
		if len(fallback) == 0 {
			return nil, fmt.Errorf("species %d not in catalog and no fallback set", id)
		}
		e.rollMu.Lock()
		id = fallback[e.rng.Intn(len(fallback))]
		e.rollMu.Unlock()
		if sp, ok = e.catalog.LookupSpecies(id); !ok {
			return nil, fmt.Errorf("fallback species %d not in catalog", id)
		}
	}

	e.rollMu.Lock()
	level := e.cfg.LevelMin + e.rng.Intn(e.cfg.LevelMax-e.cfg.LevelMin+1)
	shiny := e.rng.Float64() < e.cfg.ShinyRate
	e.rollMu.Unlock()

	return &Spawn{
		Id:        NewId(),
		ChannelId: channelId,
		SpeciesId: sp.Id,
		Species:   sp.Name,
		Level:     level,
		Shiny:     shiny,
		Tier:      creature.TierFor(sp, shiny),
		Status:    StatusActive,
		SpawnedAt: now,
		ExpiresAt: now.Add(e.cfg.Window),
	}, nil
}

// GetActiveSpawn serves the channel's current spawn, cache first. A
// cached entry past its expiry counts as a miss and is re-validated
// against the store.
func (e *Engine) GetActiveSpawn(ctx context.Context, channelId int64) (*Spawn, error) {
	now := e.clk.Now()

	if s, ok := e.cache.get(channelId, now); ok {
		return s, nil
	}

	s, err := e.store.ActiveSpawn(ctx, channelId, now)
	if err != nil {
		return nil, fmt.Errorf("read active spawn in channel %d: %w", channelId, err)
	}
	if s != nil {
		e.cache.put(s)
	}
	return s, nil
}

// ResolveCapture resolves a capture attempt. Given any number of
// concurrent calls for the same spawn, exactly one wins the row: the
// catch roll is made first and the row then moves to caught or escaped
// in a single conditional transition, so a failed roll still consumes
// the spawn instead of re-opening the race.
func (e *Engine) ResolveCapture(ctx context.Context, spawnId string, userId int64) (*Capture, error) {
	now := e.clk.Now()

	e.rollMu.Lock()
	landed := e.rng.Float64() < e.cfg.CatchRate
	e.rollMu.Unlock()

	var won bool
	var err error
	if landed {
		won, err = e.store.CaptureSpawn(ctx, spawnId, userId, now)
	} else {
		won, err = e.store.EscapeSpawn(ctx, spawnId, now)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve capture of %s: %w", spawnId, err)
	}

	if !won {
		return e.classifyLoss(ctx, spawnId, now)
	}

	s, err := e.store.SpawnById(ctx, spawnId)
	if err != nil {
		return nil, fmt.Errorf("read resolved spawn %s: %w", spawnId, err)
	}
	if s == nil {
		return nil, fmt.Errorf("resolved spawn %s vanished before readback", spawnId)
	}
	e.cache.invalidate(s.ChannelId)

	if !landed {
		return &Capture{Outcome: OutcomeEscaped, Spawn: s}, nil
	}

	sp, ok := e.catalog.LookupSpecies(s.SpeciesId)
	if !ok {
		return nil, fmt.Errorf("species %d of spawn %s missing from catalog", s.SpeciesId, spawnId)
	}

	c := creature.Creature{
		Id:        creature.NewId(),
		OwnerId:   userId,
		SpeciesId: s.SpeciesId,
		Species:   s.Species,
		Level:     s.Level,
		Shiny:     s.Shiny,
		Tier:      s.Tier,
		Stats:     creature.DeriveStats(sp.BaseStats, s.Level),
		CaughtAt:  now,
	}
	if err := e.store.AddCreature(ctx, c); err != nil {
		return nil, fmt.Errorf("record catch of %s: %w", spawnId, err)
	}

	exp := creature.CatchExp(s.Tier, s.Level)
	coins := creature.CatchCoins(s.Level, s.Shiny)
	if err := e.store.GrantCatchRewards(ctx, userId, exp, coins); err != nil {
		return nil, fmt.Errorf("grant rewards for %s: %w", spawnId, err)
	}

	return &Capture{Outcome: OutcomeCaught, Spawn: s, Creature: &c, Exp: exp, Coins: coins}, nil
}

// classifyLoss turns a lost conditional transition into the outcome the
// caller should see. Frequent and non-exceptional; never an error.
func (e *Engine) classifyLoss(ctx context.Context, spawnId string, now time.Time) (*Capture, error) {
	s, err := e.store.SpawnById(ctx, spawnId)
	if err != nil {
		return nil, fmt.Errorf("read spawn %s: %w", spawnId, err)
	}
	switch {
	case s == nil:
		return &Capture{Outcome: OutcomeNotFound}, nil
	case s.Status != StatusActive:
		return &Capture{Outcome: OutcomeAlreadyCaught, Spawn: s}, nil
	default:
		// Still active in the store, so the transition can only have
		// been refused by the expiry predicate.
		return &Capture{Outcome: OutcomeExpired, Spawn: s}, nil
	}
}

// Stats reports spawn history counters for the admin surface.
func (e *Engine) Stats(ctx context.Context, channelId int64) (Stats, error) {
	st, err := e.store.SpawnStats(ctx, channelId)
	if err != nil {
		return Stats{}, fmt.Errorf("read spawn stats: %w", err)
	}
	return st, nil
}

// PurgeExpired removes expired uncaught rows. Storage hygiene only: the
// expiry predicate on every conditional write is what keeps dead spawns
// uncatchable.
func (e *Engine) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := e.store.PurgeExpired(ctx, e.clk.Now())
	if err != nil {
		return 0, fmt.Errorf("purge expired spawns: %w", err)
	}
	if n > 0 {
		e.cache.clear()
		e.log.Info("purged expired spawns", "count", n)
	}
	return n, nil
}
