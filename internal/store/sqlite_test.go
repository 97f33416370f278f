package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/oskarv/chat-safari/internal/creature"
	"github.com/oskarv/chat-safari/internal/spawn"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "safari.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testSpawn(channelId int64, now time.Time) *spawn.Spawn {
	return &spawn.Spawn{
		Id:        spawn.NewId(),
		ChannelId: channelId,
		SpeciesId: 1,
		Species:   "Rooklaw",
		Level:     12,
		Shiny:     false,
		Tier:      creature.TierRare,
		Status:    spawn.StatusActive,
		SpawnedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
}

func TestCreateSpawnIfNone(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	created, err := st.CreateSpawnIfNone(ctx, testSpawn(1, now))
	if err != nil {
		t.Fatalf("CreateSpawnIfNone: %v", err)
	}
	if !created {
		t.Fatal("first insert should create")
	}

	created, err = st.CreateSpawnIfNone(ctx, testSpawn(1, now))
	if err != nil {
		t.Fatalf("second CreateSpawnIfNone: %v", err)
	}
	if created {
		t.Fatal("second insert for the same channel should be refused")
	}

	// A spawn whose window closed does not block a new one.
	later := now.Add(11 * time.Minute)
	created, err = st.CreateSpawnIfNone(ctx, testSpawn(1, later))
	if err != nil {
		t.Fatalf("post-expiry CreateSpawnIfNone: %v", err)
	}
	if !created {
		t.Fatal("insert after the previous spawn expired should create")
	}
}

func TestActiveSpawnRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	want := testSpawn(4, now)
	want.Shiny = true
	if _, err := st.CreateSpawnIfNone(ctx, want); err != nil {
		t.Fatalf("CreateSpawnIfNone: %v", err)
	}

	got, err := st.ActiveSpawn(ctx, 4, now)
	if err != nil {
		t.Fatalf("ActiveSpawn: %v", err)
	}
	if got == nil || got.Id != want.Id {
		t.Fatalf("ActiveSpawn = %+v, want id %s", got, want.Id)
	}
	if got.Species != "Rooklaw" || got.Level != 12 || !got.Shiny || got.Tier != creature.TierRare {
		t.Fatalf("payload mangled in round trip: %+v", got)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("expires_at = %v, want %v", got.ExpiresAt, want.ExpiresAt)
	}

	if got, _ := st.ActiveSpawn(ctx, 4, now.Add(11*time.Minute)); got != nil {
		t.Fatal("expired spawn served as active")
	}
	if got, _ := st.ActiveSpawn(ctx, 5, now); got != nil {
		t.Fatal("spawn served for the wrong channel")
	}
}

func TestCaptureSpawnSingleWinner(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sp := testSpawn(2, now)
	if _, err := st.CreateSpawnIfNone(ctx, sp); err != nil {
		t.Fatalf("CreateSpawnIfNone: %v", err)
	}

	const k = 8
	wins := make([]bool, k)
	errs := make([]error, k)

	var wg sync.WaitGroup
	for n := 0; n < k; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			wins[n], errs[n] = st.CaptureSpawn(ctx, sp.Id, int64(200+n), now)
		}(n)
	}
	wg.Wait()

	winners := 0
	for n := 0; n < k; n++ {
		if errs[n] != nil {
			t.Fatalf("caller %d: %v", n, errs[n])
		}
		if wins[n] {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("%d winners, want exactly 1", winners)
	}

	got, err := st.SpawnById(ctx, sp.Id)
	if err != nil {
		t.Fatalf("SpawnById: %v", err)
	}
	if got.Status != spawn.StatusCaught || got.CaughtBy < 200 {
		t.Fatalf("row after race: %+v", got)
	}
}

func TestCaptureSpawnRespectsExpiry(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sp := testSpawn(2, now)
	if _, err := st.CreateSpawnIfNone(ctx, sp); err != nil {
		t.Fatalf("CreateSpawnIfNone: %v", err)
	}

	won, err := st.CaptureSpawn(ctx, sp.Id, 42, now.Add(11*time.Minute))
	if err != nil {
		t.Fatalf("CaptureSpawn: %v", err)
	}
	if won {
		t.Fatal("capture past expires_at must not win")
	}

	got, _ := st.SpawnById(ctx, sp.Id)
	if got.Status != spawn.StatusActive {
		t.Fatalf("expired row was mutated: %+v", got)
	}
}

func TestEscapeSpawnConsumesRow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sp := testSpawn(2, now)
	if _, err := st.CreateSpawnIfNone(ctx, sp); err != nil {
		t.Fatalf("CreateSpawnIfNone: %v", err)
	}

	won, err := st.EscapeSpawn(ctx, sp.Id, now)
	if err != nil {
		t.Fatalf("EscapeSpawn: %v", err)
	}
	if !won {
		t.Fatal("escape on an active spawn should win the row")
	}

	if won, _ := st.CaptureSpawn(ctx, sp.Id, 42, now); won {
		t.Fatal("capture after escape must lose")
	}
	if got, _ := st.ActiveSpawn(ctx, 2, now); got != nil {
		t.Fatal("escaped spawn still listed active")
	}
}

func TestSpawnByIdMissing(t *testing.T) {
	st := openTestStore(t)

	got, err := st.SpawnById(context.Background(), "spawn_nope")
	if err != nil {
		t.Fatalf("SpawnById: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown id, got %+v", got)
	}
}

func TestPurgeExpired(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	old := testSpawn(1, now)
	if _, err := st.CreateSpawnIfNone(ctx, old); err != nil {
		t.Fatal(err)
	}
	caught := testSpawn(2, now)
	if _, err := st.CreateSpawnIfNone(ctx, caught); err != nil {
		t.Fatal(err)
	}
	if won, _ := st.CaptureSpawn(ctx, caught.Id, 7, now); !won {
		t.Fatal("setup capture failed")
	}

	n, err := st.PurgeExpired(ctx, now.Add(11*time.Minute))
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d rows, want 1 (terminal rows stay)", n)
	}

	if got, _ := st.SpawnById(ctx, old.Id); got != nil {
		t.Fatal("expired active row survived the purge")
	}
	if got, _ := st.SpawnById(ctx, caught.Id); got == nil {
		t.Fatal("caught row should survive the purge")
	}
}

func TestCreaturesAndRewards(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		c := creature.Creature{
			Id:        creature.NewId(),
			OwnerId:   42,
			SpeciesId: 1,
			Species:   "Rooklaw",
			Level:     10 + i,
			Tier:      creature.TierRare,
			Stats:     creature.DeriveStats(creature.Stats{HP: 60, Attack: 70}, 10+i),
			CaughtAt:  now.Add(time.Duration(i) * time.Minute),
		}
		if err := st.AddCreature(ctx, c); err != nil {
			t.Fatalf("AddCreature: %v", err)
		}
	}

	rows, err := st.ListCreatures(ctx, 42, 2)
	if err != nil {
		t.Fatalf("ListCreatures: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d creatures, want limit 2", len(rows))
	}
	if rows[0].Level != 12 {
		t.Fatalf("listing not newest-first: %+v", rows[0])
	}

	if rows, _ := st.ListCreatures(ctx, 43, 10); len(rows) != 0 {
		t.Fatal("creatures leaked to the wrong owner")
	}

	if err := st.GrantCatchRewards(ctx, 42, 35, 50); err != nil {
		t.Fatalf("GrantCatchRewards: %v", err)
	}
	if err := st.GrantCatchRewards(ctx, 42, 10, 5); err != nil {
		t.Fatalf("second GrantCatchRewards: %v", err)
	}

	var coins, exp, caught int
	err = st.db.QueryRow(`SELECT coins, experience, caught FROM users WHERE user_id = 42`).
		Scan(&coins, &exp, &caught)
	if err != nil {
		t.Fatalf("read user row: %v", err)
	}
	if coins != 55 || exp != 45 || caught != 2 {
		t.Fatalf("rewards did not accumulate: coins=%d exp=%d caught=%d", coins, exp, caught)
	}
}

func TestTopCatchers(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Three resolved spawns in channel 9: two for user 1, one for user 2.
	for i, user := range []int64{1, 1, 2} {
		sp := testSpawn(9, now.Add(time.Duration(i)*11*time.Minute))
		if _, err := st.CreateSpawnIfNone(ctx, sp); err != nil {
			t.Fatal(err)
		}
		if won, _ := st.CaptureSpawn(ctx, sp.Id, user, sp.SpawnedAt); !won {
			t.Fatal("setup capture failed")
		}
	}

	rows, err := st.TopCatchers(ctx, 9, 10)
	if err != nil {
		t.Fatalf("TopCatchers: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].UserId != 1 || rows[0].Caught != 2 {
		t.Fatalf("leaderboard head = %+v", rows[0])
	}

	st2, err := st.SpawnStats(ctx, 9)
	if err != nil {
		t.Fatalf("SpawnStats: %v", err)
	}
	if st2.Total != 3 || st2.Caught != 3 {
		t.Fatalf("stats = %+v", st2)
	}
}
