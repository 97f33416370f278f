package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oskarv/chat-safari/internal/creature"
	"github.com/oskarv/chat-safari/internal/spawn"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db          *sql.DB
	createStmt  *sql.Stmt
	activeStmt  *sql.Stmt
	byIdStmt    *sql.Stmt
	captureStmt *sql.Stmt
	escapeStmt  *sql.Stmt
	addStmt     *sql.Stmt
}

func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db path: %w", err)
	}

	// DSN notes:
	// - _pragma=busy_timeout sets a lock wait
	// - _pragma=journal_mode(WAL) enables the write-ahead log
	// - _pragma=synchronous(NORMAL) sets the disk synchronizing
	//	 mode to NORMAL (recommended with WAL enabled)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", filepath.Clean(dbPath))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// A single connection serializes every statement, which is what
	// makes each conditional write below an atomic check-and-set.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}

	prepared := []struct {
		dst **sql.Stmt
		q   string
	}{
		// The insert and the no-active-spawn check are one statement:
		// RowsAffected reports whether the create took effect.
		{&s.createStmt, `
			INSERT INTO spawns (spawn_id, channel_id, species_id, species, level,
			                    is_shiny, tier, status, spawned_at, expires_at)
			SELECT ?,?,?,?,?,?,?,?,?,?
			WHERE NOT EXISTS (
				SELECT 1 FROM spawns
				WHERE channel_id = ? AND status = 'active' AND expires_at > ?
			)
		`},
		{&s.activeStmt, `
			SELECT spawn_id, channel_id, species_id, species, level, is_shiny,
			       tier, status, spawned_at, expires_at, caught_by, caught_at
			FROM spawns
			WHERE channel_id = ? AND status = 'active' AND expires_at > ?
			ORDER BY spawned_at DESC
			LIMIT 1
		`},
		{&s.byIdStmt, `
			SELECT spawn_id, channel_id, species_id, species, level, is_shiny,
			       tier, status, spawned_at, expires_at, caught_by, caught_at
			FROM spawns
			WHERE spawn_id = ?
		`},
		{&s.captureStmt, `
			UPDATE spawns
			SET status = 'caught', caught_by = ?, caught_at = ?
			WHERE spawn_id = ? AND status = 'active' AND expires_at > ?
		`},
		{&s.escapeStmt, `
			UPDATE spawns
			SET status = 'escaped'
			WHERE spawn_id = ? AND status = 'active' AND expires_at > ?
		`},
		{&s.addStmt, `
			INSERT INTO creatures (creature_id, owner_id, species_id, species, level,
			                       is_shiny, tier, hp, attack, defense, sp_attack,
			                       sp_defense, speed, caught_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		`},
	}

	for _, p := range prepared {
		stmt, err := db.Prepare(p.q)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		*p.dst = stmt
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.createStmt, s.activeStmt, s.byIdStmt,
		s.captureStmt, s.escapeStmt, s.addStmt,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS spawns (
			spawn_id    TEXT    PRIMARY KEY,
			channel_id  BIGINT  NOT NULL,
			species_id  INTEGER NOT NULL,
			species     TEXT    NOT NULL,
			level       INTEGER NOT NULL,
			is_shiny    INTEGER NOT NULL,
			tier        INTEGER NOT NULL,
			status      TEXT    NOT NULL,
			spawned_at  INTEGER NOT NULL,
			expires_at  INTEGER NOT NULL,
			caught_by   BIGINT  NOT NULL DEFAULT 0,
			caught_at   INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_spawns_active
			ON spawns (channel_id, status, expires_at);

		CREATE TABLE IF NOT EXISTS creatures (
			creature_id TEXT    PRIMARY KEY,
			owner_id    BIGINT  NOT NULL,
			species_id  INTEGER NOT NULL,
			species     TEXT    NOT NULL,
			level       INTEGER NOT NULL,
			is_shiny    INTEGER NOT NULL,
			tier        INTEGER NOT NULL,
			hp          INTEGER NOT NULL,
			attack      INTEGER NOT NULL,
			defense     INTEGER NOT NULL,
			sp_attack   INTEGER NOT NULL,
			sp_defense  INTEGER NOT NULL,
			speed       INTEGER NOT NULL,
			caught_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_creatures_owner
			ON creatures (owner_id, caught_at DESC);

		CREATE TABLE IF NOT EXISTS users (
			user_id    BIGINT  PRIMARY KEY,
			coins      INTEGER NOT NULL DEFAULT 0,
			experience INTEGER NOT NULL DEFAULT 0,
			caught     INTEGER NOT NULL DEFAULT 0
		);
	`)
	return err
}

func (s *SQLiteStore) CreateSpawnIfNone(ctx context.Context, sp *spawn.Spawn) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("store not initialized")
	}

	res, err := s.createStmt.ExecContext(ctx,
		sp.Id,
		sp.ChannelId,
		sp.SpeciesId,
		sp.Species,
		sp.Level,
		boolToInt(sp.Shiny),
		int(sp.Tier),
		string(sp.Status),
		sp.SpawnedAt.Unix(),
		sp.ExpiresAt.Unix(),
		sp.ChannelId,
		sp.SpawnedAt.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) ActiveSpawn(ctx context.Context, channelId int64, now time.Time) (*spawn.Spawn, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}

	row := s.activeStmt.QueryRowContext(ctx, channelId, now.Unix())
	return scanSpawn(row)
}

func (s *SQLiteStore) SpawnById(ctx context.Context, spawnId string) (*spawn.Spawn, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}

	row := s.byIdStmt.QueryRowContext(ctx, spawnId)
	return scanSpawn(row)
}

// CaptureSpawn is the atomic capture transition. Exactly one concurrent
// caller observes true; everyone else's update matches zero rows.
func (s *SQLiteStore) CaptureSpawn(ctx context.Context, spawnId string, userId int64, now time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("store not initialized")
	}

	res, err := s.captureStmt.ExecContext(ctx, userId, now.Unix(), spawnId, now.Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// EscapeSpawn consumes the spawn without an owner, under the same
// active-and-unexpired predicate as CaptureSpawn.
func (s *SQLiteStore) EscapeSpawn(ctx context.Context, spawnId string, now time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("store not initialized")
	}

	res, err := s.escapeStmt.ExecContext(ctx, spawnId, now.Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) AddCreature(ctx context.Context, c creature.Creature) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}

	if c.CaughtAt.IsZero() {
		c.CaughtAt = time.Now()
	}

	_, err := s.addStmt.ExecContext(ctx,
		c.Id,
		c.OwnerId,
		c.SpeciesId,
		c.Species,
		c.Level,
		boolToInt(c.Shiny),
		int(c.Tier),
		c.Stats.HP,
		c.Stats.Attack,
		c.Stats.Defense,
		c.Stats.SpAttack,
		c.Stats.SpDefense,
		c.Stats.Speed,
		c.CaughtAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) GrantCatchRewards(ctx context.Context, userId int64, exp, coins int) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, coins, experience, caught)
		VALUES (?,?,?,1)
		ON CONFLICT (user_id) DO UPDATE SET
			coins      = coins + excluded.coins,
			experience = experience + excluded.experience,
			caught     = caught + 1
	`, userId, coins, exp)
	return err
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("store not initialized")
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM spawns WHERE status = 'active' AND expires_at <= ?
	`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) ListCreatures(ctx context.Context, ownerId int64, limit int) ([]creature.Creature, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT creature_id, owner_id, species_id, species, level, is_shiny, tier,
		       hp, attack, defense, sp_attack, sp_defense, speed, caught_at
		FROM creatures
		WHERE owner_id = ?
		ORDER BY caught_at DESC, creature_id DESC
		LIMIT ?
	`, ownerId, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]creature.Creature, 0, limit)
	for rows.Next() {
		var (
			c          creature.Creature
			spid, tier int
			shiny      int
			caughtUnix int64
		)
		if err := rows.Scan(
			&c.Id, &c.OwnerId, &spid, &c.Species, &c.Level, &shiny, &tier,
			&c.Stats.HP, &c.Stats.Attack, &c.Stats.Defense,
			&c.Stats.SpAttack, &c.Stats.SpDefense, &c.Stats.Speed,
			&caughtUnix,
		); err != nil {
			return nil, err
		}
		c.SpeciesId = creature.SpeciesId(spid)
		c.Shiny = shiny != 0
		c.Tier = creature.RarityTier(tier)
		c.CaughtAt = time.Unix(caughtUnix, 0).UTC()
		out = append(out, c)
	}

	return out, rows.Err()
}

func (s *SQLiteStore) TopCatchers(ctx context.Context, channelId int64, limit int) ([]Catcher, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT caught_by, COUNT(*) AS n
		FROM spawns
		WHERE channel_id = ? AND status = 'caught'
		GROUP BY caught_by
		ORDER BY n DESC, caught_by ASC
		LIMIT ?
	`, channelId, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Catcher, 0, limit)
	for rows.Next() {
		var c Catcher
		if err := rows.Scan(&c.UserId, &c.Caught); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func (s *SQLiteStore) SpawnStats(ctx context.Context, channelId int64) (spawn.Stats, error) {
	if s == nil || s.db == nil {
		return spawn.Stats{}, errors.New("store not initialized")
	}

	q := `
		SELECT COUNT(*),
		       COALESCE(SUM(status = 'caught'), 0),
		       COALESCE(SUM(is_shiny), 0),
		       COALESCE(AVG(level), 0)
		FROM spawns
	`
	args := []any{}
	if channelId != 0 {
		q += ` WHERE channel_id = ?`
		args = append(args, channelId)
	}

	var st spawn.Stats
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&st.Total, &st.Caught, &st.Shiny, &st.AvgLevel)
	return st, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpawn(row rowScanner) (*spawn.Spawn, error) {
	var (
		sp          spawn.Spawn
		spid, tier  int
		shiny       int
		status      string
		spawnedUnix int64
		expiresUnix int64
		caughtUnix  int64
	)
	err := row.Scan(
		&sp.Id, &sp.ChannelId, &spid, &sp.Species, &sp.Level, &shiny,
		&tier, &status, &spawnedUnix, &expiresUnix, &sp.CaughtBy, &caughtUnix,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sp.SpeciesId = creature.SpeciesId(spid)
	sp.Shiny = shiny != 0
	sp.Tier = creature.RarityTier(tier)
	sp.Status = spawn.Status(status)
	sp.SpawnedAt = time.Unix(spawnedUnix, 0).UTC()
	sp.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
	if caughtUnix > 0 {
		sp.CaughtAt = time.Unix(caughtUnix, 0).UTC()
	}
	return &sp, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
