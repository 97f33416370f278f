package store

import (
	"context"

	"github.com/oskarv/chat-safari/internal/creature"
	"github.com/oskarv/chat-safari/internal/spawn"
)

// Catcher is one row of the per-channel catch leaderboard.
type Catcher struct {
	UserId int64
	Caught int
}

// Store is the durable backend contract. The conditional operations
// report whether the caller's write took effect; that return value is
// the only authority for the create/capture races.
type Store interface {
	spawn.Store

	ListCreatures(ctx context.Context, ownerId int64, limit int) ([]creature.Creature, error)
	TopCatchers(ctx context.Context, channelId int64, limit int) ([]Catcher, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
