package spawn

import (
	"time"

	"github.com/google/uuid"
	"github.com/oskarv/chat-safari/internal/creature"
)

// Status is the durable lifecycle state of a spawn. Caught and escaped
// are terminal; expiry is not a stored state but a property of ExpiresAt
// against the clock, checked at every atomicity boundary.
type Status string

const (
	StatusActive  Status = "active"
	StatusCaught  Status = "caught"
	StatusEscaped Status = "escaped"
)

// Spawn is a time-boxed, channel-scoped claimable event. At most one
// spawn per channel may be active at any instant.
type Spawn struct {
	Id        string
	ChannelId int64
	SpeciesId creature.SpeciesId
	Species   string
	Level     int
	Shiny     bool
	Tier      creature.RarityTier
	Status    Status
	SpawnedAt time.Time
	ExpiresAt time.Time
	CaughtBy  int64
	CaughtAt  time.Time
}

func (s *Spawn) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

func NewId() string {
	return "spawn_" + uuid.NewString()
}

// Outcome classifies a resolved capture attempt.
type Outcome int

const (
	// OutcomeCaught: this call won the race and the catch roll succeeded.
	OutcomeCaught Outcome = iota
	// OutcomeEscaped: this call won the race but the creature broke free.
	// The spawn is consumed either way; nobody gets another attempt.
	OutcomeEscaped
	// OutcomeAlreadyCaught: another call resolved the spawn first.
	OutcomeAlreadyCaught
	// OutcomeExpired: the capture window had closed.
	OutcomeExpired
	// OutcomeNotFound: no such spawn (purged or never existed).
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCaught:
		return "caught"
	case OutcomeEscaped:
		return "escaped"
	case OutcomeAlreadyCaught:
		return "already caught"
	case OutcomeExpired:
		return "expired"
	default:
		return "not found"
	}
}

// Capture is the result of ResolveCapture. Creature, Exp and Coins are
// set only for OutcomeCaught; Spawn is set whenever the spawn row still
// exists.
type Capture struct {
	Outcome  Outcome
	Spawn    *Spawn
	Creature *creature.Creature
	Exp      int
	Coins    int
}
