package creature

import (
	"time"

	"github.com/google/uuid"
)

// Creature is the canonical owned-creature record used by handlers and
// stores. Payload fields are fixed at catch time and never mutate.
type Creature struct {
	Id        string
	OwnerId   int64
	SpeciesId SpeciesId
	Species   string
	Level     int
	Shiny     bool
	Tier      RarityTier
	Stats     Stats
	CaughtAt  time.Time
}

func NewId() string {
	return "creature_" + uuid.NewString()
}
