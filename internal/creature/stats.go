package creature

type Stats struct {
	HP        int
	Attack    int
	Defense   int
	SpAttack  int
	SpDefense int
	Speed     int
}

// DeriveStats computes the battle stats of an instance at the given level.
// HP gets ((2*base+31)*level/100)+level+10, everything else
// ((2*base+31)*level/100)+5. Strictly increasing in level for any base.
func DeriveStats(base Stats, level int) Stats {
	if level < 1 {
		level = 1
	}
	stat := func(b int) int { return (2*b+31)*level/100 + 5 }
	return Stats{
		HP:        (2*base.HP+31)*level/100 + level + 10,
		Attack:    stat(base.Attack),
		Defense:   stat(base.Defense),
		SpAttack:  stat(base.SpAttack),
		SpDefense: stat(base.SpDefense),
		Speed:     stat(base.Speed),
	}
}

// CatchExp is the experience reward for a successful catch.
func CatchExp(tier RarityTier, level int) int {
	base := 10
	switch tier {
	case TierUncommon:
		base = 20
	case TierRare:
		base = 35
	case TierEpic:
		base = 50
	case TierLegendary:
		base = 75
	case TierMythic:
		base = 100
	}
	return base + level/5
}

// CatchCoins is the coin reward for a successful catch.
func CatchCoins(level int, shiny bool) int {
	coins := level * 5
	if shiny {
		coins += 100
	}
	return coins
}
