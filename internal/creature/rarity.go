package creature

// Tier set tags recognized in the species registry JSON.
const (
	TagLegendary = "legendary"
	TagRare      = "rare"
	TagUncommon  = "uncommon"
)

type RarityTier int

const (
	TierCommon RarityTier = iota
	TierUncommon
	TierRare
	TierEpic
	TierLegendary
	TierMythic
)

func (t RarityTier) String() string {
	switch t {
	case TierMythic:
		return "Mythic"
	case TierLegendary:
		return "Legendary"
	case TierEpic:
		return "Epic"
	case TierRare:
		return "Rare"
	case TierUncommon:
		return "Uncommon"
	default:
		return "Common"
	}
}

// TierFor derives the tier of a spawned instance. Membership in the
// configured legendary/rare sets decides the base tier; a shiny roll
// bumps the instance up (a shiny legendary is the rarest thing there is).
func TierFor(sp Species, shiny bool) RarityTier {
	base := TierCommon
	switch {
	case sp.HasTag(TagLegendary):
		base = TierLegendary
	case sp.HasTag(TagRare):
		base = TierRare
	case sp.HasTag(TagUncommon):
		base = TierUncommon
	}

	if !shiny {
		return base
	}
	switch base {
	case TierLegendary:
		return TierMythic
	case TierRare:
		return TierLegendary
	default:
		return TierEpic
	}
}

func ColorForTier(t RarityTier) int {
	switch t {
	case TierMythic:
		return 0xE74C3C // red
	case TierLegendary:
		return 0xF1C40F // gold
	case TierEpic:
		return 0x9B59B6 // purple
	case TierRare:
		return 0x3498DB // blue
	case TierUncommon:
		return 0x2ECC71 // green
	default:
		return 0x95A5A6 // gray
	}
}
