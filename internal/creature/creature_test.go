package creature

import (
	mrand "math/rand"
	"testing"
)

const registryJSON = `[
	{"id": 0, "key": "glimmet", "name": "Glimmet", "weight": 100,
	 "stats": {"hp": 45, "attack": 40, "defense": 50, "spAttack": 60, "spDefense": 55, "speed": 35}},
	{"id": 1, "key": "rooklaw", "name": "Rooklaw", "weight": 40,
	 "stats": {"hp": 60, "attack": 70, "defense": 55, "spAttack": 45, "spDefense": 50, "speed": 65},
	 "tags": ["rare"]},
	{"id": 2, "key": "aurelith", "name": "Aurelith", "weight": 5,
	 "stats": {"hp": 90, "attack": 95, "defense": 85, "spAttack": 100, "spDefense": 90, "speed": 80},
	 "tags": ["legendary"]},
	{"id": 3, "key": "brindle", "name": "Brindle", "weight": 60,
	 "stats": {"hp": 50, "attack": 55, "defense": 45, "spAttack": 40, "spDefense": 45, "speed": 60},
	 "tags": ["uncommon"]}
]`

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := ParseRegistry([]byte(registryJSON))
	if err != nil {
		t.Fatalf("parse registry: %v", err)
	}
	return reg
}

func TestParseRegistryRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"empty list", `[]`},
		{"duplicate id", `[{"id":0,"key":"a"},{"id":0,"key":"b"}]`},
		{"duplicate key", `[{"id":0,"key":"a"},{"id":1,"key":"a"}]`},
		{"missing key", `[{"id":0}]`},
		{"negative id", `[{"id":-1,"key":"a"}]`},
		{"gap in ids", `[{"id":0,"key":"a"},{"id":2,"key":"b"}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseRegistry([]byte(tc.json)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRegistryLookups(t *testing.T) {
	reg := testRegistry(t)

	sp, ok := reg.GetById(1)
	if !ok || sp.Name != "Rooklaw" {
		t.Fatalf("GetById(1) = %v, %v", sp, ok)
	}
	if _, ok := reg.GetById(99); ok {
		t.Fatal("GetById(99) should miss")
	}

	id, ok := reg.IdByKey("aurelith")
	if !ok || id != 2 {
		t.Fatalf("IdByKey(aurelith) = %v, %v", id, ok)
	}

	if got := reg.NameById(99); got != "Unknown" {
		t.Fatalf("NameById(99) = %q", got)
	}
}

func TestFallbackIdsExcludeRareTiers(t *testing.T) {
	reg := testRegistry(t)

	for _, id := range reg.FallbackIds() {
		sp, _ := reg.GetById(id)
		if sp.HasTag(TagLegendary) || sp.HasTag(TagRare) {
			t.Fatalf("fallback set contains %s", sp.Key)
		}
	}
	if got := len(reg.FallbackIds()); got != 2 {
		t.Fatalf("fallback set has %d species, want 2", got)
	}
}

func TestPickerRespectsWeights(t *testing.T) {
	reg := testRegistry(t)
	p := NewPicker(reg, mrand.New(mrand.NewSource(7)))

	counts := map[SpeciesId]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[p.PickId()]++
	}

	// Weights 100/40/5/60. The common species must dominate the
	// legendary by a wide margin; exact ratios are rng-dependent.
	if counts[0] < counts[2]*5 {
		t.Fatalf("weights ignored: common=%d legendary=%d", counts[0], counts[2])
	}
	for id := SpeciesId(0); id < 4; id++ {
		if counts[id] == 0 {
			t.Fatalf("species %d never picked in %d draws", id, n)
		}
	}
}

func TestTierFor(t *testing.T) {
	reg := testRegistry(t)

	cases := []struct {
		key   string
		shiny bool
		want  RarityTier
	}{
		{"glimmet", false, TierCommon},
		{"glimmet", true, TierEpic},
		{"brindle", false, TierUncommon},
		{"rooklaw", false, TierRare},
		{"rooklaw", true, TierLegendary},
		{"aurelith", false, TierLegendary},
		{"aurelith", true, TierMythic},
	}

	for _, tc := range cases {
		id, _ := reg.IdByKey(tc.key)
		sp, _ := reg.GetById(id)
		if got := TierFor(sp, tc.shiny); got != tc.want {
			t.Errorf("TierFor(%s, shiny=%v) = %v, want %v", tc.key, tc.shiny, got, tc.want)
		}
	}
}

func TestDeriveStatsMonotonicInLevel(t *testing.T) {
	base := Stats{HP: 45, Attack: 40, Defense: 50, SpAttack: 60, SpDefense: 55, Speed: 35}

	prev := DeriveStats(base, 1)
	if prev.HP <= 0 || prev.Attack <= 0 {
		t.Fatalf("level-1 stats not positive: %+v", prev)
	}

	for level := 10; level <= 100; level += 10 {
		cur := DeriveStats(base, level)
		if cur.HP <= prev.HP {
			t.Fatalf("HP not increasing: level %d gave %d after %d", level, cur.HP, prev.HP)
		}
		if cur.Attack < prev.Attack || cur.Speed < prev.Speed {
			t.Fatalf("stats decreased between levels: %+v -> %+v", prev, cur)
		}
		prev = cur
	}
}

func TestCatchRewardsScaleWithTierAndLevel(t *testing.T) {
	if CatchExp(TierMythic, 10) <= CatchExp(TierCommon, 10) {
		t.Fatal("mythic catches should reward more exp than common")
	}
	if CatchExp(TierCommon, 50) <= CatchExp(TierCommon, 5) {
		t.Fatal("exp should grow with level")
	}
	if CatchCoins(10, true) != CatchCoins(10, false)+100 {
		t.Fatal("shiny bonus should be a flat 100 coins")
	}
}
