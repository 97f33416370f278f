package creature

import (
	"encoding/json"
	"fmt"
	"os"
)

type SpeciesId int

type Species struct {
	Id        SpeciesId
	Key       string // stable string id if we decide to rename a species
	Name      string
	Weight    int // spawn weight (higher = more common)
	BaseStats Stats
	Tags      []string
	Image     string
}

func (sp Species) HasTag(tag string) bool {
	for _, t := range sp.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type SpeciesJSON struct {
	Id     int      `json:"id"`
	Key    string   `json:"key"`
	Name   string   `json:"name"`
	Weight int      `json:"weight"`
	Stats  struct {
		HP        int `json:"hp"`
		Attack    int `json:"attack"`
		Defense   int `json:"defense"`
		SpAttack  int `json:"spAttack"`
		SpDefense int `json:"spDefense"`
		Speed     int `json:"speed"`
	} `json:"stats"`
	Tags  []string `json:"tags"`
	Image string   `json:"thumbnail"`
}

type Registry struct {
	byId  []Species
	byKey map[string]SpeciesId
}

func LoadRegistryFromJSON(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(raw)
}

func ParseRegistry(raw []byte) (*Registry, error) {
	var arr []SpeciesJSON
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("species list is empty")
	}

	maxId := -1
	ids := make([]int, len(arr))
	seenKey := map[string]bool{}
	seenId := map[int]bool{}

	for i, sj := range arr {
		id := sj.Id
		if id < 0 {
			return nil, fmt.Errorf("negative id at index %d", i)
		}
		if seenId[id] {
			return nil, fmt.Errorf("duplicate id %d", id)
		}
		if sj.Key == "" {
			return nil, fmt.Errorf("missing key at id %d", id)
		}
		if seenKey[sj.Key] {
			return nil, fmt.Errorf("duplicate key %q", sj.Key)
		}

		seenId[id] = true
		seenKey[sj.Key] = true
		ids[i] = id
		if id > maxId {
			maxId = id
		}
	}

	byId := make([]Species, maxId+1)
	for i, sj := range arr {
		id := ids[i]
		if byId[id].Key != "" {
			return nil, fmt.Errorf("non-dense id assignment at %d", id)
		}

		if sj.Weight < 1 {
			sj.Weight = 1
		}
		byId[id] = Species{
			Id:     SpeciesId(id),
			Key:    sj.Key,
			Name:   sj.Name,
			Weight: sj.Weight,
			BaseStats: Stats{
				HP:        sj.Stats.HP,
				Attack:    sj.Stats.Attack,
				Defense:   sj.Stats.Defense,
				SpAttack:  sj.Stats.SpAttack,
				SpDefense: sj.Stats.SpDefense,
				Speed:     sj.Stats.Speed,
			},
			Tags:  sj.Tags,
			Image: sj.Image,
		}
	}

	byKey := make(map[string]SpeciesId, len(arr))
	for id, sp := range byId {
		if sp.Key == "" {
			return nil, fmt.Errorf("gap at id %d", id)
		}
		byKey[sp.Key] = SpeciesId(id)
	}

	return &Registry{byId: byId, byKey: byKey}, nil
}

func (r *Registry) GetById(id SpeciesId) (Species, bool) {
	if int(id) < 0 || int(id) >= len(r.byId) {
		return Species{}, false
	}
	return r.byId[id], true
}

func (r *Registry) NameById(id SpeciesId) string {
	if sp, ok := r.GetById(id); ok {
		return sp.Name
	}
	return "Unknown"
}

func (r *Registry) IdByKey(key string) (SpeciesId, bool) {
	id, ok := r.byKey[key]
	return id, ok
}

// FallbackIds lists the species safe to substitute when a rolled id turns
// out to be unusable: everything outside the legendary/rare tier sets.
func (r *Registry) FallbackIds() []SpeciesId {
	out := make([]SpeciesId, 0, len(r.byId))
	for _, sp := range r.byId {
		if sp.HasTag(TagLegendary) || sp.HasTag(TagRare) {
			continue
		}
		out = append(out, sp.Id)
	}
	return out
}

func (r *Registry) All() []Species {
	out := make([]Species, len(r.byId))
	copy(out, r.byId)
	return out
}

func (r *Registry) Count() int { return len(r.byId) }
