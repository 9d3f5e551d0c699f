package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/farhorizons/tabletop/internal/draft"
)

// PoolCard is one line of a cube list: a card name, how many copies the
// cube runs, and an explicit pick-priority weight.
type PoolCard struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Priority int    `json:"priority"`
}

// DraftPool hydrates a cube list into draftable cards. Every name must
// resolve; a draft cannot start with holes in its pool, so a missing card
// is an error rather than an omission.
func DraftPool(ctx context.Context, lk Lookup, list []PoolCard) ([]draft.Card, error) {
	names := make([]string, 0, len(list))
	for _, pc := range list {
		names = append(names, pc.Name)
	}
	entries, err := lk.Lookup(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("hydrate draft pool: %w", err)
	}
	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}

	var pool []draft.Card
	for _, pc := range list {
		e, ok := byName[pc.Name]
		if !ok {
			return nil, fmt.Errorf("card %q is not in the catalog", pc.Name)
		}
		count := pc.Count
		if count <= 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			id := e.ID
			if i > 0 {
				id = fmt.Sprintf("%s#%d", e.ID, i+1)
			}
			pool = append(pool, draft.Card{
				ID:        id,
				Name:      e.Name,
				Rarity:    e.Rarity,
				ManaValue: e.ManaValue,
				Colors:    e.Colors,
				TypeTags:  typeTags(e.TypeLine),
				Priority:  pc.Priority,
			})
		}
	}
	return pool, nil
}

// typeTags splits a type line like "Legendary Creature — Zombie Wizard"
// into individual tags the synergy scorer can match on.
func typeTags(line string) []string {
	var tags []string
	for _, part := range strings.Split(line, "—") {
		for _, word := range strings.Fields(part) {
			tags = append(tags, strings.ToLower(word))
		}
	}
	return tags
}
