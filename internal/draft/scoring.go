package draft

import "sort"

// Rarity base weights. Unknown rarities score as commons.
var rarityScore = map[string]int{
	"common":   1,
	"uncommon": 2,
	"rare":     4,
	"mythic":   5,
}

// committedThreshold is how many cards of a color a pool needs before the
// bot treats that color as committed.
const committedThreshold = 3

const (
	colorAffinityBonus = 3
	curveFitBonus      = 2

	synergyColorBonus     = 2
	synergyColorlessBonus = 1
	synergyCurveBonus     = 1
	synergyTypeBonus      = 2
)

// committedColors returns the colors that appear at least committedThreshold
// times across the pool.
func committedColors(pool []Card) map[string]bool {
	counts := map[string]int{}
	for _, c := range pool {
		for _, col := range c.Colors {
			counts[col]++
		}
	}
	committed := map[string]bool{}
	for col, n := range counts {
		if n >= committedThreshold {
			committed[col] = true
		}
	}
	return committed
}

// curveFit rewards filling the emptiest slots of a 1..6+ mana curve.
func curveFit(card Card, pool []Card) int {
	slot := curveSlot(card.ManaValue)
	count := 0
	for _, c := range pool {
		if curveSlot(c.ManaValue) == slot {
			count++
		}
	}
	if count < 2 {
		return curveFitBonus
	}
	return 0
}

func curveSlot(mv int) int {
	if mv < 1 {
		return 1
	}
	if mv > 6 {
		return 6
	}
	return mv
}

// ScoreCard rates a single card against the seat's pool so far.
func ScoreCard(card Card, pool []Card) int {
	score := rarityScore[card.Rarity] + card.Priority + curveFit(card, pool)

	committed := committedColors(pool)
	for _, col := range card.Colors {
		if committed[col] {
			score += colorAffinityBonus
			break
		}
	}
	return score
}

// scoreSynergy rates how well two cards picked together complement each
// other: shared colors, a pair of colorless cards, adjacent curve slots, or
// shared type tags.
func scoreSynergy(a, b Card) int {
	score := 0
	if sharesAny(a.Colors, b.Colors) {
		score += synergyColorBonus
	}
	if len(a.Colors) == 0 && len(b.Colors) == 0 {
		score += synergyColorlessBonus
	}
	gap := a.ManaValue - b.ManaValue
	if gap < 0 {
		gap = -gap
	}
	if gap >= 2 && gap <= 3 {
		score += synergyCurveBonus
	}
	if sharesAny(a.TypeTags, b.TypeTags) {
		score += synergyTypeBonus
	}
	return score
}

func sharesAny(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// BotPicks chooses the cards a bot seat should take from its current pack.
// The first card is the highest-ranked by ScoreCard; when two picks are due,
// the second is rescored with a synergy bonus relative to the first. Ties
// break toward the earlier pack position so identical packs draft
// identically.
func BotPicks(seat *Seat, pickCount int) []string {
	pack := seat.CurrentPack
	if pack == nil || len(pack.Cards) == 0 {
		return nil
	}

	type ranked struct {
		pos   int
		score int
	}
	ranks := make([]ranked, len(pack.Cards))
	for i, c := range pack.Cards {
		ranks[i] = ranked{pos: i, score: ScoreCard(c, seat.Pool)}
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].score > ranks[j].score })

	first := pack.Cards[ranks[0].pos]
	picks := []string{first.ID}
	if pickCount < 2 || len(pack.Cards) < 2 {
		return picks
	}

	bestPos, bestScore := -1, 0
	for _, r := range ranks[1:] {
		c := pack.Cards[r.pos]
		s := r.score + scoreSynergy(first, c)
		if bestPos == -1 || s > bestScore {
			bestPos, bestScore = r.pos, s
		}
	}
	return append(picks, pack.Cards[bestPos].ID)
}
