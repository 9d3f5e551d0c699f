package draft

import "testing"

func TestScoreCardColorAffinity(t *testing.T) {
	pool := []Card{
		{ID: "r1", Colors: []string{"red"}},
		{ID: "r2", Colors: []string{"red"}},
		{ID: "r3", Colors: []string{"red"}},
		{ID: "b1", Colors: []string{"blue"}},
	}
	red := Card{ID: "x", Rarity: "common", ManaValue: 3, Colors: []string{"red"}}
	blue := Card{ID: "y", Rarity: "common", ManaValue: 3, Colors: []string{"blue"}}

	if sr, sb := ScoreCard(red, pool), ScoreCard(blue, pool); sr <= sb {
		t.Errorf("committed-color card scored %d, off-color %d; want red higher", sr, sb)
	}
}

func TestScoreCardRarityAndPriority(t *testing.T) {
	mythic := Card{Rarity: "mythic", ManaValue: 2}
	common := Card{Rarity: "common", ManaValue: 2}
	if sm, sc := ScoreCard(mythic, nil), ScoreCard(common, nil); sm <= sc {
		t.Errorf("mythic scored %d, common %d", sm, sc)
	}

	boosted := Card{Rarity: "common", ManaValue: 2, Priority: 10}
	if sb, sm := ScoreCard(boosted, nil), ScoreCard(mythic, nil); sb <= sm {
		t.Errorf("priority 10 common scored %d, mythic %d; want priority to dominate", sb, sm)
	}
}

func TestCurveFitPrefersEmptySlots(t *testing.T) {
	pool := []Card{
		{ID: "a", ManaValue: 2},
		{ID: "b", ManaValue: 2},
	}
	two := Card{Rarity: "common", ManaValue: 2}
	five := Card{Rarity: "common", ManaValue: 5}
	if s2, s5 := ScoreCard(two, pool), ScoreCard(five, pool); s5 <= s2 {
		t.Errorf("curve-filling card scored %d, saturated slot %d", s5, s2)
	}
}

func TestBotPicksTakesBestCard(t *testing.T) {
	seat := &Seat{
		Pool: []Card{
			{ID: "g1", Colors: []string{"green"}},
			{ID: "g2", Colors: []string{"green"}},
			{ID: "g3", Colors: []string{"green"}},
		},
		CurrentPack: &Pack{ID: "p", Cards: []Card{
			{ID: "filler", Rarity: "common", ManaValue: 3, Colors: []string{"white"}},
			{ID: "bomb", Rarity: "mythic", ManaValue: 4, Colors: []string{"green"}},
			{ID: "ok", Rarity: "uncommon", ManaValue: 2, Colors: []string{"blue"}},
		}},
	}
	picks := BotPicks(seat, 1)
	if len(picks) != 1 || picks[0] != "bomb" {
		t.Fatalf("BotPicks = %v, want [bomb]", picks)
	}
}

func TestBotSecondPickFavorsSynergy(t *testing.T) {
	// Two otherwise equal commons: the one sharing the first pick's color and
	// type tag should win the second slot.
	seat := &Seat{
		CurrentPack: &Pack{ID: "p", Cards: []Card{
			{ID: "lead", Rarity: "mythic", ManaValue: 2, Colors: []string{"black"}, TypeTags: []string{"zombie"}},
			{ID: "plain", Rarity: "common", ManaValue: 4, Colors: []string{"white"}},
			{ID: "mate", Rarity: "common", ManaValue: 4, Colors: []string{"black"}, TypeTags: []string{"zombie"}},
		}},
	}
	picks := BotPicks(seat, 2)
	if len(picks) != 2 {
		t.Fatalf("BotPicks returned %d picks, want 2", len(picks))
	}
	if picks[0] != "lead" || picks[1] != "mate" {
		t.Errorf("BotPicks = %v, want [lead mate]", picks)
	}
}

func TestBotPicksEmptyPack(t *testing.T) {
	if got := BotPicks(&Seat{CurrentPack: nil}, 1); got != nil {
		t.Errorf("BotPicks on nil pack = %v, want nil", got)
	}
}
