package game

import "testing"

// newWarFixture builds a 2-player war game on a 4-territory line map:
// t1 - t2 - t3 - t4. Each player has unitsToPlace units to put down.
func newWarFixture(unitsToPlace int) *GameState {
	g := NewGame(TypeWar)
	g.Territories["t1"] = &Territory{ID: "t1", Name: "Alpha", Connections: []string{"t2"}}
	g.Territories["t2"] = &Territory{ID: "t2", Name: "Bravo", Connections: []string{"t1", "t3"}}
	g.Territories["t3"] = &Territory{ID: "t3", Name: "Charlie", Connections: []string{"t2", "t4"}}
	g.Territories["t4"] = &Territory{ID: "t4", Name: "Delta", Connections: []string{"t3"}}
	g.AddPlayer(&Player{ID: "p1", Name: "one", Color: "red", Energy: 20, RemainingUnitsToPlace: unitsToPlace, Connected: true})
	g.AddPlayer(&Player{ID: "p2", Name: "two", Color: "blue", Energy: 20, RemainingUnitsToPlace: unitsToPlace, Connected: true})
	return g
}

// mustApply applies an action and fails the test on rejection.
func mustApply(t *testing.T, g *GameState, a Action) *Result {
	t.Helper()
	res, err := Apply(g, a)
	if err != nil {
		t.Fatalf("Apply(%s) rejected: %v", a.Type, err)
	}
	return res
}

func placeUnits(playerID, territoryID string, count int) Action {
	return NewAction(ActionPlaceUnit, playerID, ActionData{Place: &PlacePayload{TerritoryID: territoryID, Count: count}})
}

// finishSetup walks both fixture players through all four setup sub-phases
// and returns the state at the start of year-1 bidding.
func finishSetup(t *testing.T, g *GameState) *GameState {
	t.Helper()
	g = mustApply(t, g, placeUnits("p1", "t1", g.PlayerByID("p1").RemainingUnitsToPlace)).State
	g = mustApply(t, g, placeUnits("p2", "t4", g.PlayerByID("p2").RemainingUnitsToPlace)).State
	for _, step := range []struct {
		typ ActionType
		tid map[string]string
	}{
		{ActionPlaceLandCommander, map[string]string{"p1": "t1", "p2": "t4"}},
		{ActionPlaceDiplomatCommander, map[string]string{"p1": "t1", "p2": "t4"}},
		{ActionPlaceSpaceBase, map[string]string{"p1": "t1", "p2": "t4"}},
	} {
		for _, pid := range []string{"p1", "p2"} {
			g = mustApply(t, g, NewAction(step.typ, pid, ActionData{Place: &PlacePayload{TerritoryID: step.tid[pid]}})).State
		}
	}
	if g.Status != StatusBidding {
		t.Fatalf("Status = %s after setup, want bidding", g.Status)
	}
	return g
}

// revealBids emits the system reveal with the given tiebreak rolls.
func revealBids(rolls map[string]int) Action {
	return NewAction(ActionRevealBids, "", ActionData{Reveal: &RevealPayload{TiebreakRolls: rolls}})
}

// startYearOne drives the fixture through bidding into playing.
func startYearOne(t *testing.T, g *GameState, bid1, bid2 int) *GameState {
	t.Helper()
	g = mustApply(t, g, NewAction(ActionSubmitBid, "p1", ActionData{Bid: &BidPayload{Amount: bid1}})).State
	g = mustApply(t, g, NewAction(ActionSubmitBid, "p2", ActionData{Bid: &BidPayload{Amount: bid2}})).State
	g = mustApply(t, g, revealBids(map[string]int{"p1": 6, "p2": 1})).State
	if g.Status != StatusPlaying {
		t.Fatalf("Status = %s after reveal, want playing", g.Status)
	}
	return g
}

// TestSetupCompletion mirrors the setup scenario: 2 players with 10 units
// each; after both place all 10, setup advances past the units sub-phase,
// and completing commanders and bases opens bidding.
func TestSetupCompletion(t *testing.T) {
	g := newWarFixture(10)

	for i := 0; i < 10; i++ {
		g = mustApply(t, g, placeUnits("p1", "t1", 1)).State
	}
	if g.SetupPhase != SetupUnits {
		t.Fatalf("SetupPhase = %s with one player unplaced, want units", g.SetupPhase)
	}
	for i := 0; i < 10; i++ {
		g = mustApply(t, g, placeUnits("p2", "t4", 1)).State
	}

	if got := g.PlayerByID("p1").RemainingUnitsToPlace; got != 0 {
		t.Errorf("p1 RemainingUnitsToPlace = %d, want 0", got)
	}
	if got := g.PlayerByID("p2").RemainingUnitsToPlace; got != 0 {
		t.Errorf("p2 RemainingUnitsToPlace = %d, want 0", got)
	}
	if g.SetupPhase != SetupLandCommander {
		t.Fatalf("SetupPhase = %s, want land_commander", g.SetupPhase)
	}

	// Over-placing is rejected.
	if _, err := Apply(g, placeUnits("p1", "t1", 1)); err == nil {
		t.Error("placing after units sub-phase should be rejected")
	}
}

// TestPlaceUnitClaimsAndConflicts verifies unowned claiming and the conflict
// rejection for contested territories.
func TestPlaceUnitClaimsAndConflicts(t *testing.T) {
	g := newWarFixture(5)
	g = mustApply(t, g, placeUnits("p1", "t2", 2)).State
	if got := g.Territories["t2"].OwnerID; got != "p1" {
		t.Fatalf("t2 owner = %q, want p1", got)
	}

	_, err := Apply(g, placeUnits("p2", "t2", 1))
	if err == nil {
		t.Fatal("placing on another player's territory should be rejected")
	}
	if err.Kind != KindConflict {
		t.Errorf("err.Kind = %v, want conflict", err.Kind)
	}
}

// TestPhaseAndTurnCycle walks phases 1..7 for the first player and checks
// the turn hands over, then that finishing the last seat rolls the year.
func TestPhaseAndTurnCycle(t *testing.T) {
	g := finishSetup(t, newWarFixture(3))
	g = startYearOne(t, g, 3, 1)

	first := g.Bidding.FinalTurnOrder[0]
	second := g.Bidding.FinalTurnOrder[1]
	if g.CurrentPlayer().ID != first {
		t.Fatalf("current player = %s, want bid winner %s", g.CurrentPlayer().ID, first)
	}

	for phase := 1; phase < MaxPhases; phase++ {
		if g.CurrentPhase != phase {
			t.Fatalf("CurrentPhase = %d, want %d", g.CurrentPhase, phase)
		}
		g = mustApply(t, g, NewAction(ActionAdvancePhase, first, ActionData{})).State
	}
	// Advancing past phase 7 ends the turn.
	g = mustApply(t, g, NewAction(ActionAdvancePhase, first, ActionData{})).State
	if g.CurrentPlayer().ID != second {
		t.Fatalf("current player = %s after turn end, want %s", g.CurrentPlayer().ID, second)
	}
	if g.CurrentPhase != 1 {
		t.Errorf("CurrentPhase = %d at turn start, want 1", g.CurrentPhase)
	}

	// Second seat ends their turn; year 1 is over and year 2 bidding opens.
	g = mustApply(t, g, NewAction(ActionAdvanceTurn, second, ActionData{})).State
	if g.Status != StatusBidding {
		t.Fatalf("Status = %s after final seat, want bidding", g.Status)
	}
	if g.Bidding.Year != 2 {
		t.Errorf("Bidding.Year = %d, want 2", g.Bidding.Year)
	}
}

// TestGameFinishesAfterFinalYear fast-forwards five years and checks the
// terminal state rejects mutation.
func TestGameFinishesAfterFinalYear(t *testing.T) {
	g := finishSetup(t, newWarFixture(1))
	for year := 1; year <= MaxYears; year++ {
		g = mustApply(t, g, NewAction(ActionSubmitBid, "p1", ActionData{Bid: &BidPayload{Amount: 0}})).State
		g = mustApply(t, g, NewAction(ActionSubmitBid, "p2", ActionData{Bid: &BidPayload{Amount: 0}})).State
		g = mustApply(t, g, revealBids(map[string]int{"p1": 5, "p2": 2})).State
		order := g.Bidding.FinalTurnOrder
		for _, pid := range order {
			g = mustApply(t, g, NewAction(ActionAdvanceTurn, pid, ActionData{})).State
			if g.Status == StatusFinished || g.Status == StatusBidding {
				break
			}
		}
	}
	if g.Status != StatusFinished {
		t.Fatalf("Status = %s after %d years, want finished", g.Status, MaxYears)
	}

	if _, err := Apply(g, NewAction(ActionAdvanceTurn, "p1", ActionData{})); err == nil {
		t.Error("finished game should reject mutating actions")
	}
}

// TestPauseResume verifies paused games accept only resume.
func TestPauseResume(t *testing.T) {
	g := startYearOne(t, finishSetup(t, newWarFixture(2)), 1, 0)
	actor := g.CurrentPlayer().ID

	g = mustApply(t, g, NewAction(ActionPauseGame, actor, ActionData{})).State
	if g.Status != StatusPaused {
		t.Fatalf("Status = %s, want paused", g.Status)
	}
	if _, err := Apply(g, NewAction(ActionAdvancePhase, actor, ActionData{})); err == nil {
		t.Error("paused game should reject non-resume actions")
	}
	g = mustApply(t, g, NewAction(ActionResumeGame, actor, ActionData{})).State
	if g.Status != StatusPlaying {
		t.Fatalf("Status = %s, want playing", g.Status)
	}
	if g.PausedFrom != "" {
		t.Errorf("PausedFrom = %q after resume, want empty", g.PausedFrom)
	}
}

// TestPauseDuringBiddingResumesAuction verifies resume restores the status a
// pause interrupted: an auction paused mid-round reopens as bidding and can
// still collect and reveal bids.
func TestPauseDuringBiddingResumesAuction(t *testing.T) {
	g := finishSetup(t, newWarFixture(1))
	g = mustApply(t, g, NewAction(ActionSubmitBid, "p1", ActionData{Bid: &BidPayload{Amount: 4}})).State

	g = mustApply(t, g, NewAction(ActionPauseGame, "p1", ActionData{})).State
	if g.PausedFrom != StatusBidding {
		t.Fatalf("PausedFrom = %s, want bidding", g.PausedFrom)
	}
	g = mustApply(t, g, NewAction(ActionResumeGame, "p1", ActionData{})).State
	if g.Status != StatusBidding {
		t.Fatalf("Status = %s after resume, want bidding", g.Status)
	}

	g = mustApply(t, g, NewAction(ActionSubmitBid, "p2", ActionData{Bid: &BidPayload{Amount: 2}})).State
	if !g.AllBidsIn() {
		t.Fatal("AllBidsIn() = false with both bids submitted")
	}
	g = mustApply(t, g, revealBids(nil)).State
	if g.Status != StatusPlaying {
		t.Fatalf("Status = %s after reveal, want playing", g.Status)
	}
	if got := g.PlayerByID("p1").Energy; got != 16 {
		t.Errorf("p1 Energy = %d after winning 4-bid, want 16", got)
	}
}

// TestPauseDuringSetupResumesPlacement covers the same restore path for a
// pause issued before placement finishes.
func TestPauseDuringSetupResumesPlacement(t *testing.T) {
	g := newWarFixture(1)
	g = mustApply(t, g, NewAction(ActionPauseGame, "p1", ActionData{})).State
	g = mustApply(t, g, NewAction(ActionResumeGame, "p1", ActionData{})).State
	if g.Status != StatusSetup {
		t.Fatalf("Status = %s after resume, want setup", g.Status)
	}
	g = mustApply(t, g, placeUnits("p1", "t1", 1)).State
	if got := g.PlayerByID("p1").RemainingUnitsToPlace; got != 0 {
		t.Errorf("p1 RemainingUnitsToPlace = %d, want 0", got)
	}
}

// TestPendingDecisionBlocks verifies a pending decision gates the player's
// legal-action set until resolved.
func TestPendingDecisionBlocks(t *testing.T) {
	g := startYearOne(t, finishSetup(t, newWarFixture(2)), 1, 0)
	actor := g.CurrentPlayer()
	actor.Pending = &PendingDecision{Type: "choose_target", Choices: []string{"t2", "t3"}}

	if _, err := Apply(g, NewAction(ActionAdvancePhase, actor.ID, ActionData{})); err == nil {
		t.Fatal("player with pending decision should be blocked")
	}
	if _, err := Apply(g, NewAction(ActionResolveDecision, actor.ID, ActionData{Decision: &DecisionPayload{Choice: "nope"}})); err == nil {
		t.Fatal("off-menu choice should be rejected")
	}
	g = mustApply(t, g, NewAction(ActionResolveDecision, actor.ID, ActionData{Decision: &DecisionPayload{Choice: "t2"}})).State
	if g.CurrentPlayer().Pending != nil {
		t.Error("pending decision should be cleared after resolution")
	}
	g = mustApply(t, g, NewAction(ActionAdvancePhase, actor.ID, ActionData{})).State
	if g.CurrentPhase != 2 {
		t.Errorf("CurrentPhase = %d, want 2", g.CurrentPhase)
	}
}

// TestSetBotMode verifies bot behavior is switchable through the action log
// and validated like any other mutation.
func TestSetBotMode(t *testing.T) {
	g := newWarFixture(1)
	g.PlayerByID("p2").IsBot = true
	g.PlayerByID("p2").BotMode = "passive"

	set := func(target, mode string) Action {
		return NewAction(ActionSetBotMode, "p1", ActionData{
			BotMode: &BotModePayload{TargetID: target, Mode: mode},
		})
	}

	g = mustApply(t, g, set("p2", "zombie")).State
	if got := g.PlayerByID("p2").BotMode; got != "zombie" {
		t.Fatalf("BotMode = %q, want zombie", got)
	}

	if _, err := Apply(g, set("p2", "berserk")); err == nil {
		t.Error("unknown mode should be rejected")
	}
	if _, err := Apply(g, set("p1", "zombie")); err == nil {
		t.Error("non-bot target should be rejected")
	}
	if _, err := Apply(g, set("ghost", "zombie")); err == nil {
		t.Error("unknown target should be rejected")
	}
	if got := g.PlayerByID("p2").BotMode; got != "zombie" {
		t.Errorf("rejected actions must leave BotMode at %q, got %q", "zombie", got)
	}
}
