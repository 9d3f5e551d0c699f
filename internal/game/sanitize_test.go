package game

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"
)

// TestBidSecrecyBeforeReveal: before BidsRevealed, no sanitized view for any
// recipient may contain another player's bid value — not even serialized.
func TestBidSecrecyBeforeReveal(t *testing.T) {
	g := finishSetup(t, newWarFixture(1))
	g = mustApply(t, g, NewAction(ActionSubmitBid, "p1", ActionData{Bid: &BidPayload{Amount: 17}})).State

	for _, recipient := range []string{"p1", "p2", ""} {
		view := Sanitize(g, recipient)
		raw, err := json.Marshal(view)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if strings.Contains(string(raw), strconv.Itoa(17)) {
			t.Errorf("sanitized view for %q leaks the bid amount: %s", recipient, raw)
		}
		if view.Bidding.Bids != nil {
			t.Errorf("Bidding.Bids should be nil pre-reveal for %q", recipient)
		}
	}

	// Submission status (not amount) is public.
	view := Sanitize(g, "p2")
	if !view.Players[0].HasBid {
		t.Error("p1.HasBid should be visible to p2")
	}
	if view.Players[1].HasBid {
		t.Error("p2.HasBid should be false")
	}
}

// TestBidsVisibleAfterReveal: once revealed, amounts and turn order are
// public to everyone including spectators.
func TestBidsVisibleAfterReveal(t *testing.T) {
	g := finishSetup(t, newWarFixture(1))
	g = mustApply(t, g, NewAction(ActionSubmitBid, "p1", ActionData{Bid: &BidPayload{Amount: 4}})).State
	g = mustApply(t, g, NewAction(ActionSubmitBid, "p2", ActionData{Bid: &BidPayload{Amount: 2}})).State
	g = mustApply(t, g, revealBids(map[string]int{"p1": 1, "p2": 1})).State

	view := Sanitize(g, "")
	if view.Bidding == nil || !view.Bidding.BidsRevealed {
		t.Fatal("revealed bidding should be visible")
	}
	if view.Bidding.Bids["p1"] != 4 || view.Bidding.Bids["p2"] != 2 {
		t.Errorf("Bids = %v", view.Bidding.Bids)
	}
	if view.Bidding.HighestBidder != "p1" {
		t.Errorf("HighestBidder = %q", view.Bidding.HighestBidder)
	}
}

// TestHiddenHandReplacedByLength: opponents and spectators see only the hand
// size; the owner sees the ids and card faces.
func TestHiddenHandReplacedByLength(t *testing.T) {
	g := newTCGFixture()

	oppView := Sanitize(g, "p2")
	p1View := oppView.Players[0]
	if _, ok := p1View.Zones[ZoneHand]; ok {
		t.Error("p2 should not see p1's hand id list")
	}
	if got := p1View.HiddenZones[ZoneHand].Length; got != 3 {
		t.Errorf("p1 hand length shown to p2 = %d, want 3", got)
	}
	for id := range oppView.Cards {
		if g.Cards[id].Zone == ZoneHand && g.Cards[id].OwnerID == "p1" {
			t.Errorf("card %s from p1's hand leaked into p2's view", id)
		}
	}

	selfView := Sanitize(g, "p1")
	if got := len(selfView.Players[0].Zones[ZoneHand]); got != 3 {
		t.Errorf("p1 sees %d hand cards, want 3", got)
	}
	if c, ok := selfView.Cards["c1"]; !ok || !c.Known || c.Name != "Bolt" {
		t.Errorf("owner should see own hand card details, got %+v", c)
	}
}

// TestFaceUpCardsPublic: battlefield cards are visible to everyone.
func TestFaceUpCardsPublic(t *testing.T) {
	g := newTCGFixture()
	view := Sanitize(g, "")
	c, ok := view.Cards["c4"]
	if !ok || !c.Known || c.Name != "Bear" {
		t.Errorf("spectator should see the face-up battlefield card, got %+v", c)
	}
}

// TestPendingDecisionOwnerOnly: choices are owner-only; others see only the
// blocked flag.
func TestPendingDecisionOwnerOnly(t *testing.T) {
	g := startYearOne(t, finishSetup(t, newWarFixture(1)), 1, 0)
	g.CurrentPlayer().Pending = &PendingDecision{Type: "choose_target", Choices: []string{"t2"}}
	actorID := g.CurrentPlayer().ID

	self := Sanitize(g, actorID)
	if self.Players[g.CurrentPlayerIndex].Pending == nil {
		t.Error("owner should see their pending decision")
	}
	other := Sanitize(g, "")
	op := other.Players[g.CurrentPlayerIndex]
	if op.Pending != nil {
		t.Error("spectator should not see decision choices")
	}
	if !op.DecisionBlocked {
		t.Error("spectator should see that the seat is blocked")
	}
}

// TestSanitizeDoesNotAliasState: mutating a sanitized view must not touch
// the authoritative aggregate.
func TestSanitizeDoesNotAliasState(t *testing.T) {
	g := newWarFixture(1)
	view := Sanitize(g, "p1")
	view.Territories["t1"].Units = 999
	if g.Territories["t1"].Units == 999 {
		t.Error("sanitized view aliases internal territory state")
	}
}
