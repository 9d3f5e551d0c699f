package game

import "sort"

// Sealed-bid auction for yearly turn order. Each player submits exactly one
// bid per year; amounts stay server-side until every active player has bid
// (or the session actor's bid timer forces a reveal). The highest bid wins
// first turn; an exact tie at the top is broken by pre-rolled tiebreak dice.
// Every bidder's energy is spent whether they win or lose — losers are not
// refunded.

// applySubmitBid records one sealed bid.
func (g *GameState) applySubmitBid(a Action) *RuleError {
	actor := g.PlayerByID(a.PlayerID)
	b := a.Data.Bid
	if b == nil {
		return validationErr("submit_bid requires a bid payload")
	}
	if g.Bidding == nil || g.Bidding.BidsRevealed {
		return validationErr("no bidding round is open")
	}
	if _, dup := g.Bidding.BidsSubmitted[actor.ID]; dup {
		return validationErr("player %s already bid this year", actor.ID)
	}
	if b.Amount < 0 {
		return validationErr("bid must be non-negative, got %d", b.Amount)
	}
	if b.Amount > actor.Energy {
		return validationErr("player %s has %d energy, cannot bid %d", actor.ID, actor.Energy, b.Amount)
	}
	g.Bidding.BidsSubmitted[actor.ID] = b.Amount
	return nil
}

// AllBidsIn reports whether every seat has submitted a bid for the open
// round. The session actor uses this to decide when to emit reveal_bids.
func (g *GameState) AllBidsIn() bool {
	if g.Status != StatusBidding || g.Bidding == nil || g.Bidding.BidsRevealed {
		return false
	}
	for _, p := range g.Players {
		if _, ok := g.Bidding.BidsSubmitted[p.ID]; !ok {
			return false
		}
	}
	return true
}

// applyRevealBids resolves the open auction: reveals all bids
// simultaneously, deducts every bidder's energy, computes the turn order,
// and starts the year. Tiebreak rolls come pre-rolled in the payload and are
// consulted only between players whose bids tie exactly.
func (g *GameState) applyRevealBids(a Action) ([]Effect, *RuleError) {
	r := a.Data.Reveal
	if r == nil {
		return nil, validationErr("reveal_bids requires a reveal payload")
	}
	if g.Status != StatusBidding || g.Bidding == nil || g.Bidding.BidsRevealed {
		return nil, validationErr("no bidding round is open")
	}
	if !r.Forced && !g.AllBidsIn() {
		return nil, validationErr("cannot reveal before all players have bid")
	}
	if err := checkRolls(mapValues(r.TiebreakRolls), TiebreakDie); err != nil {
		return nil, err
	}

	bids := g.Bidding.BidsSubmitted
	// A forced (timeout) reveal records missing bids as zero.
	for _, p := range g.Players {
		if _, ok := bids[p.ID]; !ok {
			bids[p.ID] = 0
		}
	}

	// Spend every bid, win or lose.
	for _, p := range g.Players {
		p.Energy -= bids[p.ID]
		if p.Energy < 0 {
			p.Energy = 0
		}
	}

	order := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		order = append(order, p.ID)
	}
	// Sort by bid descending, exact ties by tiebreak roll descending, then
	// seat order for stability (two equal rolls keep seat order).
	sort.SliceStable(order, func(i, j int) bool {
		bi, bj := bids[order[i]], bids[order[j]]
		if bi != bj {
			return bi > bj
		}
		return r.TiebreakRolls[order[i]] > r.TiebreakRolls[order[j]]
	})

	g.Bidding.BidsRevealed = true
	g.Bidding.TiebreakRolls = r.TiebreakRolls
	g.Bidding.HighestBidder = order[0]
	g.Bidding.FinalTurnOrder = order

	g.startYear()

	revealed := copyIntMap(bids)
	return []Effect{
		BidsRevealedEffect{
			Year:          g.Bidding.Year,
			Bids:          revealed,
			HighestBidder: order[0],
			TurnOrder:     append([]string(nil), order...),
		},
		PhaseChangedEffect{Year: g.CurrentYear, Phase: g.CurrentPhase, Status: g.Status},
	}, nil
}

func mapValues(m map[string]int) []int {
	vals := make([]int, 0, len(m))
	for _, v := range m {
		vals = append(vals, v)
	}
	return vals
}
