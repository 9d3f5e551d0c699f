package game

// The playing status cycles numbered phases 1–7 within each player turn:
//
//	1 energy      (income granted automatically at year start)
//	2 deployment  (deploy_units)
//	3 movement    (move_units)
//	4 combat      (attack)
//	5 invasion    (attack)
//	6 regroup     (move_units)
//	7 cleanup
//
// A phase only advances on an explicit advance_phase/advance_turn action, or
// when setup detects all required placements are done.

// warPhaseAllows gates war actions by current phase.
func warPhaseAllows(t ActionType, phase int) bool {
	switch t {
	case ActionDeployUnits:
		return phase == 2
	case ActionMoveUnits:
		return phase == 3 || phase == 6
	case ActionAttack:
		return phase == 4 || phase == 5
	}
	return true
}

// applySetupPlacement handles the four setup placement actions and advances
// the setup sub-phase machine when every seat has finished the current step.
func (g *GameState) applySetupPlacement(a Action) ([]Effect, *RuleError) {
	if g.GameType != TypeWar {
		return nil, validationErr("placement requires a war game")
	}
	actor := g.PlayerByID(a.PlayerID)
	p := a.Data.Place
	if p == nil {
		return nil, validationErr("%s requires a placement payload", a.Type)
	}
	t, ok := g.Territories[p.TerritoryID]
	if !ok {
		return nil, notFoundErr("unknown territory %q", p.TerritoryID)
	}

	switch a.Type {
	case ActionPlaceUnit:
		if g.SetupPhase != SetupUnits {
			return nil, validationErr("unit placement is over, setup phase is %s", g.SetupPhase)
		}
		count := p.Count
		if count == 0 {
			count = 1
		}
		if count < 1 || count > actor.RemainingUnitsToPlace {
			return nil, validationErr("player %s has %d units left to place, cannot place %d", actor.ID, actor.RemainingUnitsToPlace, count)
		}
		if t.OwnerID != "" && t.OwnerID != actor.ID {
			return nil, conflictErr("territory %s is held by another player", t.ID)
		}
		t.OwnerID = actor.ID
		t.IsNeutral = false
		t.Units += count
		actor.RemainingUnitsToPlace -= count

	case ActionPlaceLandCommander, ActionPlaceDiplomatCommander, ActionPlaceSpaceBase:
		if t.OwnerID != actor.ID {
			return nil, validationErr("commanders and bases must be placed on an owned territory")
		}
		switch a.Type {
		case ActionPlaceLandCommander:
			if g.SetupPhase != SetupLandCommander {
				return nil, validationErr("land commander placement is not open, setup phase is %s", g.SetupPhase)
			}
			if actor.PlacedLandCmdr {
				return nil, validationErr("player %s already placed a land commander", actor.ID)
			}
			t.HasLandCmdr = true
			actor.PlacedLandCmdr = true
		case ActionPlaceDiplomatCommander:
			if g.SetupPhase != SetupDiplomatCommander {
				return nil, validationErr("diplomat commander placement is not open, setup phase is %s", g.SetupPhase)
			}
			if actor.PlacedDiploCmdr {
				return nil, validationErr("player %s already placed a diplomat commander", actor.ID)
			}
			t.HasDiploCmdr = true
			actor.PlacedDiploCmdr = true
		case ActionPlaceSpaceBase:
			if g.SetupPhase != SetupSpaceBase {
				return nil, validationErr("space base placement is not open, setup phase is %s", g.SetupPhase)
			}
			if actor.PlacedSpaceBase {
				return nil, validationErr("player %s already placed a space base", actor.ID)
			}
			t.HasSpaceBase = true
			actor.PlacedSpaceBase = true
		}
	}

	return g.advanceSetupIfComplete(), nil
}

// advanceSetupIfComplete moves the setup sub-phase forward once every seat
// has satisfied the current step, and opens bidding after the final step.
func (g *GameState) advanceSetupIfComplete() []Effect {
	done := func(pred func(*Player) bool) bool {
		for _, p := range g.Players {
			if !pred(p) {
				return false
			}
		}
		return true
	}

	advanced := false
	switch g.SetupPhase {
	case SetupUnits:
		if done(func(p *Player) bool { return p.RemainingUnitsToPlace == 0 }) {
			g.SetupPhase = SetupLandCommander
			advanced = true
		}
	case SetupLandCommander:
		if done(func(p *Player) bool { return p.PlacedLandCmdr }) {
			g.SetupPhase = SetupDiplomatCommander
			advanced = true
		}
	case SetupDiplomatCommander:
		if done(func(p *Player) bool { return p.PlacedDiploCmdr }) {
			g.SetupPhase = SetupSpaceBase
			advanced = true
		}
	case SetupSpaceBase:
		if done(func(p *Player) bool { return p.PlacedSpaceBase }) {
			g.SetupPhase = SetupComplete
			g.openBidding(1)
			advanced = true
		}
	}
	if !advanced {
		return nil
	}
	return []Effect{PhaseChangedEffect{Year: g.CurrentYear, Phase: g.CurrentPhase, Status: g.Status}}
}

// openBidding switches the game into the sealed-bid auction for a year.
func (g *GameState) openBidding(year int) {
	g.Status = StatusBidding
	g.CurrentYear = year
	g.CurrentPhase = 1
	g.Bidding = &YearlyBidding{
		Year:          year,
		BidsSubmitted: make(map[string]int),
	}
}

// startYear begins play for the current year after bids are revealed:
// income is granted, the turn order winner acts first.
func (g *GameState) startYear() {
	g.Status = StatusPlaying
	g.CurrentPhase = 1
	g.TurnPosition = 0
	if len(g.Bidding.FinalTurnOrder) > 0 {
		g.setCurrentPlayerByID(g.Bidding.FinalTurnOrder[0])
	}
	// Year income: a base grant plus one energy per held territory.
	for _, p := range g.Players {
		p.Energy += yearBaseIncome + len(g.TerritoriesOwnedBy(p.ID))
	}
}

const yearBaseIncome = 5

func (g *GameState) setCurrentPlayerByID(id string) {
	for i, p := range g.Players {
		if p.ID == id {
			g.CurrentPlayerIndex = i
			return
		}
	}
}

// applyAdvancePhase moves the acting player to the next numbered phase;
// advancing past the last phase ends the turn.
func (g *GameState) applyAdvancePhase(a Action) ([]Effect, *RuleError) {
	if g.CurrentPhase >= MaxPhases {
		return g.endTurn()
	}
	g.CurrentPhase++
	return []Effect{PhaseChangedEffect{Year: g.CurrentYear, Phase: g.CurrentPhase, Status: g.Status}}, nil
}

// applyAdvanceTurn ends the acting player's turn regardless of phase.
func (g *GameState) applyAdvanceTurn(a Action) ([]Effect, *RuleError) {
	return g.endTurn()
}

// endTurn hands play to the next seat in the year's bid-determined order,
// rolling the year over (or finishing the game) after the last seat.
func (g *GameState) endTurn() ([]Effect, *RuleError) {
	g.CurrentPhase = 1
	order := g.turnOrder()
	g.TurnPosition++
	if g.TurnPosition >= len(order) {
		return g.endYear()
	}
	g.setCurrentPlayerByID(order[g.TurnPosition])
	return []Effect{PhaseChangedEffect{Year: g.CurrentYear, Phase: g.CurrentPhase, Status: g.Status}}, nil
}

// endYear finishes the game after the final year, otherwise opens the next
// year's bidding.
func (g *GameState) endYear() ([]Effect, *RuleError) {
	if g.CurrentYear >= MaxYears {
		g.Status = StatusFinished
		return []Effect{GameFinishedEffect{}}, nil
	}
	g.openBidding(g.CurrentYear + 1)
	return []Effect{PhaseChangedEffect{Year: g.CurrentYear, Phase: g.CurrentPhase, Status: g.Status}}, nil
}

// turnOrder returns the bid-determined order for the current year, falling
// back to seat order when no auction has resolved (tcg games).
func (g *GameState) turnOrder() []string {
	if g.Bidding != nil && len(g.Bidding.FinalTurnOrder) > 0 {
		return g.Bidding.FinalTurnOrder
	}
	order := make([]string, len(g.Players))
	for i, p := range g.Players {
		order[i] = p.ID
	}
	return order
}

// applyDeployUnits spends energy to add units to an owned territory during
// the deployment phase.
func (g *GameState) applyDeployUnits(a Action) *RuleError {
	actor := g.PlayerByID(a.PlayerID)
	p := a.Data.Place
	if p == nil {
		return validationErr("deploy_units requires a placement payload")
	}
	if !warPhaseAllows(ActionDeployUnits, g.CurrentPhase) {
		return validationErr("deployment is not legal in phase %d", g.CurrentPhase)
	}
	t, ok := g.Territories[p.TerritoryID]
	if !ok {
		return notFoundErr("unknown territory %q", p.TerritoryID)
	}
	if t.OwnerID != actor.ID {
		return conflictErr("territory %s is not held by player %s", t.ID, actor.ID)
	}
	count := p.Count
	if count == 0 {
		count = 1
	}
	if count < 1 {
		return validationErr("deploy count must be positive, got %d", count)
	}
	if actor.Energy < count {
		return validationErr("player %s has %d energy, cannot deploy %d units", actor.ID, actor.Energy, count)
	}
	actor.Energy -= count
	t.Units += count
	return nil
}

// applyMoveUnits moves units between adjacent territories both held by the
// actor, always leaving at least one unit behind.
func (g *GameState) applyMoveUnits(a Action) *RuleError {
	actor := g.PlayerByID(a.PlayerID)
	m := a.Data.Move
	if m == nil {
		return validationErr("move_units requires a move payload")
	}
	if !warPhaseAllows(ActionMoveUnits, g.CurrentPhase) {
		return validationErr("movement is not legal in phase %d", g.CurrentPhase)
	}
	from, ok := g.Territories[m.FromID]
	if !ok {
		return notFoundErr("unknown territory %q", m.FromID)
	}
	to, ok := g.Territories[m.ToID]
	if !ok {
		return notFoundErr("unknown territory %q", m.ToID)
	}
	if from.OwnerID != actor.ID {
		return conflictErr("territory %s is not held by player %s", from.ID, actor.ID)
	}
	if to.OwnerID != actor.ID {
		return conflictErr("territory %s is not held by player %s", to.ID, actor.ID)
	}
	if !connected(from, to.ID) {
		return validationErr("territories %s and %s are not connected", from.ID, to.ID)
	}
	if m.Units < 1 || m.Units >= from.Units {
		return validationErr("must move between 1 and %d units, got %d", from.Units-1, m.Units)
	}
	from.Units -= m.Units
	to.Units += m.Units
	return nil
}

func connected(from *Territory, toID string) bool {
	for _, c := range from.Connections {
		if c == toID {
			return true
		}
	}
	return false
}
