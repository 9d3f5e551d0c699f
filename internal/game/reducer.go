package game

// Effect is a side-effect record produced by an accepted action. Effects are
// consumed by presentation layers (broadcast payloads); they are never part
// of persisted state and never influence replay.
type Effect interface{ isEffect() }

// ConquestEffect fires when a territory changes ownership through combat.
type ConquestEffect struct {
	TerritoryID string
	NewOwnerID  string
	OldOwnerID  string
}

func (ConquestEffect) isEffect() {}

// BidsRevealedEffect fires when a bidding round resolves.
type BidsRevealedEffect struct {
	Year          int
	Bids          map[string]int
	HighestBidder string
	TurnOrder     []string
}

func (BidsRevealedEffect) isEffect() {}

// UnknownCardEffect records a card operation that targeted a missing id.
// The operation degrades to a no-op; the wrapper logs it.
type UnknownCardEffect struct {
	CardID string
	Op     ActionType
}

func (UnknownCardEffect) isEffect() {}

// PhaseChangedEffect fires on phase, turn, and year boundaries.
type PhaseChangedEffect struct {
	Year   int
	Phase  int
	Status Status
}

func (PhaseChangedEffect) isEffect() {}

// GameFinishedEffect fires once, when the game reaches StatusFinished.
type GameFinishedEffect struct{}

func (GameFinishedEffect) isEffect() {}

// Result is the successful output of Apply.
type Result struct {
	State   *GameState
	Effects []Effect
}

// Apply validates and applies one action, returning the successor state or a
// typed rejection. Apply is deterministic: identical (state, action) inputs
// always yield identical outputs. The input state is never mutated; rejected
// actions leave no trace and are not appended to the log.
//
// Validation order: (a) known type, (b) actor rights, (c) entity existence,
// (d) domain bounds. Handlers enforce (c) and (d).
func Apply(state *GameState, action Action) (*Result, *RuleError) {
	// (a) Known type.
	if !knownActions[action.Type] {
		return nil, validationErr("unknown action type %q", action.Type)
	}

	// Terminal state rejects all mutation.
	if state.Status == StatusFinished {
		return nil, validationErr("game is finished")
	}
	// Paused games accept only resume.
	if state.Status == StatusPaused && action.Type != ActionResumeGame {
		return nil, validationErr("game is paused")
	}

	// (b) Actor rights.
	if err := checkActorRights(state, action); err != nil {
		return nil, err
	}

	next := state.Clone()
	var effects []Effect
	var err *RuleError

	switch action.Type {
	case ActionPlaceUnit, ActionPlaceLandCommander, ActionPlaceDiplomatCommander, ActionPlaceSpaceBase:
		effects, err = next.applySetupPlacement(action)
	case ActionSubmitBid:
		err = next.applySubmitBid(action)
	case ActionRevealBids:
		effects, err = next.applyRevealBids(action)
	case ActionAdvancePhase:
		effects, err = next.applyAdvancePhase(action)
	case ActionAdvanceTurn:
		effects, err = next.applyAdvanceTurn(action)
	case ActionDeployUnits:
		err = next.applyDeployUnits(action)
	case ActionMoveUnits:
		err = next.applyMoveUnits(action)
	case ActionAttack:
		effects, err = next.applyAttack(action)
	case ActionMoveCard, ActionRotateCard, ActionTapCard, ActionUntapCard, ActionFlipCard:
		effects, err = next.applyCardOp(action)
	case ActionResolveDecision:
		err = next.applyResolveDecision(action)
	case ActionSetBotMode:
		err = next.applySetBotMode(action)
	case ActionPauseGame:
		next.PausedFrom = next.Status
		next.Status = StatusPaused
	case ActionResumeGame:
		if state.Status != StatusPaused {
			return nil, validationErr("game is not paused")
		}
		// Restore whatever the pause interrupted: a paused auction goes
		// back to bidding, a paused setup back to placement.
		next.Status = next.PausedFrom
		if next.Status == "" {
			next.Status = StatusPlaying
		}
		next.PausedFrom = ""
	}
	if err != nil {
		return nil, err
	}

	next.appendAction(action)
	return &Result{State: next, Effects: effects}, nil
}

// checkActorRights enforces turn and pending-decision rights before any
// handler runs.
func checkActorRights(state *GameState, action Action) *RuleError {
	// System actions carry no player id and are emitted only by the actor.
	if action.Type == ActionRevealBids {
		if action.PlayerID != "" {
			return validationErr("reveal_bids is not a player action")
		}
		return nil
	}

	actor := state.PlayerByID(action.PlayerID)
	if actor == nil {
		return notFoundErr("unknown player %q", action.PlayerID)
	}

	// A pending decision blocks everything else for that player.
	if actor.Pending != nil && action.Type != ActionResolveDecision {
		return validationErr("player %s must resolve pending decision %q first", actor.ID, actor.Pending.Type)
	}
	if actor.Pending == nil && action.Type == ActionResolveDecision {
		return validationErr("player %s has no pending decision", actor.ID)
	}

	switch action.Type {
	case ActionAdvancePhase, ActionAdvanceTurn, ActionDeployUnits, ActionMoveUnits, ActionAttack:
		if state.Status != StatusPlaying {
			return validationErr("action %q requires playing status, game is %s", action.Type, state.Status)
		}
		if cur := state.CurrentPlayer(); cur == nil || cur.ID != actor.ID {
			return validationErr("not player %s's turn", actor.ID)
		}
	case ActionSubmitBid:
		if state.Status != StatusBidding {
			return validationErr("bids are only accepted during bidding, game is %s", state.Status)
		}
	case ActionPlaceUnit, ActionPlaceLandCommander, ActionPlaceDiplomatCommander, ActionPlaceSpaceBase:
		if state.Status != StatusSetup {
			return validationErr("placement is only legal during setup, game is %s", state.Status)
		}
	case ActionMoveCard, ActionRotateCard, ActionTapCard, ActionUntapCard, ActionFlipCard:
		if state.GameType != TypeTCG {
			return validationErr("card operations require a tcg game")
		}
	}
	return nil
}

// appendAction appends to the log, discarding any orphaned tail left behind
// by a replay truncation, and advances CurrentActionIndex.
func (g *GameState) appendAction(a Action) {
	if g.CurrentActionIndex < len(g.Actions)-1 {
		g.Actions = g.Actions[:g.CurrentActionIndex+1]
	}
	g.Actions = append(g.Actions, a)
	g.CurrentActionIndex = len(g.Actions) - 1
}

// applyResolveDecision clears the actor's pending decision if the choice is
// one of the offered ones.
func (g *GameState) applyResolveDecision(a Action) *RuleError {
	actor := g.PlayerByID(a.PlayerID)
	d := a.Data.Decision
	if d == nil {
		return validationErr("resolve_decision requires a decision payload")
	}
	if len(actor.Pending.Choices) > 0 {
		ok := false
		for _, c := range actor.Pending.Choices {
			if c == d.Choice {
				ok = true
				break
			}
		}
		if !ok {
			return validationErr("choice %q is not offered by decision %q", d.Choice, actor.Pending.Type)
		}
	}
	actor.Pending = nil
	return nil
}

// botModes mirrors models.BotMode; kept local so the rules core stays free
// of service imports.
var botModes = map[string]bool{"passive": true, "zombie": true, "aggressive": true}

// applySetBotMode retunes a bot seat. Mode changes are logged actions like
// everything else, so replay reproduces the behavior switch at the same
// point in the timeline.
func (g *GameState) applySetBotMode(a Action) *RuleError {
	p := a.Data.BotMode
	if p == nil {
		return validationErr("set_bot_mode requires a botMode payload")
	}
	target := g.PlayerByID(p.TargetID)
	if target == nil {
		return notFoundErr("unknown player %q", p.TargetID)
	}
	if !target.IsBot {
		return validationErr("player %s is not a bot seat", target.ID)
	}
	if !botModes[p.Mode] {
		return validationErr("unknown bot mode %q", p.Mode)
	}
	target.BotMode = p.Mode
	return nil
}

// Replay rebuilds state by re-applying actions[0..len-1] onto initial.
// Used by hibernation wake and by audit tooling; any rejection mid-replay is
// a corruption signal and aborts with the offending index.
func Replay(initial *GameState, actions []Action) (*GameState, int, *RuleError) {
	state := initial
	for i, a := range actions {
		res, err := Apply(state, a)
		if err != nil {
			return nil, i, err
		}
		state = res.State
	}
	return state, len(actions), nil
}
