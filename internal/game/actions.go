package game

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ActionType is the closed set of mutation kinds. Every state transition is
// expressible as exactly one Action of one of these types.
type ActionType string

const (
	// Setup.
	ActionPlaceUnit              ActionType = "place_unit"
	ActionPlaceLandCommander     ActionType = "place_land_commander"
	ActionPlaceDiplomatCommander ActionType = "place_diplomat_commander"
	ActionPlaceSpaceBase         ActionType = "place_space_base"

	// Bidding.
	ActionSubmitBid  ActionType = "submit_bid"
	ActionRevealBids ActionType = "reveal_bids"

	// Playing (war).
	ActionAdvancePhase ActionType = "advance_phase"
	ActionAdvanceTurn  ActionType = "advance_turn"
	ActionDeployUnits  ActionType = "deploy_units"
	ActionMoveUnits    ActionType = "move_units"
	ActionAttack       ActionType = "attack"

	// Playing (tcg).
	ActionMoveCard   ActionType = "move_card"
	ActionRotateCard ActionType = "rotate_card"
	ActionTapCard    ActionType = "tap_card"
	ActionUntapCard  ActionType = "untap_card"
	ActionFlipCard   ActionType = "flip_card"

	// Decisions and lifecycle.
	ActionResolveDecision ActionType = "resolve_decision"
	ActionPauseGame       ActionType = "pause_game"
	ActionResumeGame      ActionType = "resume_game"
	ActionSetBotMode      ActionType = "set_bot_mode"
)

// knownActions gates validation step (a): is the action type known.
var knownActions = map[ActionType]bool{
	ActionPlaceUnit: true, ActionPlaceLandCommander: true,
	ActionPlaceDiplomatCommander: true, ActionPlaceSpaceBase: true,
	ActionSubmitBid: true, ActionRevealBids: true,
	ActionAdvancePhase: true, ActionAdvanceTurn: true,
	ActionDeployUnits: true, ActionMoveUnits: true, ActionAttack: true,
	ActionMoveCard: true, ActionRotateCard: true, ActionTapCard: true,
	ActionUntapCard: true, ActionFlipCard: true,
	ActionResolveDecision: true, ActionPauseGame: true, ActionResumeGame: true,
	ActionSetBotMode: true,
}

// PlacePayload targets a territory during setup or deployment.
type PlacePayload struct {
	TerritoryID string `json:"territoryId"`
	Count       int    `json:"count,omitempty"`
}

// BidPayload carries one sealed bid amount.
type BidPayload struct {
	Amount int `json:"amount"`
}

// RevealPayload closes a bidding round. Tiebreak dice are rolled by the
// session actor before reduction so that replay is deterministic; rolls are
// present for every player, and consulted only for exact ties at the top.
type RevealPayload struct {
	TiebreakRolls map[string]int `json:"tiebreakRolls"`
	// Forced marks a timeout reveal: players with no submitted bid are
	// recorded as bidding zero.
	Forced bool `json:"forced,omitempty"`
}

// MovePayload moves units between adjacent owned territories.
type MovePayload struct {
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
	Units  int    `json:"units"`
}

// AttackPayload commits units and carries the pre-rolled dice for both
// sides. Dice are inputs, never rolled inside the reducer.
type AttackPayload struct {
	FromID        string `json:"fromId"`
	ToID          string `json:"toId"`
	Units         int    `json:"units"`
	AttackerRolls []int  `json:"attackerRolls"`
	DefenderRolls []int  `json:"defenderRolls"`
}

// CardPayload covers every card-zone operation. Which fields are required
// depends on the action type; DecodeAction enforces that at the boundary.
type CardPayload struct {
	CardID   string    `json:"cardId"`
	Zone     string    `json:"zone,omitempty"`
	Position *Position `json:"position,omitempty"`
	Rotation *int      `json:"rotation,omitempty"`
	FaceUp   *bool     `json:"faceUp,omitempty"`
}

// DecisionPayload resolves a pending decision with one of its choices.
type DecisionPayload struct {
	Choice string `json:"choice"`
}

// BotModePayload retunes a bot seat's behavior at runtime.
type BotModePayload struct {
	TargetID string `json:"targetId"`
	Mode     string `json:"mode"`
}

// ActionData is the tagged payload union. Exactly one member matching the
// action type is set on a valid action; the rest stay nil.
type ActionData struct {
	Place    *PlacePayload    `json:"place,omitempty"`
	Bid      *BidPayload      `json:"bid,omitempty"`
	Reveal   *RevealPayload   `json:"reveal,omitempty"`
	Move     *MovePayload     `json:"move,omitempty"`
	Attack   *AttackPayload   `json:"attack,omitempty"`
	Card     *CardPayload     `json:"card,omitempty"`
	Decision *DecisionPayload `json:"decision,omitempty"`
	BotMode  *BotModePayload  `json:"botMode,omitempty"`
}

// Action is the immutable unit of state mutation, appended to the log once
// accepted. PlayerID is empty for system actions (reveal_bids on timeout).
type Action struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	PlayerID  string     `json:"playerId,omitempty"`
	Timestamp int64      `json:"timestamp"`
	Data      ActionData `json:"data"`
}

// NewAction stamps an id and timestamp onto an action envelope.
func NewAction(t ActionType, playerID string, data ActionData) Action {
	id, _ := uuid.NewRandom()
	return Action{ID: id.String(), Type: t, PlayerID: playerID, Timestamp: now(), Data: data}
}

// DecodeAction parses a raw client envelope `{type, playerId, data}` into a
// typed Action, rejecting unknown types and missing payloads before anything
// reaches the reducer.
func DecodeAction(msgType string, playerID string, raw json.RawMessage) (Action, *RuleError) {
	t := ActionType(msgType)
	if !knownActions[t] {
		return Action{}, validationErr("unknown action type %q", msgType)
	}

	var data ActionData
	decode := func(v interface{}) *RuleError {
		if len(raw) == 0 {
			return validationErr("action %q requires a payload", t)
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return validationErr("malformed payload for %q: %v", t, err)
		}
		return nil
	}

	switch t {
	case ActionPlaceUnit, ActionPlaceLandCommander, ActionPlaceDiplomatCommander,
		ActionPlaceSpaceBase, ActionDeployUnits:
		p := &PlacePayload{}
		if err := decode(p); err != nil {
			return Action{}, err
		}
		if p.TerritoryID == "" {
			return Action{}, validationErr("action %q requires territoryId", t)
		}
		data.Place = p
	case ActionSubmitBid:
		b := &BidPayload{}
		if err := decode(b); err != nil {
			return Action{}, err
		}
		data.Bid = b
	case ActionRevealBids:
		r := &RevealPayload{}
		if err := decode(r); err != nil {
			return Action{}, err
		}
		data.Reveal = r
	case ActionMoveUnits:
		m := &MovePayload{}
		if err := decode(m); err != nil {
			return Action{}, err
		}
		data.Move = m
	case ActionAttack:
		a := &AttackPayload{}
		if err := decode(a); err != nil {
			return Action{}, err
		}
		data.Attack = a
	case ActionMoveCard, ActionRotateCard, ActionTapCard, ActionUntapCard, ActionFlipCard:
		c := &CardPayload{}
		if err := decode(c); err != nil {
			return Action{}, err
		}
		if c.CardID == "" {
			return Action{}, validationErr("action %q requires cardId", t)
		}
		data.Card = c
	case ActionResolveDecision:
		d := &DecisionPayload{}
		if err := decode(d); err != nil {
			return Action{}, err
		}
		data.Decision = d
	case ActionSetBotMode:
		b := &BotModePayload{}
		if err := decode(b); err != nil {
			return Action{}, err
		}
		if b.TargetID == "" {
			return Action{}, validationErr("action %q requires targetId", t)
		}
		data.BotMode = b
	case ActionAdvancePhase, ActionAdvanceTurn, ActionPauseGame, ActionResumeGame:
		// No payload.
	}

	return NewAction(t, playerID, data), nil
}
