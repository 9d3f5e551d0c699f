// Package game implements the pure rules core: the authoritative state
// aggregate, the action reducer, the turn/phase machine, combat and bidding
// resolution, and the card-zone operations. Nothing in this package performs
// I/O; all randomness (dice, tiebreaks) must be rolled by the caller and
// carried inside action payloads so that replaying the action log from the
// initial state always reproduces the current state exactly.
package game

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// GameType selects which entity family a session uses.
type GameType string

const (
	// TypeWar is the territory-conquest wargame.
	TypeWar GameType = "war"
	// TypeTCG is the trading-card game.
	TypeTCG GameType = "tcg"
)

// Status is the top-level lifecycle state of a game.
type Status string

const (
	StatusSetup    Status = "setup"
	StatusBidding  Status = "bidding"
	StatusPlaying  Status = "playing"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// SetupPhase is the sub-phase order within StatusSetup.
type SetupPhase string

const (
	SetupUnits             SetupPhase = "units"
	SetupLandCommander     SetupPhase = "land_commander"
	SetupDiplomatCommander SetupPhase = "diplomat_commander"
	SetupSpaceBase         SetupPhase = "space_base"
	SetupComplete          SetupPhase = "complete"
)

// Game cycle constants.
const (
	MaxYears  = 5
	MaxPhases = 7

	// BaseDie is rolled by attackers and ordinary defenders; neutral and
	// zombie-held territories defend with the larger die.
	BaseDie           = 6
	ZombieDefenderDie = 8
	TiebreakDie       = 6
)

// Rotation values accepted by rotate_card.
var ValidRotations = [4]int{0, 90, 180, 270}

// Position is a board coordinate for a card.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Territory is a mutable war-game entity referenced by id from a flat map.
// OwnerID is a lookup key into Players, never an owning pointer; the empty
// string means unowned.
type Territory struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	OwnerID     string   `json:"ownerId,omitempty"`
	Units       int      `json:"units"`
	Connections []string `json:"connections"`
	// IsNeutral marks NPC/zombie-held territories, which defend with an
	// eight-sided die instead of six. Deliberate balance rule.
	IsNeutral     bool `json:"isNeutral"`
	HasLandCmdr   bool `json:"hasLandCommander,omitempty"`
	HasDiploCmdr  bool `json:"hasDiplomatCommander,omitempty"`
	HasSpaceBase  bool `json:"hasSpaceBase,omitempty"`
}

// Card is a mutable tcg entity referenced by id from a flat map.
type Card struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	OwnerID  string   `json:"ownerId,omitempty"`
	Zone     string   `json:"zone"`
	Position Position `json:"position"`
	Rotation int      `json:"rotation"`
	FaceUp   bool     `json:"faceUp"`

	// Catalog attributes, hydrated at deal/draft time.
	ManaValue int      `json:"manaValue,omitempty"`
	Colors    []string `json:"colors,omitempty"`
	TypeLine  string   `json:"typeLine,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
}

// Zone names for the tcg per-player id lists.
const (
	ZoneHand       = "hand"
	ZoneLibrary    = "library"
	ZoneGraveyard  = "graveyard"
	ZoneBattlefield = "battlefield"
	ZoneExile      = "exile"
)

// HiddenZones are the zones whose contents are owner-only.
var HiddenZones = map[string]bool{ZoneHand: true, ZoneLibrary: true}

// PendingDecision blocks a player's legal-action set until resolved.
type PendingDecision struct {
	Type    string   `json:"type"`
	Choices []string `json:"choices,omitempty"`
}

// Player is one seat in a game. Bot seats share the exact same action
// interface as humans; IsBot only matters to the controller outside this
// package.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	SeatIndex int    `json:"seatIndex"`

	Energy                int `json:"energy"`
	RemainingUnitsToPlace int `json:"remainingUnitsToPlace"`

	// Zones maps zone name to an ordered card id list (tcg only). A card id
	// appears in at most one zone list at any time.
	Zones map[string][]string `json:"zones,omitempty"`

	Pending *PendingDecision `json:"pendingDecision,omitempty"`

	IsBot   bool   `json:"isBot,omitempty"`
	BotMode string `json:"botMode,omitempty"`

	Connected bool `json:"connected"`

	// Setup bookkeeping.
	PlacedLandCmdr  bool `json:"placedLandCommander,omitempty"`
	PlacedDiploCmdr bool `json:"placedDiplomatCommander,omitempty"`
	PlacedSpaceBase bool `json:"placedSpaceBase,omitempty"`
}

// YearlyBidding is the transient sealed-bid sub-aggregate for one year.
// BidsSubmitted must never leave the server until BidsRevealed flips true.
type YearlyBidding struct {
	Year           int            `json:"year"`
	BidsSubmitted  map[string]int `json:"bidsSubmitted"`
	BidsRevealed   bool           `json:"bidsRevealed"`
	TiebreakRolls  map[string]int `json:"tiebreakRolls,omitempty"`
	HighestBidder  string         `json:"highestBidder,omitempty"`
	FinalTurnOrder []string       `json:"finalTurnOrder,omitempty"`
}

// GameState is the root aggregate. The session actor is its only writer;
// every mutation flows through Apply as exactly one Action.
type GameState struct {
	GameID   string   `json:"gameId"`
	GameType GameType `json:"gameType"`

	Status     Status     `json:"status"`
	SetupPhase SetupPhase `json:"setupPhase,omitempty"`
	// PausedFrom remembers the status a pause interrupted so resume can
	// restore it; empty outside StatusPaused.
	PausedFrom Status `json:"pausedFrom,omitempty"`

	CurrentYear        int `json:"currentYear"`
	CurrentPhase       int `json:"currentPhase"`
	CurrentPlayerIndex int `json:"currentPlayerIndex"`
	// TurnPosition is the acting seat's position within the year's
	// bid-determined turn order.
	TurnPosition int `json:"turnPosition"`

	Players     []*Player             `json:"players"`
	Territories map[string]*Territory `json:"territories,omitempty"`
	Cards       map[string]*Card      `json:"cards,omitempty"`

	Bidding *YearlyBidding `json:"bidding,omitempty"`

	// Actions is the append-only log. CurrentActionIndex never exceeds
	// len(Actions)-1; appending past a truncated index discards the tail.
	Actions            []Action `json:"actions"`
	CurrentActionIndex int      `json:"currentActionIndex"`
}

// NewGame constructs an empty game in setup.
func NewGame(gameType GameType) *GameState {
	id, _ := uuid.NewRandom()
	g := &GameState{
		GameID:             id.String(),
		GameType:           gameType,
		Status:             StatusSetup,
		CurrentYear:        1,
		CurrentPhase:       1,
		CurrentActionIndex: -1,
	}
	if gameType == TypeWar {
		g.SetupPhase = SetupUnits
		g.Territories = make(map[string]*Territory)
	} else {
		g.SetupPhase = SetupComplete
		g.Cards = make(map[string]*Card)
	}
	return g
}

// AddPlayer appends a seat. Only legal during setup.
func (g *GameState) AddPlayer(p *Player) {
	p.SeatIndex = len(g.Players)
	if g.GameType == TypeTCG && p.Zones == nil {
		p.Zones = map[string][]string{
			ZoneHand: {}, ZoneLibrary: {}, ZoneGraveyard: {}, ZoneBattlefield: {}, ZoneExile: {},
		}
	}
	g.Players = append(g.Players, p)
}

// PlayerByID returns the player with the given id, or nil.
func (g *GameState) PlayerByID(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// CurrentPlayer returns the acting player, or nil when the game has no seats.
func (g *GameState) CurrentPlayer() *Player {
	if len(g.Players) == 0 || g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentPlayerIndex]
}

// TerritoriesOwnedBy returns the ids of territories owned by playerID,
// in sorted-insertion-independent deterministic order.
func (g *GameState) TerritoriesOwnedBy(playerID string) []string {
	var ids []string
	for id, t := range g.Territories {
		if t.OwnerID == playerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Clone deep-copies the state. Apply operates on a clone so that a rejected
// action can never leave partial mutations behind.
func (g *GameState) Clone() *GameState {
	c := *g

	c.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		pc := *p
		if p.Pending != nil {
			pd := *p.Pending
			pd.Choices = append([]string(nil), p.Pending.Choices...)
			pc.Pending = &pd
		}
		if p.Zones != nil {
			pc.Zones = make(map[string][]string, len(p.Zones))
			for z, ids := range p.Zones {
				pc.Zones[z] = append([]string(nil), ids...)
			}
		}
		c.Players[i] = &pc
	}

	if g.Territories != nil {
		c.Territories = make(map[string]*Territory, len(g.Territories))
		for id, t := range g.Territories {
			tc := *t
			tc.Connections = append([]string(nil), t.Connections...)
			c.Territories[id] = &tc
		}
	}

	if g.Cards != nil {
		c.Cards = make(map[string]*Card, len(g.Cards))
		for id, card := range g.Cards {
			cc := *card
			cc.Colors = append([]string(nil), card.Colors...)
			c.Cards[id] = &cc
		}
	}

	if g.Bidding != nil {
		b := *g.Bidding
		b.BidsSubmitted = copyIntMap(g.Bidding.BidsSubmitted)
		b.TiebreakRolls = copyIntMap(g.Bidding.TiebreakRolls)
		b.FinalTurnOrder = append([]string(nil), g.Bidding.FinalTurnOrder...)
		c.Bidding = &b
	}

	c.Actions = append([]Action(nil), g.Actions...)
	return &c
}

func copyIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// now returns a millisecond timestamp for Action envelopes built server-side.
func now() int64 { return time.Now().UnixMilli() }
