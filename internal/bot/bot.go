// Package bot drives computer-controlled seats. A Controller is built per
// session and emits the same typed actions a human client would; all dice it
// needs are rolled here and embedded in the action payloads, so the rules
// engine stays deterministic.
package bot

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/farhorizons/tabletop/internal/game"
	"github.com/farhorizons/tabletop/internal/models"
)

// ApplyFunc submits one action to the owning session. It returns the
// rejection, if any; the session keeps the resulting state.
type ApplyFunc func(game.Action) *game.RuleError

// StateFunc returns the session's current state. The controller treats the
// returned value as read-only.
type StateFunc func() *game.GameState

// Controller plays one bot seat.
type Controller struct {
	playerID string
	mode     models.BotMode
	apply    ApplyFunc
	state    StateFunc
	log      logrus.FieldLogger

	mu  sync.Mutex
	rng *rand.Rand

	// Deployment bookkeeping: one reinforcement per owned territory per
	// turn, keyed by (year, turn position).
	deployKey   string
	deploysDone int
}

func New(playerID string, mode models.BotMode, apply ApplyFunc, state StateFunc, seed int64, log logrus.FieldLogger) *Controller {
	return &Controller{
		playerID: playerID,
		mode:     mode,
		apply:    apply,
		state:    state,
		rng:      rand.New(rand.NewSource(seed)),
		log:      log.WithField("bot", playerID),
	}
}

func (c *Controller) PlayerID() string { return c.playerID }

// SetMode swaps the seat's behavior at runtime; it takes effect on the next
// Act cycle.
func (c *Controller) SetMode(m models.BotMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
}

func (c *Controller) Mode() models.BotMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Act performs everything the seat currently owes the game: pending
// decisions, setup placements, a sealed bid, or a full turn. It returns the
// number of actions the session accepted.
//
// TODO: give aggressive its own target selection (rank targets by expected
// losses instead of picking at random). Until then it plays the zombie line.
func (c *Controller) Act() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == models.BotPassive {
		return 0
	}

	accepted := 0
	// Cap the cycle so a rules disagreement can never spin the controller.
	for i := 0; i < 256; i++ {
		a, ok := c.nextAction()
		if !ok {
			break
		}
		if err := c.apply(a); err != nil {
			c.log.WithFields(logrus.Fields{"type": a.Type, "kind": err.Kind.String()}).
				Warn("bot action rejected, yielding")
			break
		}
		accepted++
	}
	return accepted
}

// nextAction inspects the state and proposes the single next action the seat
// owes, or false when nothing is due.
func (c *Controller) nextAction() (game.Action, bool) {
	g := c.state()
	me := g.PlayerByID(c.playerID)
	if me == nil || g.Status == game.StatusFinished || g.Status == game.StatusPaused {
		return game.Action{}, false
	}

	if me.Pending != nil && len(me.Pending.Choices) > 0 {
		return game.NewAction(game.ActionResolveDecision, c.playerID, game.ActionData{
			Decision: &game.DecisionPayload{Choice: me.Pending.Choices[0]},
		}), true
	}

	switch g.Status {
	case game.StatusSetup:
		return c.setupAction(g, me)
	case game.StatusBidding:
		if g.Bidding == nil {
			return game.Action{}, false
		}
		if _, bid := g.Bidding.BidsSubmitted[c.playerID]; bid {
			return game.Action{}, false
		}
		return game.NewAction(game.ActionSubmitBid, c.playerID, game.ActionData{
			Bid: &game.BidPayload{Amount: c.chooseBid(me)},
		}), true
	case game.StatusPlaying:
		if cur := g.CurrentPlayer(); cur == nil || cur.ID != c.playerID {
			return game.Action{}, false
		}
		return c.turnAction(g, me)
	}
	return game.Action{}, false
}

// chooseBid spends a small slice of the seat's energy, keeping most of it
// for deployment.
func (c *Controller) chooseBid(me *game.Player) int {
	limit := me.Energy / 4
	if limit <= 0 {
		return 0
	}
	return c.rng.Intn(limit + 1)
}

// setupAction works through the placement sub-phases: units spread over
// unclaimed (then owned) territories, commanders and the base on the first
// owned territory.
func (c *Controller) setupAction(g *game.GameState, me *game.Player) (game.Action, bool) {
	owned := g.TerritoriesOwnedBy(c.playerID)

	place := func(t game.ActionType, territoryID string) (game.Action, bool) {
		return game.NewAction(t, c.playerID, game.ActionData{
			Place: &game.PlacePayload{TerritoryID: territoryID, Count: 1},
		}), true
	}

	switch g.SetupPhase {
	case game.SetupUnits:
		if me.RemainingUnitsToPlace == 0 {
			return game.Action{}, false
		}
		if id, ok := c.pickUnclaimed(g); ok {
			return place(game.ActionPlaceUnit, id)
		}
		if len(owned) > 0 {
			return place(game.ActionPlaceUnit, owned[c.rng.Intn(len(owned))])
		}
	case game.SetupLandCommander:
		if !me.PlacedLandCmdr && len(owned) > 0 {
			return place(game.ActionPlaceLandCommander, owned[0])
		}
	case game.SetupDiplomatCommander:
		if !me.PlacedDiploCmdr && len(owned) > 0 {
			return place(game.ActionPlaceDiplomatCommander, owned[0])
		}
	case game.SetupSpaceBase:
		if !me.PlacedSpaceBase && len(owned) > 0 {
			return place(game.ActionPlaceSpaceBase, owned[0])
		}
	}
	return game.Action{}, false
}

func (c *Controller) pickUnclaimed(g *game.GameState) (string, bool) {
	var free []string
	for id, t := range g.Territories {
		if t.OwnerID == "" {
			free = append(free, id)
		}
	}
	if len(free) == 0 {
		return "", false
	}
	sort.Strings(free)
	return free[c.rng.Intn(len(free))], true
}

// turnAction plays the zombie line for the current phase: reinforce every
// owned territory during deployment, attack from every stack of two or more
// during combat, and advance otherwise. Card tables have no zombie line; the
// bot just passes the turn.
func (c *Controller) turnAction(g *game.GameState, me *game.Player) (game.Action, bool) {
	if g.GameType != game.TypeWar {
		return game.NewAction(game.ActionAdvanceTurn, c.playerID, game.ActionData{}), true
	}

	switch g.CurrentPhase {
	case 2:
		if a, ok := c.deployAction(g, me); ok {
			return a, true
		}
	case 4, 5:
		if a, ok := c.attackAction(g); ok {
			return a, true
		}
	}

	if g.CurrentPhase >= game.MaxPhases {
		return game.NewAction(game.ActionAdvanceTurn, c.playerID, game.ActionData{}), true
	}
	return game.NewAction(game.ActionAdvancePhase, c.playerID, game.ActionData{}), true
}

// deployAction adds one unit to each owned territory, one action at a time,
// stopping when every territory got its reinforcement or energy runs out.
func (c *Controller) deployAction(g *game.GameState, me *game.Player) (game.Action, bool) {
	owned := g.TerritoriesOwnedBy(c.playerID)
	if len(owned) == 0 || me.Energy < 1 {
		return game.Action{}, false
	}

	key := fmt.Sprintf("%d.%d", g.CurrentYear, g.TurnPosition)
	if key != c.deployKey {
		c.deployKey = key
		c.deploysDone = 0
	}
	if c.deploysDone >= len(owned) {
		return game.Action{}, false
	}

	id := owned[c.deploysDone]
	c.deploysDone++
	return game.NewAction(game.ActionDeployUnits, c.playerID, game.ActionData{
		Place: &game.PlacePayload{TerritoryID: id, Count: 1},
	}), true
}

// attackAction finds one territory with two or more units and commits
// all-but-one of them at a random adjacent enemy target. Neutral territories
// are never attacked; they defend with a d8 and the zombie line avoids them.
func (c *Controller) attackAction(g *game.GameState) (game.Action, bool) {
	owned := g.TerritoriesOwnedBy(c.playerID)
	for _, id := range owned {
		from := g.Territories[id]
		if from.Units < 2 {
			continue
		}
		var targets []*game.Territory
		for _, conn := range from.Connections {
			to, ok := g.Territories[conn]
			if !ok || to.IsNeutral || to.OwnerID == "" || to.OwnerID == c.playerID {
				continue
			}
			targets = append(targets, to)
		}
		if len(targets) == 0 {
			continue
		}
		to := targets[c.rng.Intn(len(targets))]

		units := from.Units - 1
		payload := &game.AttackPayload{
			FromID:        from.ID,
			ToID:          to.ID,
			Units:         units,
			AttackerRolls: c.roll(units, game.BaseDie),
			DefenderRolls: c.roll(to.Units, game.DefenderDie(to)),
		}
		return game.NewAction(game.ActionAttack, c.playerID, game.ActionData{Attack: payload}), true
	}
	return game.Action{}, false
}

func (c *Controller) roll(n, die int) []int {
	rolls := make([]int, n)
	for i := range rolls {
		rolls[i] = c.rng.Intn(die) + 1
	}
	return rolls
}
