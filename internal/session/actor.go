// Package session hosts the per-game authoritative actor: one goroutine per
// live session, an inbox serializing every mutation, persistence before
// acks, and hibernation when idle.
package session

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/farhorizons/tabletop/internal/bot"
	"github.com/farhorizons/tabletop/internal/game"
	"github.com/farhorizons/tabletop/internal/models"
	"github.com/farhorizons/tabletop/internal/store"
)

// ErrStopped is returned for messages that reached an actor after it
// hibernated. Callers re-fetch the actor from the registry and retry.
var ErrStopped = errors.New("session: actor stopped")

// Subscriber is one outbound stream attached to a session. Sends must not
// block: implementations buffer, and return false when the buffer is full or
// the stream is dead, which evicts the subscriber.
type Subscriber interface {
	// PlayerID is the seat this stream acts for, empty for spectators.
	PlayerID() string
	// SendState pushes a sanitized snapshot.
	SendState(view *game.ClientState) bool
	// SendEvent pushes a non-state message (player_joined, game_restarted).
	SendEvent(event string, payload interface{}) bool
	// Close tears the stream down with a reason visible to the client.
	Close(reason string)
}

// Config tunes one actor.
type Config struct {
	IdleTimeout time.Duration // hibernate after this much silence
	BidTimeout  time.Duration // force-reveal a stalled auction
}

// Archiver receives finished games. Optional.
type Archiver interface {
	ArchiveGame(ctx context.Context, g *game.GameState, winners []string, scores map[string]int) error
}

// Actor owns one session's state. All access goes through the inbox; the
// run loop is the only goroutine that touches mutable fields.
type Actor struct {
	ID string

	st      store.Store
	cfg     Config
	log     logrus.FieldLogger
	archive Archiver
	onEvict func(id string, a *Actor)

	inbox   chan func()
	stopped chan struct{}

	// Loop-owned state below.
	state    *game.GameState
	subs     map[Subscriber]struct{}
	bots     []*bot.Controller
	bidTimer *time.Timer
	rng      *rand.Rand
	archived bool
}

func newActor(id string, state *game.GameState, st store.Store, cfg Config, archive Archiver, onEvict func(string, *Actor), log logrus.FieldLogger) *Actor {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.BidTimeout <= 0 {
		cfg.BidTimeout = 60 * time.Second
	}
	a := &Actor{
		ID:      id,
		st:      st,
		cfg:     cfg,
		log:     log.WithField("session", id),
		archive: archive,
		onEvict: onEvict,
		inbox:   make(chan func(), 64),
		stopped: make(chan struct{}),
		state:   state,
		subs:    make(map[Subscriber]struct{}),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, p := range state.Players {
		if p.IsBot {
			a.bots = append(a.bots, bot.New(p.ID, models.BotMode(p.BotMode), a.botApply, a.currentState, a.rng.Int63(), a.log))
		}
	}
	return a
}

func (a *Actor) run() {
	idle := time.NewTimer(a.cfg.IdleTimeout)
	defer idle.Stop()

	// Auctions survive hibernation; re-arm the timer on wake.
	a.syncBidTimer()

	for {
		select {
		case fn := <-a.inbox:
			fn()
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(a.cfg.IdleTimeout)
		case <-idle.C:
			if len(a.subs) > 0 {
				// Quiet but connected players keep the session
				// resident; a stalled human blocks only their own
				// turn, not everyone's streams.
				idle.Reset(a.cfg.IdleTimeout)
				continue
			}
			a.hibernate()
			return
		case <-a.bidC():
			a.forceReveal()
		}
	}
}

func (a *Actor) bidC() <-chan time.Time {
	if a.bidTimer == nil {
		return nil
	}
	return a.bidTimer.C
}

// do runs fn on the actor loop and waits for it.
func (a *Actor) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case a.inbox <- wrapped:
	case <-a.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-a.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit applies one action. On acceptance the returned state is a private
// clone of the post-action state; on rejection the error is a
// *game.RuleError. Persistence happens before the ack.
func (a *Actor) Submit(ctx context.Context, act game.Action) (*game.GameState, error) {
	var (
		out  *game.GameState
		serr error
	)
	err := a.do(ctx, func() {
		if aerr := a.applyPersist(act); aerr != nil {
			serr = aerr
			return
		}
		a.afterMutation()
		out = a.state.Clone()
	})
	if err != nil {
		return nil, err
	}
	return out, serr
}

// State returns a clone of the current state.
func (a *Actor) State(ctx context.Context) (*game.GameState, error) {
	var out *game.GameState
	if err := a.do(ctx, func() { out = a.state.Clone() }); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscribe attaches an outbound stream and immediately pushes it a full
// sanitized snapshot, ordered before any later broadcast.
func (a *Actor) Subscribe(ctx context.Context, s Subscriber) error {
	return a.do(ctx, func() {
		a.subs[s] = struct{}{}
		if !s.SendState(game.Sanitize(a.state, s.PlayerID())) {
			a.evict(s, "send buffer full")
		}
	})
}

func (a *Actor) Unsubscribe(ctx context.Context, s Subscriber) error {
	return a.do(ctx, func() { delete(a.subs, s) })
}

// SetConnected flips a seat's presence flag and tells everyone.
func (a *Actor) SetConnected(ctx context.Context, playerID string, connected bool) error {
	return a.do(ctx, func() {
		p := a.state.PlayerByID(playerID)
		if p == nil || p.Connected == connected {
			return
		}
		p.Connected = connected
		if connected {
			a.broadcastEvent("player_joined", map[string]string{"playerId": playerID})
		}
		a.broadcastState()
	})
}

// Ephemeral fans a transient message (cursor, camera) out to every other
// stream. Nothing is validated, logged, or persisted; the latest message
// simply wins.
func (a *Actor) Ephemeral(ctx context.Context, from Subscriber, event string, payload interface{}) error {
	return a.do(ctx, func() {
		for s := range a.subs {
			if s == from {
				continue
			}
			if !s.SendEvent(event, payload) {
				a.evict(s, "send buffer full")
			}
		}
	})
}

// Restart resets the session to its initial snapshot and force-closes every
// stream; clients reconnect and receive the fresh state.
func (a *Actor) Restart(ctx context.Context) error {
	var serr error
	err := a.do(ctx, func() {
		initial, lerr := loadSnapshot(ctx, a.st, initialKey(a.ID))
		if lerr != nil {
			serr = lerr
			return
		}
		if serr = clearLog(ctx, a.st, a.ID); serr != nil {
			return
		}
		if serr = saveSnapshot(ctx, a.st, snapshotKey(a.ID), initial); serr != nil {
			return
		}
		a.state = initial
		a.archived = false
		a.broadcastEvent("game_restarted", map[string]string{"gameId": a.ID})
		for s := range a.subs {
			s.Close("game restarted")
		}
		a.subs = make(map[Subscriber]struct{})
		a.syncBidTimer()
		a.log.Info("session restarted")
	})
	if err != nil {
		return err
	}
	return serr
}

// applyPersist is the single mutation path: reduce, persist, swap. Also the
// bots' injected apply func, so their actions take the same path as human
// ones minus the re-entrant afterMutation.
func (a *Actor) applyPersist(act game.Action) *game.RuleError {
	if act.Type == game.ActionAttack {
		a.rollCombatDice(&act)
	}
	res, rerr := game.Apply(a.state, act)
	if rerr != nil {
		return rerr
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	idx := res.State.CurrentActionIndex
	if err := appendLog(ctx, a.st, a.ID, idx, res.State.Actions[idx]); err != nil {
		a.log.WithError(err).Error("log append failed, rejecting action")
		return &game.RuleError{Kind: game.KindConflict, Msg: "persistence unavailable"}
	}
	if err := saveSnapshot(ctx, a.st, snapshotKey(a.ID), res.State); err != nil {
		a.log.WithError(err).Error("snapshot write failed, rejecting action")
		return &game.RuleError{Kind: game.KindConflict, Msg: "persistence unavailable"}
	}

	a.state = res.State
	return nil
}

func (a *Actor) botApply(act game.Action) *game.RuleError {
	return a.applyPersist(act)
}

func (a *Actor) currentState() *game.GameState { return a.state }

// afterMutation runs the consequences of an accepted action: auto-reveal,
// bot cycles, timers, fan-out, archival.
func (a *Actor) afterMutation() {
	// A set_bot_mode action changes the state; the controllers follow it.
	for _, b := range a.bots {
		if p := a.state.PlayerByID(b.PlayerID()); p != nil {
			b.SetMode(models.BotMode(p.BotMode))
		}
	}
	// Bots may unblock a reveal, and a reveal may hand bots the turn; a few
	// rounds settle any chain.
	for i := 0; i < 8; i++ {
		acted := 0
		if a.state.AllBidsIn() {
			a.revealBids(false)
			acted++
		}
		for _, b := range a.bots {
			acted += b.Act()
		}
		if acted == 0 {
			break
		}
	}

	a.syncBidTimer()
	a.broadcastState()
	a.maybeArchive()
}

// rollCombatDice replaces whatever dice came over the wire with server
// rolls, sized to the committed units and the defender's garrison. The rolls
// ride inside the logged action so replay stays deterministic; clients never
// get to roll their opponent's dice.
func (a *Actor) rollCombatDice(act *game.Action) {
	atk := act.Data.Attack
	if atk == nil {
		return
	}
	to, ok := a.state.Territories[atk.ToID]
	if !ok {
		return // the reducer rejects the unknown id
	}
	atk.AttackerRolls = a.rollDice(atk.Units, game.BaseDie)
	atk.DefenderRolls = a.rollDice(to.Units, game.DefenderDie(to))
}

func (a *Actor) rollDice(n, die int) []int {
	if n < 0 {
		n = 0
	}
	rolls := make([]int, n)
	for i := range rolls {
		rolls[i] = a.rng.Intn(die) + 1
	}
	return rolls
}

// revealBids emits the system reveal action with freshly rolled tiebreak
// dice for every seat.
func (a *Actor) revealBids(forced bool) {
	rolls := make(map[string]int, len(a.state.Players))
	for _, p := range a.state.Players {
		rolls[p.ID] = a.rng.Intn(game.TiebreakDie) + 1
	}
	act := game.NewAction(game.ActionRevealBids, "", game.ActionData{
		Reveal: &game.RevealPayload{TiebreakRolls: rolls, Forced: forced},
	})
	if rerr := a.applyPersist(act); rerr != nil {
		a.log.WithField("err", rerr.Msg).Warn("reveal_bids rejected")
	}
}

func (a *Actor) forceReveal() {
	a.bidTimer = nil
	if a.state.Status != game.StatusBidding || a.state.Bidding == nil || a.state.Bidding.BidsRevealed {
		return
	}
	a.log.WithField("year", a.state.Bidding.Year).Info("bid timeout, forcing reveal")
	a.revealBids(true)
	a.afterMutation()
}

// syncBidTimer keeps exactly one timer running while an auction is open.
func (a *Actor) syncBidTimer() {
	open := a.state.Status == game.StatusBidding && a.state.Bidding != nil && !a.state.Bidding.BidsRevealed
	switch {
	case open && a.bidTimer == nil:
		a.bidTimer = time.NewTimer(a.cfg.BidTimeout)
	case !open && a.bidTimer != nil:
		a.bidTimer.Stop()
		a.bidTimer = nil
	}
}

// broadcastState fans a per-recipient sanitized view out to every stream.
// A subscriber that cannot take the send is evicted; the session never
// blocks on a slow client.
func (a *Actor) broadcastState() {
	for s := range a.subs {
		if !s.SendState(game.Sanitize(a.state, s.PlayerID())) {
			a.evict(s, "send buffer full")
		}
	}
}

func (a *Actor) broadcastEvent(event string, payload interface{}) {
	for s := range a.subs {
		if !s.SendEvent(event, payload) {
			a.evict(s, "send buffer full")
		}
	}
}

func (a *Actor) evict(s Subscriber, reason string) {
	delete(a.subs, s)
	s.Close(reason)
}

func (a *Actor) maybeArchive() {
	if a.archived || a.archive == nil || a.state.Status != game.StatusFinished {
		return
	}
	a.archived = true
	snap := a.state.Clone()
	winners, scores := warStandings(snap)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.archive.ArchiveGame(ctx, snap, winners, scores); err != nil {
			a.log.WithError(err).Error("archive failed")
		}
	}()
}

// warStandings scores a finished war game by territories held. Card tables
// have no server-side scoring; they archive with empty standings.
func warStandings(g *game.GameState) (winners []string, scores map[string]int) {
	scores = make(map[string]int, len(g.Players))
	if g.GameType != game.TypeWar {
		return nil, scores
	}
	best := 0
	for _, p := range g.Players {
		n := len(g.TerritoriesOwnedBy(p.ID))
		scores[p.ID] = n
		if n > best {
			best = n
		}
	}
	for _, p := range g.Players {
		if scores[p.ID] == best && best > 0 {
			winners = append(winners, p.ID)
		}
	}
	return winners, scores
}

// hibernate writes a final snapshot and exits the loop. The registry
// re-creates the actor from storage on the next message.
func (a *Actor) hibernate() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := saveSnapshot(ctx, a.st, snapshotKey(a.ID), a.state); err != nil {
		a.log.WithError(err).Error("final snapshot failed")
	}
	if a.bidTimer != nil {
		a.bidTimer.Stop()
	}
	for s := range a.subs {
		s.Close("session idle")
	}
	close(a.stopped)
	if a.onEvict != nil {
		a.onEvict(a.ID, a)
	}
	a.log.Info("session hibernated")
}
