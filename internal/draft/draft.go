// Package draft implements the booster draft engine: pack generation from a
// card pool, boomerang rotation among seats, and pick scoring for
// bot-controlled seats.
package draft

import (
	"errors"
	"fmt"
	"math/rand"
)

// Card is a draftable card hydrated from the catalog.
type Card struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Rarity    string   `json:"rarity"`
	ManaValue int      `json:"manaValue"`
	Colors    []string `json:"colors"`
	TypeTags  []string `json:"typeTags"`
	// Priority is an explicit per-card pick weight from the cube list.
	Priority int `json:"priority"`
}

// Config holds the tunables for one draft instance.
type Config struct {
	SeatCount      int `json:"seatCount"`
	PacksPerPlayer int `json:"packsPerPlayer"` // rounds
	PackSize       int `json:"packSize"`
	PickCount      int `json:"pickCount"` // cards consumed per pick, 1 or 2
}

// Pack is one booster. A retired pack is represented by absence (a nil seat
// slot), never by an empty Pack.
type Pack struct {
	ID    string `json:"id"`
	Cards []Card `json:"cards"`
}

// Seat is one drafter's position and accumulated pool.
type Seat struct {
	Index       int    `json:"index"`
	PlayerID    string `json:"playerId"`
	IsBot       bool   `json:"isBot"`
	CurrentPack *Pack  `json:"currentPack,omitempty"`
	Pool        []Card `json:"pool"`
	picked      bool
}

// Draft is the authoritative state for one draft. All rounds are
// pre-generated up front from a single shuffle so no later shuffle can be
// biased by partial draft information.
type Draft struct {
	Config Config
	Seats  []*Seat

	// rounds[round][originSeat] — generated once at start.
	rounds [][]*Pack
	Round  int `json:"round"`
	Pass   int `json:"pass"` // pick index within the round

	Done bool `json:"done"`
}

// New shuffles the pool once with the given seed, pre-partitions it into
// PacksPerPlayer rounds of SeatCount packs, and deals the first round.
func New(cfg Config, playerIDs []string, bots map[string]bool, pool []Card, seed int64) (*Draft, error) {
	if cfg.SeatCount <= 0 || cfg.PacksPerPlayer <= 0 || cfg.PackSize <= 0 {
		return nil, errors.New("invalid draft config")
	}
	if cfg.PickCount != 1 && cfg.PickCount != 2 {
		return nil, fmt.Errorf("pickCount must be 1 or 2, got %d", cfg.PickCount)
	}
	if len(playerIDs) != cfg.SeatCount {
		return nil, fmt.Errorf("got %d players for %d seats", len(playerIDs), cfg.SeatCount)
	}
	required := cfg.PacksPerPlayer * cfg.SeatCount * cfg.PackSize
	if len(pool) < required {
		return nil, fmt.Errorf("pool has %d cards, draft needs %d", len(pool), required)
	}

	shuffled := make([]Card, len(pool))
	copy(shuffled, pool)
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	rounds := make([][]*Pack, cfg.PacksPerPlayer)
	idx := 0
	for round := 0; round < cfg.PacksPerPlayer; round++ {
		rounds[round] = make([]*Pack, cfg.SeatCount)
		for seat := 0; seat < cfg.SeatCount; seat++ {
			cards := make([]Card, cfg.PackSize)
			copy(cards, shuffled[idx:idx+cfg.PackSize])
			rounds[round][seat] = &Pack{
				ID:    fmt.Sprintf("r%d_s%d", round, seat),
				Cards: cards,
			}
			idx += cfg.PackSize
		}
	}

	seats := make([]*Seat, cfg.SeatCount)
	for i, pid := range playerIDs {
		seats[i] = &Seat{Index: i, PlayerID: pid, IsBot: bots[pid], Pool: []Card{}}
	}

	d := &Draft{Config: cfg, Seats: seats, rounds: rounds}
	d.dealRound()
	return d, nil
}

// dealRound hands each seat the pack it opened for the current round.
func (d *Draft) dealRound() {
	for i, s := range d.Seats {
		s.CurrentPack = d.rounds[d.Round][i]
		s.picked = false
	}
	d.Pass = 0
}

// SeatByPlayer returns the seat for a player id, or nil.
func (d *Draft) SeatByPlayer(playerID string) *Seat {
	for _, s := range d.Seats {
		if s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

// Pick consumes the named cards from the seat's current pack into its pool.
// The pick count must match Config.PickCount unless the pack holds fewer
// cards. When every seat has picked, packs rotate.
func (d *Draft) Pick(seatIndex int, cardIDs []string) error {
	if d.Done {
		return errors.New("draft is complete")
	}
	if seatIndex < 0 || seatIndex >= len(d.Seats) {
		return fmt.Errorf("invalid seat %d", seatIndex)
	}
	seat := d.Seats[seatIndex]
	if seat.picked {
		return fmt.Errorf("seat %d already picked this pass", seatIndex)
	}
	pack := seat.CurrentPack
	if pack == nil {
		return fmt.Errorf("seat %d has no pack", seatIndex)
	}

	want := d.Config.PickCount
	if len(pack.Cards) < want {
		want = len(pack.Cards)
	}
	if len(cardIDs) != want {
		return fmt.Errorf("expected %d picks, got %d", want, len(cardIDs))
	}

	taken := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		if taken[id] {
			return fmt.Errorf("duplicate pick %q", id)
		}
		found := false
		for _, c := range pack.Cards {
			if c.ID == id {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("card %q is not in the pack", id)
		}
		taken[id] = true
	}

	remaining := pack.Cards[:0]
	for _, c := range pack.Cards {
		if taken[c.ID] {
			seat.Pool = append(seat.Pool, c)
			continue
		}
		remaining = append(remaining, c)
	}
	pack.Cards = remaining
	seat.picked = true

	if d.allPicked() {
		d.rotate()
	}
	return nil
}

func (d *Draft) allPicked() bool {
	for _, s := range d.Seats {
		// Seats without a pack (retired) have nothing to pick.
		if s.CurrentPack != nil && !s.picked {
			return false
		}
	}
	return true
}

// rotate passes packs one seat over. Direction alternates per round to
// reproduce the boomerang pattern: even rounds pass left (seat i's pack goes
// to seat i+1), odd rounds pass right. Packs with zero cards remaining are
// retired. When no live packs remain, the next round is dealt, or the draft
// completes.
func (d *Draft) rotate() {
	n := d.Config.SeatCount
	current := make([]*Pack, n)
	for i, s := range d.Seats {
		p := s.CurrentPack
		if p != nil && len(p.Cards) == 0 {
			p = nil // retired, not an empty object
		}
		current[i] = p
	}

	live := false
	for i, s := range d.Seats {
		var from int
		if d.Round%2 == 0 {
			from = ((i-1)%n + n) % n // pass left: receive from the right-hand seat
		} else {
			from = (i + 1) % n // pass right
		}
		s.CurrentPack = current[from]
		s.picked = false
		if s.CurrentPack != nil {
			live = true
		}
	}
	d.Pass++

	if live {
		return
	}
	d.Round++
	if d.Round >= d.Config.PacksPerPlayer {
		d.Done = true
		for _, s := range d.Seats {
			s.CurrentPack = nil
		}
		return
	}
	d.dealRound()
}

// Pending lists the seats that still hold a pack and have not picked this
// pass. Used by callers driving bot seats.
func (d *Draft) Pending() []int {
	var idx []int
	for i, s := range d.Seats {
		if s.CurrentPack != nil && !s.picked {
			idx = append(idx, i)
		}
	}
	return idx
}
