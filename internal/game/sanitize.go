package game

// Per-client sanitization. Sanitize is applied to every outbound broadcast
// and every cold-start snapshot — never to the persisted/internal state.
// Fields marked owner-only are nulled unless the recipient owns them;
// hidden collections are replaced by their size so clients can render
// card backs without learning contents; sealed bids never leave the server
// until the round reveals.

// ClientCard is the outbound view of a card. Hidden-zone cards belonging to
// other players are never present at all (their zone lists collapse to a
// size), so a ClientCard existing implies the recipient may see its face
// only when Known is true.
type ClientCard struct {
	ID       string   `json:"id"`
	Known    bool     `json:"known"`
	Name     string   `json:"name,omitempty"`
	Zone     string   `json:"zone"`
	Position Position `json:"position"`
	Rotation int      `json:"rotation"`
	FaceUp   bool     `json:"faceUp"`

	ManaValue int      `json:"manaValue,omitempty"`
	Colors    []string `json:"colors,omitempty"`
	TypeLine  string   `json:"typeLine,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
}

// ZoneSize substitutes a hidden zone's contents with its length.
type ZoneSize struct {
	Length int `json:"length"`
}

// ClientPlayer is the outbound view of a seat.
type ClientPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	SeatIndex int    `json:"seatIndex"`
	Energy    int    `json:"energy"`

	RemainingUnitsToPlace int  `json:"remainingUnitsToPlace"`
	Connected             bool `json:"connected"`
	IsBot                 bool `json:"isBot,omitempty"`

	// Zones holds full id lists for public zones; HiddenZones holds only
	// sizes, except for the recipient's own seat, which sees everything.
	Zones       map[string][]string `json:"zones,omitempty"`
	HiddenZones map[string]ZoneSize `json:"hiddenZones,omitempty"`

	// Pending is owner-only: other players learn only that a decision
	// blocks this seat, not the choices offered.
	Pending         *PendingDecision `json:"pendingDecision,omitempty"`
	DecisionBlocked bool             `json:"decisionBlocked,omitempty"`

	// HasBid is visible during bidding; the amount is not.
	HasBid bool `json:"hasBid,omitempty"`
}

// ClientBidding is the outbound view of the auction. Bids appears only after
// the simultaneous reveal.
type ClientBidding struct {
	Year           int            `json:"year"`
	BidsRevealed   bool           `json:"bidsRevealed"`
	Bids           map[string]int `json:"bids,omitempty"`
	HighestBidder  string         `json:"highestBidder,omitempty"`
	FinalTurnOrder []string       `json:"finalTurnOrder,omitempty"`
}

// ClientState is the full outbound snapshot for one recipient.
type ClientState struct {
	GameID   string   `json:"gameId"`
	GameType GameType `json:"gameType"`

	Status          Status     `json:"status"`
	SetupPhase      SetupPhase `json:"setupPhase,omitempty"`
	CurrentYear     int        `json:"currentYear"`
	CurrentPhase    int        `json:"currentPhase"`
	CurrentPlayerID string     `json:"currentPlayerId,omitempty"`

	Players     []ClientPlayer        `json:"players"`
	Territories map[string]*Territory `json:"territories,omitempty"`
	Cards       map[string]ClientCard `json:"cards,omitempty"`
	Bidding     *ClientBidding        `json:"bidding,omitempty"`

	// ActionCount stands in for the raw log, which stays server-side (bid
	// payloads would leak through it).
	ActionCount int `json:"actionCount"`
}

// Sanitize builds the state view for one recipient. An empty recipient id
// produces the spectator view (nothing owner-only is revealed).
func Sanitize(g *GameState, recipientID string) *ClientState {
	out := &ClientState{
		GameID:       g.GameID,
		GameType:     g.GameType,
		Status:       g.Status,
		SetupPhase:   g.SetupPhase,
		CurrentYear:  g.CurrentYear,
		CurrentPhase: g.CurrentPhase,
		ActionCount:  g.CurrentActionIndex + 1,
	}
	if cur := g.CurrentPlayer(); cur != nil {
		out.CurrentPlayerID = cur.ID
	}

	// Territories are public board state.
	if g.Territories != nil {
		out.Territories = make(map[string]*Territory, len(g.Territories))
		for id, t := range g.Territories {
			tc := *t
			tc.Connections = append([]string(nil), t.Connections...)
			out.Territories[id] = &tc
		}
	}

	out.Players = make([]ClientPlayer, len(g.Players))
	for i, p := range g.Players {
		isSelf := recipientID != "" && p.ID == recipientID
		cp := ClientPlayer{
			ID:                    p.ID,
			Name:                  p.Name,
			Color:                 p.Color,
			SeatIndex:             p.SeatIndex,
			Energy:                p.Energy,
			RemainingUnitsToPlace: p.RemainingUnitsToPlace,
			Connected:             p.Connected,
			IsBot:                 p.IsBot,
			DecisionBlocked:       p.Pending != nil,
		}
		if isSelf {
			cp.Pending = p.Pending
		}
		if g.Bidding != nil && !g.Bidding.BidsRevealed {
			_, cp.HasBid = g.Bidding.BidsSubmitted[p.ID]
		}
		if p.Zones != nil {
			cp.Zones = make(map[string][]string)
			cp.HiddenZones = make(map[string]ZoneSize)
			for zone, ids := range p.Zones {
				if HiddenZones[zone] && !isSelf {
					cp.HiddenZones[zone] = ZoneSize{Length: len(ids)}
					continue
				}
				cp.Zones[zone] = append([]string(nil), ids...)
			}
		}
		out.Players[i] = cp
	}

	if g.Cards != nil {
		out.Cards = make(map[string]ClientCard, len(g.Cards))
		for id, c := range g.Cards {
			known := cardKnownTo(c, recipientID)
			cc := ClientCard{
				ID:       c.ID,
				Known:    known,
				Zone:     c.Zone,
				Position: c.Position,
				Rotation: c.Rotation,
				FaceUp:   c.FaceUp,
			}
			if known {
				cc.Name = c.Name
				cc.ManaValue = c.ManaValue
				cc.Colors = append([]string(nil), c.Colors...)
				cc.TypeLine = c.TypeLine
				cc.ImageURL = c.ImageURL
			}
			// Cards in another player's hidden zone do not appear at all;
			// the zone size above is the only signal.
			if HiddenZones[c.Zone] && !known {
				continue
			}
			out.Cards[id] = cc
		}
	}

	if g.Bidding != nil {
		cb := &ClientBidding{
			Year:         g.Bidding.Year,
			BidsRevealed: g.Bidding.BidsRevealed,
		}
		if g.Bidding.BidsRevealed {
			cb.Bids = copyIntMap(g.Bidding.BidsSubmitted)
			cb.HighestBidder = g.Bidding.HighestBidder
			cb.FinalTurnOrder = append([]string(nil), g.Bidding.FinalTurnOrder...)
		}
		out.Bidding = cb
	}

	return out
}

// cardKnownTo decides whether the recipient may see a card's face: face-up
// cards are public, hidden-zone cards are owner-only.
func cardKnownTo(c *Card, recipientID string) bool {
	if c.FaceUp && !HiddenZones[c.Zone] {
		return true
	}
	return recipientID != "" && c.OwnerID == recipientID
}
