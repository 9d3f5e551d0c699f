package game

// Card-zone operations for the tcg. Every operation is a pure state
// replacement keyed by card id. An unknown card id degrades to a no-op that
// reports an UnknownCardEffect instead of failing — under multiplayer
// latency a concurrent zone move racing a deletion is expected, and the
// client's view is corrected by the next state_update either way.

// applyCardOp routes the five card operations.
func (g *GameState) applyCardOp(a Action) ([]Effect, *RuleError) {
	p := a.Data.Card
	if p == nil {
		return nil, validationErr("%s requires a card payload", a.Type)
	}
	card, ok := g.Cards[p.CardID]
	if !ok {
		return []Effect{UnknownCardEffect{CardID: p.CardID, Op: a.Type}}, nil
	}

	switch a.Type {
	case ActionMoveCard:
		return nil, g.moveCard(a.PlayerID, card, p)
	case ActionRotateCard:
		if p.Rotation == nil {
			return nil, validationErr("rotate_card requires a rotation")
		}
		return nil, g.rotateCard(card, *p.Rotation)
	case ActionTapCard:
		return nil, g.rotateCard(card, 90)
	case ActionUntapCard:
		return nil, g.rotateCard(card, 0)
	case ActionFlipCard:
		if p.FaceUp != nil {
			card.FaceUp = *p.FaceUp
		} else {
			card.FaceUp = !card.FaceUp
		}
		return nil, nil
	}
	return nil, validationErr("unhandled card operation %q", a.Type)
}

// moveCard repositions a card and, when the payload names a zone, transfers
// it between the owning player's per-zone id lists. Invariant: a card id
// lives in exactly one zone list at any time.
func (g *GameState) moveCard(actorID string, card *Card, p *CardPayload) *RuleError {
	if p.Position != nil {
		card.Position = *p.Position
	}
	if p.Zone == "" || p.Zone == card.Zone {
		return nil
	}

	owner := g.PlayerByID(card.OwnerID)
	if owner == nil {
		return notFoundErr("card %s has no owning player", card.ID)
	}
	if _, ok := owner.Zones[p.Zone]; !ok {
		return validationErr("unknown zone %q", p.Zone)
	}

	removeFromZoneList(owner, card.ID)
	owner.Zones[p.Zone] = append(owner.Zones[p.Zone], card.ID)
	card.Zone = p.Zone

	// Cards leaving a hidden zone for the battlefield are revealed.
	if p.Zone == ZoneBattlefield {
		card.FaceUp = true
	}
	return nil
}

// rotateCard sets the rotation after bounds-checking it.
func (g *GameState) rotateCard(card *Card, rotation int) *RuleError {
	ok := false
	for _, r := range ValidRotations {
		if r == rotation {
			ok = true
			break
		}
	}
	if !ok {
		return validationErr("rotation must be one of 0/90/180/270, got %d", rotation)
	}
	card.Rotation = rotation
	return nil
}

// removeFromZoneList deletes the card id from whichever zone list holds it.
func removeFromZoneList(owner *Player, cardID string) {
	for zone, ids := range owner.Zones {
		for i, id := range ids {
			if id == cardID {
				owner.Zones[zone] = append(ids[:i:i], ids[i+1:]...)
				return
			}
		}
	}
}
