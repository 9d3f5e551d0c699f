package game

import "sort"

// Combat resolution. The attacker commits N units from a source territory
// against an adjacent target. Both sides' dice arrive pre-rolled in the
// action payload (one die per committed attacker unit, one per defending
// unit); the reducer only compares them. Defenders roll a d6, except
// neutral/zombie-held territories which roll a d8 — that asymmetry is a
// deliberate balance rule.
//
// The highest dice are compared pairwise in descending order, truncated to
// min(attacker dice, defender dice). Each lost comparison removes one unit
// from the losing side; ties favor the defender. Units are only ever
// destroyed by combat, never created.

// DefenderDie returns the die size the territory defends with.
func DefenderDie(t *Territory) int {
	if t.IsNeutral {
		return ZombieDefenderDie
	}
	return BaseDie
}

// applyAttack validates and resolves one combat commitment.
func (g *GameState) applyAttack(a Action) ([]Effect, *RuleError) {
	actor := g.PlayerByID(a.PlayerID)
	atk := a.Data.Attack
	if atk == nil {
		return nil, validationErr("attack requires an attack payload")
	}
	if !warPhaseAllows(ActionAttack, g.CurrentPhase) {
		return nil, validationErr("combat is not legal in phase %d", g.CurrentPhase)
	}

	from, ok := g.Territories[atk.FromID]
	if !ok {
		return nil, notFoundErr("unknown territory %q", atk.FromID)
	}
	to, ok := g.Territories[atk.ToID]
	if !ok {
		return nil, notFoundErr("unknown territory %q", atk.ToID)
	}
	if from.OwnerID != actor.ID {
		return nil, conflictErr("territory %s is not held by player %s", from.ID, actor.ID)
	}
	if to.OwnerID == actor.ID {
		return nil, validationErr("cannot attack own territory %s", to.ID)
	}
	if !connected(from, to.ID) {
		return nil, validationErr("territories %s and %s are not connected", from.ID, to.ID)
	}
	if atk.Units < 1 || atk.Units >= from.Units {
		return nil, validationErr("must attack with between 1 and %d units, got %d", from.Units-1, atk.Units)
	}
	if len(atk.AttackerRolls) != atk.Units {
		return nil, validationErr("expected %d attacker rolls, got %d", atk.Units, len(atk.AttackerRolls))
	}
	if len(atk.DefenderRolls) != to.Units {
		return nil, validationErr("expected %d defender rolls, got %d", to.Units, len(atk.DefenderRolls))
	}
	if err := checkRolls(atk.AttackerRolls, BaseDie); err != nil {
		return nil, err
	}
	if err := checkRolls(atk.DefenderRolls, DefenderDie(to)); err != nil {
		return nil, err
	}

	attackerLoss, defenderLoss := resolveDice(atk.AttackerRolls, atk.DefenderRolls)

	from.Units -= atk.Units // committed units leave the source
	surviving := atk.Units - attackerLoss
	to.Units -= defenderLoss

	var effects []Effect
	if to.Units <= 0 && surviving > 0 {
		// Conquest: survivors occupy.
		oldOwner := to.OwnerID
		to.OwnerID = actor.ID
		to.IsNeutral = false
		to.Units = surviving
		effects = append(effects, ConquestEffect{
			TerritoryID: to.ID,
			NewOwnerID:  actor.ID,
			OldOwnerID:  oldOwner,
		})
	} else {
		// Survivors retreat home.
		from.Units += surviving
		if to.Units < 0 {
			to.Units = 0
		}
	}
	return effects, nil
}

// checkRolls enforces die bounds on a pre-rolled dice slice.
func checkRolls(rolls []int, die int) *RuleError {
	for _, r := range rolls {
		if r < 1 || r > die {
			return validationErr("die roll %d out of range for d%d", r, die)
		}
	}
	return nil
}

// resolveDice compares sorted dice pairwise and returns the unit losses for
// each side. Ties favor the defender.
func resolveDice(attacker, defender []int) (attackerLoss, defenderLoss int) {
	a := append([]int(nil), attacker...)
	d := append([]int(nil), defender...)
	sort.Sort(sort.Reverse(sort.IntSlice(a)))
	sort.Sort(sort.Reverse(sort.IntSlice(d)))

	n := len(a)
	if len(d) < n {
		n = len(d)
	}
	for i := 0; i < n; i++ {
		if a[i] > d[i] {
			defenderLoss++
		} else {
			attackerLoss++
		}
	}
	return attackerLoss, defenderLoss
}
