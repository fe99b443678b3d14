package engine

// PossibleMoves lists every move the active player could submit right now.
// It returns nil when the game is not in progress.
func (g *Game) PossibleMoves() []Move {
	if g.State.Status != StatusInProgress {
		return nil
	}
	active, opponent := g.ActivePlayer(), g.Opponent()
	if active == nil || opponent == nil {
		return nil
	}

	var moves []Move
	for _, src := range []Hand{Left, Right} {
		if !g.CanAttack(active.ID, src) {
			continue
		}
		for _, dst := range []Hand{Left, Right} {
			moves = append(moves, Move{Kind: MoveAttack, Source: src, Target: dst})
		}
	}

	for _, src := range []Hand{Left, Right} {
		s, t := active.Count(src), active.Count(src.Other())
		for k := 0; k <= s; k++ {
			ns, nt := redistribute(s, t, k)
			if ns == t && nt == s {
				continue
			}
			moves = append(moves, Move{Kind: MoveRedistribute, Source: src, Target: src.Other(), Amount: uint(k)})
		}
	}

	return moves
}

// CanAttack reports whether playerID may attack with source right now
func (g *Game) CanAttack(playerID string, source Hand) bool {
	active, _, err := g.authorize(playerID)
	if err != nil || !source.Valid() {
		return false
	}
	return active.Count(source) > 0
}
