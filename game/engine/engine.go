package engine

import "fmt"

// NewGame creates a game waiting for an opponent. The creator is seated as
// player1 and the coin decides who moves first once the opponent joins.
func NewGame(sessionID, creatorID string, coin Coin) (*Game, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	if creatorID == "" {
		return nil, ErrEmptyPlayerID
	}
	if coin == nil {
		coin = CryptoCoin{}
	}

	turn := Player2
	if coin.Flip() {
		turn = Player1
	}

	return &Game{
		SessionID:   sessionID,
		Player1:     NewPlayer(creatorID),
		State:       Waiting(),
		CurrentTurn: turn,
	}, nil
}

// Join seats the second player and starts the game. It only has an effect
// while the game is waiting; on any other game it is a no-op and returns false.
// The joining identity is not compared with player1.
func (g *Game) Join(playerID string) bool {
	if playerID == "" || g.State.Status != StatusWaitingForPlayer || g.Player2 != nil {
		return false
	}

	p := NewPlayer(playerID)
	g.Player2 = &p
	g.State = InProgress()
	g.mustBeValid()
	return true
}

// Attack adds the active player's source hand onto the opponent's target hand.
// A target reaching Threshold or more dies (resets to zero).
func (g *Game) Attack(playerID string, source, target Hand) error {
	active, opponent, err := g.authorize(playerID)
	if err != nil {
		return err
	}
	if _, err := ParseHand(int(source)); err != nil {
		return err
	}
	if _, err := ParseHand(int(target)); err != nil {
		return err
	}

	strike := active.Count(source)
	if strike == 0 {
		return ErrDeadHand
	}

	hit := opponent.Count(target) + strike
	if hit >= Threshold {
		hit = 0
	}
	opponent.set(target, hit)

	if opponent.Dead() {
		g.State = Finished(active.ID)
	} else {
		g.CurrentTurn = g.CurrentTurn.Other()
	}

	g.mustBeValid()
	return nil
}

// Redistribute moves transfer points from the active player's source hand to
// their other hand, wrapping the receiving hand modulo Threshold. Swapping the
// two counts is rejected. The turn does not pass and no finish check is made.
func (g *Game) Redistribute(playerID string, source Hand, transfer uint) error {
	active, _, err := g.authorize(playerID)
	if err != nil {
		return err
	}
	if _, err := ParseHand(int(source)); err != nil {
		return err
	}

	target := source.Other()
	oldSource, oldTarget := active.Count(source), active.Count(target)
	if transfer > uint(oldSource) {
		return ErrInsufficientCount
	}

	newSource, newTarget := redistribute(oldSource, oldTarget, int(transfer))
	if newSource == oldTarget && newTarget == oldSource {
		return ErrSymmetricMoveForbidden
	}

	active.set(source, newSource)
	active.set(target, newTarget)

	g.mustBeValid()
	return nil
}

// redistribute computes the hand counts after moving k from s to t
func redistribute(s, t, k int) (int, int) {
	return s - k, (t + k) % Threshold
}

// authorize checks the shared move preconditions and resolves the active
// player and their opponent.
func (g *Game) authorize(playerID string) (*Player, *Player, error) {
	if g.State.Status != StatusInProgress {
		return nil, nil, ErrNotInProgress
	}

	active, opponent := g.ActivePlayer(), g.Opponent()
	if active == nil || opponent == nil || active.ID != playerID {
		return nil, nil, ErrNotYourTurn
	}
	return active, opponent, nil
}

// ActivePlayer returns the player whose turn it is, or nil if that seat is empty
func (g *Game) ActivePlayer() *Player {
	if g.CurrentTurn == Player1 {
		return &g.Player1
	}
	return g.Player2
}

// Opponent returns the player waiting for their turn, or nil if that seat is empty
func (g *Game) Opponent() *Player {
	if g.CurrentTurn == Player1 {
		return g.Player2
	}
	return &g.Player1
}

// PlayerByID returns the seated player with the given identity
func (g *Game) PlayerByID(playerID string) (*Player, bool) {
	if g.Player1.ID == playerID {
		return &g.Player1, true
	}
	if g.Player2 != nil && g.Player2.ID == playerID {
		return g.Player2, true
	}
	return nil, false
}

// IsFinished reports whether the game has a winner
func (g *Game) IsFinished() bool {
	return g.State.Status == StatusFinished
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	c := *g
	if g.Player2 != nil {
		p := *g.Player2
		c.Player2 = &p
	}
	return &c
}

// Validate checks the at-rest invariants of a game
func (g *Game) Validate() error {
	if g.SessionID == "" {
		return fmt.Errorf("%w: %v", ErrCorruptGame, ErrEmptySessionID)
	}
	if err := validatePlayer("player1", &g.Player1); err != nil {
		return err
	}
	if g.Player2 != nil {
		if err := validatePlayer("player2", g.Player2); err != nil {
			return err
		}
	}
	if g.CurrentTurn != Player1 && g.CurrentTurn != Player2 {
		return fmt.Errorf("%w: unknown turn %q", ErrCorruptGame, g.CurrentTurn)
	}

	switch g.State.Status {
	case StatusWaitingForPlayer:
		if g.Player2 != nil {
			return fmt.Errorf("%w: waiting game has a second player", ErrCorruptGame)
		}
	case StatusInProgress, StatusFinished:
		if g.Player2 == nil {
			return fmt.Errorf("%w: %s game has no second player", ErrCorruptGame, g.State.Status)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrCorruptGame, g.State.Status)
	}

	if (g.State.Status == StatusFinished) != (g.State.Winner != "") {
		return fmt.Errorf("%w: winner must be set exactly when finished", ErrCorruptGame)
	}
	if g.State.Winner != "" {
		if _, ok := g.PlayerByID(g.State.Winner); !ok {
			return fmt.Errorf("%w: winner %q is not seated", ErrCorruptGame, g.State.Winner)
		}
	}
	return nil
}

func validatePlayer(seat string, p *Player) error {
	if p.ID == "" {
		return fmt.Errorf("%w: %s: %v", ErrCorruptGame, seat, ErrEmptyPlayerID)
	}
	for _, v := range []int{p.Left, p.Right} {
		if v < 0 || v > MaxCount {
			return fmt.Errorf("%w: %s hand count %d out of range [0,%d]", ErrCorruptGame, seat, v, MaxCount)
		}
	}
	return nil
}

// mustBeValid panics when a committed move broke an invariant. The move
// logic owns the bounds, so a violation here is a bug.
func (g *Game) mustBeValid() {
	if err := g.Validate(); err != nil {
		panic(fmt.Sprintf("engine: invariant violated in session %s: %v", g.SessionID, err))
	}
}
