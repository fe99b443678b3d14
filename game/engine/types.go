package engine

import "fmt"

// Status is the lifecycle phase of a game
type Status string

const (
	StatusWaitingForPlayer Status = "waiting_for_player"
	StatusInProgress       Status = "in_progress"
	StatusFinished         Status = "finished"
)

// Turn identifies whose move it is
type Turn string

const (
	Player1 Turn = "player1"
	Player2 Turn = "player2"
)

// Other returns the opposite turn
func (t Turn) Other() Turn {
	if t == Player1 {
		return Player2
	}
	return Player1
}

// Hand selects one of a player's two hands
type Hand int

const (
	Left  Hand = 0
	Right Hand = 1
)

const (
	// StartingCount is the count each hand holds when a player is seated
	StartingCount = 1
	// MaxCount is the highest count a live hand may hold at rest
	MaxCount = 4
	// Threshold is the count at which a hand dies (attack) or wraps (redistribute)
	Threshold = 5
)

// Valid reports whether h names an existing hand
func (h Hand) Valid() bool {
	return h == Left || h == Right
}

// Other returns the opposite hand
func (h Hand) Other() Hand {
	if h == Left {
		return Right
	}
	return Left
}

func (h Hand) String() string {
	switch h {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("hand(%d)", int(h))
	}
}

// ParseHand converts a wire index (0 = left, 1 = right) into a Hand
func ParseHand(index int) (Hand, error) {
	h := Hand(index)
	if !h.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidHand, index)
	}
	return h, nil
}

// Player is a seated participant and the counts on their two hands
type Player struct {
	ID    string `json:"id"`
	Left  int    `json:"left"`
	Right int    `json:"right"`
}

// NewPlayer seats a player with the starting count on both hands
func NewPlayer(id string) Player {
	return Player{ID: id, Left: StartingCount, Right: StartingCount}
}

// Count returns the count on the given hand
func (p *Player) Count(h Hand) int {
	if h == Left {
		return p.Left
	}
	return p.Right
}

func (p *Player) set(h Hand, v int) {
	if h == Left {
		p.Left = v
	} else {
		p.Right = v
	}
}

// Dead reports whether both hands are at zero
func (p *Player) Dead() bool {
	return p.Left == 0 && p.Right == 0
}

// GameState is the tagged lifecycle state. Winner is only set when finished.
type GameState struct {
	Status Status `json:"status"`
	Winner string `json:"winner,omitempty"`
}

// Waiting, InProgress and Finished build the three state variants.
func Waiting() GameState    { return GameState{Status: StatusWaitingForPlayer} }
func InProgress() GameState { return GameState{Status: StatusInProgress} }
func Finished(winner string) GameState {
	return GameState{Status: StatusFinished, Winner: winner}
}

// Game is a single chopsticks session between two players
type Game struct {
	SessionID   string    `json:"session_id"`
	Player1     Player    `json:"player1"`
	Player2     *Player   `json:"player2,omitempty"`
	State       GameState `json:"state"`
	CurrentTurn Turn      `json:"current_turn"`
}

// MoveKind distinguishes the two kinds of move
type MoveKind string

const (
	MoveAttack       MoveKind = "attack"
	MoveRedistribute MoveKind = "redistribute"
)

// Move describes one legal move for the active player.
// Target is set for attacks, Amount for redistributions.
type Move struct {
	Kind   MoveKind `json:"kind"`
	Source Hand     `json:"source_hand"`
	Target Hand     `json:"target_hand"`
	Amount uint     `json:"amount"`
}
