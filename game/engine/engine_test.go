package engine

import (
	"errors"
	"reflect"
	"testing"
)

var (
	alwaysPlayer1 = CoinFunc(func() bool { return true })
	alwaysPlayer2 = CoinFunc(func() bool { return false })
)

// startedGame returns an in-progress game between alice (player1) and bob
// with alice to move.
func startedGame(t *testing.T) *Game {
	t.Helper()
	g, err := NewGame("test-session", "alice", alwaysPlayer1)
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	if !g.Join("bob") {
		t.Fatal("Expected bob to join")
	}
	return g
}

func TestNewGame(t *testing.T) {
	t.Run("initial state", func(t *testing.T) {
		g, err := NewGame("s1", "alice", alwaysPlayer1)
		if err != nil {
			t.Fatalf("Failed to create game: %v", err)
		}
		if g.SessionID != "s1" {
			t.Errorf("Expected session id s1, got %s", g.SessionID)
		}
		if g.Player1 != (Player{ID: "alice", Left: 1, Right: 1}) {
			t.Errorf("Unexpected player1: %+v", g.Player1)
		}
		if g.Player2 != nil {
			t.Error("Expected no second player")
		}
		if g.State.Status != StatusWaitingForPlayer {
			t.Errorf("Expected waiting status, got %s", g.State.Status)
		}
		if g.CurrentTurn != Player1 {
			t.Errorf("Expected player1 to open, got %s", g.CurrentTurn)
		}
	})

	t.Run("coin decides opener", func(t *testing.T) {
		g, err := NewGame("s2", "alice", alwaysPlayer2)
		if err != nil {
			t.Fatalf("Failed to create game: %v", err)
		}
		if g.CurrentTurn != Player2 {
			t.Errorf("Expected player2 to open, got %s", g.CurrentTurn)
		}
	})

	t.Run("missing session id", func(t *testing.T) {
		if _, err := NewGame("", "alice", nil); !errors.Is(err, ErrEmptySessionID) {
			t.Errorf("Expected ErrEmptySessionID, got %v", err)
		}
	})

	t.Run("missing creator", func(t *testing.T) {
		if _, err := NewGame("s3", "", nil); !errors.Is(err, ErrEmptyPlayerID) {
			t.Errorf("Expected ErrEmptyPlayerID, got %v", err)
		}
	})
}

func TestJoin(t *testing.T) {
	g, _ := NewGame("s1", "alice", alwaysPlayer1)

	if !g.Join("bob") {
		t.Fatal("Expected join to seat bob")
	}
	if g.State.Status != StatusInProgress {
		t.Errorf("Expected in progress, got %s", g.State.Status)
	}
	if g.Player2 == nil || *g.Player2 != (Player{ID: "bob", Left: 1, Right: 1}) {
		t.Errorf("Unexpected player2: %+v", g.Player2)
	}

	t.Run("second join is a no-op", func(t *testing.T) {
		before := g.Clone()
		if g.Join("carol") {
			t.Error("Expected join on a started game to be ignored")
		}
		if g.Player2.ID != "bob" || g.State != before.State {
			t.Error("Game changed after ignored join")
		}
	})

	t.Run("join after finish is a no-op", func(t *testing.T) {
		f := startedGame(t)
		f.Player2.Left, f.Player2.Right = 0, 4
		if err := f.Attack("alice", Left, Right); err != nil {
			t.Fatalf("Attack failed: %v", err)
		}
		if !f.IsFinished() {
			t.Fatal("Expected finished game")
		}
		if f.Join("carol") {
			t.Error("Expected join on a finished game to be ignored")
		}
	})

	t.Run("creator may join own game", func(t *testing.T) {
		own, _ := NewGame("s4", "alice", alwaysPlayer1)
		if !own.Join("alice") {
			t.Error("Expected self join to be accepted")
		}
	})

	t.Run("empty identity is ignored", func(t *testing.T) {
		w, _ := NewGame("s5", "alice", alwaysPlayer1)
		if w.Join("") {
			t.Error("Expected empty identity to be ignored")
		}
		if w.State.Status != StatusWaitingForPlayer {
			t.Error("Expected game to keep waiting")
		}
	})
}

func TestAttack(t *testing.T) {
	t.Run("adds source onto target and passes the turn", func(t *testing.T) {
		g := startedGame(t)
		if err := g.Attack("alice", Left, Left); err != nil {
			t.Fatalf("Attack failed: %v", err)
		}
		if g.Player2.Left != 2 || g.Player2.Right != 1 {
			t.Errorf("Expected bob 2/1, got %d/%d", g.Player2.Left, g.Player2.Right)
		}
		if g.CurrentTurn != Player2 {
			t.Errorf("Expected turn to pass to player2, got %s", g.CurrentTurn)
		}
	})

	t.Run("sum at threshold kills the hand", func(t *testing.T) {
		g := startedGame(t)
		g.Player1.Right = 3
		g.Player2.Left = 2
		if err := g.Attack("alice", Right, Left); err != nil {
			t.Fatalf("Attack failed: %v", err)
		}
		if g.Player2.Left != 0 {
			t.Errorf("Expected dead hand, got %d", g.Player2.Left)
		}
	})

	t.Run("sum above threshold is clamped not wrapped", func(t *testing.T) {
		g := startedGame(t)
		g.Player1.Left = 4
		g.Player2.Right = 4
		if err := g.Attack("alice", Left, Right); err != nil {
			t.Fatalf("Attack failed: %v", err)
		}
		if g.Player2.Right != 0 {
			t.Errorf("Expected 0 after 8, got %d", g.Player2.Right)
		}
	})

	t.Run("killing the last hand finishes the game", func(t *testing.T) {
		g := startedGame(t)
		g.Player2.Left = 0
		g.Player2.Right = 4
		if err := g.Attack("alice", Left, Right); err != nil {
			t.Fatalf("Attack failed: %v", err)
		}
		if g.State != Finished("alice") {
			t.Errorf("Expected alice to win, got %+v", g.State)
		}
		if g.CurrentTurn != Player1 {
			t.Error("Turn must not flip on the winning move")
		}
	})

	t.Run("not your turn", func(t *testing.T) {
		g := startedGame(t)
		before := g.Clone()
		if err := g.Attack("bob", Left, Left); !errors.Is(err, ErrNotYourTurn) {
			t.Errorf("Expected ErrNotYourTurn, got %v", err)
		}
		assertUnchanged(t, before, g)
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		g := startedGame(t)
		if err := g.Attack("mallory", Left, Left); !errors.Is(err, ErrNotYourTurn) {
			t.Errorf("Expected ErrNotYourTurn, got %v", err)
		}
	})

	t.Run("dead source hand", func(t *testing.T) {
		g := startedGame(t)
		g.Player1.Left = 0
		before := g.Clone()
		if err := g.Attack("alice", Left, Right); !errors.Is(err, ErrDeadHand) {
			t.Errorf("Expected ErrDeadHand, got %v", err)
		}
		assertUnchanged(t, before, g)
	})

	t.Run("invalid hand index", func(t *testing.T) {
		g := startedGame(t)
		if err := g.Attack("alice", Hand(2), Left); !errors.Is(err, ErrInvalidHand) {
			t.Errorf("Expected ErrInvalidHand, got %v", err)
		}
		err := g.Attack("alice", Left, Hand(-1))
		if !errors.Is(err, ErrInvalidHand) || err.Error() != "invalid hand: -1" {
			t.Errorf("Expected ErrInvalidHand naming index -1, got %v", err)
		}
		// the turn is checked before the hand index
		if err := g.Attack("bob", Hand(7), Left); !errors.Is(err, ErrNotYourTurn) {
			t.Errorf("Expected ErrNotYourTurn, got %v", err)
		}
	})

	t.Run("waiting game", func(t *testing.T) {
		g, _ := NewGame("s1", "alice", alwaysPlayer1)
		before := g.Clone()
		if err := g.Attack("alice", Left, Left); !errors.Is(err, ErrNotInProgress) {
			t.Errorf("Expected ErrNotInProgress, got %v", err)
		}
		assertUnchanged(t, before, g)
	})

	t.Run("finished game", func(t *testing.T) {
		g := startedGame(t)
		g.Player2.Left, g.Player2.Right = 0, 4
		if err := g.Attack("alice", Left, Right); err != nil {
			t.Fatalf("Attack failed: %v", err)
		}
		before := g.Clone()
		if err := g.Attack("alice", Left, Left); !errors.Is(err, ErrNotInProgress) {
			t.Errorf("Expected ErrNotInProgress, got %v", err)
		}
		assertUnchanged(t, before, g)
	})

	t.Run("not in progress wins over not your turn", func(t *testing.T) {
		g, _ := NewGame("s1", "alice", alwaysPlayer1)
		if err := g.Attack("mallory", Hand(7), Left); !errors.Is(err, ErrNotInProgress) {
			t.Errorf("Expected ErrNotInProgress, got %v", err)
		}
	})
}

func TestAttackOutcomes(t *testing.T) {
	for a := 1; a <= MaxCount; a++ {
		for target := 0; target <= MaxCount; target++ {
			for _, other := range []int{0, 1} {
				g := startedGame(t)
				g.Player1.Left = a
				g.Player2.Left = target
				g.Player2.Right = other

				if err := g.Attack("alice", Left, Left); err != nil {
					t.Fatalf("a=%d t=%d: attack failed: %v", a, target, err)
				}

				want := a + target
				if want >= Threshold {
					want = 0
				}
				if g.Player2.Left != want {
					t.Errorf("a=%d t=%d: expected %d, got %d", a, target, want, g.Player2.Left)
				}

				flipped := g.CurrentTurn == Player2
				if flipped == g.IsFinished() {
					t.Errorf("a=%d t=%d: exactly one of turn flip or finish must happen", a, target)
				}
				if want == 0 && other == 0 && g.State != Finished("alice") {
					t.Errorf("a=%d t=%d: expected alice to win, got %+v", a, target, g.State)
				}
			}
		}
	}
}

func TestRedistribute(t *testing.T) {
	t.Run("moves points between own hands", func(t *testing.T) {
		g := startedGame(t)
		if err := g.Redistribute("alice", Left, 1); err != nil {
			t.Fatalf("Redistribute failed: %v", err)
		}
		if g.Player1.Left != 0 || g.Player1.Right != 2 {
			t.Errorf("Expected 0/2, got %d/%d", g.Player1.Left, g.Player1.Right)
		}
	})

	t.Run("does not pass the turn", func(t *testing.T) {
		g := startedGame(t)
		if err := g.Redistribute("alice", Left, 1); err != nil {
			t.Fatalf("Redistribute failed: %v", err)
		}
		if g.CurrentTurn != Player1 {
			t.Errorf("Expected player1 to keep the turn, got %s", g.CurrentTurn)
		}
	})

	t.Run("target wraps modulo threshold", func(t *testing.T) {
		g := startedGame(t)
		g.Player1.Right = 3
		g.Player1.Left = 4
		if err := g.Redistribute("alice", Right, 3); err != nil {
			t.Fatalf("Redistribute failed: %v", err)
		}
		if g.Player1.Right != 0 || g.Player1.Left != 2 {
			t.Errorf("Expected 2/0, got %d/%d", g.Player1.Left, g.Player1.Right)
		}
	})

	t.Run("own hands reaching zero does not finish", func(t *testing.T) {
		g := startedGame(t)
		g.Player1.Left = 1
		g.Player1.Right = 4
		if err := g.Redistribute("alice", Left, 1); err != nil {
			t.Fatalf("Redistribute failed: %v", err)
		}
		if !g.Player1.Dead() {
			t.Fatalf("Expected 0/0, got %d/%d", g.Player1.Left, g.Player1.Right)
		}
		if g.State.Status != StatusInProgress {
			t.Errorf("Expected game to stay in progress, got %s", g.State.Status)
		}
	})

	t.Run("symmetric swap is forbidden", func(t *testing.T) {
		g := startedGame(t)
		g.Player1.Left = 3
		g.Player1.Right = 1
		before := g.Clone()
		if err := g.Redistribute("alice", Left, 2); !errors.Is(err, ErrSymmetricMoveForbidden) {
			t.Errorf("Expected ErrSymmetricMoveForbidden, got %v", err)
		}
		assertUnchanged(t, before, g)
	})

	t.Run("zero transfer on equal hands is symmetric", func(t *testing.T) {
		g := startedGame(t)
		if err := g.Redistribute("alice", Left, 0); !errors.Is(err, ErrSymmetricMoveForbidden) {
			t.Errorf("Expected ErrSymmetricMoveForbidden, got %v", err)
		}
	})

	t.Run("insufficient count", func(t *testing.T) {
		g := startedGame(t)
		before := g.Clone()
		if err := g.Redistribute("alice", Left, 2); !errors.Is(err, ErrInsufficientCount) {
			t.Errorf("Expected ErrInsufficientCount, got %v", err)
		}
		assertUnchanged(t, before, g)
	})

	t.Run("not your turn", func(t *testing.T) {
		g := startedGame(t)
		if err := g.Redistribute("bob", Left, 1); !errors.Is(err, ErrNotYourTurn) {
			t.Errorf("Expected ErrNotYourTurn, got %v", err)
		}
	})

	t.Run("waiting game", func(t *testing.T) {
		g, _ := NewGame("s1", "alice", alwaysPlayer1)
		if err := g.Redistribute("alice", Left, 1); !errors.Is(err, ErrNotInProgress) {
			t.Errorf("Expected ErrNotInProgress, got %v", err)
		}
	})

	t.Run("turn check precedes count check", func(t *testing.T) {
		g := startedGame(t)
		if err := g.Redistribute("bob", Left, 4); !errors.Is(err, ErrNotYourTurn) {
			t.Errorf("Expected ErrNotYourTurn, got %v", err)
		}
	})
}

func TestRedistributeOutcomes(t *testing.T) {
	for s := 0; s <= MaxCount; s++ {
		for target := 0; target <= MaxCount; target++ {
			for k := 0; k <= s; k++ {
				g := startedGame(t)
				g.Player1.Left = s
				g.Player1.Right = target

				err := g.Redistribute("alice", Left, uint(k))
				symmetric := s-k == target && (target+k)%Threshold == s

				if symmetric {
					if !errors.Is(err, ErrSymmetricMoveForbidden) {
						t.Errorf("s=%d t=%d k=%d: expected symmetric rejection, got %v", s, target, k, err)
					}
					continue
				}
				if err != nil {
					t.Errorf("s=%d t=%d k=%d: unexpected error %v", s, target, k, err)
					continue
				}
				if g.Player1.Left != s-k || g.Player1.Right != (target+k)%Threshold {
					t.Errorf("s=%d t=%d k=%d: got %d/%d", s, target, k, g.Player1.Left, g.Player1.Right)
				}
			}
		}
	}
}

func TestFullGame(t *testing.T) {
	g := startedGame(t)

	// alice 1/1 -> bob left 2
	mustMove(t, g.Attack("alice", Left, Left))
	if g.Player2.Left != 2 || g.CurrentTurn != Player2 {
		t.Fatalf("Unexpected state after first attack: %+v", g)
	}

	// bob 2/1 -> alice left 2
	mustMove(t, g.Attack("bob", Right, Left))
	if g.Player1.Left != 2 || g.CurrentTurn != Player1 {
		t.Fatalf("Unexpected state after second attack: %+v", g)
	}

	// alice 2/1 -> bob left 2+2=4
	mustMove(t, g.Attack("alice", Left, Left))
	// bob 4/1 -> alice left 2+4 -> 0
	mustMove(t, g.Attack("bob", Left, Left))
	if g.Player1.Left != 0 {
		t.Fatalf("Expected alice left to die, got %d", g.Player1.Left)
	}
	// alice 0/1 -> bob left 4+1 -> 0
	mustMove(t, g.Attack("alice", Right, Left))
	// bob 0/1 -> alice right 1+1=2
	mustMove(t, g.Attack("bob", Right, Right))
	// alice 0/2 -> bob right 1+2=3
	mustMove(t, g.Attack("alice", Right, Right))
	// bob 0/3 -> alice right 2+3 -> 0, alice is out
	mustMove(t, g.Attack("bob", Right, Right))

	if g.State != Finished("bob") {
		t.Fatalf("Expected bob to win, got %+v", g.State)
	}
	if err := g.Attack("alice", Right, Right); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("Expected ErrNotInProgress after finish, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *Game)
	}{
		{"hand above max", func(g *Game) { g.Player1.Left = 5 }},
		{"negative hand", func(g *Game) { g.Player2.Right = -1 }},
		{"in progress without player2", func(g *Game) { g.Player2 = nil }},
		{"waiting with player2", func(g *Game) { g.State = Waiting() }},
		{"finished without winner", func(g *Game) { g.State = GameState{Status: StatusFinished} }},
		{"winner while in progress", func(g *Game) { g.State.Winner = "alice" }},
		{"unseated winner", func(g *Game) { g.State = Finished("mallory") }},
		{"unknown status", func(g *Game) { g.State.Status = "paused" }},
		{"unknown turn", func(g *Game) { g.CurrentTurn = "player3" }},
		{"empty session", func(g *Game) { g.SessionID = "" }},
		{"empty player id", func(g *Game) { g.Player2.ID = "" }},
	}

	if err := startedGame(t).Validate(); err != nil {
		t.Fatalf("Expected valid game, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := startedGame(t)
			tt.mutate(g)
			if err := g.Validate(); !errors.Is(err, ErrCorruptGame) {
				t.Errorf("Expected ErrCorruptGame, got %v", err)
			}
		})
	}
}

func TestClone(t *testing.T) {
	g := startedGame(t)
	c := g.Clone()
	c.Player2.Left = 4
	c.Player1.Right = 3
	if g.Player2.Left != 1 || g.Player1.Right != 1 {
		t.Error("Clone shares state with the original")
	}
}

func TestParseHand(t *testing.T) {
	if h, err := ParseHand(0); err != nil || h != Left {
		t.Errorf("Expected Left, got %v %v", h, err)
	}
	if h, err := ParseHand(1); err != nil || h != Right {
		t.Errorf("Expected Right, got %v %v", h, err)
	}
	if _, err := ParseHand(2); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("Expected ErrInvalidHand, got %v", err)
	}
	if _, err := ParseHand(-1); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("Expected ErrInvalidHand, got %v", err)
	}
}

func mustMove(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
}

func assertUnchanged(t *testing.T, before, after *Game) {
	t.Helper()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("Game changed after rejected move:\nbefore %+v\nafter  %+v", before, after)
	}
}
