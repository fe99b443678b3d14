// Command analyze walks every position reachable from the chopsticks opening
// and prints a short report: how many positions exist, how games end, the
// widest choice of moves, and positions where the player to move is stuck
// with no legal move.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/wricardo/chopsticks/game/engine"
)

const (
	firstID  = "p1"
	secondID = "p2"
)

// Position is the part of a game that decides which moves are legal
type Position struct {
	P1Left, P1Right int
	P2Left, P2Right int
	Turn            engine.Turn
}

func (p Position) String() string {
	return fmt.Sprintf("p1=%d/%d p2=%d/%d to move: %s", p.P1Left, p.P1Right, p.P2Left, p.P2Right, p.Turn)
}

// Report summarizes an exploration
type Report struct {
	Positions    int
	Terminal     map[string]int
	MaxBranching int
	Widest       Position
	Stuck        []Position
}

func positionOf(g *engine.Game) Position {
	return Position{
		P1Left: g.Player1.Left, P1Right: g.Player1.Right,
		P2Left: g.Player2.Left, P2Right: g.Player2.Right,
		Turn: g.CurrentTurn,
	}
}

// gameAt builds an in-progress game sitting at p
func gameAt(p Position) *engine.Game {
	return &engine.Game{
		SessionID:   "analyze",
		Player1:     engine.Player{ID: firstID, Left: p.P1Left, Right: p.P1Right},
		Player2:     &engine.Player{ID: secondID, Left: p.P2Left, Right: p.P2Right},
		State:       engine.InProgress(),
		CurrentTurn: p.Turn,
	}
}

// apply plays m on a copy of g
func apply(g *engine.Game, m engine.Move) (*engine.Game, error) {
	next := g.Clone()
	active := next.ActivePlayer().ID

	var err error
	switch m.Kind {
	case engine.MoveAttack:
		err = next.Attack(active, m.Source, m.Target)
	case engine.MoveRedistribute:
		err = next.Redistribute(active, m.Source, m.Amount)
	default:
		err = fmt.Errorf("unknown move kind %q", m.Kind)
	}
	return next, err
}

// Explore walks the position graph breadth first from every start
func Explore(starts ...Position) (*Report, error) {
	report := &Report{Terminal: make(map[string]int)}
	seen := make(map[Position]bool)
	finished := make(map[string]bool)

	queue := make([]*engine.Game, 0, len(starts))
	for _, p := range starts {
		if err := gameAt(p).Validate(); err != nil {
			return nil, fmt.Errorf("start %s: %w", p, err)
		}
		if !seen[p] {
			seen[p] = true
			queue = append(queue, gameAt(p))
		}
	}

	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]
		report.Positions++

		moves := g.PossibleMoves()
		if len(moves) > report.MaxBranching {
			report.MaxBranching = len(moves)
			report.Widest = positionOf(g)
		}
		if len(moves) == 0 {
			report.Stuck = append(report.Stuck, positionOf(g))
			continue
		}

		for _, m := range moves {
			next, err := apply(g, m)
			if err != nil {
				return nil, fmt.Errorf("%s: %+v: %w", positionOf(g), m, err)
			}

			if next.IsFinished() {
				key := positionOf(next).String()
				if !finished[key] {
					finished[key] = true
					report.Terminal[next.State.Winner]++
				}
				continue
			}

			p := positionOf(next)
			if !seen[p] {
				seen[p] = true
				queue = append(queue, next)
			}
		}
	}

	sort.Slice(report.Stuck, func(i, j int) bool {
		return report.Stuck[i].String() < report.Stuck[j].String()
	})
	return report, nil
}

// Opening returns the starting position with the given player to move
func Opening(turn engine.Turn) Position {
	return Position{
		P1Left: engine.StartingCount, P1Right: engine.StartingCount,
		P2Left: engine.StartingCount, P2Right: engine.StartingCount,
		Turn: turn,
	}
}

// run explores from starts and writes the report to out
func run(out io.Writer, starts ...Position) error {
	report, err := Explore(starts...)
	if err != nil {
		return fmt.Errorf("exploring positions: %w", err)
	}

	fmt.Fprintf(out, "\n=== Chopsticks position analysis ===\n")
	fmt.Fprintf(out, "Reachable positions: %d\n", report.Positions)
	fmt.Fprintf(out, "Finished positions won by %s: %d\n", firstID, report.Terminal[firstID])
	fmt.Fprintf(out, "Finished positions won by %s: %d\n", secondID, report.Terminal[secondID])
	fmt.Fprintf(out, "Widest choice: %d moves at %s\n", report.MaxBranching, report.Widest)

	if len(report.Stuck) > 0 {
		fmt.Fprintf(out, "⚠️  WARNING: %d positions leave the player to move without a legal move\n", len(report.Stuck))
		for i, p := range report.Stuck {
			if i < 5 { // Show first 5 stuck positions
				fmt.Fprintf(out, "   Stuck: %s\n", p)
			}
		}
		if len(report.Stuck) > 5 {
			fmt.Fprintf(out, "   ... and %d more\n", len(report.Stuck)-5)
		}
	} else {
		fmt.Fprintf(out, "✅ Every reachable position has a legal move\n")
	}
	return nil
}

func main() {
	if err := run(os.Stdout, Opening(engine.Player1), Opening(engine.Player2)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
