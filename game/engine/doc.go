// Package engine implements the rules of Chopsticks.
//
// The engine package implements:
//   - The Game state machine (waiting for player, in progress, finished)
//   - Turn alternation and ownership checks
//   - Attack moves (clamp to zero at Threshold)
//   - Redistribute moves (wrap modulo Threshold, symmetric swaps forbidden)
//   - Invariant validation for games loaded from storage
//
// Core Types:
//
// Game holds two Players, the lifecycle GameState and the current Turn.
// Every hand count stays in [0, MaxCount] between moves; a count of zero is a
// dead hand that cannot attack. Coin is the randomness source that decides
// which player opens.
//
// Usage:
//
//	game, err := engine.NewGame(sessionID, "alice", engine.CryptoCoin{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game.Join("bob")
//
//	// Attack bob's left hand with alice's right hand
//	if err := game.Attack("alice", engine.Right, engine.Left); err != nil {
//		// errors.Is(err, engine.ErrNotYourTurn) ...
//	}
//
// Rules:
//
// Players alternate turns. An attack adds the attacker's hand onto one of
// the opponent's hands; a hand that reaches five or more dies. When both of a
// player's hands are dead their opponent wins. A redistribution moves points
// between a player's own hands, wrapping modulo five, and does not pass the
// turn. A rejected move never changes the game.
package engine
