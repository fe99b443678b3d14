// Package session owns the set of live chopsticks games.
//
// The session package implements:
//   - The Registry, the single entry point for creating and mutating games
//   - Session ID issuance with a bounded fetch and collision retry
//   - Per-session persistence to memory, files or Redis
//   - Optional Redis locking for several processes sharing one store
//
// Core Types:
//
// Registry maps session IDs to games. Every operation runs as one critical
// section: the game is copied, the move is applied to the copy, the copy is
// persisted, and only then is it published. A failed move or a failed save
// leaves the previous state untouched.
//
// Session is a game plus its creation and update times. Callers always
// receive copies.
//
// Usage:
//
//	registry := session.NewRegistry(
//		session.WithStore(session.NewMemoryStore(0)),
//		session.WithIDTimeout(5*time.Second),
//	)
//
//	sess, err := registry.Create(ctx, "alice")
//	if err != nil {
//		return err
//	}
//
//	sess, joined, err := registry.Join(ctx, sess.ID, "bob")
//
// Persistence:
//
// Stores save one record per session key; there is no whole-registry
// snapshot. Records larger than the configured size limit are rejected with
// ErrRecordTooLarge. Loaded records are validated and a record that breaks
// a game invariant is reported as engine.ErrCorruptGame.
package session
