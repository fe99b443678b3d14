// Package service provides the business logic layer for the chopsticks server.
//
// The service package implements:
//   - Game creation, joining and the two move kinds
//   - Read access to single games, the game list and the legal moves
//   - Event publication after every committed change
//   - Prometheus metrics on a dedicated registry
//
// Core Interfaces:
//
// GameService is the main service interface used by every transport.
// SessionRegistry is the storage it drives; *session.Registry implements it.
// EventPublisher receives GameEvents after commit; publishing failures are
// logged and never undo a move.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the session registry. It adds no game rules of its own: every rejection
// comes from the engine and is returned wrapped, so callers match it with
// errors.Is.
//
// Usage:
//
//	registry := session.NewRegistry()
//	gameService := service.NewGameService(registry,
//		service.WithLogger(logger),
//		service.WithPublisher(publisher),
//	)
//
//	info, err := gameService.CreateGame(ctx, "alice")
//	if err != nil {
//		return err
//	}
//
//	result, err := gameService.Attack(ctx, info.ID, "alice", engine.Left, engine.Right)
package service
