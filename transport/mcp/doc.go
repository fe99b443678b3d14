// Package mcp exposes chopsticks to AI agents over the Model Context Protocol.
//
// The package implements a thin client: every tool call is forwarded to the
// REST API of a running server, with the caller's player_id sent as the
// X-Player-ID header. No game state lives in this package.
//
// MCP Tools:
//   - create_game: Create a game and take the first seat
//   - join_game: Take the second seat of a waiting game
//   - attack: Tap an opponent hand
//   - redistribute: Move fingers between your own hands
//   - game_state: Current game plus the legal moves for the player to move
//   - list_games: List games, optionally filtered by status
//   - game_rules: The full rules text
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
