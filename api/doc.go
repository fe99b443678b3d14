// Package api provides the HTTP REST handlers for the chopsticks server.
//
// Endpoints:
//
// Games:
//   - POST /api/games - Create a game; the caller takes the first seat
//   - GET /api/games - List games (?status=, ?limit=)
//   - GET /api/games/{id} - Get one game
//   - POST /api/games/{id}/join - Take the second seat
//
// Moves:
//   - GET /api/games/{id}/moves - Legal moves for the player to move
//   - POST /api/games/{id}/attack - {"source_hand": 0, "target_hand": 1}
//   - POST /api/games/{id}/redistribute - {"source_hand": 0, "amount": 1}
//
// Other:
//   - GET /ws?session={id} - WebSocket stream of state updates
//   - GET /healthz - Liveness
//   - GET /metrics - Prometheus metrics, when enabled
//
// Identity:
//
// Every mutating request must carry the X-Player-ID header. The value is an
// opaque principal; authenticating it is the job of whatever sits in front
// of the server.
//
// Errors:
//
// Failures are JSON {"error": "...", "code": "..."}. The code is stable:
//
//	session_not_found         404
//	missing_player_id         400
//	invalid_request           400
//	not_your_turn             403
//	not_in_progress           409
//	dead_hand                 422
//	invalid_hand              422
//	insufficient_count        422
//	symmetric_move_forbidden  422
//	id_generation_failed      503
//	record_too_large          507
//
// Hands are indexed 0 (left) and 1 (right).
package api
