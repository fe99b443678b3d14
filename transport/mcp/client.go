package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/chopsticks/game/engine"
	"github.com/wricardo/chopsticks/game/service"
)

// playerHeader must match the header the REST API reads identity from
const playerHeader = "X-Player-ID"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Chopsticks",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Chopsticks - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Make both of your opponent's hands dead (zero fingers) before they do it to you.

AVAILABLE TOOLS:
- create_game: Start a game and take the first seat
- join_game: Take the second seat of a waiting game
- attack: Tap an opponent hand with one of yours
- redistribute: Move fingers between your own hands
- game_state: Get the current game and the legal moves
- list_games: List games, optionally only those waiting for a player
- game_rules: Get the complete rules

Every tool that acts on a game needs your player_id. Hands are 0 (left) and 1 (right).`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	playerProp := map[string]interface{}{
		"type":        "string",
		"description": "Your player identity",
	}
	sessionProp := map[string]interface{}{
		"type":        "string",
		"description": "Game session ID",
	}
	handProp := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "integer",
			"enum":        []int{0, 1},
			"description": desc + " (0 = left, 1 = right)",
		}
	}

	// Game lifecycle
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_game",
		Description: "Create a new game; you take the first seat and wait for an opponent",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_id": playerProp,
			},
			Required: []string{"player_id"},
		},
	}, c.handleCreateGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_game",
		Description: "Join a game that is waiting for a second player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
				"player_id":  playerProp,
			},
			Required: []string{"session_id", "player_id"},
		},
	}, c.handleJoinGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List games on the server",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"waiting_for_player", "in_progress", "finished"},
					"description": "Only list games in this status (optional)",
				},
			},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state and the legal moves for the player to move",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	// Moves
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "attack",
		Description: "Add the fingers of one of your hands to one of your opponent's hands. A hand reaching 5 or more dies.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":  sessionProp,
				"player_id":   playerProp,
				"source_hand": handProp("Your attacking hand"),
				"target_hand": handProp("Opponent hand to hit"),
			},
			Required: []string{"session_id", "player_id", "source_hand", "target_hand"},
		},
	}, c.handleAttack)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "redistribute",
		Description: "Move fingers from one of your hands to the other. The receiving hand wraps past 5. Swapping your two counts is not allowed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":  sessionProp,
				"player_id":   playerProp,
				"source_hand": handProp("Hand to take fingers from"),
				"amount": map[string]interface{}{
					"type":        "integer",
					"minimum":     0,
					"description": "Number of fingers to move",
				},
			},
			Required: []string{"session_id", "player_id", "source_hand", "amount"},
		},
	}, c.handleRedistribute)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the complete rules of chopsticks as played on this server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall performs a REST request, sending player as the caller identity
// when it is not empty.
func (c *Client) apiCall(ctx context.Context, method, path, player string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if player != "" {
		req.Header.Set(playerHeader, player)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			if errResp.Code != "" {
				return fmt.Errorf("%s (%s)", errResp.Error, errResp.Code)
			}
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// gamePath builds the REST path for a session, optionally followed by an
// action. IDs that would leave the /api/games/{id} segment are refused.
func gamePath(sessionID, action string) (string, error) {
	if sessionID == "." || sessionID == ".." || strings.ContainsAny(sessionID, `/\`) {
		return "", fmt.Errorf("invalid session_id %q", sessionID)
	}
	path := "/api/games/" + url.PathEscape(sessionID)
	if action != "" {
		path += "/" + action
	}
	return path, nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a whole number argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}

func (c *Client) handleCreateGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	player, _ := args["player_id"].(string)
	if player == "" {
		return mcp.NewToolResultError("player_id is required"), nil
	}

	var info service.GameInfo
	if err := c.apiCall(ctx, "POST", "/api/games", player, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created game %s.\n\n%s", info.ID, formatGame(info.Game))), nil
}

func (c *Client) handleJoinGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	player, _ := args["player_id"].(string)
	if sessionID == "" || player == "" {
		return mcp.NewToolResultError("session_id and player_id are required"), nil
	}

	path, err := gamePath(sessionID, "join")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.JoinResult
	if err := c.apiCall(ctx, "POST", path, player, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString(result.Message)
	if result.Game != nil {
		b.WriteString("\n\n")
		b.WriteString(formatGame(result.Game.Game))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	status, _ := args["status"].(string)

	path := "/api/games"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var resp struct {
		Count int                 `json:"count"`
		Games []*service.GameInfo `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", path, "", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Games) == 0 {
		return mcp.NewToolResultText("No games found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d game(s):\n", resp.Count)
	for _, g := range resp.Games {
		fmt.Fprintf(&b, "• %s  %s  %s\n", g.ID, g.Game.State.Status, seats(g.Game))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	path, err := gamePath(sessionID, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.GameInfo
	if err := c.apiCall(ctx, "GET", path, "", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var moves struct {
		Moves []engine.Move `json:"moves"`
	}
	if err := c.apiCall(ctx, "GET", path+"/moves", "", nil, &moves); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGame(info.Game) + formatMoves(moves.Moves)), nil
}

func (c *Client) handleAttack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	player, _ := args["player_id"].(string)
	source, okSource := intArg(args, "source_hand")
	target, okTarget := intArg(args, "target_hand")
	if sessionID == "" || player == "" || !okSource || !okTarget {
		return mcp.NewToolResultError("session_id, player_id, source_hand and target_hand are required"), nil
	}

	body := map[string]interface{}{
		"source_hand": source,
		"target_hand": target,
	}

	path, err := gamePath(sessionID, "attack")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, player, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleRedistribute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	player, _ := args["player_id"].(string)
	source, okSource := intArg(args, "source_hand")
	amount, okAmount := intArg(args, "amount")
	if sessionID == "" || player == "" || !okSource || !okAmount {
		return mcp.NewToolResultError("session_id, player_id, source_hand and amount are required"), nil
	}

	body := map[string]interface{}{
		"source_hand": source,
		"amount":      amount,
	}

	path, err := gamePath(sessionID, "redistribute")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, player, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := `Chopsticks - Rules

SETUP:
• Two players, each with two hands. Every hand starts with 1 finger.
• The creator takes the first seat; the game starts when a second player joins.
• A coin flip at creation decides who moves first.

ON YOUR TURN, CHOOSE ONE:

1. ATTACK (source_hand, target_hand)
   • Add the fingers on your source hand to the opponent's target hand.
   • If the target reaches 5 or more it dies and drops to 0.
   • You cannot attack with a dead hand.
   • The turn passes to your opponent.

2. REDISTRIBUTE (source_hand, amount)
   • Move 'amount' fingers from your source hand to your other hand.
   • The receiving hand wraps past 5 (4 + 2 becomes 1).
   • You cannot move more fingers than the source hand holds.
   • A move that only swaps your two counts (e.g. 1/3 to 3/1) is forbidden.
   • Redistributing does NOT pass the turn; you keep moving.

WINNING:
• You win the moment both of your opponent's hands are dead.

ERRORS YOU MAY SEE:
• not_your_turn - it is the other player's move, or you are not seated
• not_in_progress - the game is still waiting or already finished
• dead_hand - the attacking hand has 0 fingers
• invalid_hand - hands are 0 (left) or 1 (right)
• insufficient_count - amount is larger than the source hand
• symmetric_move_forbidden - the redistribution would just swap your hands`

	return mcp.NewToolResultText(rules), nil
}

func seats(g *engine.Game) string {
	if g == nil {
		return ""
	}
	if g.Player2 == nil {
		return g.Player1.ID + " vs (open seat)"
	}
	return g.Player1.ID + " vs " + g.Player2.ID
}

func formatGame(g *engine.Game) string {
	if g == nil {
		return "No game data."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Game %s: %s\n", g.SessionID, g.State.Status)
	fmt.Fprintf(&b, "player1 %-12s L=%d R=%d\n", g.Player1.ID, g.Player1.Left, g.Player1.Right)
	if g.Player2 != nil {
		fmt.Fprintf(&b, "player2 %-12s L=%d R=%d\n", g.Player2.ID, g.Player2.Left, g.Player2.Right)
	} else {
		b.WriteString("player2 (waiting for opponent)\n")
	}

	switch g.State.Status {
	case engine.StatusFinished:
		fmt.Fprintf(&b, "Winner: %s\n", g.State.Winner)
	case engine.StatusInProgress:
		if p := g.ActivePlayer(); p != nil {
			fmt.Fprintf(&b, "To move: %s (%s)\n", p.ID, g.CurrentTurn)
		}
	default:
		fmt.Fprintf(&b, "Opening turn: %s\n", g.CurrentTurn)
	}
	return b.String()
}

func formatMoves(moves []engine.Move) string {
	if len(moves) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nLegal moves:\n")
	for _, m := range moves {
		switch m.Kind {
		case engine.MoveAttack:
			fmt.Fprintf(&b, "• attack source_hand=%d target_hand=%d\n", m.Source, m.Target)
		case engine.MoveRedistribute:
			fmt.Fprintf(&b, "• redistribute source_hand=%d amount=%d\n", m.Source, m.Amount)
		}
	}
	return b.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	b.WriteString(result.Message)
	b.WriteString("\n\n")
	if result.Game != nil {
		b.WriteString(formatGame(result.Game.Game))
	}
	if result.GameOver {
		fmt.Fprintf(&b, "\n🏆 GAME OVER - %s wins!\n", result.Winner)
	}
	return b.String()
}
