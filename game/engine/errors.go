package engine

import "errors"

// Move rejections. A rejected move never changes the game.
var (
	ErrNotInProgress          = errors.New("game is not in progress")
	ErrNotYourTurn            = errors.New("not your turn")
	ErrDeadHand               = errors.New("cannot move with a dead hand")
	ErrInsufficientCount      = errors.New("transfer exceeds the count on the source hand")
	ErrSymmetricMoveForbidden = errors.New("symmetric redistribution is not allowed")
	ErrInvalidHand            = errors.New("invalid hand")
)

var (
	ErrEmptySessionID = errors.New("session id is required")
	ErrEmptyPlayerID  = errors.New("player id is required")
	ErrCorruptGame    = errors.New("corrupt game")
)
