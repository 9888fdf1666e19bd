package game

import "errors"

// Expected, recoverable outcomes. They are surfaced to the caller as a reply
// or callback alert and never abort the room's session.
var (
	ErrPermissionDenied = errors.New("you are not allowed to do that")
	ErrInvalidState     = errors.New("that action is not valid right now")
	ErrGameRunning      = errors.New("a game is already running in this room")
	ErrAlreadyJoined    = errors.New("you already joined this game")
	ErrLobbyFull        = errors.New("the lobby is full")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrAlreadyVoted     = errors.New("you already cast your vote")
	ErrInvalidTarget    = errors.New("that player cannot be targeted")
	ErrNotCursed        = errors.New("that player is not cursed")
	ErrNotFound         = errors.New("no game session in this room")
)
