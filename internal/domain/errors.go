package domain

import "errors"

var (
	// ErrNotFound is returned when the backend has no such quiz or game.
	ErrNotFound = errors.New("not found")
	// ErrJoinRejected is returned when the backend refuses a join (bad pin,
	// nickname taken, game already started). The cause is not exposed.
	ErrJoinRejected = errors.New("join rejected")
	// ErrNoActiveGame is returned by game operations when no session is active.
	ErrNoActiveGame = errors.New("no active game")
	// ErrNotHost is returned when a host-only operation is attempted by a player.
	ErrNotHost = errors.New("only the host can do that")
	// ErrNotPlayer is returned when a player-only operation is attempted without a player identity.
	ErrNotPlayer = errors.New("no player identity")

	// ErrInvalidPin indicates a pin that does not match any joinable game.
	ErrInvalidPin = errors.New("invalid pin")
	// ErrNicknameTaken indicates a case-insensitive nickname clash inside a game.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrInvalidNickname indicates an empty or over-long nickname.
	ErrInvalidNickname = errors.New("invalid nickname")
	// ErrInvalidAvatar indicates an avatar id outside the avatar set.
	ErrInvalidAvatar = errors.New("invalid avatar")
	// ErrWrongStatus indicates a transition requested from the wrong status.
	ErrWrongStatus = errors.New("game is not in the right status")
	// ErrInvalidQuestion indicates a question that breaks the option/time rules.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrEmptyImport indicates an import file with no questions in it.
	ErrEmptyImport = errors.New("no questions found in the imported file")
)
