package realtime

import (
	"encoding/json"
	"fmt"
)

// Message is the wire envelope for both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Kind names a server-pushed event.
type Kind string

// Server -> client. Most kinds are pure invalidation pulses.
const (
	KindGameStarted         Kind = "game-started"
	KindQuestionStarted     Kind = "question-started"
	KindQuestionEnded       Kind = "question-ended"
	KindLeaderboardShown    Kind = "leaderboard-shown"
	KindNextQuestionStarted Kind = "next-question-started"
	KindGameEnded           Kind = "game-ended"
	KindPlayerJoined        Kind = "player-joined"
	KindPlayerLeft          Kind = "player-left"
)

// LifecycleKinds are the events that signal a host-driven game transition.
func LifecycleKinds() []Kind {
	return []Kind{
		KindGameStarted,
		KindQuestionStarted,
		KindQuestionEnded,
		KindLeaderboardShown,
		KindNextQuestionStarted,
		KindGameEnded,
	}
}

// MembershipKinds are the events that signal a roster change.
func MembershipKinds() []Kind {
	return []Kind{KindPlayerJoined, KindPlayerLeft}
}

// Event is a decoded server push. The concrete type tells which kind it is.
type Event interface {
	Kind() Kind
}

type GameStarted struct {
	GameID string `json:"gameId,omitempty"`
}

type QuestionStarted struct {
	GameID        string `json:"gameId,omitempty"`
	QuestionIndex int    `json:"questionIndex"`
}

type QuestionEnded struct {
	GameID string `json:"gameId,omitempty"`
}

type LeaderboardShown struct {
	GameID string `json:"gameId,omitempty"`
}

type NextQuestionStarted struct {
	GameID string `json:"gameId,omitempty"`
}

type GameEnded struct {
	GameID string `json:"gameId,omitempty"`
}

type PlayerJoined struct {
	GameID   string `json:"gameId,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
}

type PlayerLeft struct {
	GameID   string `json:"gameId,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
}

func (GameStarted) Kind() Kind         { return KindGameStarted }
func (QuestionStarted) Kind() Kind     { return KindQuestionStarted }
func (QuestionEnded) Kind() Kind       { return KindQuestionEnded }
func (LeaderboardShown) Kind() Kind    { return KindLeaderboardShown }
func (NextQuestionStarted) Kind() Kind { return KindNextQuestionStarted }
func (GameEnded) Kind() Kind           { return KindGameEnded }
func (PlayerJoined) Kind() Kind        { return KindPlayerJoined }
func (PlayerLeft) Kind() Kind          { return KindPlayerLeft }

var eventDecoders = map[Kind]func(json.RawMessage) (Event, error){
	KindGameStarted:         decodeEvent[GameStarted],
	KindQuestionStarted:     decodeEvent[QuestionStarted],
	KindQuestionEnded:       decodeEvent[QuestionEnded],
	KindLeaderboardShown:    decodeEvent[LeaderboardShown],
	KindNextQuestionStarted: decodeEvent[NextQuestionStarted],
	KindGameEnded:           decodeEvent[GameEnded],
	KindPlayerJoined:        decodeEvent[PlayerJoined],
	KindPlayerLeft:          decodeEvent[PlayerLeft],
}

func decodeEvent[T Event](raw json.RawMessage) (Event, error) {
	var ev T
	if len(raw) == 0 || string(raw) == "null" {
		return ev, nil
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ErrUnknownType is returned when an envelope names no known event or notification.
type ErrUnknownType struct {
	Type string
}

func (e ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}

// DecodeEvent turns a server envelope into a typed event.
func DecodeEvent(msg Message) (Event, error) {
	decode, ok := eventDecoders[Kind(msg.Type)]
	if !ok {
		return nil, ErrUnknownType{Type: msg.Type}
	}
	return decode(msg.Payload)
}

// EncodeEvent wraps ev in an envelope.
func EncodeEvent(ev Event) (Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: string(ev.Kind()), Payload: payload}, nil
}

// NotificationType names a client -> server notification.
type NotificationType string

const (
	TypeJoinGame        NotificationType = "join-game"
	TypeLeaveGame       NotificationType = "leave-game"
	TypeGameStart       NotificationType = "game-start"
	TypeQuestionStart   NotificationType = "question-start"
	TypeQuestionEnd     NotificationType = "question-end"
	TypeShowLeaderboard NotificationType = "show-leaderboard"
	TypeNextQuestion    NotificationType = "next-question"
	TypeGameEnd         NotificationType = "game-end"
	TypeAnswerSubmitted NotificationType = "answer-submitted"
)

// Notification is something the client tells its peers, paired with the
// REST call that caused it.
type Notification interface {
	Type() NotificationType
}

type JoinGame struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

type LeaveGame struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

type GameStart struct {
	GameID string `json:"gameId"`
}

type QuestionStart struct {
	GameID        string `json:"gameId"`
	QuestionIndex int    `json:"questionIndex"`
}

type QuestionEnd struct {
	GameID string `json:"gameId"`
}

type ShowLeaderboard struct {
	GameID string `json:"gameId"`
}

type NextQuestion struct {
	GameID string `json:"gameId"`
}

type GameEnd struct {
	GameID string `json:"gameId"`
}

type AnswerSubmitted struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

func (JoinGame) Type() NotificationType        { return TypeJoinGame }
func (LeaveGame) Type() NotificationType       { return TypeLeaveGame }
func (GameStart) Type() NotificationType       { return TypeGameStart }
func (QuestionStart) Type() NotificationType   { return TypeQuestionStart }
func (QuestionEnd) Type() NotificationType     { return TypeQuestionEnd }
func (ShowLeaderboard) Type() NotificationType { return TypeShowLeaderboard }
func (NextQuestion) Type() NotificationType    { return TypeNextQuestion }
func (GameEnd) Type() NotificationType         { return TypeGameEnd }
func (AnswerSubmitted) Type() NotificationType { return TypeAnswerSubmitted }

var notificationDecoders = map[NotificationType]func(json.RawMessage) (Notification, error){
	TypeJoinGame:        decodeNotification[JoinGame],
	TypeLeaveGame:       decodeNotification[LeaveGame],
	TypeGameStart:       decodeNotification[GameStart],
	TypeQuestionStart:   decodeNotification[QuestionStart],
	TypeQuestionEnd:     decodeNotification[QuestionEnd],
	TypeShowLeaderboard: decodeNotification[ShowLeaderboard],
	TypeNextQuestion:    decodeNotification[NextQuestion],
	TypeGameEnd:         decodeNotification[GameEnd],
	TypeAnswerSubmitted: decodeNotification[AnswerSubmitted],
}

func decodeNotification[T Notification](raw json.RawMessage) (Notification, error) {
	var n T
	if len(raw) == 0 || string(raw) == "null" {
		return n, nil
	}
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	return n, nil
}

// DecodeNotification turns a client envelope into a typed notification.
func DecodeNotification(msg Message) (Notification, error) {
	decode, ok := notificationDecoders[NotificationType(msg.Type)]
	if !ok {
		return nil, ErrUnknownType{Type: msg.Type}
	}
	return decode(msg.Payload)
}

// EncodeNotification wraps n in an envelope.
func EncodeNotification(n Notification) (Message, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: string(n.Type()), Payload: payload}, nil
}
