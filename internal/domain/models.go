package domain

import (
	"strings"
	"time"
)

// Status is the lifecycle stage of a game session as reported by the backend.
type Status string

const (
	StatusLobby       Status = "lobby"
	StatusCountdown   Status = "countdown"
	StatusQuestion    Status = "question"
	StatusLeaderboard Status = "leaderboard"
	StatusFinished    Status = "finished"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusLobby, StatusCountdown, StatusQuestion, StatusLeaderboard, StatusFinished:
		return true
	}
	return false
}

const (
	// OptionCount is the number of answer options every question carries.
	OptionCount = 4
	// MaxNicknameLength bounds player nicknames (in runes).
	MaxNicknameLength = 15
	// PinLength is the number of digits in a join pin.
	PinLength = 6
	// DefaultTimeLimit is the per-question time limit used when none is given.
	DefaultTimeLimit = 15
)

// Question is a multiple-choice question. Text may span several lines.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	TimeLimit    int      `json:"timeLimit"` // seconds
	Code         string   `json:"code,omitempty"`
}

// QuestionDraft is a question the server has not assigned an id to yet.
type QuestionDraft struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	TimeLimit    int      `json:"timeLimit"`
	Code         string   `json:"code,omitempty"`
}

// IsMultiline reports whether the question text should be shown as a code block.
func (q Question) IsMultiline() bool {
	return strings.Contains(q.Text, "\n")
}

// Draft strips the identity from q.
func (q Question) Draft() QuestionDraft {
	return QuestionDraft{
		Text:         q.Text,
		Options:      append([]string(nil), q.Options...),
		CorrectIndex: q.CorrectIndex,
		TimeLimit:    q.TimeLimit,
		Code:         q.Code,
	}
}

// Quiz is an ordered collection of questions owned by a host.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
	HostID      string     `json:"hostId,omitempty"`
}

// QuizDraft is the result of a text import: a quiz that has not been saved.
type QuizDraft struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   []QuestionDraft `json:"questions"`
}

// Player is a participant of a game session.
type Player struct {
	ID            string   `json:"id"`
	Nickname      string   `json:"nickname"`
	AvatarID      int      `json:"avatarId"`
	Score         int      `json:"score"`
	CurrentAnswer *int     `json:"currentAnswer"`
	AnswerTime    *float64 `json:"answerTime"` // seconds since question start
}

// HasAnswered reports whether the player answered the current question.
func (p Player) HasAnswered() bool {
	return p.CurrentAnswer != nil
}

// Game is one played-through instance of a quiz.
type Game struct {
	ID                   string   `json:"id"`
	Pin                  string   `json:"pin"`
	QuizID               string   `json:"quizId"`
	Quiz                 *Quiz    `json:"quiz,omitempty"`
	Status               Status   `json:"status"`
	CurrentQuestionIndex int      `json:"currentQuestionIndex"`
	Players              []Player `json:"players"`
	QuestionStartTime    *int64   `json:"questionStartTime"` // unix milliseconds
	HostID               string   `json:"hostId"`
}

// CurrentQuestion returns the question at the current index, if any.
func (g *Game) CurrentQuestion() (Question, bool) {
	if g == nil || g.Quiz == nil {
		return Question{}, false
	}
	if g.CurrentQuestionIndex < 0 || g.CurrentQuestionIndex >= len(g.Quiz.Questions) {
		return Question{}, false
	}
	return g.Quiz.Questions[g.CurrentQuestionIndex], true
}

// IsLastQuestion reports whether the current question is the final one.
func (g *Game) IsLastQuestion() bool {
	if g == nil || g.Quiz == nil || len(g.Quiz.Questions) == 0 {
		return false
	}
	return g.CurrentQuestionIndex >= len(g.Quiz.Questions)-1
}

// Player looks up a player by id.
func (g *Game) Player(id string) (Player, bool) {
	if g == nil {
		return Player{}, false
	}
	for _, p := range g.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// HasNickname reports whether a nickname is taken, ignoring case.
func (g *Game) HasNickname(nickname string) bool {
	return g.HasNicknameExcept(nickname, "")
}

// HasNicknameExcept is HasNickname with playerID's own entry left out, so a
// player rejoining under the same name does not clash with itself.
func (g *Game) HasNicknameExcept(nickname, playerID string) bool {
	if g == nil {
		return false
	}
	for _, p := range g.Players {
		if p.ID != playerID && strings.EqualFold(p.Nickname, nickname) {
			return true
		}
	}
	return false
}
