package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"quizblitz/internal/domain"
)

// Backends differ in how they spell identities (`id`, `_id`, `playerId`)
// and in whether a game embeds its quiz under `quiz` or a populated
// `quizId`. The wire types below accept every variant and collapse them
// into the domain model.

type wireQuestion struct {
	ID           string   `json:"id"`
	MongoID      string   `json:"_id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correctIndex"`
	TimeLimit    *int     `json:"timeLimit"`
	Code         string   `json:"code"`
}

type wireQuiz struct {
	ID          string         `json:"id"`
	MongoID     string         `json:"_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Questions   []wireQuestion `json:"questions"`
	CreatedAt   time.Time      `json:"createdAt"`
	HostID      string         `json:"hostId"`
}

type wirePlayer struct {
	ID            string   `json:"id"`
	MongoID       string   `json:"_id"`
	PlayerID      string   `json:"playerId"`
	Nickname      string   `json:"nickname"`
	AvatarID      int      `json:"avatarId"`
	Score         int      `json:"score"`
	CurrentAnswer *int     `json:"currentAnswer"`
	AnswerTime    *float64 `json:"answerTime"`
}

type wireGame struct {
	ID                   string          `json:"id"`
	MongoID              string          `json:"_id"`
	Pin                  string          `json:"pin"`
	QuizID               json.RawMessage `json:"quizId"`
	Quiz                 *wireQuiz       `json:"quiz"`
	Status               domain.Status   `json:"status"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex"`
	Players              []wirePlayer    `json:"players"`
	QuestionStartTime    json.RawMessage `json:"questionStartTime"`
	HostID               string          `json:"hostId"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (w wireQuestion) question() domain.Question {
	q := domain.Question{
		ID:        firstNonEmpty(w.ID, w.MongoID),
		Text:      w.Text,
		Options:   w.Options,
		TimeLimit: domain.DefaultTimeLimit,
		Code:      w.Code,
	}
	if q.Options == nil {
		q.Options = []string{}
	}
	if w.CorrectIndex != nil {
		q.CorrectIndex = *w.CorrectIndex
	}
	if w.TimeLimit != nil {
		q.TimeLimit = *w.TimeLimit
	}
	return q
}

func (w wireQuiz) quiz() domain.Quiz {
	questions := make([]domain.Question, 0, len(w.Questions))
	for _, q := range w.Questions {
		questions = append(questions, q.question())
	}
	return domain.Quiz{
		ID:          firstNonEmpty(w.ID, w.MongoID),
		Title:       w.Title,
		Description: w.Description,
		Questions:   questions,
		CreatedAt:   w.CreatedAt,
		HostID:      w.HostID,
	}
}

func (w wirePlayer) player() domain.Player {
	return domain.Player{
		ID:            firstNonEmpty(w.ID, w.MongoID, w.PlayerID),
		Nickname:      w.Nickname,
		AvatarID:      w.AvatarID,
		Score:         w.Score,
		CurrentAnswer: w.CurrentAnswer,
		AnswerTime:    w.AnswerTime,
	}
}

// game converts the wire form. A status outside the known set is rejected
// rather than passed on to screens that cannot render it.
func (w wireGame) game() (*domain.Game, error) {
	if !w.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, w.Status)
	}
	g := &domain.Game{
		ID:                   firstNonEmpty(w.ID, w.MongoID),
		Pin:                  w.Pin,
		Status:               w.Status,
		CurrentQuestionIndex: w.CurrentQuestionIndex,
		Players:              make([]domain.Player, 0, len(w.Players)),
		QuestionStartTime:    parseMillis(w.QuestionStartTime),
		HostID:               w.HostID,
	}

	quizRaw := w.Quiz
	var quizID string
	if len(w.QuizID) > 0 {
		trimmed := bytes.TrimSpace(w.QuizID)
		switch {
		case len(trimmed) > 0 && trimmed[0] == '{':
			var populated wireQuiz
			if err := json.Unmarshal(trimmed, &populated); err == nil && quizRaw == nil {
				quizRaw = &populated
			}
		default:
			_ = json.Unmarshal(trimmed, &quizID)
		}
	}
	if quizRaw != nil {
		quiz := quizRaw.quiz()
		g.Quiz = &quiz
		g.QuizID = quiz.ID
	} else {
		g.QuizID = quizID
	}

	for _, p := range w.Players {
		g.Players = append(g.Players, p.player())
	}
	return g, nil
}

// parseMillis accepts unix milliseconds or an RFC 3339 timestamp.
func parseMillis(raw json.RawMessage) *int64 {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ms := ts.UnixMilli()
			return &ms
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &ms
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil
	}
	ms := int64(f)
	return &ms
}

type wireDraft struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Questions   []wireQuestion `json:"questions"`
}

func (w wireDraft) draft() domain.QuizDraft {
	d := domain.QuizDraft{
		Title:       w.Title,
		Description: w.Description,
		Questions:   make([]domain.QuestionDraft, 0, len(w.Questions)),
	}
	for _, q := range w.Questions {
		nq := q.question()
		if len(nq.Options) == 0 {
			nq.Options = make([]string, domain.OptionCount)
		}
		d.Questions = append(d.Questions, nq.Draft())
	}
	return d
}
