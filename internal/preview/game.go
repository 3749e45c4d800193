package preview

import (
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"quizblitz/internal/domain"
)

const (
	basePoints      = 500
	maxSpeedBonus   = 500
	millisPerSecond = 1000
)

// Game is the preview backend's in-memory representation of a session.
// All mutation goes through its methods; callers only ever see copies.
type Game struct {
	mu    sync.RWMutex
	now   func() time.Time
	state domain.Game
}

func newGame(state domain.Game, now func() time.Time) *Game {
	return &Game{state: state, now: now}
}

// ID returns the game id.
func (g *Game) ID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.ID
}

// Pin returns the join pin.
func (g *Game) Pin() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Pin
}

// Status returns the current status.
func (g *Game) Status() domain.Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Status
}

// Snapshot returns a deep copy safe to hand out.
func (g *Game) Snapshot() *domain.Game {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() *domain.Game {
	out := g.state
	out.Players = make([]domain.Player, len(g.state.Players))
	for i, p := range g.state.Players {
		out.Players[i] = copyPlayer(p)
	}
	if g.state.QuestionStartTime != nil {
		ts := *g.state.QuestionStartTime
		out.QuestionStartTime = &ts
	}
	return &out
}

func copyPlayer(p domain.Player) domain.Player {
	if p.CurrentAnswer != nil {
		v := *p.CurrentAnswer
		p.CurrentAnswer = &v
	}
	if p.AnswerTime != nil {
		v := *p.AnswerTime
		p.AnswerTime = &v
	}
	return p
}

func (g *Game) join(playerID, nickname string, avatarID int) (*domain.Game, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > domain.MaxNicknameLength {
		return nil, domain.ErrInvalidNickname
	}
	if !domain.ValidAvatar(avatarID) {
		return nil, domain.ErrInvalidAvatar
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Status != domain.StatusLobby {
		return nil, domain.ErrWrongStatus
	}
	if g.state.HasNicknameExcept(nickname, playerID) {
		return nil, domain.ErrNicknameTaken
	}
	// A rejoin with the same client id replaces the old entry.
	g.removePlayerLocked(playerID)
	g.state.Players = append(g.state.Players, domain.Player{
		ID:       playerID,
		Nickname: nickname,
		AvatarID: avatarID,
	})
	return g.snapshotLocked(), nil
}

func (g *Game) leave(playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removePlayerLocked(playerID)
}

func (g *Game) removePlayerLocked(playerID string) {
	players := g.state.Players[:0]
	for _, p := range g.state.Players {
		if p.ID != playerID {
			players = append(players, p)
		}
	}
	g.state.Players = players
}

// transition moves the game to next if its current status is one of from.
func (g *Game) transition(next domain.Status, apply func(*domain.Game), from ...domain.Status) (*domain.Game, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(from) > 0 && !statusIn(g.state.Status, from) {
		return nil, domain.ErrWrongStatus
	}
	if apply != nil {
		apply(&g.state)
	}
	if next != "" {
		g.state.Status = next
	}
	return g.snapshotLocked(), nil
}

func statusIn(s domain.Status, set []domain.Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func (g *Game) start() (*domain.Game, error) {
	return g.transition(domain.StatusCountdown, nil, domain.StatusLobby)
}

func (g *Game) startQuestion() (*domain.Game, error) {
	return g.transition(domain.StatusQuestion, func(state *domain.Game) {
		ts := g.now().UnixMilli()
		state.QuestionStartTime = &ts
		resetAnswers(state)
	}, domain.StatusCountdown)
}

// answer records the first answer of a player for the running question.
// Later answers are ignored without error.
func (g *Game) answer(playerID string, index int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Status != domain.StatusQuestion {
		return domain.ErrWrongStatus
	}
	for i := range g.state.Players {
		p := &g.state.Players[i]
		if p.ID != playerID {
			continue
		}
		if p.CurrentAnswer != nil {
			return nil
		}
		elapsed := 0.0
		if g.state.QuestionStartTime != nil {
			elapsed = float64(g.now().UnixMilli()-*g.state.QuestionStartTime) / millisPerSecond
		}
		answer := index
		p.CurrentAnswer = &answer
		p.AnswerTime = &elapsed
		return nil
	}
	return domain.ErrNotFound
}

func (g *Game) endQuestion() (*domain.Game, error) {
	return g.transition(domain.StatusLeaderboard, scoreCurrentQuestion, domain.StatusQuestion)
}

// next advances to the following question, or finishes the game when the
// current question was the last one. The index never moves past the end.
func (g *Game) next() (*domain.Game, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !statusIn(g.state.Status, []domain.Status{domain.StatusQuestion, domain.StatusLeaderboard}) {
		return nil, domain.ErrWrongStatus
	}
	total := 0
	if g.state.Quiz != nil {
		total = len(g.state.Quiz.Questions)
	}
	if g.state.CurrentQuestionIndex+1 >= total {
		g.state.Status = domain.StatusFinished
		return g.snapshotLocked(), nil
	}
	g.state.CurrentQuestionIndex++
	g.state.Status = domain.StatusCountdown
	resetAnswers(&g.state)
	return g.snapshotLocked(), nil
}

func (g *Game) end() (*domain.Game, error) {
	return g.transition(domain.StatusFinished, nil)
}

func resetAnswers(state *domain.Game) {
	for i := range state.Players {
		state.Players[i].CurrentAnswer = nil
		state.Players[i].AnswerTime = nil
	}
}

// scoreCurrentQuestion awards base points plus a speed bonus proportional to
// the time left for every correct answer.
func scoreCurrentQuestion(state *domain.Game) {
	q, ok := state.CurrentQuestion()
	if !ok {
		return
	}
	limit := float64(q.TimeLimit)
	if limit <= 0 {
		limit = domain.DefaultTimeLimit
	}
	for i := range state.Players {
		p := &state.Players[i]
		if p.CurrentAnswer == nil || *p.CurrentAnswer != q.CorrectIndex {
			continue
		}
		answerTime := limit
		if p.AnswerTime != nil {
			answerTime = *p.AnswerTime
		}
		timeLeft := math.Max(0, limit-answerTime)
		bonus := int(math.Round(timeLeft / limit * maxSpeedBonus))
		p.Score += basePoints + bonus
	}
}
