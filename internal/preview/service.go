package preview

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizblitz/internal/domain"
)

// QuizRepository stores authored quizzes.
type QuizRepository interface {
	Create(ctx context.Context, quiz domain.Quiz) error
	Get(ctx context.Context, quizID string) (domain.Quiz, error)
	ListByHost(ctx context.Context, hostID string) ([]domain.Quiz, error)
	Update(ctx context.Context, quiz domain.Quiz) error
	Delete(ctx context.Context, quizID string) error
}

// GameRepository holds live games.
type GameRepository interface {
	Put(game *Game)
	Get(gameID string) (*Game, bool)
}

// PinRegistry hands out join pins and resolves them to game ids.
type PinRegistry interface {
	Reserve(ctx context.Context, pin, gameID string) (bool, error)
	Lookup(ctx context.Context, pin string) (string, bool, error)
	Release(ctx context.Context, pin string) error
}

const (
	pinMin         = 100000
	pinSpan        = 900000
	maxPinAttempts = 20
)

// Service implements the backend contract the client consumes, entirely in
// memory. It exists for demos and tests and mirrors a simple reference
// backend rather than any production rules.
type Service struct {
	quizzes QuizRepository
	games   GameRepository
	pins    PinRegistry
	now     func() time.Time
	newID   func() string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewService(quizzes QuizRepository, games GameRepository, pins PinRegistry) *Service {
	return NewServiceWithClock(quizzes, games, pins, time.Now)
}

// NewServiceWithClock is for deterministic timestamps in tests.
func NewServiceWithClock(quizzes QuizRepository, games GameRepository, pins PinRegistry, now func() time.Time) *Service {
	return &Service{
		quizzes: quizzes,
		games:   games,
		pins:    pins,
		now:     now,
		newID:   uuid.NewString,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ---- quizzes ----

func (s *Service) CreateQuiz(ctx context.Context, hostID, title, description string, questions []domain.Question) (domain.Quiz, error) {
	quiz := domain.Quiz{
		ID:          s.newID(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
		HostID:      hostID,
	}
	normalized, err := s.normalizeQuestions(questions)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = normalized
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *Service) ListQuizzes(ctx context.Context, hostID string) ([]domain.Quiz, error) {
	return s.quizzes.ListByHost(ctx, hostID)
}

func (s *Service) Quiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.Get(ctx, quizID)
}

// UpdateQuiz replaces title, description and questions. Identity, owner and
// creation time stay as stored.
func (s *Service) UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	stored, err := s.quizzes.Get(ctx, quiz.ID)
	if err != nil {
		return domain.Quiz{}, err
	}
	questions, err := s.normalizeQuestions(quiz.Questions)
	if err != nil {
		return domain.Quiz{}, err
	}
	stored.Title = strings.TrimSpace(quiz.Title)
	stored.Description = strings.TrimSpace(quiz.Description)
	stored.Questions = questions
	if err := s.quizzes.Update(ctx, stored); err != nil {
		return domain.Quiz{}, err
	}
	return stored, nil
}

func (s *Service) DeleteQuiz(ctx context.Context, quizID string) error {
	return s.quizzes.Delete(ctx, quizID)
}

func (s *Service) AddQuestion(ctx context.Context, quizID string, draft domain.QuestionDraft) (domain.Quiz, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	q, err := s.normalizeQuestion(domain.Question{
		Text:         draft.Text,
		Options:      draft.Options,
		CorrectIndex: draft.CorrectIndex,
		TimeLimit:    draft.TimeLimit,
		Code:         draft.Code,
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = append(append([]domain.Question(nil), quiz.Questions...), q)
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *Service) RemoveQuestion(ctx context.Context, quizID, questionID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	kept := make([]domain.Question, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	quiz.Questions = kept
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *Service) normalizeQuestions(in []domain.Question) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(in))
	for _, q := range in {
		nq, err := s.normalizeQuestion(q)
		if err != nil {
			return nil, err
		}
		out = append(out, nq)
	}
	return out, nil
}

func (s *Service) normalizeQuestion(q domain.Question) (domain.Question, error) {
	if strings.TrimSpace(q.Text) == "" {
		return domain.Question{}, fmt.Errorf("%w: empty text", domain.ErrInvalidQuestion)
	}
	if len(q.Options) != domain.OptionCount {
		return domain.Question{}, fmt.Errorf("%w: need %d options, got %d", domain.ErrInvalidQuestion, domain.OptionCount, len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= domain.OptionCount {
		return domain.Question{}, fmt.Errorf("%w: correct index %d out of range", domain.ErrInvalidQuestion, q.CorrectIndex)
	}
	if q.TimeLimit <= 0 {
		q.TimeLimit = domain.DefaultTimeLimit
	}
	if q.ID == "" {
		q.ID = s.newID()
	}
	q.Options = append([]string(nil), q.Options...)
	return q, nil
}

// ---- games ----

func (s *Service) CreateGame(ctx context.Context, quizID, hostID string) (*domain.Game, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	gameID := s.newID()
	pin, err := s.reservePin(ctx, gameID)
	if err != nil {
		return nil, err
	}

	quizCopy := quiz
	quizCopy.Questions = append([]domain.Question(nil), quiz.Questions...)
	game := newGame(domain.Game{
		ID:      gameID,
		Pin:     pin,
		QuizID:  quiz.ID,
		Quiz:    &quizCopy,
		Status:  domain.StatusLobby,
		Players: []domain.Player{},
		HostID:  hostID,
	}, s.now)
	s.games.Put(game)
	return game.Snapshot(), nil
}

func (s *Service) reservePin(ctx context.Context, gameID string) (string, error) {
	for attempt := 0; attempt < maxPinAttempts; attempt++ {
		s.rndMu.Lock()
		pin := strconv.Itoa(pinMin + s.rnd.Intn(pinSpan))
		s.rndMu.Unlock()

		ok, err := s.pins.Reserve(ctx, pin, gameID)
		if err != nil {
			return "", fmt.Errorf("reserve pin: %w", err)
		}
		if ok {
			return pin, nil
		}
	}
	return "", fmt.Errorf("reserve pin: no free pin after %d attempts", maxPinAttempts)
}

// GameByPin resolves a pin to a game that has not finished.
func (s *Service) GameByPin(ctx context.Context, pin string) (*domain.Game, error) {
	game, err := s.gameByPin(ctx, pin)
	if err != nil {
		return nil, err
	}
	return game.Snapshot(), nil
}

func (s *Service) gameByPin(ctx context.Context, pin string) (*Game, error) {
	gameID, ok, err := s.pins.Lookup(ctx, pin)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidPin
	}
	game, ok := s.games.Get(gameID)
	if !ok || game.Status() == domain.StatusFinished {
		return nil, domain.ErrInvalidPin
	}
	return game, nil
}

func (s *Service) game(gameID string) (*Game, error) {
	game, ok := s.games.Get(gameID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return game, nil
}

func (s *Service) Game(_ context.Context, gameID string) (*domain.Game, error) {
	game, err := s.game(gameID)
	if err != nil {
		return nil, err
	}
	return game.Snapshot(), nil
}

// JoinGame adds a player to the lobby of the game located by pin.
func (s *Service) JoinGame(ctx context.Context, pin, nickname string, avatarID int, playerID string) (*domain.Game, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, fmt.Errorf("%w: missing player id", domain.ErrNotPlayer)
	}
	game, err := s.gameByPin(ctx, pin)
	if err != nil {
		return nil, err
	}
	return game.join(playerID, nickname, avatarID)
}

func (s *Service) LeaveGame(_ context.Context, gameID, playerID string) error {
	game, err := s.game(gameID)
	if err != nil {
		return err
	}
	game.leave(playerID)
	return nil
}

func (s *Service) StartGame(_ context.Context, gameID string) (*domain.Game, error) {
	game, err := s.game(gameID)
	if err != nil {
		return nil, err
	}
	return game.start()
}

func (s *Service) StartQuestion(_ context.Context, gameID string) (*domain.Game, error) {
	game, err := s.game(gameID)
	if err != nil {
		return nil, err
	}
	return game.startQuestion()
}

func (s *Service) SubmitAnswer(_ context.Context, gameID, playerID string, answerIndex int) error {
	game, err := s.game(gameID)
	if err != nil {
		return err
	}
	return game.answer(playerID, answerIndex)
}

func (s *Service) EndQuestion(_ context.Context, gameID string) (*domain.Game, error) {
	game, err := s.game(gameID)
	if err != nil {
		return nil, err
	}
	return game.endQuestion()
}

func (s *Service) NextQuestion(ctx context.Context, gameID string) (*domain.Game, error) {
	game, err := s.game(gameID)
	if err != nil {
		return nil, err
	}
	snap, err := game.next()
	if err != nil {
		return nil, err
	}
	if snap.Status == domain.StatusFinished {
		s.releasePin(ctx, snap.Pin)
	}
	return snap, nil
}

func (s *Service) EndGame(ctx context.Context, gameID string) (*domain.Game, error) {
	game, err := s.game(gameID)
	if err != nil {
		return nil, err
	}
	snap, err := game.end()
	if err != nil {
		return nil, err
	}
	s.releasePin(ctx, snap.Pin)
	return snap, nil
}

func (s *Service) releasePin(ctx context.Context, pin string) {
	// The finished game stays readable by id; only the pin goes back to the pool.
	_ = s.pins.Release(ctx, pin)
}
