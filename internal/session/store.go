package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quizblitz/internal/domain"
	"quizblitz/internal/identity"
	"quizblitz/internal/realtime"
)

// API is the subset of the backend REST client the store drives.
type API interface {
	QuizzesByHost(ctx context.Context, hostID string) ([]domain.Quiz, error)
	CreateQuiz(ctx context.Context, title, description, hostID string) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID string) error
	AddQuestion(ctx context.Context, quizID string, question domain.QuestionDraft) (domain.Quiz, error)
	RemoveQuestion(ctx context.Context, quizID, questionID string) (domain.Quiz, error)
	ImportQuiz(ctx context.Context, filename string, r io.Reader) (domain.QuizDraft, error)

	CreateGame(ctx context.Context, quizID, hostID string) (*domain.Game, error)
	JoinGame(ctx context.Context, pin, nickname string, avatarID int, playerID string) (*domain.Game, domain.Player, error)
	LeaveGame(ctx context.Context, gameID, playerID string) error
	StartGame(ctx context.Context, gameID string) (*domain.Game, error)
	StartQuestion(ctx context.Context, gameID string) (*domain.Game, error)
	SubmitAnswer(ctx context.Context, gameID, playerID string, answerIndex int) error
	EndQuestion(ctx context.Context, gameID string) (*domain.Game, error)
	NextQuestion(ctx context.Context, gameID string) (*domain.Game, error)
	EndGame(ctx context.Context, gameID string) (*domain.Game, error)
	GameState(ctx context.Context, gameID string) (*domain.Game, error)
}

// Channel is the real-time side: room membership, notifications and pushes.
type Channel interface {
	JoinChannel(ctx context.Context, gameID, participantID string) error
	LeaveChannel(ctx context.Context, gameID, participantID string) error
	On(kind realtime.Kind, h realtime.Handler) *realtime.Subscription
	Emit(ctx context.Context, n realtime.Notification) error
}

// Snapshot is the observable state of the store. Snapshots are shared
// between readers and must be treated as read-only.
type Snapshot struct {
	Game     *domain.Game
	Player   *domain.Player
	IsHost   bool
	Quizzes  []domain.Quiz
	Loading  bool
	Err      string
	ClientID string
}

const (
	defaultRefreshTimeout = 10 * time.Second
	subscriberBuffer      = 8
)

// Store owns the local view of the host's quizzes and of the active game,
// keeps it in sync with the backend and announces transitions to peers.
type Store struct {
	api            API
	channel        Channel
	log            *zap.Logger
	clientID       string
	refreshTimeout time.Duration

	mu          sync.Mutex
	state       Snapshot
	inFlight    int
	events      []*realtime.Subscription
	dirty       map[string]bool
	subscribers map[chan Snapshot]struct{}
	closed      bool

	refreshes singleflight.Group
}

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithRefreshTimeout bounds each push-triggered state fetch.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Store) { s.refreshTimeout = d }
}

// New loads or creates the persistent client id and returns an empty store.
func New(ctx context.Context, api API, channel Channel, ids identity.Repository, opts ...Option) (*Store, error) {
	clientID, err := identity.Bootstrap(ctx, ids)
	if err != nil {
		return nil, err
	}
	s := &Store{
		api:            api,
		channel:        channel,
		log:            zap.NewNop(),
		clientID:       clientID,
		refreshTimeout: defaultRefreshTimeout,
		dirty:          make(map[string]bool),
		subscribers:    make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = Snapshot{Quizzes: []domain.Quiz{}, ClientID: clientID}
	s.log = s.log.With(zap.String("client", clientID))
	return s, nil
}

// ClientID is the persistent id used as host id and player id.
func (s *Store) ClientID() string {
	return s.clientID
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel that receives the current snapshot and every
// later change. Slow readers lose intermediate snapshots, never the latest.
// The caller must invoke the returned cancel function.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	s.mu.Lock()
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.state
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close unbinds event handlers and closes every subscriber channel. The
// transport clients are owned by the caller and stay open.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.unbindLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// ClearError drops the last error message.
func (s *Store) ClearError() {
	s.update(func(st *Snapshot) { st.Err = "" })
}

// ---- quizzes ----

// LoadQuizzes replaces the local quiz list with the host's quizzes.
func (s *Store) LoadQuizzes(ctx context.Context) error {
	return s.run("load quizzes", func() error {
		list, err := s.api.QuizzesByHost(ctx, s.clientID)
		if err != nil {
			return err
		}
		s.update(func(st *Snapshot) { st.Quizzes = list })
		return nil
	})
}

// CreateQuiz creates an empty quiz and puts it at the front of the list.
func (s *Store) CreateQuiz(ctx context.Context, title, description string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.run("create quiz", func() error {
		created, err := s.api.CreateQuiz(ctx, title, description, s.clientID)
		if err != nil {
			return err
		}
		quiz = created
		s.update(func(st *Snapshot) {
			st.Quizzes = append([]domain.Quiz{created}, st.Quizzes...)
		})
		return nil
	})
	return quiz, err
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	return s.run("update quiz", func() error {
		updated, err := s.api.UpdateQuiz(ctx, quiz)
		if err != nil {
			return err
		}
		s.replaceQuiz(updated)
		return nil
	})
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	return s.run("delete quiz", func() error {
		if err := s.api.DeleteQuiz(ctx, quizID); err != nil {
			return err
		}
		s.update(func(st *Snapshot) {
			kept := make([]domain.Quiz, 0, len(st.Quizzes))
			for _, q := range st.Quizzes {
				if q.ID != quizID {
					kept = append(kept, q)
				}
			}
			st.Quizzes = kept
		})
		return nil
	})
}

func (s *Store) AddQuestion(ctx context.Context, quizID string, draft domain.QuestionDraft) error {
	return s.run("add question", func() error {
		updated, err := s.api.AddQuestion(ctx, quizID, draft)
		if err != nil {
			return err
		}
		s.replaceQuiz(updated)
		return nil
	})
}

func (s *Store) RemoveQuestion(ctx context.Context, quizID, questionID string) error {
	return s.run("remove question", func() error {
		updated, err := s.api.RemoveQuestion(ctx, quizID, questionID)
		if err != nil {
			return err
		}
		s.replaceQuiz(updated)
		return nil
	})
}

// ImportQuiz uploads a text file and returns the parsed draft. The quiz list
// is not touched; use SaveDraft to persist the result.
func (s *Store) ImportQuiz(ctx context.Context, filename string, r io.Reader) (domain.QuizDraft, error) {
	var draft domain.QuizDraft
	err := s.run("import quiz", func() error {
		var err error
		draft, err = s.api.ImportQuiz(ctx, filename, r)
		return err
	})
	return draft, err
}

// SaveDraft creates a quiz and fills it with the draft's questions.
func (s *Store) SaveDraft(ctx context.Context, draft domain.QuizDraft) (domain.Quiz, error) {
	quiz, err := s.CreateQuiz(ctx, draft.Title, draft.Description)
	if err != nil || len(draft.Questions) == 0 {
		return quiz, err
	}
	quiz.Questions = make([]domain.Question, 0, len(draft.Questions))
	for _, q := range draft.Questions {
		quiz.Questions = append(quiz.Questions, domain.Question{
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
			TimeLimit:    q.TimeLimit,
			Code:         q.Code,
		})
	}
	var saved domain.Quiz
	err = s.run("save draft", func() error {
		updated, err := s.api.UpdateQuiz(ctx, quiz)
		if err != nil {
			return err
		}
		saved = updated
		s.replaceQuiz(updated)
		return nil
	})
	return saved, err
}

func (s *Store) replaceQuiz(updated domain.Quiz) {
	s.update(func(st *Snapshot) {
		next := make([]domain.Quiz, len(st.Quizzes))
		for i, q := range st.Quizzes {
			if q.ID == updated.ID {
				q = updated
			}
			next[i] = q
		}
		st.Quizzes = next
	})
}

// ---- game lifecycle ----

// CreateGame opens a game for quiz with this client as host and returns its pin.
func (s *Store) CreateGame(ctx context.Context, quiz domain.Quiz) (string, error) {
	var pin string
	err := s.run("create game", func() error {
		game, err := s.api.CreateGame(ctx, quiz.ID, s.clientID)
		if err != nil {
			return err
		}
		pin = game.Pin
		s.activate(game, nil, true)
		s.joinChannel(ctx, game.ID, s.clientID)
		return nil
	})
	return pin, err
}

// JoinGame joins the game behind pin as a player. Any failure, including a
// taken nickname or a game that already started, is reported as false and
// leaves the current game untouched.
func (s *Store) JoinGame(ctx context.Context, pin, nickname string, avatarID int) bool {
	err := s.run("join game", func() error {
		game, player, err := s.api.JoinGame(ctx, pin, nickname, avatarID, s.clientID)
		if err != nil {
			return err
		}
		s.activate(game, &player, false)
		s.joinChannel(ctx, game.ID, player.ID)
		return nil
	})
	return err == nil
}

// LeaveGame detaches from the active game. A player notifies the backend and
// the channel first; the local game, player and host flag are cleared in
// every case.
func (s *Store) LeaveGame(ctx context.Context) error {
	st := s.Snapshot()
	if st.Game == nil {
		s.deactivate()
		return nil
	}
	return s.run("leave game", func() error {
		defer s.deactivate()
		if st.Player == nil {
			return nil
		}
		if err := s.api.LeaveGame(ctx, st.Game.ID, st.Player.ID); err != nil {
			return err
		}
		if err := s.channel.LeaveChannel(ctx, st.Game.ID, st.Player.ID); err != nil {
			s.log.Warn("leave channel failed", zap.String("game", st.Game.ID), zap.Error(err))
		}
		return nil
	})
}

// StartGame moves the lobby to the countdown and tells the players.
func (s *Store) StartGame(ctx context.Context) error {
	return s.hostTransition(ctx, "start game", s.api.StartGame, func(g *domain.Game) []realtime.Notification {
		return []realtime.Notification{realtime.GameStart{GameID: g.ID}}
	})
}

// SetGameStatus is called by the UI when a local phase ends. Only a host
// moving to StatusQuestion reaches the backend; everything else is left to
// push-driven refreshes.
func (s *Store) SetGameStatus(ctx context.Context, status domain.Status) error {
	if status != domain.StatusQuestion {
		return nil
	}
	st := s.Snapshot()
	if st.Game == nil || !st.IsHost {
		return nil
	}
	return s.hostTransition(ctx, "start question", s.api.StartQuestion, func(g *domain.Game) []realtime.Notification {
		return []realtime.Notification{realtime.QuestionStart{GameID: g.ID, QuestionIndex: g.CurrentQuestionIndex}}
	})
}

// ShowLeaderboard closes the running question and reveals the scores.
func (s *Store) ShowLeaderboard(ctx context.Context) error {
	return s.hostTransition(ctx, "show leaderboard", s.api.EndQuestion, func(g *domain.Game) []realtime.Notification {
		return []realtime.Notification{
			realtime.QuestionEnd{GameID: g.ID},
			realtime.ShowLeaderboard{GameID: g.ID},
		}
	})
}

// NextQuestion advances to the next question, or finishes the game after the last.
func (s *Store) NextQuestion(ctx context.Context) error {
	return s.hostTransition(ctx, "next question", s.api.NextQuestion, func(g *domain.Game) []realtime.Notification {
		return []realtime.Notification{realtime.NextQuestion{GameID: g.ID}}
	})
}

func (s *Store) EndGame(ctx context.Context) error {
	return s.hostTransition(ctx, "end game", s.api.EndGame, func(g *domain.Game) []realtime.Notification {
		return []realtime.Notification{realtime.GameEnd{GameID: g.ID}}
	})
}

// SubmitAnswer sends the player's choice. The store neither waits for nor
// applies a new state and does not deduplicate; the server's next push
// brings the result.
func (s *Store) SubmitAnswer(ctx context.Context, answerIndex int) error {
	st := s.Snapshot()
	if st.Game == nil {
		return domain.ErrNoActiveGame
	}
	if st.Player == nil {
		return domain.ErrNotPlayer
	}
	return s.run("submit answer", func() error {
		if err := s.api.SubmitAnswer(ctx, st.Game.ID, st.Player.ID, answerIndex); err != nil {
			return err
		}
		s.emit(ctx, realtime.AnswerSubmitted{GameID: st.Game.ID, PlayerID: st.Player.ID})
		return nil
	})
}

type transitionFunc func(ctx context.Context, gameID string) (*domain.Game, error)

func (s *Store) hostTransition(ctx context.Context, op string, call transitionFunc, notify func(*domain.Game) []realtime.Notification) error {
	st := s.Snapshot()
	if st.Game == nil {
		return domain.ErrNoActiveGame
	}
	if !st.IsHost {
		return domain.ErrNotHost
	}
	return s.run(op, func() error {
		game, err := call(ctx, st.Game.ID)
		if err != nil {
			return err
		}
		s.adopt(game)
		for _, n := range notify(game) {
			s.emit(ctx, n)
		}
		return nil
	})
}

// ---- state plumbing ----

// run brackets one operation: loading on and error cleared before, error
// recorded and loading off after.
func (s *Store) run(op string, fn func() error) error {
	s.update(func(st *Snapshot) {
		s.inFlight++
		st.Loading = true
		st.Err = ""
	})

	err := fn()

	s.update(func(st *Snapshot) {
		s.inFlight--
		st.Loading = s.inFlight > 0
		if err != nil {
			st.Err = err.Error()
		}
	})
	if err != nil {
		s.log.Warn("operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

// update applies fn to a copy of the state and publishes the result.
func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	fn(&next)
	s.state = next
	s.publishLocked()
}

func (s *Store) publishLocked() {
	for ch := range s.subscribers {
		select {
		case ch <- s.state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s.state
		}
	}
}

func (s *Store) activate(game *domain.Game, player *domain.Player, host bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	next.Game = game
	next.Player = player
	next.IsHost = host
	s.state = next
	s.bindLocked(game.ID)
	s.publishLocked()
}

func (s *Store) deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unbindLocked()
	next := s.state
	next.Game = nil
	next.Player = nil
	next.IsHost = false
	s.state = next
	s.publishLocked()
}

// adopt installs game as the active game and refreshes the player's entry
// from its roster.
func (s *Store) adopt(game *domain.Game) {
	s.update(func(st *Snapshot) { adoptInto(st, game) })
}

func adoptInto(st *Snapshot, game *domain.Game) {
	st.Game = game
	if st.Player == nil {
		return
	}
	if p, ok := game.Player(st.Player.ID); ok {
		st.Player = &p
	}
}

func (s *Store) joinChannel(ctx context.Context, gameID, participantID string) {
	if err := s.channel.JoinChannel(ctx, gameID, participantID); err != nil {
		s.log.Warn("join channel failed", zap.String("game", gameID), zap.Error(err))
	}
}

func (s *Store) emit(ctx context.Context, n realtime.Notification) {
	if err := s.channel.Emit(ctx, n); err != nil {
		s.log.Warn("emit failed", zap.String("type", string(n.Type())), zap.Error(err))
	}
}

// ---- push-driven refresh ----

func (s *Store) bindLocked(gameID string) {
	s.unbindLocked()
	if s.closed {
		return
	}
	kinds := append(realtime.LifecycleKinds(), realtime.MembershipKinds()...)
	for _, kind := range kinds {
		s.events = append(s.events, s.channel.On(kind, func(realtime.Event) {
			go s.refresh(gameID)
		}))
	}
}

func (s *Store) unbindLocked() {
	for _, sub := range s.events {
		sub.Off()
	}
	s.events = nil
}

// refresh re-fetches the game after a push. Pushes that arrive while a fetch
// is running are folded into one more fetch rather than one per push.
func (s *Store) refresh(gameID string) {
	s.setDirty(gameID, true)
	for s.isDirty(gameID) {
		_, _, _ = s.refreshes.Do(gameID, func() (any, error) {
			s.setDirty(gameID, false)
			s.fetchState(gameID)
			return nil, nil
		})
	}
}

func (s *Store) fetchState(gameID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
	defer cancel()

	game, err := s.api.GameState(ctx, gameID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("refresh game state failed", zap.String("game", gameID), zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Game == nil || s.state.Game.ID != gameID {
		return
	}
	next := s.state
	adoptInto(&next, game)
	s.state = next
	s.publishLocked()
}

func (s *Store) setDirty(gameID string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.dirty[gameID] = true
	} else {
		delete(s.dirty, gameID)
	}
}

func (s *Store) isDirty(gameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty[gameID]
}
