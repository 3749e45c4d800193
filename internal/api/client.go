package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"quizblitz/internal/domain"
)

// ErrUnknownStatus is returned when a game arrives with a status the client
// does not know.
var ErrUnknownStatus = errors.New("unknown game status")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Op      string
	Code    int
	Status  string
	Message string // backend-provided error text, if any
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s failed: %s", e.Op, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Client talks to the quiz backend REST API. One method per backend operation.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ---- quizzes ----

func (c *Client) CreateQuiz(ctx context.Context, title, description, hostID string) (domain.Quiz, error) {
	body := map[string]any{
		"title":       title,
		"description": description,
		"hostId":      hostID,
		"questions":   []domain.Question{},
	}
	var raw wireQuiz
	if err := c.do(ctx, "createQuiz", http.MethodPost, "/quizzes", body, &raw); err != nil {
		return domain.Quiz{}, err
	}
	return raw.quiz(), nil
}

func (c *Client) QuizzesByHost(ctx context.Context, hostID string) ([]domain.Quiz, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "getQuizzesByHost", http.MethodGet, "/quizzes/host/"+url.PathEscape(hostID), nil, &raw); err != nil {
		return nil, err
	}
	var list []wireQuiz
	if err := json.Unmarshal(raw, &list); err != nil {
		// Anything but an array is treated as "no quizzes".
		return []domain.Quiz{}, nil
	}
	quizzes := make([]domain.Quiz, 0, len(list))
	for _, q := range list {
		quizzes = append(quizzes, q.quiz())
	}
	return quizzes, nil
}

func (c *Client) Quiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw wireQuiz
	if err := c.lookup(ctx, "getQuiz", "/quizzes/"+url.PathEscape(quizID), &raw); err != nil {
		return domain.Quiz{}, err
	}
	return raw.quiz(), nil
}

func (c *Client) UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	var raw wireQuiz
	if err := c.do(ctx, "updateQuiz", http.MethodPut, "/quizzes/"+url.PathEscape(quiz.ID), quiz, &raw); err != nil {
		return domain.Quiz{}, err
	}
	return raw.quiz(), nil
}

func (c *Client) DeleteQuiz(ctx context.Context, quizID string) error {
	return c.do(ctx, "deleteQuiz", http.MethodDelete, "/quizzes/"+url.PathEscape(quizID), nil, nil)
}

func (c *Client) AddQuestion(ctx context.Context, quizID string, question domain.QuestionDraft) (domain.Quiz, error) {
	var raw wireQuiz
	path := "/quizzes/" + url.PathEscape(quizID) + "/questions"
	if err := c.do(ctx, "addQuestionToQuiz", http.MethodPost, path, question, &raw); err != nil {
		return domain.Quiz{}, err
	}
	return raw.quiz(), nil
}

func (c *Client) RemoveQuestion(ctx context.Context, quizID, questionID string) (domain.Quiz, error) {
	var raw wireQuiz
	path := "/quizzes/" + url.PathEscape(quizID) + "/questions/" + url.PathEscape(questionID)
	if err := c.do(ctx, "removeQuestionFromQuiz", http.MethodDelete, path, nil, &raw); err != nil {
		return domain.Quiz{}, err
	}
	return raw.quiz(), nil
}

// ImportQuiz uploads a text file and returns the draft the backend parsed from it.
func (c *Client) ImportQuiz(ctx context.Context, filename string, r io.Reader) (domain.QuizDraft, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return domain.QuizDraft{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return domain.QuizDraft{}, fmt.Errorf("read import file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return domain.QuizDraft{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quizzes/import-pdf", &buf)
	if err != nil {
		return domain.QuizDraft{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var raw wireDraft
	if err := c.send(req, "importQuiz", &raw); err != nil {
		return domain.QuizDraft{}, err
	}
	draft := raw.draft()
	if len(draft.Questions) == 0 {
		return domain.QuizDraft{}, domain.ErrEmptyImport
	}
	return draft, nil
}

// ---- games ----

func (c *Client) CreateGame(ctx context.Context, quizID, hostID string) (*domain.Game, error) {
	body := map[string]string{"quizId": quizID, "hostId": hostID}
	return c.gameCall(ctx, "createGame", http.MethodPost, "/games", body)
}

func (c *Client) GameByPin(ctx context.Context, pin string) (*domain.Game, error) {
	var raw wireGame
	if err := c.lookup(ctx, "getGameByPin", "/games/pin/"+url.PathEscape(pin), &raw); err != nil {
		return nil, err
	}
	return raw.game()
}

func (c *Client) Game(ctx context.Context, gameID string) (*domain.Game, error) {
	var raw wireGame
	if err := c.lookup(ctx, "getGame", "/games/"+url.PathEscape(gameID), &raw); err != nil {
		return nil, err
	}
	return raw.game()
}

// JoinGame attaches playerID to the game located by pin. Any non-2xx answer is
// reported as domain.ErrJoinRejected; the backend's reason is not distinguished.
func (c *Client) JoinGame(ctx context.Context, pin, nickname string, avatarID int, playerID string) (*domain.Game, domain.Player, error) {
	body := map[string]any{
		"pin":      pin,
		"nickname": nickname,
		"avatarId": avatarID,
		"playerId": playerID,
	}
	var raw wireGame
	err := c.do(ctx, "joinGame", http.MethodPost, "/games/join", body, &raw)
	var se *StatusError
	if errors.As(err, &se) {
		return nil, domain.Player{}, fmt.Errorf("%w: %s", domain.ErrJoinRejected, se.Status)
	}
	if err != nil {
		return nil, domain.Player{}, err
	}
	game, err := raw.game()
	if err != nil {
		return nil, domain.Player{}, err
	}
	player, ok := game.Player(playerID)
	if !ok {
		return nil, domain.Player{}, fmt.Errorf("%w: player missing from response", domain.ErrJoinRejected)
	}
	return game, player, nil
}

// LeaveGame notifies the backend; the status code is not checked.
func (c *Client) LeaveGame(ctx context.Context, gameID, playerID string) error {
	body := map[string]string{"playerId": playerID}
	return c.fireAndForget(ctx, "leaveGame", "/games/"+url.PathEscape(gameID)+"/leave", body)
}

func (c *Client) StartGame(ctx context.Context, gameID string) (*domain.Game, error) {
	return c.gameCall(ctx, "startGame", http.MethodPost, "/games/"+url.PathEscape(gameID)+"/start", nil)
}

func (c *Client) StartQuestion(ctx context.Context, gameID string) (*domain.Game, error) {
	return c.gameCall(ctx, "startQuestion", http.MethodPost, "/games/"+url.PathEscape(gameID)+"/start-question", nil)
}

// SubmitAnswer posts the chosen option; the status code is not checked and
// no state is returned.
func (c *Client) SubmitAnswer(ctx context.Context, gameID, playerID string, answerIndex int) error {
	body := map[string]any{"playerId": playerID, "answerIndex": answerIndex}
	return c.fireAndForget(ctx, "submitAnswer", "/games/"+url.PathEscape(gameID)+"/answer", body)
}

func (c *Client) EndQuestion(ctx context.Context, gameID string) (*domain.Game, error) {
	return c.gameCall(ctx, "endQuestion", http.MethodPost, "/games/"+url.PathEscape(gameID)+"/end-question", nil)
}

func (c *Client) NextQuestion(ctx context.Context, gameID string) (*domain.Game, error) {
	return c.gameCall(ctx, "nextQuestion", http.MethodPost, "/games/"+url.PathEscape(gameID)+"/next-question", nil)
}

func (c *Client) EndGame(ctx context.Context, gameID string) (*domain.Game, error) {
	return c.gameCall(ctx, "endGame", http.MethodPost, "/games/"+url.PathEscape(gameID)+"/end", nil)
}

func (c *Client) GameState(ctx context.Context, gameID string) (*domain.Game, error) {
	var raw wireGame
	if err := c.lookup(ctx, "getGameState", "/games/"+url.PathEscape(gameID)+"/state", &raw); err != nil {
		return nil, err
	}
	return raw.game()
}

// ---- plumbing ----

func (c *Client) gameCall(ctx context.Context, op, method, path string, body any) (*domain.Game, error) {
	var raw wireGame
	if err := c.do(ctx, op, method, path, body, &raw); err != nil {
		return nil, err
	}
	return raw.game()
}

// lookup performs a GET where any non-2xx answer means "not found".
func (c *Client) lookup(ctx context.Context, op, path string, out any) error {
	err := c.do(ctx, op, http.MethodGet, path, nil, out)
	var se *StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return err
}

func (c *Client) fireAndForget(ctx context.Context, op, path string, body any) error {
	err := c.do(ctx, op, http.MethodPost, path, body, nil)
	var se *StatusError
	if errors.As(err, &se) {
		c.log.Debug("ignoring backend status", zap.String("op", op), zap.Int("status", se.Code))
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, op, out)
}

func (c *Client) send(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api call",
		zap.String("op", op),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Op:      op,
			Code:    resp.StatusCode,
			Status:  resp.Status,
			Message: readErrorBody(resp.Body),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// readErrorBody extracts `{"error": ..., "detail": ...}` when the backend sends it.
func readErrorBody(r io.Reader) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || json.Unmarshal(data, &payload) != nil || payload.Error == "" {
		return ""
	}
	if payload.Detail != "" {
		return payload.Error + ": " + payload.Detail
	}
	return payload.Error
}
