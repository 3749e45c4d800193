package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"quizblitz/internal/domain"
	"quizblitz/internal/preview"
)

const maxImportSize = 4 << 20

// RESTHandler exposes the preview service over the REST contract the client
// package consumes.
type RESTHandler struct {
	service *preview.Service
	log     *zap.Logger
}

func NewRESTHandler(service *preview.Service, log *zap.Logger) *RESTHandler {
	return &RESTHandler{service: service, log: log}
}

// Routes mounts every REST endpoint on r.
func (h *RESTHandler) Routes(r chi.Router) {
	r.Route("/quizzes", func(r chi.Router) {
		r.Post("/", h.createQuiz)
		r.Post("/import-pdf", h.importQuiz)
		r.Get("/host/{hostID}", h.listQuizzes)
		r.Get("/{quizID}", h.getQuiz)
		r.Put("/{quizID}", h.updateQuiz)
		r.Delete("/{quizID}", h.deleteQuiz)
		r.Post("/{quizID}/questions", h.addQuestion)
		r.Delete("/{quizID}/questions/{questionID}", h.removeQuestion)
	})
	r.Route("/games", func(r chi.Router) {
		r.Post("/", h.createGame)
		r.Post("/join", h.joinGame)
		r.Get("/pin/{pin}", h.gameByPin)
		r.Get("/{gameID}", h.getGame)
		r.Get("/{gameID}/state", h.getGame)
		r.Post("/{gameID}/leave", h.leaveGame)
		r.Post("/{gameID}/start", h.gameTransition(h.service.StartGame))
		r.Post("/{gameID}/start-question", h.gameTransition(h.service.StartQuestion))
		r.Post("/{gameID}/answer", h.submitAnswer)
		r.Post("/{gameID}/end-question", h.gameTransition(h.service.EndQuestion))
		r.Post("/{gameID}/next-question", h.gameTransition(h.service.NextQuestion))
		r.Post("/{gameID}/end", h.gameTransition(h.service.EndGame))
	})
}

type createQuizRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	HostID      string            `json:"hostId"`
	Questions   []domain.Question `json:"questions"`
}

type createGameRequest struct {
	QuizID string `json:"quizId"`
	HostID string `json:"hostId"`
}

type joinRequest struct {
	Pin      string `json:"pin"`
	Nickname string `json:"nickname"`
	AvatarID int    `json:"avatarId"`
	PlayerID string `json:"playerId"`
}

type playerRequest struct {
	PlayerID string `json:"playerId"`
}

type answerRequest struct {
	PlayerID    string `json:"playerId"`
	AnswerIndex int    `json:"answerIndex"`
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (h *RESTHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if !h.decode(w, r, &req) {
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), req.HostID, req.Title, req.Description, req.Questions)
	h.respond(w, http.StatusCreated, quiz, err)
}

func (h *RESTHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context(), chi.URLParam(r, "hostID"))
	h.respond(w, http.StatusOK, quizzes, err)
}

func (h *RESTHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.Quiz(r.Context(), chi.URLParam(r, "quizID"))
	h.respond(w, http.StatusOK, quiz, err)
}

func (h *RESTHandler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if !h.decode(w, r, &quiz) {
		return
	}
	quiz.ID = chi.URLParam(r, "quizID")
	updated, err := h.service.UpdateQuiz(r.Context(), quiz)
	h.respond(w, http.StatusOK, updated, err)
}

func (h *RESTHandler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteQuiz(r.Context(), chi.URLParam(r, "quizID"))
	h.respond(w, http.StatusNoContent, nil, err)
}

func (h *RESTHandler) addQuestion(w http.ResponseWriter, r *http.Request) {
	var draft domain.QuestionDraft
	if !h.decode(w, r, &draft) {
		return
	}
	quiz, err := h.service.AddQuestion(r.Context(), chi.URLParam(r, "quizID"), draft)
	h.respond(w, http.StatusOK, quiz, err)
}

func (h *RESTHandler) removeQuestion(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.RemoveQuestion(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "questionID"))
	h.respond(w, http.StatusOK, quiz, err)
}

func (h *RESTHandler) importQuiz(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing upload", Detail: err.Error()})
		return
	}
	defer file.Close()

	draft, err := preview.ImportQuiz(file)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "could not parse quiz", Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *RESTHandler) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if !h.decode(w, r, &req) {
		return
	}
	game, err := h.service.CreateGame(r.Context(), req.QuizID, req.HostID)
	h.respond(w, http.StatusCreated, game, err)
}

func (h *RESTHandler) gameByPin(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.GameByPin(r.Context(), chi.URLParam(r, "pin"))
	h.respond(w, http.StatusOK, game, err)
}

func (h *RESTHandler) getGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.Game(r.Context(), chi.URLParam(r, "gameID"))
	h.respond(w, http.StatusOK, game, err)
}

func (h *RESTHandler) joinGame(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !h.decode(w, r, &req) {
		return
	}
	game, err := h.service.JoinGame(r.Context(), req.Pin, req.Nickname, req.AvatarID, req.PlayerID)
	h.respond(w, http.StatusOK, game, err)
}

func (h *RESTHandler) leaveGame(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.service.LeaveGame(r.Context(), chi.URLParam(r, "gameID"), req.PlayerID)
	h.respond(w, http.StatusNoContent, nil, err)
}

func (h *RESTHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.service.SubmitAnswer(r.Context(), chi.URLParam(r, "gameID"), req.PlayerID, req.AnswerIndex)
	h.respond(w, http.StatusNoContent, nil, err)
}

func (h *RESTHandler) gameTransition(op func(ctx context.Context, gameID string) (*domain.Game, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		game, err := op(r.Context(), chi.URLParam(r, "gameID"))
		h.respond(w, http.StatusOK, game, err)
	}
}

func (h *RESTHandler) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Detail: err.Error()})
		return false
	}
	return true
}

func (h *RESTHandler) respond(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			h.log.Error("request failed", zap.Error(err))
		}
		writeJSON(w, code, errorBody{Error: err.Error()})
		return
	}
	if body == nil {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidPin):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNicknameTaken), errors.Is(err, domain.ErrWrongStatus):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidNickname), errors.Is(err, domain.ErrInvalidAvatar),
		errors.Is(err, domain.ErrNotPlayer):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidQuestion), errors.Is(err, domain.ErrEmptyImport):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
