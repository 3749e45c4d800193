package memory

import (
	"context"
	"sort"
	"sync"

	"quizblitz/internal/domain"
)

// QuizRepository is an in-memory implementation of preview.QuizRepository.
// Quizzes are copied on the way in and out so callers never share slices
// with the stored value.
type QuizRepository struct {
	mu      sync.RWMutex
	quizzes map[string]storedQuiz
	nextSeq uint64
}

// storedQuiz keeps the creation order so quizzes created within the same
// clock tick still list newest first.
type storedQuiz struct {
	quiz domain.Quiz
	seq  uint64
}

func NewQuizRepository() *QuizRepository {
	return &QuizRepository{quizzes: make(map[string]storedQuiz)}
}

func (r *QuizRepository) Create(_ context.Context, quiz domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.quizzes[quiz.ID] = storedQuiz{quiz: cloneQuiz(quiz), seq: r.nextSeq}
	return nil
}

func (r *QuizRepository) Get(_ context.Context, quizID string) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrNotFound
	}
	return cloneQuiz(stored.quiz), nil
}

// ListByHost returns the host's quizzes, newest first. Ties on CreatedAt
// fall back to insertion order.
func (r *QuizRepository) ListByHost(_ context.Context, hostID string) ([]domain.Quiz, error) {
	r.mu.RLock()
	matched := make([]storedQuiz, 0)
	for _, stored := range r.quizzes {
		if stored.quiz.HostID == hostID {
			matched = append(matched, stored)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.quiz.CreatedAt.Equal(b.quiz.CreatedAt) {
			return a.quiz.CreatedAt.After(b.quiz.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]domain.Quiz, len(matched))
	for i, stored := range matched {
		out[i] = cloneQuiz(stored.quiz)
	}
	return out, nil
}

func (r *QuizRepository) Update(_ context.Context, quiz domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.quizzes[quiz.ID]
	if !ok {
		return domain.ErrNotFound
	}
	r.quizzes[quiz.ID] = storedQuiz{quiz: cloneQuiz(quiz), seq: stored.seq}
	return nil
}

func (r *QuizRepository) Delete(_ context.Context, quizID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[quizID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.quizzes, quizID)
	return nil
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		questions[i] = question
	}
	q.Questions = questions
	return q
}
