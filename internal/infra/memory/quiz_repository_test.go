package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizblitz/internal/domain"
)

func TestQuizRepositoryListsNewestFirstPerHost(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		quiz := sampleQuiz(id)
		quiz.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, quiz), "create %s", id)
	}
	other := sampleQuiz("foreign")
	other.HostID = "someone-else"
	require.NoError(t, repo.Create(ctx, other))

	list, err := repo.ListByHost(ctx, "host-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "mid", "old"}, quizIDs(list))
}

func TestQuizRepositoryBreaksTiesByCreationOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// IDs sort against creation order so an ID tiebreak would fail here.
	for _, id := range []string{"c", "b", "a"} {
		quiz := sampleQuiz(id)
		quiz.CreatedAt = created
		require.NoError(t, repo.Create(ctx, quiz))
	}
	renamed := sampleQuiz("b")
	renamed.CreatedAt = created
	renamed.Title = "Renamed"
	require.NoError(t, repo.Update(ctx, renamed))

	list, err := repo.ListByHost(ctx, "host-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, quizIDs(list), "update keeps the original position")
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()
	require.NoError(t, repo.Create(ctx, sampleQuiz("quiz-1")))

	got, err := repo.Get(ctx, "quiz-1")
	require.NoError(t, err)
	got.Questions[0].Options[0] = "mutated"

	again, _ := repo.Get(ctx, "quiz-1")
	assert.Equal(t, "3", again.Questions[0].Options[0], "stored quiz mutated through a returned copy")
}

func TestQuizRepositoryMissingQuiz(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()

	_, err := repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, sampleQuiz("nope")), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "nope"), domain.ErrNotFound)
}

func quizIDs(quizzes []domain.Quiz) []string {
	ids := make([]string, len(quizzes))
	for i, q := range quizzes {
		ids[i] = q.ID
	}
	return ids
}

func sampleQuiz(id string) domain.Quiz {
	return domain.Quiz{
		ID:     id,
		Title:  "Maths",
		HostID: "host-1",
		Questions: []domain.Question{
			{
				ID:           "q1",
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4", "5", "22"},
				CorrectIndex: 1,
				TimeLimit:    15,
			},
		},
	}
}
