package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizblitz/internal/api"
	"quizblitz/internal/domain"
	"quizblitz/internal/infra/memory"
	"quizblitz/internal/realtime"
	"quizblitz/internal/session"
)

const waitTimeout = 3 * time.Second

// syncBuffer lets the test read what a console goroutine is writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) has(s string) func() bool {
	return func() bool { return strings.Contains(b.String(), s) }
}

func openTestStore(t *testing.T, baseURL, wsURL string) *session.Store {
	t.Helper()
	channel := realtime.New(wsURL)
	store, err := session.New(context.Background(), api.New(baseURL+"/api"), channel, memory.NewIdentityStore())
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		_ = channel.Close()
	})
	return store
}

func TestConsolesPlayAGame(t *testing.T) {
	server := newBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hostStore := openTestStore(t, server.URL, socketURL(server))
	quiz, err := hostStore.CreateQuiz(ctx, "Geo", "")
	require.NoError(t, err)
	require.NoError(t, hostStore.AddQuestion(ctx, quiz.ID, domain.QuestionDraft{
		Text:         "Capital of Italy?",
		Options:      []string{"Paris", "Rome", "Oslo", "Bern"},
		CorrectIndex: 1,
		TimeLimit:    30,
	}))
	quiz = hostStore.Snapshot().Quizzes[0]

	hostOut := &syncBuffer{}
	hostLines := make(chan string)
	host := &hostConsole{store: hostStore, out: hostOut, timing: timing{countdown: 20 * time.Millisecond, reveal: time.Second}}
	hostDone := make(chan error, 1)
	go func() { hostDone <- host.run(ctx, quiz, hostLines) }()

	require.Eventually(t, func() bool { return hostStore.Snapshot().Game != nil }, waitTimeout, 5*time.Millisecond)
	pin := hostStore.Snapshot().Game.Pin
	require.Eventually(t, hostOut.has("quizblitz join "+pin), waitTimeout, 5*time.Millisecond)

	playerStore := openTestStore(t, server.URL, socketURL(server))
	playerOut := &syncBuffer{}
	playerLines := make(chan string)
	player := &playerConsole{store: playerStore, out: playerOut}
	playerDone := make(chan error, 1)
	go func() { playerDone <- player.run(ctx, pin, "Ava", 2, playerLines) }()

	require.Eventually(t, hostOut.has("Ava"), waitTimeout, 5*time.Millisecond, "host lobby lists the player")

	hostLines <- "start"
	require.Eventually(t, playerOut.has("Capital of Italy?"), waitTimeout, 5*time.Millisecond, "countdown ends in the question")

	playerLines <- "x"
	require.Eventually(t, playerOut.has("answer with A-D"), waitTimeout, 5*time.Millisecond)
	playerLines <- "b"
	require.Eventually(t, playerOut.has("Answer locked in."), waitTimeout, 5*time.Millisecond)
	playerLines <- "c"
	require.Eventually(t, playerOut.has("already answered"), waitTimeout, 5*time.Millisecond)

	hostLines <- "skip"
	require.Eventually(t, playerOut.has("Correct answer: B) Rome"), waitTimeout, 5*time.Millisecond)
	require.Eventually(t, hostOut.has("Type next for the final results."), waitTimeout, 5*time.Millisecond)

	hostLines <- "next"
	select {
	case err := <-hostDone:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("host console did not finish")
	}
	select {
	case err := <-playerDone:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("player console did not finish")
	}

	assert.Contains(t, hostOut.String(), "Final results")
	assert.Contains(t, playerOut.String(), "You finished #1")
	assert.Nil(t, hostStore.Snapshot().Game, "host detaches on the way out")
	assert.Nil(t, playerStore.Snapshot().Game, "player detaches on the way out")
}

func TestPlayerConsoleReportsRejectedJoin(t *testing.T) {
	server := newBackend(t)
	store := openTestStore(t, server.URL, socketURL(server))
	p := &playerConsole{store: store, out: &syncBuffer{}}

	err := p.run(context.Background(), "999999", "Ava", 0, make(chan string))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not join game 999999")
	assert.Nil(t, store.Snapshot().Game)
}

func TestHostCommandRejectsUnknownInput(t *testing.T) {
	server := newBackend(t)
	store := openTestStore(t, server.URL, socketURL(server))
	out := &syncBuffer{}
	h := &hostConsole{store: store, out: out, timing: defaultTiming}

	quit, err := h.command(context.Background(), "dance")
	assert.False(t, quit)
	assert.ErrorContains(t, err, "unknown command")

	quit, err = h.command(context.Background(), "start")
	assert.False(t, quit)
	assert.ErrorIs(t, err, domain.ErrNoActiveGame)

	quit, err = h.command(context.Background(), "help")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "Commands:")

	quit, _ = h.command(context.Background(), "QUIT")
	assert.True(t, quit)
}

func TestViewTracksPhaseAndAnswers(t *testing.T) {
	answer := 1
	st := session.Snapshot{Game: &domain.Game{
		Status:               domain.StatusQuestion,
		CurrentQuestionIndex: 2,
		Players:              []domain.Player{{ID: "a", CurrentAnswer: &answer}, {ID: "b"}},
	}}
	v := viewOf(st)
	assert.Equal(t, view{status: domain.StatusQuestion, index: 2, players: 2, answered: 1}, v)

	same := v
	same.answered = 2
	assert.False(t, same.phaseChanged(v))
	next := v
	next.index = 3
	assert.True(t, next.phaseChanged(v))
	assert.Equal(t, view{}, viewOf(session.Snapshot{}))
}
