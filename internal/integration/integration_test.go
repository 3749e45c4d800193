package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"quizblitz/internal/api"
	"quizblitz/internal/domain"
	"quizblitz/internal/infra/memory"
	infraredis "quizblitz/internal/infra/redis"
	"quizblitz/internal/preview"
	"quizblitz/internal/realtime"
	"quizblitz/internal/session"
	transport "quizblitz/internal/transport/http"
)

// TestGameOverSharedRedis plays a one-question game against a preview backend
// whose pins live in a real Redis, with both clients keeping their ids there.
func TestGameOverSharedRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()
	redisClient, err := redisClientFromURL(redisURL)
	require.NoError(t, err)
	defer redisClient.Close()

	service := preview.NewService(memory.NewQuizRepository(), memory.NewGameStore(), infraredis.NewPinRegistry(redisClient, time.Hour))
	server := httptest.NewServer(transport.NewRouter(service, preview.NewHub(), zap.NewNop()))
	defer server.Close()

	host := openStore(t, ctx, server.URL, redisClient, "host")
	player := openStore(t, ctx, server.URL, redisClient, "player")

	quiz, err := host.CreateQuiz(ctx, "Maths", "")
	require.NoError(t, err)
	require.NoError(t, host.AddQuestion(ctx, quiz.ID, domain.QuestionDraft{
		Text:         "What is 2 + 2?",
		Options:      []string{"3", "4", "5", "22"},
		CorrectIndex: 1,
		TimeLimit:    20,
	}))
	quiz = host.Snapshot().Quizzes[0]

	pin, err := host.CreateGame(ctx, quiz)
	require.NoError(t, err)
	gameID := host.Snapshot().Game.ID
	stored, err := redisClient.Get(ctx, "quizblitz:pin:"+pin).Result()
	require.NoError(t, err)
	assert.Equal(t, gameID, stored, "pin maps to the game in redis")

	require.True(t, player.JoinGame(ctx, pin, "Bob", 3), "join: %s", player.Snapshot().Err)
	waitFor(t, host, func(st session.Snapshot) bool { return len(st.Game.Players) == 1 })

	require.NoError(t, host.StartGame(ctx))
	require.NoError(t, host.SetGameStatus(ctx, domain.StatusQuestion))
	waitFor(t, player, func(st session.Snapshot) bool { return st.Game.Status == domain.StatusQuestion })

	require.NoError(t, player.SubmitAnswer(ctx, 1))
	require.NoError(t, host.ShowLeaderboard(ctx))
	assert.Positive(t, host.Snapshot().Game.Players[0].Score, "bob scores")

	require.NoError(t, host.NextQuestion(ctx))
	assert.Equal(t, domain.StatusFinished, host.Snapshot().Game.Status, "finished after the only question")
	waitFor(t, player, func(st session.Snapshot) bool { return st.Game.Status == domain.StatusFinished })

	n, err := redisClient.Exists(ctx, "quizblitz:pin:"+pin).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "pin is released")

	again := openStore(t, ctx, server.URL, redisClient, "player")
	assert.Equal(t, player.ClientID(), again.ClientID(), "player id survives a restart")
	assert.NotEqual(t, host.ClientID(), again.ClientID(), "profiles must not share an id")
}

func openStore(t *testing.T, ctx context.Context, baseURL string, client *goredis.Client, profile string) *session.Store {
	t.Helper()
	channel := realtime.New("ws" + strings.TrimPrefix(baseURL, "http") + "/ws")
	store, err := session.New(ctx, api.New(baseURL+"/api"), channel, infraredis.NewIdentityStore(client, profile))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		_ = channel.Close()
	})
	return store
}

func waitFor(t *testing.T, store *session.Store, cond func(session.Snapshot) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		st := store.Snapshot()
		return st.Game != nil && cond(st)
	}, 5*time.Second, 10*time.Millisecond)
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		require.NoError(t, err, "start redis")
	}
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
