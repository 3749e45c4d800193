package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer answers join-game with player-joined and records every
// notification it receives.
type echoServer struct {
	connections atomic.Int32
	mu          sync.Mutex
	received    []Message
}

func (s *echoServer) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		s.connections.Add(1)
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, msg)
			s.mu.Unlock()

			if msg.Type == string(TypeJoinGame) {
				n, _ := DecodeNotification(msg)
				join := n.(JoinGame)
				_ = conn.WriteJSON(Message{Type: "unknown-event"})
				out, _ := EncodeEvent(PlayerJoined{GameID: join.GameID, PlayerID: join.PlayerID})
				_ = conn.WriteJSON(out)
			}
		}
	}
}

func (s *echoServer) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.received))
	for _, m := range s.received {
		out = append(out, m.Type)
	}
	return out
}

func startEcho(t *testing.T) (*echoServer, string) {
	t.Helper()
	srv := &echoServer{}
	server := httptest.NewServer(srv.handler(t))
	t.Cleanup(server.Close)
	return srv, "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClientConnectsLazilyAndFansOut(t *testing.T) {
	srv, url := startEcho(t)
	client := New(url)
	defer client.Close()

	var order []string
	var mu sync.Mutex
	got := make(chan PlayerJoined, 2)
	client.On(KindPlayerJoined, func(ev Event) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	client.On(KindPlayerJoined, func(ev Event) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		got <- ev.(PlayerJoined)
	})

	assert.Equal(t, int32(0), srv.connections.Load(), "no connection before first use")

	require.NoError(t, client.JoinChannel(context.Background(), "g1", "p1"))

	select {
	case ev := <-got:
		assert.Equal(t, "g1", ev.GameID)
		assert.Equal(t, "p1", ev.PlayerID)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for player-joined")
	}
	mu.Lock()
	assert.Equal(t, []string{"first", "second"}, order)
	mu.Unlock()
	assert.Equal(t, int32(1), srv.connections.Load())
}

func TestSubscriptionOff(t *testing.T) {
	client := New("ws://unused")
	var calls atomic.Int32
	sub := client.On(KindGameStarted, func(Event) { calls.Add(1) })
	keep := client.On(KindGameStarted, func(Event) { calls.Add(10) })

	client.Simulate(GameStarted{})
	sub.Off()
	sub.Off()
	client.Simulate(GameStarted{})

	assert.Equal(t, int32(21), calls.Load())
	assert.Equal(t, 1, client.HandlerCount(KindGameStarted))
	keep.Off()
	assert.Equal(t, 0, client.HandlerCount(KindGameStarted))
}

func TestLeaveChannelUsesRememberedIDs(t *testing.T) {
	srv, url := startEcho(t)
	client := New(url)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.JoinChannel(ctx, "g1", "p1"))
	require.NoError(t, client.LeaveChannel(ctx, "", ""))
	// Nothing remembered any more: no-op.
	require.NoError(t, client.LeaveChannel(ctx, "", ""))
	require.NoError(t, client.Emit(ctx, QuestionStart{GameID: "g1", QuestionIndex: 2}))

	assert.Eventually(t, func() bool {
		return len(srv.types()) == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"join-game", "leave-game", "question-start"}, srv.types())
}

func TestEmitAfterClose(t *testing.T) {
	client := New("ws://unused")
	require.NoError(t, client.Close())
	err := client.Emit(context.Background(), GameStart{GameID: "g1"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDecodeRoundTripsTypedPayloads(t *testing.T) {
	msg, err := EncodeNotification(QuestionStart{GameID: "g1", QuestionIndex: 3})
	require.NoError(t, err)
	n, err := DecodeNotification(msg)
	require.NoError(t, err)
	assert.Equal(t, QuestionStart{GameID: "g1", QuestionIndex: 3}, n)

	ev, err := DecodeEvent(Message{Type: string(KindQuestionEnded)})
	require.NoError(t, err)
	assert.Equal(t, KindQuestionEnded, ev.Kind())

	_, err = DecodeEvent(Message{Type: "bogus"})
	assert.ErrorAs(t, err, &ErrUnknownType{})
}
