package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizblitz/internal/realtime"
)

func TestHubBroadcastSkipsSender(t *testing.T) {
	hub := NewHub()
	host, player := NewMember("host"), NewMember("player")
	hub.Join("g1", host)
	hub.Join("g1", player)
	hub.Join("g2", NewMember("elsewhere"))

	hub.Broadcast("g1", realtime.Message{Type: "game-started"}, host)

	select {
	case msg := <-player.Outbox:
		assert.Equal(t, "game-started", msg.Type)
	default:
		t.Fatal("player did not receive the broadcast")
	}
	assert.Empty(t, host.Outbox, "sender must not receive its own broadcast")
}

func TestHubDropsOldestWhenFull(t *testing.T) {
	hub := NewHub()
	m := NewMember("slow")
	hub.Join("g1", m)

	for i := 0; i < outboxSize+3; i++ {
		hub.Broadcast("g1", realtime.Message{Type: string(rune('a' + i))}, nil)
	}
	require.Len(t, m.Outbox, outboxSize)
	first := <-m.Outbox
	assert.Equal(t, string(rune('a'+3)), first.Type, "oldest messages are dropped")
}

func TestHubLeaveAll(t *testing.T) {
	hub := NewHub()
	m := NewMember("m")
	hub.Join("g1", m)
	hub.Join("g2", m)

	left := hub.LeaveAll(m)
	assert.Len(t, left, 2)
	assert.Zero(t, hub.Size("g1"))
	assert.Zero(t, hub.Size("g2"))
}
