package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizblitz/internal/preview"
	"quizblitz/internal/realtime"
)

// WSHandler relays client notifications to the other members of a game room
// as server events. It holds no game state; clients re-fetch over REST.
type WSHandler struct {
	hub      *preview.Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *preview.Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and runs the relay loop until the peer hangs up.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	member := preview.NewMember(uuid.NewString())
	log := h.log.With(zap.String("conn", member.ID))
	done := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-member.Outbox:
				if err := conn.WriteJSON(msg); err != nil {
					log.Debug("ws write failed", zap.Error(err))
					return
				}
			case <-done:
				return
			}
		}
	}()

	// participants remembers who this connection joined each room as, so a
	// dropped connection can still announce player-left.
	participants := make(map[string]string)
	for {
		var msg realtime.Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		n, err := realtime.DecodeNotification(msg)
		if err != nil {
			log.Debug("ignoring ws message", zap.String("type", msg.Type), zap.Error(err))
			continue
		}
		h.relay(member, participants, n, log)
	}

	for _, gameID := range h.hub.LeaveAll(member) {
		if playerID := participants[gameID]; playerID != "" {
			h.broadcast(gameID, realtime.PlayerLeft{GameID: gameID, PlayerID: playerID}, member)
		}
	}
	close(done)
	<-writerDone
}

func (h *WSHandler) relay(member *preview.Member, participants map[string]string, n realtime.Notification, log *zap.Logger) {
	switch n := n.(type) {
	case realtime.JoinGame:
		h.hub.Join(n.GameID, member)
		participants[n.GameID] = n.PlayerID
		h.broadcast(n.GameID, realtime.PlayerJoined{GameID: n.GameID, PlayerID: n.PlayerID}, member)
	case realtime.LeaveGame:
		h.hub.Leave(n.GameID, member)
		delete(participants, n.GameID)
		h.broadcast(n.GameID, realtime.PlayerLeft{GameID: n.GameID, PlayerID: n.PlayerID}, member)
	case realtime.GameStart:
		h.broadcast(n.GameID, realtime.GameStarted{GameID: n.GameID}, member)
	case realtime.QuestionStart:
		h.broadcast(n.GameID, realtime.QuestionStarted{GameID: n.GameID, QuestionIndex: n.QuestionIndex}, member)
	case realtime.QuestionEnd:
		h.broadcast(n.GameID, realtime.QuestionEnded{GameID: n.GameID}, member)
	case realtime.ShowLeaderboard:
		h.broadcast(n.GameID, realtime.LeaderboardShown{GameID: n.GameID}, member)
	case realtime.NextQuestion:
		h.broadcast(n.GameID, realtime.NextQuestionStarted{GameID: n.GameID}, member)
	case realtime.GameEnd:
		h.broadcast(n.GameID, realtime.GameEnded{GameID: n.GameID}, member)
	case realtime.AnswerSubmitted:
		log.Debug("answer submitted", zap.String("game", n.GameID), zap.String("player", n.PlayerID))
	}
}

func (h *WSHandler) broadcast(gameID string, ev realtime.Event, sender *preview.Member) {
	msg, err := realtime.EncodeEvent(ev)
	if err != nil {
		h.log.Error("encode event", zap.String("kind", string(ev.Kind())), zap.Error(err))
		return
	}
	h.hub.Broadcast(gameID, msg, sender)
}
