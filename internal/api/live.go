package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/compare-engine/internal/render"
	"github.com/terra-clan/compare-engine/internal/session"
)

const maxLiveMessage = 64 << 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Live message types
const (
	LiveAction   = "action"
	LiveSnapshot = "snapshot"
	LiveError    = "error"
)

// LiveMessage is the frame exchanged on the live channel. Clients send
// actions; the server answers with snapshots carrying both the views and
// their rendered HTML fragments, or with an error.
type LiveMessage struct {
	Type      string            `json:"type"`
	Action    *session.Action   `json:"action,omitempty"`
	Seq       uint64            `json:"seq,omitempty"`
	Page      *render.Page      `json:"page,omitempty"`
	Fragments map[string]string `json:"fragments,omitempty"`
	Error     *apiError         `json:"error,omitempty"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), clientFor(r))
	if err != nil {
		respondActionError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxLiveMessage)

	slog.Info("live channel connected", "client_id", sess.ID())

	// subscribe before the first frame so no change slips between them
	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	if err := s.sendLiveMessage(conn, s.snapshotMessage(sess.Snapshot())); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	replies := make(chan LiveMessage, 1)
	var wg sync.WaitGroup

	// Session updates and replies -> WebSocket. This is the only writer.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		// unblocks the reader
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-updates:
				if !ok {
					return
				}
				if err := s.sendLiveMessage(conn, s.snapshotMessage(snap)); err != nil {
					return
				}
			case msg := <-replies:
				if err := s.sendLiveMessage(conn, msg); err != nil {
					return
				}
			}
		}
	}()

	// WebSocket -> session actions
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}

			var msg LiveMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.Type != LiveAction || msg.Action == nil {
				s.reply(ctx, replies, liveError(http.StatusBadRequest, "invalid_request", "expected an action message"))
				continue
			}

			// the resulting snapshot reaches the writer through the subscription
			if _, err := sess.Apply(ctx, *msg.Action); err != nil {
				status, code, message := classify(err)
				s.reply(ctx, replies, liveError(status, code, message))
			}
		}
	}()

	wg.Wait()
	slog.Info("live channel disconnected", "client_id", sess.ID())
}

func (s *Server) reply(ctx context.Context, replies chan<- LiveMessage, msg LiveMessage) {
	select {
	case replies <- msg:
	case <-ctx.Done():
	}
}

func (s *Server) snapshotMessage(snap session.Snapshot) LiveMessage {
	msg := LiveMessage{
		Type: LiveSnapshot,
		Seq:  snap.Seq,
		Page: &snap.Page,
	}
	fragments, err := s.renderer.Fragments(snap.Page)
	if err != nil {
		slog.Error("failed to render fragments", "error", err, "seq", snap.Seq)
		return msg
	}
	msg.Fragments = fragments
	return msg
}

func liveError(status int, code, message string) LiveMessage {
	if status == http.StatusInternalServerError {
		slog.Error("live action failed", "code", code)
	}
	return LiveMessage{
		Type:  LiveError,
		Error: &apiError{Code: code, Message: message},
	}
}

func (s *Server) sendLiveMessage(conn *websocket.Conn, msg LiveMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal live message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send live message", "error", err)
		return err
	}
	return nil
}
