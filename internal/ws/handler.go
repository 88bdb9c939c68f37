package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/DoyleJ11/maze-team-client/internal/feed"
	apitypes "github.com/DoyleJ11/maze-team-client/internal/types"
	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

// Handler streams agent events from f to websocket clients. A client may
// narrow the stream to one player with {"type":"Filter","player":"Player 1"}.
func Handler(f *feed.Feed, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// OriginPatterns: []string{"localhost:*"} for a browser dashboard on another port
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		clog := log.With(zap.String("client", clientID))
		out := make(chan types.Event, outboxSize)

		select {
		case f.Inbox() <- feed.Join{ClientID: clientID, Outbox: out}:
		case <-f.Done():
			conn.Close(websocket.StatusGoingAway, "feed closed")
			return
		}
		defer func() {
			select {
			case f.Inbox() <- feed.Leave{ClientID: clientID}:
			case <-f.Done():
			}
		}()
		clog.Debug("event stream opened")

		var filter atomic.Value
		filter.Store("")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for e := range out {
				if p := filter.Load().(string); p != "" && e.Player != p {
					continue
				}
				if err := writeJSON(writeCtx, conn, apitypes.ServerMessage{Type: "Event", Event: &e}); err != nil {
					return
				}
			}
			// the feed dropped or released us
			conn.Close(websocket.StatusGoingAway, "stream ended")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("event stream closed", zap.Error(err))
				}
				return
			}

			var cm apitypes.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(r.Context(), conn, apitypes.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}
			switch cm.Type {
			case "Filter":
				filter.Store(cm.Player)
			case "Ping":
				_ = writeJSON(r.Context(), conn, apitypes.ServerMessage{Type: "Pong"})
			default:
				_ = writeJSON(r.Context(), conn, apitypes.ServerMessage{Type: "Error", Error: "unknown type"})
			}
		}
	}
}

func writeJSON(parent context.Context, conn *websocket.Conn, msg apitypes.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
