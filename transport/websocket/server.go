package websocket

import (
	"chat-relay/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// In-band actions, routed by the "action" field of each frame.
const (
	actionSendMessage    = "sendmessage"
	actionRecentMessages = "getRecentMessages"
	actionPing           = "ping"
)

// Server upgrades HTTP requests into websocket sessions. Each upgraded
// connection gets an opaque uuid connection id, a CONNECT event on the
// way in and a DISCONNECT event on the way out.
type Server struct {
	log       *slog.Logger
	hub       *Hub
	lifecycle services.ILifecycleService
	broadcast services.IBroadcastService
	upgrader  websocket.Upgrader
}

func NewServer(log *slog.Logger, hub *Hub,
	lifecycle services.ILifecycleService, broadcast services.IBroadcastService) *Server {
	return &Server{
		log:       log,
		hub:       hub,
		lifecycle: lifecycle,
		broadcast: broadcast,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeWS authenticates and upgrades one client. The CONNECT event is
// settled before the upgrade so a rejected client never holds a socket:
// the lifecycle result maps directly onto the HTTP response.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	connectionID := uuid.NewString()
	token := r.URL.Query().Get("token")

	response := s.lifecycle.HandleEvent(services.Event{
		Type:         services.EventConnect,
		ConnectionID: connectionID,
		Token:        token,
	})
	if response.StatusCode != http.StatusOK {
		http.Error(w, response.Body, response.StatusCode)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("WebSocket upgrade failed", "connection_id", connectionID, "error", err)
		s.lifecycle.HandleEvent(services.Event{Type: services.EventDisconnect, ConnectionID: connectionID})
		return
	}

	s.hub.Attach(connectionID, conn)
	go s.readLoop(connectionID, conn)
}

// readLoop consumes frames until the client goes away, then tears the
// session down: gateway first, registry second, socket last.
func (s *Server) readLoop(connectionID string, conn *websocket.Conn) {
	defer func() {
		s.hub.Detach(connectionID)
		s.lifecycle.HandleEvent(services.Event{Type: services.EventDisconnect, ConnectionID: connectionID})
		_ = conn.Close()
	}()

	ctx := context.Background()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("WebSocket read failed", "connection_id", connectionID, "error", err)
			}
			return
		}
		response := s.route(ctx, connectionID, data)
		s.log.Debug("Action handled", "connection_id", connectionID,
			"status", response.StatusCode, "body", response.Body)
	}
}

// route dispatches one in-band frame by its action field. A frame that
// does not decode still reaches the default handler, exactly like an
// unroutable action.
func (s *Server) route(ctx context.Context, connectionID string, data []byte) services.Response {
	var frame struct {
		Action string `json:"action"`
	}
	_ = json.Unmarshal(data, &frame)

	switch frame.Action {
	case actionSendMessage:
		return s.broadcast.SendMessage(ctx, data)
	case actionRecentMessages:
		return s.broadcast.RecentMessages(ctx, connectionID)
	case actionPing:
		return s.broadcast.Ping()
	default:
		return s.broadcast.Unrecognized()
	}
}
