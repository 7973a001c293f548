package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signlens/internal/detection"
	"github.com/ayusman/signlens/internal/store"
)

const wsWriteTimeout = 10 * time.Second

// DetectSocket answers detection requests over a WebSocket.
// Each text message is a detection request; each reply is one envelope.
type DetectSocket struct {
	server   *Server
	upgrader websocket.Upgrader
}

// NewDetectSocket creates a DetectSocket bound to s.
func NewDetectSocket(s *Server) *DetectSocket {
	origin := s.config.CORSOrigin
	return &DetectSocket{
		server: s,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if origin == "" || origin == "*" {
					return true
				}
				return r.Header.Get("Origin") == origin
			},
		},
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *DetectSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.server.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(h.server.config.MaxBodyBytes)
	// Clear the read deadline inherited from the HTTP server's ReadTimeout.
	conn.SetReadDeadline(time.Time{})
	log := h.server.log.WithField("remote", r.RemoteAddr)
	log.Info("Realtime client connected")

	// Requests on one connection are answered in order.
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("Realtime client disconnected")
			} else {
				log.Info("Realtime client disconnected")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		reply, err := detection.Marshal(h.handle(data))
		if err != nil {
			log.WithError(err).Error("Failed to encode detection result")
			return
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			log.WithError(err).Warn("Failed to send detection result")
			return
		}
	}
}

func (h *DetectSocket) handle(data []byte) detection.Result {
	req, err := detection.ParseRequest(data)
	if err != nil {
		return detection.Failed(err)
	}
	if !h.server.ModelLoaded() {
		return h.server.modelNotLoaded()
	}

	result := h.server.config.Pipeline.Handle(req)
	h.server.record(store.SourceWebSocket, req.Threshold(), result)
	return result
}
