package events

import (
	"net/http"
	"strings"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jason-czar/freedomains/internal/auth"
)

// Server pushes domain status updates to connected dashboard clients
// over Socket.IO.
type Server struct {
	io     *socketio.Server
	logger *logrus.Entry
}

// NewServer creates and starts the Socket.IO server
func NewServer(logger *logrus.Entry) *Server {
	io := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	log := logger.WithField("component", "events")

	io.OnConnect("/", func(s socketio.Conn) error {
		log.WithField("conn_id", s.ID()).Debug("client connected")
		s.Emit("connected", map[string]interface{}{"ok": true})
		return nil
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.WithFields(logrus.Fields{"conn_id": s.ID(), "reason": reason}).Debug("client disconnected")
	})
	io.OnError("/", func(s socketio.Conn, err error) {
		log.Errorf("socket error: %v", err)
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Errorf("socket.io serve: %v", err)
		}
	}()

	return &Server{io: io, logger: log}
}

// Close shuts the Socket.IO server down
func (s *Server) Close() error {
	return s.io.Close()
}

// Handler wraps the Socket.IO endpoint with JWT handshake authentication.
// Clients pass the token either as ?token= or as a Bearer header.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := auth.ParseToken(token); err != nil {
			s.logger.WithField("remote", r.RemoteAddr).Debugf("handshake rejected: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		s.io.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// broadcast sends an event to every connected client
func (s *Server) broadcast(event string, data interface{}) {
	s.io.BroadcastToNamespace("/", event, data)
}
