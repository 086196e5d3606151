// Package server exposes the game over a websocket endpoint. One connection
// maps to one session; the session dies with the connection or with the
// character.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"medievalrpg/internal/debug"
	"medievalrpg/internal/session"
	"medievalrpg/internal/storage"
)

type Server struct {
	sessions *session.Store
	runner   *session.Runner
	saves    *storage.Store
	dbg      *debug.Logger
	timeout  time.Duration

	upgrader websocket.Upgrader
}

func New(sessions *session.Store, runner *session.Runner, saves *storage.Store, dbg *debug.Logger, timeout time.Duration) *Server {
	return &Server{
		sessions: sessions,
		runner:   runner,
		saves:    saves,
		dbg:      dbg,
		timeout:  timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler with the websocket endpoint mounted at
// /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// conn wraps a websocket connection with a write lock; gorilla connections
// do not allow concurrent writers.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.dbg.Printf("upgrade failed: %v", err)
		return
	}
	c := &conn{ws: ws}

	sessionID := uuid.NewString()
	c.send(connectedMessage{Type: "connected", SessionID: sessionID})
	s.dbg.Printf("client connected, session %s", sessionID)

	defer func() {
		s.sessions.Delete(sessionID)
		ws.Close()
		s.dbg.Printf("client disconnected, session %s", sessionID)
	}()

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.send(errorMessage{Type: "error", Message: "malformed message"})
			continue
		}

		switch msg.Type {
		case "start":
			s.handleStart(c, sessionID, msg)
		case "choice":
			s.handleChoice(r.Context(), c, sessionID, msg)
		case "clientUpdate":
			s.handleClientUpdate(c, sessionID, msg)
		case "save":
			s.handleSave(c, sessionID)
		case "load":
			s.handleLoad(c, sessionID, msg)
		case "listSaves":
			s.handleListSaves(c)
		default:
			c.send(errorMessage{Type: "error", Message: "unknown message type: " + msg.Type})
		}
	}
}
