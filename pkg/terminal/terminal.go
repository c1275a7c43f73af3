// Package terminal serves the browser drawing terminal: a websocket per
// session that runs scripts, streams graphics and manages saved programs.
package terminal

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/antibyte/turtleterm/pkg/auth"
	"github.com/antibyte/turtleterm/pkg/configuration"
	"github.com/antibyte/turtleterm/pkg/logger"
	"github.com/antibyte/turtleterm/pkg/resources"
	"github.com/antibyte/turtleterm/pkg/shared"
	"github.com/antibyte/turtleterm/pkg/store"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ProgramStore is the program library used by save, load, list and delete.
type ProgramStore interface {
	SaveProgram(ctx context.Context, owner, name, source string) (store.Program, error)
	LoadProgram(ctx context.Context, id string, owners ...string) (store.Program, error)
	LoadProgramByName(ctx context.Context, owner, name string) (store.Program, error)
	ListPrograms(ctx context.Context, owners ...string) ([]store.Program, error)
	DeleteProgram(ctx context.Context, owner, id string) error
}

// Handler owns the websocket clients. Each session has at most one
// connected client; a reconnect replaces the previous connection.
type Handler struct {
	sessions *resources.SessionManager
	programs ProgramStore
	upgrader websocket.Upgrader
	limiter  *rateLimiter

	mu      sync.Mutex
	clients map[string]*Client
}

// NewHandler creates a terminal handler.
func NewHandler(sessions *resources.SessionManager, programs ProgramStore) *Handler {
	return &Handler{
		sessions: sessions,
		programs: programs,
		limiter:  newRateLimiter(getMaxMessagesPerSecond()),
		clients:  make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// checkOrigin accepts origins listed in Network.allowed_origins. An empty
// list accepts every origin.
func checkOrigin(r *http.Request) bool {
	allowed := configuration.GetString("Network", "allowed_origins", "")
	if strings.TrimSpace(allowed) == "" {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, a := range strings.Split(allowed, ",") {
		if strings.TrimSpace(a) == origin {
			return true
		}
	}
	logger.WebSocketWarn("Rejected websocket from origin %q", origin)
	return false
}

// HandleWebSocket authenticates the request token, upgrades the
// connection and starts the client pumps.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ipAddress := auth.GetClientIP(r)

	tokenString, err := auth.ExtractTokenFromRequest(r)
	if err != nil {
		logger.WebSocketWarn("Websocket without token from %s: %v", ipAddress, err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := auth.ValidateToken(tokenString)
	if err != nil {
		logger.WebSocketWarn("Websocket with invalid token from %s: %v", ipAddress, err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := uuid.Parse(id.SessionID); err != nil {
		logger.WebSocketWarn("Malformed session id %q from %s", id.SessionID, ipAddress)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := h.sessions.RegisterSession(id.SessionID, id.Owner(), ipAddress)
	if err != nil {
		http.Error(w, "Too many sessions", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WebSocketError("Upgrade failed for %s: %v", ipAddress, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		conn:      conn,
		handler:   h,
		session:   session,
		identity:  id,
		ipAddress: ipAddress,
		ctx:       ctx,
		cancel:    cancel,
	}
	h.addClient(client)

	logger.WebSocketInfo("Client connected: session %s, user %s, ip %s", id.SessionID, id.Owner(), ipAddress)

	go client.writePump()
	go client.readPump()

	client.reply(shared.Message{Type: shared.MessageTypeSession, SessionID: id.SessionID})
	client.reply(shared.Message{Type: shared.MessageTypeText, Content: welcomeText(id)})
}

func welcomeText(id auth.Identity) string {
	if id.Guest {
		return "turtleterm ready. Type help for commands. Log in to save programs."
	}
	return "turtleterm ready. Welcome back, " + id.Username + "."
}

func (h *Handler) addClient(c *Client) {
	h.mu.Lock()
	old := h.clients[c.session.ID]
	h.clients[c.session.ID] = c
	h.mu.Unlock()

	if old != nil {
		logger.WebSocketInfo("Session %s reconnected, closing previous connection", c.session.ID)
		old.close()
	}
}

// removeClient forgets c unless a newer connection took over its session.
func (h *Handler) removeClient(c *Client) {
	h.mu.Lock()
	current := h.clients[c.session.ID] == c
	if current {
		delete(h.clients, c.session.ID)
	}
	h.mu.Unlock()

	if current {
		c.session.Stop()
	}
	h.limiter.Forget(c.session.ID)
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown closes every client connection.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	logger.WebSocketInfo("Closed %d websocket clients", len(clients))
}

func getWriteWait() time.Duration {
	return configuration.GetDuration("Network", "write_wait_timeout", 10*time.Second)
}

func getPongWait() time.Duration {
	return configuration.GetDuration("Network", "pong_timeout", 90*time.Second)
}

func getPingPeriod() time.Duration {
	return (getPongWait() * 9) / 10
}

func getMaxMessageSize() int64 {
	return int64(configuration.GetInt("Network", "max_message_size_kb", 64) * 1024)
}

func getMaxMessagesPerSecond() int {
	return configuration.GetInt("Network", "max_messages_per_second", 50)
}
