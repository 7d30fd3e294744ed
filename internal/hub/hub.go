package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/triviahub/triviad/internal/domain"
	"github.com/triviahub/triviad/internal/event"
	"github.com/triviahub/triviad/internal/game"
)

const (
	sendBufferSize = 64
	writeTimeout   = 10 * time.Second
)

// Notification is the wire envelope for every broadcast.
type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ClientMessage is the JSON structure received from participants.
type ClientMessage struct {
	Action     string `json:"action"`
	Name       string `json:"name,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

const (
	ActionSetName      = "setName"
	ActionStartGame    = "startGame"
	ActionSubmitAnswer = "submitAnswer"
)

// EncodeEvent wraps a session event in the wire envelope.
func EncodeEvent(e event.Event) ([]byte, error) {
	b, err := json.Marshal(Notification{Event: e.Name(), Data: e})
	if err != nil {
		return nil, fmt.Errorf("hub: marshal %s: %w", e.Name(), err)
	}
	return b, nil
}

type Config struct {
	EventBus *event.Bus
	Game     *game.Service
}

// Hub owns the participant WebSocket connections: it assigns each connection
// its identity token, feeds inbound messages into the game service, and fans
// session broadcasts out to every connected participant in publish order.
type Hub struct {
	game     *game.Service
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

func New(c Config) *Hub {
	h := &Hub{
		game: c.Game,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Participants connect from the statically served game page;
			// the origin is not part of the trust model here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}

	for _, name := range []string{
		domain.EventNameRosterUpdated,
		domain.EventNameQuestionRevealed,
		domain.EventNameRoundResult,
		domain.EventNameSessionError,
		domain.EventNameSessionEnded,
		domain.EventNameSessionReset,
	} {
		c.EventBus.Subscribe(name, h.broadcastEvent)
	}

	return h
}

// Serve upgrades the connection, joins the participant into the session and
// pumps messages until the connection drops.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "hub: upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.register(c)
	slog.InfoContext(r.Context(), "hub: participant connected", "participant", c.id)

	go c.writePump()

	// The join broadcast happens after registration so the new participant
	// receives its own roster update.
	ctx := context.Background()
	h.game.Join(ctx, c.id)

	h.readPump(ctx, c)
}

// Broadcast queues a message for every connected participant. A participant
// whose send buffer is full loses the message rather than stalling the rest.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Count returns the number of connected participants.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastEvent(_ context.Context, e event.Event) error {
	b, err := EncodeEvent(e)
	if err != nil {
		return err
	}

	h.Broadcast(b)
	return nil
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer h.unregister(ctx, c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.ErrorContext(ctx, "hub: read failed", "participant", c.id, "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.ErrorContext(ctx, "hub: malformed message", "participant", c.id, "error", err)
			continue
		}

		h.dispatch(ctx, c.id, msg)
	}
}

func (h *Hub) dispatch(ctx context.Context, id string, msg ClientMessage) {
	switch msg.Action {
	case ActionSetName:
		h.game.SetName(ctx, id, msg.Name)
	case ActionStartGame:
		h.game.Start(ctx)
	case ActionSubmitAnswer:
		h.game.SubmitAnswer(ctx, game.SubmitAnswerRequest{
			ParticipantID: id,
			QuestionID:    msg.QuestionID,
			Answer:        msg.Answer,
		})
	default:
		// Unknown actions are ignored, like any other malformed input.
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(ctx context.Context, c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()

	_ = c.conn.Close()
	h.game.Disconnect(ctx, c.id)
	slog.InfoContext(ctx, "hub: participant disconnected", "participant", c.id)
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
