// Package socket implements the websocket change feed. REST handlers publish
// mutation events after a successful commit; clients subscribe to a corpus and
// receive every event for it.
package socket

import (
	"encoding/json"
	"sync"
	"time"

	"oldb/pkg/logger"
)

const (
	CorpusUpdateType = "CORPUS_UPDATE" // corpus created or modified
	CorpusDeleteType = "CORPUS_DELETE" // corpus removed
	CorpusFileType   = "CORPUS_FILE"   // export file written
	PresenceType     = "PRESENCE_UPDATE"
)

// Event is the wire format for every broadcast message.
type Event struct {
	Type     string          `json:"type"`
	CorpusID int             `json:"corpus_id"`
	UserID   int             `json:"user_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type UserStatus struct {
	UserID   int       `json:"user_id"`
	LastSeen time.Time `json:"last_seen"`
}

type Hub struct {
	Rooms      map[int]map[*Client]bool
	Broadcast  chan Event
	Register   chan *Client
	Unregister chan *Client

	mu       sync.Mutex
	presence map[int]map[int]UserStatus // corpus id -> user id -> status
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[int]map[*Client]bool),
		Broadcast:  make(chan Event),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		presence:   make(map[int]map[int]UserStatus),
	}
}

// Publish hands an event to the hub without blocking the caller. Events are
// dropped when the hub is not running, which only happens in tests that do
// not exercise the feed.
func (h *Hub) Publish(evt Event) {
	select {
	case h.Broadcast <- evt:
	case <-time.After(time.Second):
		logger.Sugar.Warnf("Dropped %s event for corpus %d", evt.Type, evt.CorpusID)
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.CorpusID] == nil {
				h.Rooms[client.CorpusID] = make(map[*Client]bool)
				h.presence[client.CorpusID] = make(map[int]UserStatus)
			}
			h.Rooms[client.CorpusID][client] = true
			h.presence[client.CorpusID][client.UserID] = UserStatus{
				UserID: client.UserID, LastSeen: time.Now(),
			}
			h.mu.Unlock()
			h.broadcastPresence(client.CorpusID)

		case client := <-h.Unregister:
			h.mu.Lock()
			corpusID := client.CorpusID
			remaining := 0
			if _, ok := h.Rooms[corpusID][client]; ok {
				delete(h.Rooms[corpusID], client)
				delete(h.presence[corpusID], client.UserID)
				close(client.Send)
				remaining = len(h.Rooms[corpusID])
				if remaining == 0 {
					delete(h.Rooms, corpusID)
					delete(h.presence, corpusID)
					logger.Sugar.Infof("Closed empty room for corpus %d", corpusID)
				}
			}
			h.mu.Unlock()
			if remaining > 0 {
				h.broadcastPresence(corpusID)
			}

		case evt := <-h.Broadcast:
			h.send(evt)
		}
	}
}

func (h *Hub) send(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling event: %v", err)
		return
	}

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.Rooms[evt.CorpusID]))
	for client := range h.Rooms[evt.CorpusID] {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		select {
		case client.Send <- payload:
		default:
			// A full send buffer means the client is lagging; drop it so the
			// hub never blocks.
			logger.Sugar.Warnf("Client %d send buffer full. Unregistering.", client.UserID)
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}

func (h *Hub) broadcastPresence(corpusID int) {
	h.mu.Lock()
	statuses := make([]UserStatus, 0, len(h.presence[corpusID]))
	for _, status := range h.presence[corpusID] {
		statuses = append(statuses, status)
	}
	h.mu.Unlock()

	payload, _ := json.Marshal(statuses)
	h.send(Event{Type: PresenceType, CorpusID: corpusID, Payload: payload})
}
