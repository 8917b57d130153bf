package socket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to read events from a WebSocket connection with a timeout.
func readEvent(t *testing.T, conn *websocket.Conn) Event {
	var evt Event
	// Set a deadline to avoid tests hanging forever.
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	err = json.Unmarshal(p, &evt)
	require.NoError(t, err, "Failed to unmarshal Event JSON")
	return evt
}

func TestHubIntegration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// For simplicity, the user id comes straight from the query.
		userID, _ := strconv.Atoi(r.URL.Query().Get("user_id"))
		ServeWs(hub, w, r, userID)
	}))
	defer server.Close()

	// Convert http:// to ws://
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	// Client 1 joins the room for corpus 7.
	conn1, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?corpusId=7&user_id=1", nil)
	require.NoError(t, err, "Client 1 failed to connect")
	defer conn1.Close()

	// Client 1 receives a presence update for its own arrival.
	presence := readEvent(t, conn1)
	assert.Equal(t, PresenceType, presence.Type)
	assert.Equal(t, 7, presence.CorpusID)

	// Client 2 joins the same room.
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?corpusId=7&user_id=2", nil)
	require.NoError(t, err, "Client 2 failed to connect")
	defer conn2.Close()

	// Client 2 receives its own presence event.
	_ = readEvent(t, conn2)

	// Client 1 sees the updated room membership.
	presence = readEvent(t, conn1)
	assert.Equal(t, PresenceType, presence.Type)
	var statuses []UserStatus
	require.NoError(t, json.Unmarshal(presence.Payload, &statuses))
	assert.Len(t, statuses, 2, "Should be two users in the room")
	userIDs := []int{statuses[0].UserID, statuses[1].UserID}
	assert.Contains(t, userIDs, 1)
	assert.Contains(t, userIDs, 2)

	// A corpus update published for corpus 7 reaches both clients.
	hub.Publish(Event{Type: CorpusUpdateType, CorpusID: 7, UserID: 2})

	evt := readEvent(t, conn1)
	assert.Equal(t, CorpusUpdateType, evt.Type)
	assert.Equal(t, 7, evt.CorpusID)
	assert.Equal(t, 2, evt.UserID)

	evt = readEvent(t, conn2)
	assert.Equal(t, CorpusUpdateType, evt.Type)

	// Events for another corpus are not delivered to this room.
	hub.Publish(Event{Type: CorpusDeleteType, CorpusID: 99, UserID: 1})
	hub.Publish(Event{Type: CorpusFileType, CorpusID: 7, UserID: 1})

	evt = readEvent(t, conn1)
	assert.Equal(t, CorpusFileType, evt.Type)
	assert.Equal(t, 7, evt.CorpusID)
}

func TestServeWsRejectsMissingCorpusID(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, 1)
	}))
	defer server.Close()

	for _, query := range []string{"", "?corpusId=abc", "?corpusId=0"} {
		resp, err := http.Get(server.URL + "/ws" + query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, fmt.Sprintf("query %q", query))
	}
}
