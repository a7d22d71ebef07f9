package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub(nil, nil)
	room := RoomKey("s1", "7")

	client := hub.AddClient(room, nil, ConnInfo{SessionID: "s1"})
	require.Equal(t, 1, hub.Rooms())
	assert.Equal(t, 1, hub.RoomSize(room))

	hub.RemoveClient(room, client)
	assert.Zero(t, hub.Rooms())
}

func TestBroadcastDropsFailingClients(t *testing.T) {
	hub := NewHub(nil, nil)
	room := RoomKey("s1", "7")
	hub.AddClient(room, nil, ConnInfo{SessionID: "s1"})

	hub.Broadcast(room, map[string]string{"type": "ping"})
	assert.Zero(t, hub.RoomSize(room))
}

func TestRoomKey(t *testing.T) {
	assert.Equal(t, "abc/42", RoomKey("abc", "42"))
}
