package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare-portal/internal/models"
	"homecare-portal/internal/unread"
)

type recordingSink struct {
	mu      sync.Mutex
	updates [][]models.UnreadEntry
}

func (s *recordingSink) Publish(ctx context.Context, source unread.Source, entries []models.UnreadEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, entries)
	return true
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

func TestHandleFiltersByUser(t *testing.T) {
	sink := &recordingSink{}
	l := NewListener(Config{URL: "ws://example", Token: "tok", UserID: "7"}, sink)

	assert.False(t, l.handle(t.Context(), []byte(`{"event":"unread_summary_updated","userId":8,"summary":[]}`)))
	assert.False(t, l.handle(t.Context(), []byte(`{"event":"something_else","userId":7}`)))
	assert.False(t, l.handle(t.Context(), []byte(`not json`)))
	assert.True(t, l.handle(t.Context(), []byte(`{"event":"unread_summary_updated","userId":7,"summary":[{"appointmentId":1,"counterpartId":2,"count":3}]}`)))

	require.Equal(t, 1, sink.count())
	assert.Equal(t, 3, sink.updates[0][0].Count)
}

func TestEndpoint(t *testing.T) {
	l := NewListener(Config{URL: "https://api.example.com/socket", Token: "a b"}, &recordingSink{})
	got, err := l.endpoint()
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/socket?token=a+b", got)

	l = NewListener(Config{URL: "ftp://x"}, &recordingSink{})
	_, err = l.endpoint()
	assert.Error(t, err)
}

func TestRunReceivesFramesAndStops(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"unread_summary_updated","userId":"u1","summary":[{"counterpartId":"p","count":1}]}`))
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	sink := &recordingSink{}
	l := NewListener(Config{URL: srv.URL, Token: "tok", UserID: "u1", MaxBackoff: 10 * time.Millisecond}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
