package sse

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.EventChan:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestManager_EmitToUserOnlyReachesThatUser(t *testing.T) {
	m := startManager(t)

	alice, err := m.Connect("alice")
	require.NoError(t, err)
	bob, err := m.Connect("bob")
	require.NoError(t, err)
	assert.Equal(t, 2, m.ClientCount())

	m.EmitToUser("alice", NewShelfChangedEvent(3))
	m.Emit(NewCatalogChangedEvent(12))

	ev := receive(t, alice)
	assert.Equal(t, EventShelfChanged, ev.Type)
	assert.Equal(t, CountData{Count: 3}, ev.Data)
	assert.Equal(t, EventCatalogChanged, receive(t, alice).Type)

	// Bob only sees the broadcast.
	assert.Equal(t, EventCatalogChanged, receive(t, bob).Type)
	select {
	case ev := <-bob.EventChan:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}

	m.Disconnect(alice.ID)
	m.Disconnect(alice.ID)
	assert.Equal(t, 1, m.ClientCount())

	var ids []string
	for c := range m.Clients() {
		ids = append(ids, c.UserID)
	}
	assert.Equal(t, []string{"bob"}, ids)
}

func TestManager_ShutdownDeliversQueuedEventsAndClosesClients(t *testing.T) {
	m := NewManager(testLogger())
	c, err := m.Connect("alice")
	require.NoError(t, err)

	m.EmitToUser("alice", NewSettingsChangedEvent(domain.NewUserSettings("alice")))
	require.NoError(t, m.Shutdown(context.Background()))

	ev, ok := <-c.EventChan
	require.True(t, ok)
	assert.Equal(t, EventSettingsChanged, ev.Type)

	_, ok = <-c.EventChan
	assert.False(t, ok)

	// Nothing is accepted afterwards.
	m.Emit(NewCatalogChangedEvent(1))
	_, err = m.Connect("bob")
	assert.ErrorIs(t, err, ErrShutdown)
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_ShutdownStopsRunningLoop(t *testing.T) {
	m := NewManager(testLogger())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Start(context.Background())
	}()

	require.Eventually(t, func() bool {
		m.shutdownMu.RLock()
		defer m.shutdownMu.RUnlock()
		return m.started
	}, time.Second, 5*time.Millisecond)

	c, err := m.Connect("alice")
	require.NoError(t, err)

	require.NoError(t, m.Shutdown(context.Background()))
	<-done

	<-c.Done
	assert.Equal(t, 0, m.ClientCount())
}

func TestNewChatEvent(t *testing.T) {
	delta := NewChatEvent("msg-1", "A B", false)
	assert.Equal(t, EventChatDelta, delta.Type)

	done := NewChatEvent("msg-1", "A B C", true)
	assert.Equal(t, EventChatDone, done.Type)
	assert.Equal(t, ChatData{MessageID: "msg-1", Text: "A B C", Done: true}, done.Data)
}

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			return name, data
		}
	}
}

func TestHandler_StreamsUserEvents(t *testing.T) {
	m := startManager(t)
	h := NewHandler(m, func(r *http.Request) (string, bool) {
		user := r.Header.Get("X-User")
		return user, user != ""
	}, testLogger())

	server := httptest.NewServer(h)
	defer server.Close()

	// No user, no stream.
	client := server.Client()
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-User", "alice")

	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	assert.Equal(t, string(EventConnected), name)

	m.EmitToUser("alice", NewShelfChangedEvent(2))
	name, data := readEvent(t, reader)
	assert.Equal(t, string(EventShelfChanged), name)
	assert.Contains(t, data, `"count":2`)

	cancel()
	require.Eventually(t, func() bool { return m.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
