package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirhossein5/efl/attendance/internal/recognition"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestUpdateImageCopies(t *testing.T) {
	hub := NewHub()
	buf := []byte("frame-1")
	hub.UpdateImage(buf)
	buf[0] = 'X'

	require.Equal(t, []byte("frame-1"), hub.Frame())
}

func TestStreamServesLatestFrame(t *testing.T) {
	hub := NewHub()
	hub.frameInterval = 10 * time.Millisecond
	hub.UpdateImage([]byte("jpeg-bytes"))

	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	var seen strings.Builder
	for !strings.Contains(seen.String(), "jpeg-bytes") {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		seen.WriteString(line)
	}
	require.Contains(t, seen.String(), "--frame")
	require.Contains(t, seen.String(), "Content-Type: image/jpeg")
}

func TestEventsWebsocket(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	ws, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	hub.Publish(recognition.Event{Name: "alice", Outcome: recognition.OutcomeMarked, At: at})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got recognition.Event
	require.NoError(t, websocket.JSON.Receive(ws, &got))
	require.Equal(t, "alice", got.Name)
	require.Equal(t, recognition.OutcomeMarked, got.Outcome)
	require.True(t, at.Equal(got.At))

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	hub.Publish(recognition.Event{Name: "alice"})
	require.Zero(t, hub.Subscribers())
}
