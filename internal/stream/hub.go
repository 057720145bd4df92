// Package stream publishes the annotated camera view and attendance events
// over HTTP.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/amirhossein5/efl/attendance/internal/recognition"
	"golang.org/x/net/websocket"
)

const (
	defaultFrameInterval = 100 * time.Millisecond
	eventBuffer          = 16
)

// Hub holds the latest frame and fans events out to websocket clients.
type Hub struct {
	frameInterval time.Duration

	mu          sync.RWMutex
	frame       []byte
	subscribers map[chan recognition.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		frameInterval: defaultFrameInterval,
		subscribers:   make(map[chan recognition.Event]struct{}),
	}
}

// UpdateImage replaces the latest JPEG frame.
func (h *Hub) UpdateImage(buf []byte) {
	frame := make([]byte, len(buf))
	copy(frame, buf)

	h.mu.Lock()
	h.frame = frame
	h.mu.Unlock()
}

func (h *Hub) Frame() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frame
}

// Publish sends e to every client. Clients that are behind miss it.
func (h *Hub) Publish(e recognition.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) subscribe() (<-chan recognition.Event, func()) {
	ch := make(chan recognition.Event, eventBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
	}
}

// Handler routes /stream and /events.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", h.streamHandler)
	mux.Handle("/events", websocket.Handler(h.eventsHandler))
	return mux
}

func (h *Hub) streamHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	boundary := "\r\n--frame\r\nContent-Type: image/jpeg\r\n\r\n"

	ticker := time.NewTicker(h.frameInterval)
	defer ticker.Stop()

	for {
		if frame := h.Frame(); frame != nil {
			n, err := io.WriteString(w, boundary)
			if err != nil || n != len(boundary) {
				return
			}

			if _, err := w.Write(frame); err != nil {
				return
			}

			n, err = io.WriteString(w, "\r\n")
			if err != nil || n != 2 {
				return
			}

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Hub) eventsHandler(ws *websocket.Conn) {
	events, unsubscribe := h.subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, ws)
		close(closed)
	}()

	for {
		select {
		case <-closed:
			return
		case e := <-events:
			if err := websocket.JSON.Send(ws, e); err != nil {
				slog.Debug("failed to send event", "error", err)
				return
			}
		}
	}
}

// Serve runs an HTTP server for the hub on addr until ctx is done.
func Serve(ctx context.Context, addr string, h *Hub) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting stream server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
