// Package notify pushes terminal task status to whoever is listening.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// MessageTypeTaskStatus is the only message this package sends
const MessageTypeTaskStatus = "task_status"

const defaultWriteWait = 10 * time.Second

// Notifier receives terminal task status.
type Notifier interface {
	Notify(ctx context.Context, status models.TaskStatus) error
}

// Message is the JSON envelope written to the socket.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LogNotifier writes the status to the debug log. The password is never
// logged, only whether one was recovered.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, status models.TaskStatus) error {
	debug.Info("Task %s reached %s (stage %d/%d, elapsed %v, recovered: %v, error: %s)",
		status.TaskID, status.State, status.StageIndex+1, status.StageCount,
		status.Elapsed.Round(time.Second), status.Password != "", status.ErrorKind)
	return nil
}

// WebSocketNotifier sends status messages over a lazily dialed websocket.
type WebSocketNotifier struct {
	url       string
	writeWait time.Duration
	dialer    websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketNotifier creates a notifier for url. Nothing is dialed until
// the first Notify.
func NewWebSocketNotifier(url string) *WebSocketNotifier {
	return &WebSocketNotifier{
		url:       url,
		writeWait: defaultWriteWait,
		dialer: websocket.Dialer{
			HandshakeTimeout: defaultWriteWait,
		},
	}
}

// Notify writes status, redialing once if the existing connection fails.
func (w *WebSocketNotifier) Notify(ctx context.Context, status models.TaskStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal task status: %w", err)
	}
	msg := Message{Type: MessageTypeTaskStatus, Payload: payload}

	w.mu.Lock()
	defer w.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if w.conn == nil {
			if err = w.dial(ctx); err != nil {
				continue
			}
		}
		if err = w.write(msg); err == nil {
			return nil
		}
		debug.Warning("Status write for task %s failed: %v", status.TaskID, err)
		w.conn.Close()
		w.conn = nil
	}
	return fmt.Errorf("failed to send status for task %s: %w", status.TaskID, err)
}

func (w *WebSocketNotifier) dial(ctx context.Context) error {
	conn, resp, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		if resp != nil {
			debug.Error("WebSocket dial to %s failed with status: %d", w.url, resp.StatusCode)
		}
		return fmt.Errorf("failed to dial %s: %w", w.url, err)
	}
	debug.Info("Connected status notifier to %s", w.url)
	w.conn = conn
	return nil
}

func (w *WebSocketNotifier) write(msg Message) error {
	if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeWait)); err != nil {
		return err
	}
	return w.conn.WriteJSON(msg)
}

// Close sends a close frame and drops the connection.
func (w *WebSocketNotifier) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(w.writeWait))
	err := w.conn.Close()
	w.conn = nil
	return err
}

// Multi fans a status out to several notifiers and returns the first error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, status models.TaskStatus) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, status); err != nil && first == nil {
			first = err
		}
	}
	return first
}
