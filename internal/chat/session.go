package chat

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/questboard-api/internal/domain"
)

// Session is one connected participant of a task conversation.
type Session struct {
	id      uuid.UUID
	taskID  uuid.UUID
	account *domain.Account
	out     chan []byte
	done    chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeCode int
	closeText string
}

// NewSession creates a session with an outbound queue of buffer frames.
func NewSession(taskID uuid.UUID, account *domain.Account, buffer int) *Session {
	if buffer <= 0 {
		buffer = 1
	}
	return &Session{
		id:      uuid.New(),
		taskID:  taskID,
		account: account,
		out:     make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) TaskID() uuid.UUID { return s.taskID }

func (s *Session) Account() *domain.Account { return s.account }

// Outbound exposes the encoded frames waiting to be written.
func (s *Session) Outbound() <-chan []byte { return s.out }

// Done is closed by Close.
func (s *Session) Done() <-chan struct{} { return s.done }

// Send encodes frame and queues it without blocking. A full queue or a
// closed session is a transport error.
func (s *Session) Send(frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return s.enqueue(data)
}

func (s *Session) enqueue(data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("%w: session closed", domain.ErrTransport)
	}
	select {
	case s.out <- data:
		return nil
	default:
		return fmt.Errorf("%w: send buffer full", domain.ErrTransport)
	}
}

// Close marks the session closed. The writer sends a close frame with code
// and text. Only the first call has an effect.
func (s *Session) Close(code int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.closeCode = code
	s.closeText = text
	close(s.done)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// writePump is the only goroutine writing to conn. It returns when the
// session is closed or a write fails, and closes conn on the way out.
func (s *Session) writePump(conn *websocket.Conn, writeTimeout, pingInterval time.Duration) error {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case data := <-s.out:
			if err := writeText(conn, data, writeTimeout); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return err
			}
		case <-s.done:
			if err := s.drain(conn, writeTimeout); err != nil {
				return err
			}
			s.mu.RLock()
			code, text := s.closeCode, s.closeText
			s.mu.RUnlock()
			return conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, text), time.Now().Add(writeTimeout))
		}
	}
}

// drain writes the frames queued before Close.
func (s *Session) drain(conn *websocket.Conn, writeTimeout time.Duration) error {
	for {
		select {
		case data := <-s.out:
			if err := writeText(conn, data, writeTimeout); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func writeText(conn *websocket.Conn, data []byte, timeout time.Duration) error {
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
