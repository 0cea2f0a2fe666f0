package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/service/auth"
	"github.com/phrazzld/questboard-api/internal/store"
)

// Authenticator resolves a bearer credential. *auth.Guard satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Account, error)
}

// TaskLookup resolves tasks. store.TaskStore satisfies it.
type TaskLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// Observer receives session and message counts, e.g. for metrics.
type Observer interface {
	SessionOpened()
	SessionClosed()
	MessageHandled(source, outcome string)
}

type nopObserver struct{}

func (nopObserver) SessionOpened()                {}
func (nopObserver) SessionClosed()                {}
func (nopObserver) MessageHandled(string, string) {}

// Config tunes sessions.
type Config struct {
	SendBuffer      int
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	MaxMessageBytes int64
	// CheckOrigin overrides the upgrader's origin check when set.
	CheckOrigin func(r *http.Request) bool
}

func (c Config) withDefaults() Config {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 8192
	}
	return c
}

// Engine admits websocket sessions to task conversations and fans out
// messages to them.
type Engine struct {
	registry *Registry
	guard    Authenticator
	tasks    TaskLookup
	messages store.MessageStore
	seq      *keyedMutex
	cfg      Config
	upgrader websocket.Upgrader
	observer Observer
	logger   *slog.Logger

	mu      sync.Mutex
	closing bool
	active  sync.WaitGroup
}

// NewEngine creates an Engine. A nil observer is allowed.
func NewEngine(
	registry *Registry,
	guard Authenticator,
	tasks TaskLookup,
	messages store.MessageStore,
	cfg Config,
	observer Observer,
	logger *slog.Logger,
) *Engine {
	cfg = cfg.withDefaults()
	if observer == nil {
		observer = nopObserver{}
	}
	return &Engine{
		registry: registry,
		guard:    guard,
		tasks:    tasks,
		messages: messages,
		seq:      newKeyedMutex(),
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		observer: observer,
		logger:   logger.With(slog.String("component", "chat_engine")),
	}
}

// Post records msg and broadcasts it to every session of its task.
func (e *Engine) Post(ctx context.Context, sender *domain.Account, msg *domain.ChatMessage) error {
	err := e.post(ctx, sender, msg, nil)
	e.observer.MessageHandled("http", outcome(err))
	return err
}

// post holds the task's sequence lock across stamp, record and broadcast so
// that live delivery and history agree on one order per task.
func (e *Engine) post(ctx context.Context, sender *domain.Account, msg *domain.ChatMessage, exclude *Session) error {
	release := e.seq.Lock(msg.TaskID)
	defer release()

	msg.Stamp(time.Now())

	if err := e.messages.Record(ctx, msg); err != nil {
		return err
	}
	if _, err := e.registry.Broadcast(ctx, msg.TaskID, NewMessageFrame(msg, sender.Handle), exclude); err != nil {
		logger.FromContextOrDefault(ctx, e.logger).Error("failed to broadcast message",
			slog.String("message_id", msg.ID.String()),
			slog.String("error", err.Error()))
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "rejected"
	}
	return "delivered"
}

// ServeTask upgrades the request to a websocket and runs a session for the
// task identified by rawTaskID. Handshake failures close the connection with
// a policy violation.
func (e *Engine) ServeTask(w http.ResponseWriter, r *http.Request, rawTaskID, token string) {
	log := logger.FromContextOrDefault(r.Context(), e.logger)

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	ctx := logger.WithLogger(context.Background(), log)
	account, task, reason := e.admit(ctx, rawTaskID, token)
	if reason != "" {
		log.Info("rejected chat session", slog.String("reason", reason))
		rejectConn(conn, reason, e.cfg.WriteTimeout)
		return
	}

	e.mu.Lock()
	if e.closing {
		e.mu.Unlock()
		rejectConnWith(conn, websocket.CloseGoingAway, "server shutting down", e.cfg.WriteTimeout)
		return
	}
	e.active.Add(1)
	e.mu.Unlock()
	defer e.active.Done()

	log = log.With(
		slog.String("task_id", task.ID.String()),
		slog.String("account_id", account.ID.String()))
	ctx = logger.WithLogger(ctx, log)

	session := NewSession(task.ID, account, e.cfg.SendBuffer)
	e.registry.Register(task.ID, session)
	e.observer.SessionOpened()
	log.Info("chat session opened", slog.String("session_id", session.ID().String()))

	if err := session.Send(newConnectionFrame(task.ID, account)); err != nil {
		log.Warn("failed to acknowledge session", slog.String("error", err.Error()))
	}

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- session.writePump(conn, e.cfg.WriteTimeout, e.cfg.PongTimeout*9/10)
	}()

	e.readLoop(ctx, conn, session)

	e.registry.Unregister(task.ID, session)
	session.Close(websocket.CloseNormalClosure, "")
	if err := <-writerDone; err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Debug("session writer stopped", slog.String("error", err.Error()))
	}
	e.observer.SessionClosed()
	log.Info("chat session closed", slog.String("session_id", session.ID().String()))
}

func (e *Engine) admit(ctx context.Context, rawTaskID, token string) (*domain.Account, *domain.Task, string) {
	account, err := e.guard.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrAccountInactive) {
			return nil, nil, "account is inactive"
		}
		return nil, nil, "authentication failed"
	}

	taskID, err := uuid.Parse(strings.TrimSpace(rawTaskID))
	if err != nil {
		return nil, nil, "invalid task id"
	}
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil, "task not found"
		}
		return nil, nil, "task unavailable"
	}
	if !auth.AuthorizeTaskAccess(account, task) {
		return nil, nil, "access denied"
	}
	return account, task, ""
}

func (e *Engine) readLoop(ctx context.Context, conn *websocket.Conn, session *Session) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	conn.SetReadLimit(e.cfg.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(e.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(e.cfg.PongTimeout))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Debug("chat session read failed", slog.String("error", err.Error()))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(e.cfg.PongTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		e.handleInbound(ctx, session, data)
	}
}

func (e *Engine) handleInbound(ctx context.Context, session *Session, data []byte) {
	var in InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		e.replyError(ctx, session, "invalid message format")
		e.observer.MessageHandled("ws", "malformed")
		return
	}

	var body string
	if in.Message != nil {
		body = strings.TrimSpace(*in.Message)
	}
	if body == "" {
		e.observer.MessageHandled("ws", "empty")
		return
	}

	msg, err := domain.NewChatMessage(session.TaskID(), session.Account().ID, body)
	if err != nil {
		e.replyError(ctx, session, errorText(err))
		e.observer.MessageHandled("ws", "rejected")
		return
	}

	err = e.post(ctx, session.Account(), msg, session)
	e.observer.MessageHandled("ws", outcome(err))
	if err != nil {
		logger.FromContextOrDefault(ctx, e.logger).Warn("failed to record chat message",
			slog.String("error", err.Error()))
		e.replyError(ctx, session, errorText(err))
	}
}

func (e *Engine) replyError(ctx context.Context, session *Session, text string) {
	if err := session.Send(newErrorFrame(text)); err != nil {
		logger.FromContextOrDefault(ctx, e.logger).Warn("failed to send error frame",
			slog.String("error", err.Error()))
	}
}

// errorText returns a message safe to show to the sender.
func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return ve.Message
		}
		return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	case errors.Is(err, domain.ErrForbidden):
		return "not a participant of this task"
	case store.IsNotFoundError(err):
		return "task not found"
	}
	return "failed to send message"
}

// Shutdown closes every session with "going away" and waits for them to end.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closing = true
	e.mu.Unlock()

	e.registry.CloseAll(websocket.CloseGoingAway, "server shutting down")

	done := make(chan struct{})
	go func() {
		e.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("chat shutdown: %w", ctx.Err())
	}
}

func rejectConn(conn *websocket.Conn, reason string, timeout time.Duration) {
	rejectConnWith(conn, websocket.ClosePolicyViolation, reason, timeout)
}

func rejectConnWith(conn *websocket.Conn, code int, reason string, timeout time.Duration) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(timeout))
	_ = conn.Close()
}
