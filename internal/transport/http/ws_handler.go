package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"learnassess/internal/app"
	"learnassess/internal/domain"
	"learnassess/internal/engine"
)

// Message types exchanged over the live attempt socket.
const (
	msgSelect   = "select"
	msgGoto     = "goto"
	msgNext     = "next"
	msgPrevious = "previous"
	msgSubmit   = "submit"

	msgStarted   = "started"
	msgState     = "state"
	msgCompleted = "completed"
	msgError     = "error"

	// msgClose never reaches the wire; it tells the writer to close the socket.
	msgClose = ""
)

type WSHandler struct {
	attempts *app.AttemptService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		attempts: attempts,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionIndex int `json:"questionIndex"`
	OptionIndex   int `json:"optionIndex"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type startedPayload struct {
	Quiz  domain.Quiz     `json:"quiz"`
	State engine.Snapshot `json:"state"`
}

type completedPayload struct {
	Result    domain.Result `json:"result"`
	Persisted bool          `json:"persisted"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS starts a server-side attempt for the authenticated user and streams
// its state until it completes. Dropping the connection abandons the attempt.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		writeError(w, http.StatusBadRequest, "missing quizId")
		return
	}

	attempt, err := h.attempts.Start(r.Context(), user.ID, quizID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer h.attempts.Abandon(attempt.ID())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	updates, cancel := attempt.Subscribe()
	initial := <-updates

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if msg.Type == msgClose {
				deadline := time.Now().Add(time.Second)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt finished"), deadline)
				_ = conn.Close()
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", "attempt", attempt.ID(), "err", err)
				_ = conn.Close()
				return
			}
		}
	}()

	push(outboundMessage[any]{Type: msgStarted, Payload: startedPayload{Quiz: attempt.Quiz().Public(), State: initial}})

	go func() {
		defer close(updatesDone)
		for snap := range updates {
			if !push(outboundMessage[any]{Type: msgState, Payload: snap}) {
				return
			}
		}
		if outcome, ok := attempt.Outcome(); ok {
			if push(outboundMessage[any]{Type: msgCompleted, Payload: completedPayload{Result: outcome.Result, Persisted: outcome.Persisted}}) {
				push(outboundMessage[any]{Type: msgClose})
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.apply(r.Context(), attempt, inbound); err != nil {
			push(outboundMessage[any]{Type: msgError, Payload: errorPayload{Message: err.Error()}})
		}
	}

	attempt.Close()
	cancel()
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) apply(ctx context.Context, attempt *engine.Attempt, inbound inboundMessage) error {
	switch inbound.Type {
	case msgSelect:
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return domain.NewValidationError("payload", "invalid select payload")
		}
		return attempt.SelectAnswer(payload.QuestionIndex, payload.OptionIndex)
	case msgGoto:
		var payload gotoPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return domain.NewValidationError("payload", "invalid goto payload")
		}
		attempt.GoToQuestion(payload.Index)
	case msgNext:
		attempt.Next()
	case msgPrevious:
		attempt.Previous()
	case msgSubmit:
		attempt.Submit(ctx)
	default:
		return domain.NewValidationError("type", "unsupported message type")
	}
	return nil
}
