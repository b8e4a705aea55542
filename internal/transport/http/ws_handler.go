package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"reciclagame-service/internal/app"
	"reciclagame-service/internal/domain"
)

type WSHandler struct {
	scoring  *app.ScoringService
	metrics  *Metrics
	upgrader websocket.Upgrader
}

func NewWSHandler(scoring *app.ScoringService, metrics *Metrics) *WSHandler {
	return &WSHandler{
		scoring: scoring,
		metrics: metrics,
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

type submitQuizPayload struct {
	QuizSlug string   `json:"quizSlug" validate:"required"`
	Answers  []string `json:"answers" validate:"omitempty,dive,max=1"`
}

type completeChallengePayload struct {
	ChallengeID string `json:"challengeId" validate:"required"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
}

// ServeWS streams points updates for one player and accepts quiz submissions
// and challenge completions on the same connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID, err := strconv.ParseInt(r.URL.Query().Get("playerId"), 10, 64)
	if err != nil || playerID <= 0 {
		http.Error(w, "missing or invalid playerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	points, err := h.scoring.TotalPoints(ctx, playerID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: messageFor(err)}})
		return
	}

	updates, cancel, err := h.scoring.Subscribe(ctx, playerID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: messageFor(err)}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Int64("player_id", playerID).Msg("ws write")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "points", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "welcome", Payload: points}

	relayInbound(
		func() (inboundMessage, error) {
			var inbound inboundMessage
			err := conn.ReadJSON(&inbound)
			return inbound, err
		},
		func(in inboundMessage) outboundMessage[any] { return h.handle(r, playerID, in) },
		send,
		writerDone,
	)

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// relayInbound answers each inbound message until the read fails or the
// writer has gone away.
func relayInbound(
	next func() (inboundMessage, error),
	handle func(inboundMessage) outboundMessage[any],
	send chan<- outboundMessage[any],
	writerDone <-chan struct{},
) {
	for {
		inbound, err := next()
		if err != nil {
			return
		}
		select {
		case send <- handle(inbound):
		case <-writerDone:
			return
		}
	}
}

func (h *WSHandler) handle(r *http.Request, playerID int64, inbound inboundMessage) outboundMessage[any] {
	switch inbound.Type {
	case "submitQuiz":
		var payload submitQuizPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return wsError("invalid submitQuiz payload")
		}
		if err := validate.Struct(payload); err != nil {
			h.metrics.quizOutcome("invalid")
			return wsValidationError(err)
		}
		res, err := h.scoring.SubmitQuiz(r.Context(), domain.QuizSubmission{
			PlayerID: playerID,
			QuizSlug: payload.QuizSlug,
			Answers:  payload.Answers,
		})
		if err != nil {
			h.metrics.quizOutcome(outcomeOf(err))
			return wsError(messageFor(err))
		}
		h.metrics.quizOutcome("accepted")
		return outboundMessage[any]{Type: "quizResult", Payload: res}
	case "completeChallenge":
		var payload completeChallengePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return wsError("invalid completeChallenge payload")
		}
		if err := validate.Struct(payload); err != nil {
			h.metrics.challengeOutcome("invalid")
			return wsValidationError(err)
		}
		res, err := h.scoring.CompleteChallenge(r.Context(), playerID, payload.ChallengeID)
		if err != nil {
			h.metrics.challengeOutcome(outcomeOf(err))
			return wsError(messageFor(err))
		}
		if res.AlreadyDone {
			h.metrics.challengeOutcome("repeated")
		} else {
			h.metrics.challengeOutcome("completed")
		}
		return outboundMessage[any]{Type: "challengeResult", Payload: res}
	default:
		return wsError("unsupported message type")
	}
}

func wsError(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

func wsValidationError(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "validation failed", Errors: validationErrors(err)}}
}

func messageFor(err error) string {
	_, msg := statusFor(err)
	return msg
}
