package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"reciclagame-service/internal/app"
	"reciclagame-service/internal/domain"
)

const maxBodyBytes = 1 << 20

// RESTHandler exposes the scoring, catalog, player and submission use cases as JSON.
type RESTHandler struct {
	scoring     *app.ScoringService
	catalog     *app.CatalogService
	players     *app.PlayerService
	submissions *app.SubmissionService
	metrics     *Metrics
}

func NewRESTHandler(scoring *app.ScoringService, catalog *app.CatalogService, players *app.PlayerService, submissions *app.SubmissionService, metrics *Metrics) *RESTHandler {
	return &RESTHandler{scoring: scoring, catalog: catalog, players: players, submissions: submissions, metrics: metrics}
}

// Register mounts every API route on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/players", h.registerPlayer)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("GET /api/players/{id}", h.getPlayer)
	mux.HandleFunc("GET /api/players/{id}/points", h.totalPoints)
	mux.HandleFunc("GET /api/players/{id}/quizzes/{slug}/attempts", h.attemptCount)
	mux.HandleFunc("GET /api/players/{id}/history", h.history)
	mux.HandleFunc("GET /api/players/{id}/challenges", h.challengeBoard)
	mux.HandleFunc("GET /api/institutions/{id}/players", h.roster)
	mux.HandleFunc("GET /api/quizzes", h.listQuizzes)
	mux.HandleFunc("GET /api/quizzes/{slug}/questions", h.quizQuestions)
	mux.HandleFunc("POST /api/quizzes/{slug}/submit", h.submitQuiz)
	mux.HandleFunc("POST /api/challenges/complete", h.completeChallenge)
	mux.HandleFunc("POST /api/challenges/submissions", h.submitChallenge)
	mux.HandleFunc("GET /api/players/{id}/challenges/{challengeId}/submission", h.submissionStatus)
	mux.HandleFunc("GET /api/institutions/{id}/submissions/pending", h.pendingSubmissions)
	mux.HandleFunc("PUT /api/submissions/{id}/review", h.reviewSubmission)
}

func (h *RESTHandler) registerPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	player, err := h.players.Register(r.Context(), domain.NewPlayer{
		Name:          req.Name,
		Enrollment:    req.Enrollment,
		Email:         req.Email,
		Password:      req.Password,
		InstitutionID: req.InstitutionID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "player": player})
}

func (h *RESTHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	player, err := h.players.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "player": player})
}

func (h *RESTHandler) getPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	player, err := h.players.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "player": player})
}

func (h *RESTHandler) totalPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	points, err := h.scoring.TotalPoints(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *RESTHandler) attemptCount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	n, err := h.scoring.AttemptCount(r.Context(), id, r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"attempts": n})
}

func (h *RESTHandler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.players.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": items})
}

func (h *RESTHandler) challengeBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	board, err := h.catalog.ChallengeBoard(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "challenges": board.Challenges, "userPoints": board.Points})
}

func (h *RESTHandler) roster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.players.Roster(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "players": entries})
}

func (h *RESTHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.catalog.ListQuizzes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.QuizSummary{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *RESTHandler) quizQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.catalog.QuizQuestions(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (h *RESTHandler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitQuizRequest
	if !decodeAndValidate(w, r, &req) {
		h.metrics.quizOutcome("invalid")
		return
	}
	res, err := h.scoring.SubmitQuiz(r.Context(), domain.QuizSubmission{
		PlayerID: req.PlayerID,
		QuizSlug: r.PathValue("slug"),
		Answers:  req.Answers,
	})
	if err != nil {
		h.metrics.quizOutcome(outcomeOf(err))
		writeError(w, err)
		return
	}
	h.metrics.quizOutcome("accepted")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "score": res.Score, "attempt": res.Attempt})
}

func (h *RESTHandler) completeChallenge(w http.ResponseWriter, r *http.Request) {
	var req completeChallengeRequest
	if !decodeAndValidate(w, r, &req) {
		h.metrics.challengeOutcome("invalid")
		return
	}
	res, err := h.scoring.CompleteChallenge(r.Context(), req.PlayerID, req.ChallengeID)
	if err != nil {
		h.metrics.challengeOutcome(outcomeOf(err))
		writeError(w, err)
		return
	}
	if res.AlreadyDone {
		h.metrics.challengeOutcome("repeated")
	} else {
		h.metrics.challengeOutcome("completed")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"pointsAwarded":    res.PointsAwarded,
		"progressPercent":  res.ProgressPercent,
		"alreadyCompleted": res.AlreadyDone,
	})
}

func (h *RESTHandler) submitChallenge(w http.ResponseWriter, r *http.Request) {
	var req submitChallengeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	sub, err := h.submissions.Submit(r.Context(), domain.NewSubmission{
		PlayerID:    req.PlayerID,
		ChallengeID: req.ChallengeID,
		Text:        req.Text,
		Photos:      req.Photos,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "submission": sub})
}

func (h *RESTHandler) submissionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sub, err := h.submissions.Status(r.Context(), id, r.PathValue("challengeId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "submission": sub})
}

func (h *RESTHandler) pendingSubmissions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pending, err := h.submissions.Pending(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if pending == nil {
		pending = []domain.PendingSubmission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "submissions": pending})
}

func (h *RESTHandler) reviewSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.submissions.Review(r.Context(), id, domain.SubmissionStatus(req.Decision))
	if err != nil {
		h.metrics.reviewOutcome(outcomeOf(err))
		writeError(w, err)
		return
	}
	h.metrics.reviewOutcome(req.Decision)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "submission": res.Submission, "completion": res.Completion})
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrAttemptCapExceeded):
		return "capped"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrSubmissionReviewed):
		return "conflict"
	default:
		return "error"
	}
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid JSON body"})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "validation failed", Errors: validationErrors(err)})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid " + name})
		return 0, false
	}
	return id, true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrAttemptCapExceeded):
		return http.StatusConflict, "attempt limit of " + strconv.Itoa(domain.MaxQuizAttempts) + " reached for this quiz"
	case errors.Is(err, domain.ErrDuplicatePlayer),
		errors.Is(err, domain.ErrSubmissionPending),
		errors.Is(err, domain.ErrSubmissionReviewed),
		errors.Is(err, domain.ErrChallengeCompleted):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "internal error, please retry"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
