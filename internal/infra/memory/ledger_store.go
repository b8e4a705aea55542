package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"reciclagame-service/internal/app"
	"reciclagame-service/internal/domain"
)

var errReadOnly = errors.New("memory ledger: write in read-only view")

type pairKey struct {
	playerID int64
	ref      string
}

type ledgerState struct {
	nextPlayerID int64
	players      map[int64]domain.Player
	attempts     []domain.Attempt
	best         map[pairKey]domain.BestQuizScore
	completions  map[pairKey]domain.ChallengeCompletion
	challenges   map[string]domain.Challenge

	nextSubmissionID int64
	submissions      map[int64]domain.ChallengeSubmission
}

func (s *ledgerState) clone() *ledgerState {
	out := &ledgerState{
		nextPlayerID: s.nextPlayerID,
		players:      make(map[int64]domain.Player, len(s.players)),
		attempts:     make([]domain.Attempt, len(s.attempts)),
		best:         make(map[pairKey]domain.BestQuizScore, len(s.best)),
		completions:  make(map[pairKey]domain.ChallengeCompletion, len(s.completions)),
		challenges:   make(map[string]domain.Challenge, len(s.challenges)),

		nextSubmissionID: s.nextSubmissionID,
		submissions:      make(map[int64]domain.ChallengeSubmission, len(s.submissions)),
	}
	for k, v := range s.players {
		out.players[k] = v
	}
	copy(out.attempts, s.attempts)
	for k, v := range s.best {
		out.best[k] = v
	}
	for k, v := range s.completions {
		out.completions[k] = v
	}
	for k, v := range s.challenges {
		out.challenges[k] = v
	}
	// photos are never mutated after insert, so sharing the slices is safe
	for k, v := range s.submissions {
		out.submissions[k] = v
	}
	return out
}

// LedgerStore is an in-memory implementation of app.LedgerStore.
// Transactions are serialized and work on a copy that replaces the live
// state only on success.
type LedgerStore struct {
	mu    sync.RWMutex
	state *ledgerState
}

func NewLedgerStore(challenges ...domain.Challenge) *LedgerStore {
	st := &ledgerState{
		nextPlayerID: 1,
		players:      make(map[int64]domain.Player),
		best:         make(map[pairKey]domain.BestQuizScore),
		completions:  make(map[pairKey]domain.ChallengeCompletion),
		challenges:   make(map[string]domain.Challenge),

		nextSubmissionID: 1,
		submissions:      make(map[int64]domain.ChallengeSubmission),
	}
	for _, c := range challenges {
		st.challenges[c.ID] = c
	}
	return &LedgerStore{state: st}
}

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(ctx, &ledgerTx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *LedgerStore) View(ctx context.Context, fn func(ctx context.Context, tx app.LedgerTx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &ledgerTx{st: s.state, readOnly: true})
}

// Attempts returns a copy of the attempt log, oldest first.
func (s *LedgerStore) Attempts() []domain.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Attempt, len(s.state.attempts))
	copy(out, s.state.attempts)
	return out
}

type ledgerTx struct {
	st       *ledgerState
	readOnly bool
}

func (t *ledgerTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *ledgerTx) CountAttempts(_ context.Context, playerID int64, quizSlug string) (int, error) {
	n := 0
	for _, a := range t.st.attempts {
		if a.PlayerID == playerID && a.QuizSlug == quizSlug {
			n++
		}
	}
	return n, nil
}

func (t *ledgerTx) InsertAttempt(_ context.Context, attempt domain.Attempt) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.attempts = append(t.st.attempts, attempt)
	return nil
}

func (t *ledgerTx) BestScore(_ context.Context, playerID int64, quizSlug string) (domain.BestQuizScore, bool, error) {
	b, ok := t.st.best[pairKey{playerID, quizSlug}]
	return b, ok, nil
}

func (t *ledgerTx) InsertBestScore(_ context.Context, best domain.BestQuizScore) error {
	if err := t.writable(); err != nil {
		return err
	}
	key := pairKey{best.PlayerID, best.QuizSlug}
	if _, ok := t.st.best[key]; ok {
		return errors.New("memory ledger: best score already exists")
	}
	t.st.best[key] = best
	return nil
}

func (t *ledgerTx) UpdateBestScore(_ context.Context, best domain.BestQuizScore) error {
	if err := t.writable(); err != nil {
		return err
	}
	key := pairKey{best.PlayerID, best.QuizSlug}
	if _, ok := t.st.best[key]; !ok {
		return errors.New("memory ledger: best score missing")
	}
	t.st.best[key] = best
	return nil
}

func (t *ledgerTx) ListBestScores(_ context.Context, playerID int64) ([]domain.BestQuizScore, error) {
	var out []domain.BestQuizScore
	for k, v := range t.st.best {
		if k.playerID == playerID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuizSlug < out[j].QuizSlug })
	return out, nil
}

func (t *ledgerTx) Completion(_ context.Context, playerID int64, challengeID string) (domain.ChallengeCompletion, bool, error) {
	c, ok := t.st.completions[pairKey{playerID, challengeID}]
	return c, ok, nil
}

func (t *ledgerTx) SaveCompletion(_ context.Context, completion domain.ChallengeCompletion) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.completions[pairKey{completion.PlayerID, completion.ChallengeID}] = completion
	return nil
}

func (t *ledgerTx) CountCompleted(_ context.Context, playerID int64) (int, error) {
	n := 0
	for k, v := range t.st.completions {
		if k.playerID == playerID && v.Completed {
			n++
		}
	}
	return n, nil
}

func (t *ledgerTx) ListCompletions(_ context.Context, playerID int64) ([]domain.ChallengeCompletion, error) {
	var out []domain.ChallengeCompletion
	for k, v := range t.st.completions {
		if k.playerID == playerID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChallengeID < out[j].ChallengeID })
	return out, nil
}

func (t *ledgerTx) Challenge(_ context.Context, id string) (domain.Challenge, error) {
	c, ok := t.st.challenges[id]
	if !ok {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	return c, nil
}

func (t *ledgerTx) ListChallenges(_ context.Context) ([]domain.Challenge, error) {
	out := make([]domain.Challenge, 0, len(t.st.challenges))
	for _, c := range t.st.challenges {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *ledgerTx) CountChallenges(_ context.Context) (int, error) {
	return len(t.st.challenges), nil
}

func (t *ledgerTx) SumBestScores(_ context.Context, playerID int64) (int, error) {
	sum := 0
	for k, v := range t.st.best {
		if k.playerID == playerID {
			sum += v.Score
		}
	}
	return sum, nil
}

func (t *ledgerTx) SumChallengePoints(_ context.Context, playerID int64) (int, error) {
	sum := 0
	for k, v := range t.st.completions {
		if k.playerID == playerID && v.Completed {
			sum += v.PointsAwarded
		}
	}
	return sum, nil
}

func (t *ledgerTx) Player(_ context.Context, id int64) (domain.Player, error) {
	p, ok := t.st.players[id]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return p, nil
}

// LockPlayer needs no extra locking: WithinTx already holds the store lock.
func (t *ledgerTx) LockPlayer(ctx context.Context, id int64) (domain.Player, error) {
	return t.Player(ctx, id)
}

func (t *ledgerTx) PlayerExists(_ context.Context, email, enrollment string) (bool, error) {
	for _, p := range t.st.players {
		if p.Email == email || p.Enrollment == enrollment {
			return true, nil
		}
	}
	return false, nil
}

func (t *ledgerTx) PlayerByLogin(_ context.Context, email, enrollment string) (domain.Player, error) {
	var (
		found domain.Player
		ok    bool
	)
	for _, p := range t.st.players {
		if p.Email != email && p.Enrollment != enrollment {
			continue
		}
		if !ok || p.ID < found.ID {
			found, ok = p, true
		}
	}
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return found, nil
}

func (t *ledgerTx) InsertPlayer(_ context.Context, player *domain.Player) error {
	if err := t.writable(); err != nil {
		return err
	}
	player.ID = t.st.nextPlayerID
	t.st.nextPlayerID++
	t.st.players[player.ID] = *player
	return nil
}

func (t *ledgerTx) PlayersByInstitution(_ context.Context, institutionID int64) ([]domain.Player, error) {
	var out []domain.Player
	for _, p := range t.st.players {
		if p.InstitutionID != nil && *p.InstitutionID == institutionID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *ledgerTx) SetPlayerPoints(_ context.Context, id int64, points int) error {
	if err := t.writable(); err != nil {
		return err
	}
	p, ok := t.st.players[id]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	p.Points = points
	t.st.players[id] = p
	return nil
}

func (t *ledgerTx) SetPlayerProgress(_ context.Context, id int64, levelProgress int) error {
	if err := t.writable(); err != nil {
		return err
	}
	p, ok := t.st.players[id]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	p.LevelProgress = levelProgress
	t.st.players[id] = p
	return nil
}

func (t *ledgerTx) InsertSubmission(_ context.Context, submission *domain.ChallengeSubmission) error {
	if err := t.writable(); err != nil {
		return err
	}
	submission.ID = t.st.nextSubmissionID
	t.st.nextSubmissionID++
	stored := *submission
	stored.Photos = append([]string{}, submission.Photos...)
	t.st.submissions[stored.ID] = stored
	return nil
}

// LockSubmission needs no extra locking: WithinTx already holds the store lock.
func (t *ledgerTx) LockSubmission(_ context.Context, id int64) (domain.ChallengeSubmission, error) {
	sub, ok := t.st.submissions[id]
	if !ok {
		return domain.ChallengeSubmission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (t *ledgerTx) LatestSubmission(_ context.Context, playerID int64, challengeID string) (domain.ChallengeSubmission, bool, error) {
	var (
		latest domain.ChallengeSubmission
		ok     bool
	)
	for _, sub := range t.st.submissions {
		if sub.PlayerID != playerID || sub.ChallengeID != challengeID {
			continue
		}
		if !ok || sub.ID > latest.ID {
			latest, ok = sub, true
		}
	}
	return latest, ok, nil
}

func (t *ledgerTx) PendingSubmissions(_ context.Context, institutionID int64) ([]domain.PendingSubmission, error) {
	var out []domain.PendingSubmission
	for _, sub := range t.st.submissions {
		if sub.Status != domain.SubmissionPending {
			continue
		}
		player, ok := t.st.players[sub.PlayerID]
		if !ok || player.InstitutionID == nil || *player.InstitutionID != institutionID {
			continue
		}
		challenge := t.st.challenges[sub.ChallengeID]
		out = append(out, domain.PendingSubmission{
			ChallengeSubmission: sub,
			PlayerName:          player.Name,
			ChallengeTitle:      challenge.Title,
			ChallengePoints:     challenge.Points,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *ledgerTx) SetSubmissionStatus(_ context.Context, id int64, status domain.SubmissionStatus, reviewedAt time.Time) error {
	if err := t.writable(); err != nil {
		return err
	}
	sub, ok := t.st.submissions[id]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	sub.Status = status
	sub.ReviewedAt = &reviewedAt
	t.st.submissions[id] = sub
	return nil
}
