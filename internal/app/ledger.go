package app

import (
	"context"
	"fmt"
	"time"

	"reciclagame-service/internal/domain"
)

// AttemptLedger appends quiz attempts. It never checks the cap itself;
// callers hold the player lock and check AttemptCount first.
type AttemptLedger struct {
	now func() time.Time
}

func NewAttemptLedger(now func() time.Time) AttemptLedger {
	if now == nil {
		now = time.Now
	}
	return AttemptLedger{now: now}
}

// Count returns how many attempts are logged for the pair.
func (l AttemptLedger) Count(ctx context.Context, store AttemptStore, playerID int64, quizSlug string) (int, error) {
	n, err := store.CountAttempts(ctx, playerID, quizSlug)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

// Record appends an attempt and returns its 1-based ordinal.
func (l AttemptLedger) Record(ctx context.Context, store AttemptStore, playerID int64, quizSlug string, score int) (int, error) {
	prior, err := l.Count(ctx, store, playerID, quizSlug)
	if err != nil {
		return 0, err
	}
	err = store.InsertAttempt(ctx, domain.Attempt{
		PlayerID:  playerID,
		QuizSlug:  quizSlug,
		Score:     score,
		CreatedAt: l.now().UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}
	return prior + 1, nil
}
