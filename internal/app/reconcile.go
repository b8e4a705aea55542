package app

import (
	"context"
	"fmt"

	"reciclagame-service/internal/domain"
)

// ReconcileResult reports what ReconcileBestScore changed.
type ReconcileResult struct {
	Created bool
	Updated bool
}

// ReconcileBestScore folds one new attempt into the stored best score.
// It must be called once per attempt, in attempt order; the stored row then
// always equals the max over every attempt. Ties keep the earlier attempt.
func ReconcileBestScore(ctx context.Context, store BestScoreStore, playerID int64, quizSlug string, score, attemptNumber int) (ReconcileResult, error) {
	current, ok, err := store.BestScore(ctx, playerID, quizSlug)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("load best score: %w", err)
	}

	next := domain.BestQuizScore{
		PlayerID:      playerID,
		QuizSlug:      quizSlug,
		Score:         score,
		AttemptNumber: attemptNumber,
	}
	if !ok {
		if err := store.InsertBestScore(ctx, next); err != nil {
			return ReconcileResult{}, fmt.Errorf("insert best score: %w", err)
		}
		return ReconcileResult{Created: true}, nil
	}

	if score <= current.Score {
		return ReconcileResult{}, nil
	}
	if err := store.UpdateBestScore(ctx, next); err != nil {
		return ReconcileResult{}, fmt.Errorf("update best score: %w", err)
	}
	return ReconcileResult{Updated: true}, nil
}
