package app

import (
	"context"
	"fmt"

	"reciclagame-service/internal/domain"
)

// TotalPoints derives a player's aggregate from the best-score and
// completion tables alone.
func TotalPoints(ctx context.Context, src PointsSource, playerID int64) (domain.PointsBreakdown, error) {
	challenges, err := src.SumChallengePoints(ctx, playerID)
	if err != nil {
		return domain.PointsBreakdown{}, fmt.Errorf("sum challenge points: %w", err)
	}
	quizzes, err := src.SumBestScores(ctx, playerID)
	if err != nil {
		return domain.PointsBreakdown{}, fmt.Errorf("sum best scores: %w", err)
	}
	return domain.PointsBreakdown{
		FromChallenges: challenges,
		FromQuizzes:    quizzes,
		Total:          challenges + quizzes,
	}, nil
}

// ProgressPercent is floor(100*completed/total), or 0 with no challenges.
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}
