package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reciclagame-service/internal/domain"
)

// ScoringService contains the quiz and challenge scoring use cases.
type ScoringService struct {
	store   LedgerStore
	quizzes QuizRepository
	feed    PointsFeed
	ledger  AttemptLedger
	now     func() time.Time
}

func NewScoringService(store LedgerStore, quizzes QuizRepository, feed PointsFeed) *ScoringService {
	return NewScoringServiceWithClock(store, quizzes, feed, time.Now)
}

// NewScoringServiceWithClock stamps attempts, completions and updates with now.
func NewScoringServiceWithClock(store LedgerStore, quizzes QuizRepository, feed PointsFeed, now func() time.Time) *ScoringService {
	return &ScoringService{
		store:   store,
		quizzes: quizzes,
		feed:    feed,
		ledger:  NewAttemptLedger(now),
		now:     now,
	}
}

// SubmitQuiz grades a quiz attempt, logs it, folds it into the best score and
// refreshes the player's cached points. Everything after the quiz lookup runs
// in one transaction with the player row locked, so the cap cannot be raced.
func (s *ScoringService) SubmitQuiz(ctx context.Context, sub domain.QuizSubmission) (domain.SubmissionResult, error) {
	sub.QuizSlug = strings.TrimSpace(sub.QuizSlug)
	if sub.PlayerID <= 0 || sub.QuizSlug == "" {
		return domain.SubmissionResult{}, domain.ErrInvalidInput
	}

	quiz, err := s.quizzes.GetQuiz(ctx, sub.QuizSlug)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	var (
		result   domain.SubmissionResult
		total    int
		progress int
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		player, err := tx.LockPlayer(ctx, sub.PlayerID)
		if err != nil {
			return err
		}
		progress = player.LevelProgress

		prior, err := s.ledger.Count(ctx, tx, sub.PlayerID, quiz.Slug)
		if err != nil {
			return err
		}
		if prior >= domain.MaxQuizAttempts {
			return domain.ErrAttemptCapExceeded
		}

		score := ScoreAnswers(quiz.Questions, sub.Answers)

		attempt, err := s.ledger.Record(ctx, tx, sub.PlayerID, quiz.Slug, score)
		if err != nil {
			return err
		}

		if _, err := ReconcileBestScore(ctx, tx, sub.PlayerID, quiz.Slug, score, attempt); err != nil {
			return err
		}

		points, err := TotalPoints(ctx, tx, sub.PlayerID)
		if err != nil {
			return err
		}
		if err := tx.SetPlayerPoints(ctx, sub.PlayerID, points.Total); err != nil {
			return err
		}

		result = domain.SubmissionResult{Score: score, Attempt: attempt}
		total = points.Total
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrAttemptCapExceeded) && !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Int64("player_id", sub.PlayerID).Str("quiz", sub.QuizSlug).Msg("quiz submission failed")
		}
		return domain.SubmissionResult{}, err
	}

	s.publish(ctx, sub.PlayerID, total, progress)
	return result, nil
}

// CompleteChallenge marks a challenge done for a player. Repeating it awards
// nothing and leaves the stored points unchanged.
func (s *ScoringService) CompleteChallenge(ctx context.Context, playerID int64, challengeID string) (domain.CompletionResult, error) {
	challengeID = strings.TrimSpace(challengeID)
	if playerID <= 0 || challengeID == "" {
		return domain.CompletionResult{}, domain.ErrInvalidInput
	}

	var (
		result domain.CompletionResult
		total  int
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		var err error
		result, total, err = s.completeInTx(ctx, tx, playerID, challengeID)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Int64("player_id", playerID).Str("challenge", challengeID).Msg("challenge completion failed")
		}
		return domain.CompletionResult{}, err
	}

	if !result.AlreadyDone {
		s.publish(ctx, playerID, total, result.ProgressPercent)
	}
	return result, nil
}

// completeInTx marks the challenge done unless it already is, then refreshes
// the player's progress and cached points. It returns the new total.
func (s *ScoringService) completeInTx(ctx context.Context, tx LedgerTx, playerID int64, challengeID string) (domain.CompletionResult, int, error) {
	var result domain.CompletionResult
	if _, err := tx.LockPlayer(ctx, playerID); err != nil {
		return result, 0, err
	}
	challenge, err := tx.Challenge(ctx, challengeID)
	if err != nil {
		return result, 0, err
	}

	existing, ok, err := tx.Completion(ctx, playerID, challengeID)
	if err != nil {
		return result, 0, err
	}
	if ok && existing.Completed {
		result.AlreadyDone = true
		result.PointsAwarded = existing.PointsAwarded
	} else {
		err := tx.SaveCompletion(ctx, domain.ChallengeCompletion{
			PlayerID:      playerID,
			ChallengeID:   challengeID,
			Completed:     true,
			PointsAwarded: challenge.Points,
			CompletedAt:   s.now().UTC(),
		})
		if err != nil {
			return result, 0, err
		}
		result.PointsAwarded = challenge.Points
	}

	completed, err := tx.CountCompleted(ctx, playerID)
	if err != nil {
		return result, 0, err
	}
	all, err := tx.CountChallenges(ctx)
	if err != nil {
		return result, 0, err
	}
	result.ProgressPercent = ProgressPercent(completed, all)
	if err := tx.SetPlayerProgress(ctx, playerID, result.ProgressPercent); err != nil {
		return result, 0, err
	}

	points, err := TotalPoints(ctx, tx, playerID)
	if err != nil {
		return result, 0, err
	}
	if err := tx.SetPlayerPoints(ctx, playerID, points.Total); err != nil {
		return result, 0, err
	}
	return result, points.Total, nil
}

// TotalPoints recomputes the aggregate for a player from scratch.
func (s *ScoringService) TotalPoints(ctx context.Context, playerID int64) (domain.PointsBreakdown, error) {
	if playerID <= 0 {
		return domain.PointsBreakdown{}, domain.ErrInvalidInput
	}
	var out domain.PointsBreakdown
	err := s.store.View(ctx, func(ctx context.Context, tx LedgerTx) error {
		if _, err := tx.Player(ctx, playerID); err != nil {
			return err
		}
		var err error
		out, err = TotalPoints(ctx, tx, playerID)
		return err
	})
	return out, err
}

// AttemptCount reports how many attempts a player has used on a quiz.
func (s *ScoringService) AttemptCount(ctx context.Context, playerID int64, quizSlug string) (int, error) {
	quizSlug = strings.TrimSpace(quizSlug)
	if playerID <= 0 || quizSlug == "" {
		return 0, domain.ErrInvalidInput
	}
	if _, err := s.quizzes.GetQuiz(ctx, quizSlug); err != nil {
		return 0, err
	}
	var n int
	err := s.store.View(ctx, func(ctx context.Context, tx LedgerTx) error {
		if _, err := tx.Player(ctx, playerID); err != nil {
			return err
		}
		var err error
		n, err = s.ledger.Count(ctx, tx, playerID, quizSlug)
		return err
	})
	return n, err
}

// Subscribe streams aggregate updates for a player.
func (s *ScoringService) Subscribe(ctx context.Context, playerID int64) (<-chan domain.PointsUpdate, func(), error) {
	if playerID <= 0 {
		return nil, nil, domain.ErrInvalidInput
	}
	if err := s.store.View(ctx, func(ctx context.Context, tx LedgerTx) error {
		_, err := tx.Player(ctx, playerID)
		return err
	}); err != nil {
		return nil, nil, err
	}
	return s.feed.Subscribe(ctx, playerID)
}

// publish is best-effort; the ledger is already committed.
func (s *ScoringService) publish(ctx context.Context, playerID int64, points, progress int) {
	if s.feed == nil {
		return
	}
	update := domain.PointsUpdate{
		PlayerID:      playerID,
		Points:        points,
		LevelProgress: progress,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.feed.Publish(ctx, update); err != nil {
		log.Warn().Err(err).Int64("player_id", playerID).Msg("publish points update")
	}
}
