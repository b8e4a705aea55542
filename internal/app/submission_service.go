package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reciclagame-service/internal/domain"
)

// SubmissionService handles challenge evidence sent by players and the
// staff review that turns an approved submission into a completion.
type SubmissionService struct {
	store   LedgerStore
	scoring *ScoringService
	now     func() time.Time
}

func NewSubmissionService(store LedgerStore, scoring *ScoringService) *SubmissionService {
	return &SubmissionService{store: store, scoring: scoring, now: scoring.now}
}

// Submit records a pending submission. A player may not resubmit while a
// previous one awaits review or once the challenge is complete.
func (s *SubmissionService) Submit(ctx context.Context, in domain.NewSubmission) (domain.ChallengeSubmission, error) {
	in.ChallengeID = strings.TrimSpace(in.ChallengeID)
	in.Text = strings.TrimSpace(in.Text)
	photos := make([]string, 0, len(in.Photos))
	for _, p := range in.Photos {
		if p = strings.TrimSpace(p); p != "" {
			photos = append(photos, p)
		}
	}
	if in.PlayerID <= 0 || in.ChallengeID == "" {
		return domain.ChallengeSubmission{}, domain.ErrInvalidInput
	}
	if (in.Text == "" && len(photos) == 0) || len(photos) > domain.MaxSubmissionPhotos {
		return domain.ChallengeSubmission{}, domain.ErrInvalidInput
	}

	sub := domain.ChallengeSubmission{
		PlayerID:    in.PlayerID,
		ChallengeID: in.ChallengeID,
		Kind:        domain.SubmissionKindFor(in.Text, len(photos)),
		Photos:      photos,
		Text:        in.Text,
		Status:      domain.SubmissionPending,
		CreatedAt:   s.now().UTC(),
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		if _, err := tx.LockPlayer(ctx, in.PlayerID); err != nil {
			return err
		}
		if _, err := tx.Challenge(ctx, in.ChallengeID); err != nil {
			return err
		}
		done, ok, err := tx.Completion(ctx, in.PlayerID, in.ChallengeID)
		if err != nil {
			return err
		}
		if ok && done.Completed {
			return domain.ErrChallengeCompleted
		}
		latest, ok, err := tx.LatestSubmission(ctx, in.PlayerID, in.ChallengeID)
		if err != nil {
			return err
		}
		if ok && latest.Status == domain.SubmissionPending {
			return domain.ErrSubmissionPending
		}
		return tx.InsertSubmission(ctx, &sub)
	})
	if err != nil {
		return domain.ChallengeSubmission{}, err
	}
	return sub, nil
}

// Pending lists submissions awaiting review for an institution, oldest first.
func (s *SubmissionService) Pending(ctx context.Context, institutionID int64) ([]domain.PendingSubmission, error) {
	if institutionID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var out []domain.PendingSubmission
	err := s.store.View(ctx, func(ctx context.Context, tx LedgerTx) error {
		var err error
		out, err = tx.PendingSubmissions(ctx, institutionID)
		return err
	})
	return out, err
}

// Review approves or rejects a pending submission. Approval completes the
// challenge in the same transaction.
func (s *SubmissionService) Review(ctx context.Context, id int64, decision domain.SubmissionStatus) (domain.ReviewResult, error) {
	if id <= 0 || (decision != domain.SubmissionApproved && decision != domain.SubmissionRejected) {
		return domain.ReviewResult{}, domain.ErrInvalidInput
	}

	var (
		result domain.ReviewResult
		total  int
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		sub, err := tx.LockSubmission(ctx, id)
		if err != nil {
			return err
		}
		if sub.Status != domain.SubmissionPending {
			return domain.ErrSubmissionReviewed
		}
		reviewedAt := s.now().UTC()
		if err := tx.SetSubmissionStatus(ctx, id, decision, reviewedAt); err != nil {
			return err
		}
		sub.Status = decision
		sub.ReviewedAt = &reviewedAt
		result.Submission = sub

		if decision != domain.SubmissionApproved {
			return nil
		}
		completion, t, err := s.scoring.completeInTx(ctx, tx, sub.PlayerID, sub.ChallengeID)
		if err != nil {
			return err
		}
		result.Completion = &completion
		total = t
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrSubmissionReviewed) {
			log.Error().Err(err).Int64("submission_id", id).Msg("submission review failed")
		}
		return domain.ReviewResult{}, err
	}

	if c := result.Completion; c != nil && !c.AlreadyDone {
		s.scoring.publish(ctx, result.Submission.PlayerID, total, c.ProgressPercent)
	}
	return result, nil
}

// Status returns the latest submission a player made for a challenge, or nil.
func (s *SubmissionService) Status(ctx context.Context, playerID int64, challengeID string) (*domain.ChallengeSubmission, error) {
	challengeID = strings.TrimSpace(challengeID)
	if playerID <= 0 || challengeID == "" {
		return nil, domain.ErrInvalidInput
	}
	var out *domain.ChallengeSubmission
	err := s.store.View(ctx, func(ctx context.Context, tx LedgerTx) error {
		if _, err := tx.Player(ctx, playerID); err != nil {
			return err
		}
		if _, err := tx.Challenge(ctx, challengeID); err != nil {
			return err
		}
		sub, ok, err := tx.LatestSubmission(ctx, playerID, challengeID)
		if err != nil || !ok {
			return err
		}
		out = &sub
		return nil
	})
	return out, err
}
