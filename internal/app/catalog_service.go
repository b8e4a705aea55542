package app

import (
	"context"
	"strings"

	"reciclagame-service/internal/domain"
)

// CatalogService serves quiz and challenge listings.
type CatalogService struct {
	store   LedgerStore
	quizzes QuizRepository
}

func NewCatalogService(store LedgerStore, quizzes QuizRepository) *CatalogService {
	return &CatalogService{store: store, quizzes: quizzes}
}

// ListQuizzes returns the quiz catalog.
func (s *CatalogService) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	return s.quizzes.ListQuizzes(ctx)
}

// QuizQuestions returns a quiz's questions in scoring order, answers stripped.
func (s *CatalogService) QuizQuestions(ctx context.Context, slug string) ([]domain.PublicQuestion, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.ErrInvalidInput
	}
	quiz, err := s.quizzes.GetQuiz(ctx, slug)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PublicQuestion, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		out = append(out, domain.PublicQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: q.Options,
			Points:  q.Value(),
		})
	}
	return out, nil
}

// ChallengeBoard lists every challenge flagged with the player's completion.
func (s *CatalogService) ChallengeBoard(ctx context.Context, playerID int64) (domain.ChallengeBoard, error) {
	if playerID <= 0 {
		return domain.ChallengeBoard{}, domain.ErrInvalidInput
	}
	var board domain.ChallengeBoard
	err := s.store.View(ctx, func(ctx context.Context, tx LedgerTx) error {
		if _, err := tx.Player(ctx, playerID); err != nil {
			return err
		}
		challenges, err := tx.ListChallenges(ctx)
		if err != nil {
			return err
		}
		completions, err := tx.ListCompletions(ctx, playerID)
		if err != nil {
			return err
		}
		done := make(map[string]bool, len(completions))
		for _, c := range completions {
			if c.Completed {
				done[c.ChallengeID] = true
			}
		}
		board.Challenges = make([]domain.ChallengeStatus, 0, len(challenges))
		for _, c := range challenges {
			board.Challenges = append(board.Challenges, domain.ChallengeStatus{Challenge: c, Completed: done[c.ID]})
		}
		board.Points, err = tx.SumChallengePoints(ctx, playerID)
		return err
	})
	return board, err
}
