package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"reciclagame-service/internal/domain"
)

// PlayerService covers registration and the read-only player views.
type PlayerService struct {
	store      LedgerStore
	quizzes    QuizRepository
	now        func() time.Time
	bcryptCost int
}

func NewPlayerService(store LedgerStore, quizzes QuizRepository) *PlayerService {
	return &PlayerService{store: store, quizzes: quizzes, now: time.Now, bcryptCost: bcrypt.DefaultCost}
}

// WithBcryptCost overrides the hashing cost (tests use bcrypt.MinCost).
func (s *PlayerService) WithBcryptCost(cost int) *PlayerService {
	s.bcryptCost = cost
	return s
}

// Register creates a player with a hashed password.
func (s *PlayerService) Register(ctx context.Context, in domain.NewPlayer) (domain.Player, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Enrollment = strings.TrimSpace(in.Enrollment)
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Enrollment == "" || in.Email == "" || in.Password == "" {
		return domain.Player{}, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return domain.Player{}, fmt.Errorf("hash password: %w", err)
	}

	player := domain.Player{
		Name:          in.Name,
		Enrollment:    in.Enrollment,
		Email:         in.Email,
		PasswordHash:  string(hash),
		InstitutionID: in.InstitutionID,
		Level:         1,
		CreatedAt:     s.now().UTC(),
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		exists, err := tx.PlayerExists(ctx, player.Email, player.Enrollment)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicatePlayer
		}
		return tx.InsertPlayer(ctx, &player)
	})
	if err != nil {
		return domain.Player{}, err
	}
	return player, nil
}

// Login checks a password against the player found by email or enrollment.
func (s *PlayerService) Login(ctx context.Context, identifier, password string) (domain.Player, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return domain.Player{}, domain.ErrInvalidInput
	}
	var player domain.Player
	err := s.store.View(ctx, func(ctx context.Context, tx LedgerTx) error {
		var err error
		player, err = tx.PlayerByLogin(ctx, strings.ToLower(identifier), identifier)
		return err
	})
	if err != nil {
		return domain.Player{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return domain.Player{}, domain.ErrInvalidCredentials
		}
		return domain.Player{}, fmt.Errorf("compare password: %w", err)
	}
	return player, nil
}

// Get loads a player.
func (s *PlayerService) Get(ctx context.Context, id int64) (domain.Player, error) {
	if id <= 0 {
		return domain.Player{}, domain.ErrInvalidInput
	}
	var player domain.Player
	err := s.store.View(ctx, func(ctx context.Context, tx LedgerTx) error {
		var err error
		player, err = tx.Player(ctx, id)
		return err
	})
	return player, err
}

// History lists completed challenges followed by best quiz scores.
func (s *PlayerService) History(ctx context.Context, playerID int64) ([]domain.HistoryItem, error) {
	if playerID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var (
		challenges  []domain.Challenge
		completions []domain.ChallengeCompletion
		best        []domain.BestQuizScore
	)
	err := s.store.View(ctx, func(ctx context.Context, tx LedgerTx) error {
		if _, err := tx.Player(ctx, playerID); err != nil {
			return err
		}
		var err error
		if challenges, err = tx.ListChallenges(ctx); err != nil {
			return err
		}
		if completions, err = tx.ListCompletions(ctx, playerID); err != nil {
			return err
		}
		best, err = tx.ListBestScores(ctx, playerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Challenge, len(challenges))
	for _, c := range challenges {
		byID[c.ID] = c
	}

	items := make([]domain.HistoryItem, 0, len(completions)+len(best))
	for _, c := range completions {
		if !c.Completed {
			continue
		}
		ch := byID[c.ChallengeID]
		items = append(items, domain.HistoryItem{
			Kind:   domain.HistoryChallenge,
			Ref:    c.ChallengeID,
			Title:  ch.Title,
			Image:  ch.Image,
			Points: c.PointsAwarded,
		})
	}
	for _, b := range best {
		item := domain.HistoryItem{Kind: domain.HistoryQuiz, Ref: b.QuizSlug, Points: b.Score}
		quiz, err := s.quizzes.GetQuiz(ctx, b.QuizSlug)
		switch {
		case err == nil:
			item.Title, item.Image = quiz.Title, quiz.Image
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Roster lists an institution's players with their challenge progress.
func (s *PlayerService) Roster(ctx context.Context, institutionID int64) ([]domain.RosterEntry, error) {
	if institutionID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var entries []domain.RosterEntry
	err := s.store.View(ctx, func(ctx context.Context, tx LedgerTx) error {
		total, err := tx.CountChallenges(ctx)
		if err != nil {
			return err
		}
		players, err := tx.PlayersByInstitution(ctx, institutionID)
		if err != nil {
			return err
		}
		entries = make([]domain.RosterEntry, 0, len(players))
		for _, p := range players {
			completed, err := tx.CountCompleted(ctx, p.ID)
			if err != nil {
				return err
			}
			entries = append(entries, domain.RosterEntry{
				PlayerID:        p.ID,
				Name:            p.Name,
				Enrollment:      p.Enrollment,
				Email:           p.Email,
				Points:          p.Points,
				Level:           p.Level,
				LevelProgress:   p.LevelProgress,
				Completed:       completed,
				Pending:         total - completed,
				TotalChallenges: total,
				Status:          domain.RosterStatusFor(completed, total),
			})
		}
		return nil
	})
	return entries, err
}
