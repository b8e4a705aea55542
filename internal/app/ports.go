package app

import (
	"context"
	"time"

	"reciclagame-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
// GetQuiz returns questions in ascending id order.
type QuizRepository interface {
	GetQuiz(ctx context.Context, slug string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
}

// AttemptStore is the append-only attempt log.
type AttemptStore interface {
	CountAttempts(ctx context.Context, playerID int64, quizSlug string) (int, error)
	InsertAttempt(ctx context.Context, attempt domain.Attempt) error
}

// BestScoreStore holds one best score row per (player, quiz).
type BestScoreStore interface {
	BestScore(ctx context.Context, playerID int64, quizSlug string) (domain.BestQuizScore, bool, error)
	InsertBestScore(ctx context.Context, best domain.BestQuizScore) error
	UpdateBestScore(ctx context.Context, best domain.BestQuizScore) error
	ListBestScores(ctx context.Context, playerID int64) ([]domain.BestQuizScore, error)
}

// CompletionStore holds one completion row per (player, challenge).
type CompletionStore interface {
	Completion(ctx context.Context, playerID int64, challengeID string) (domain.ChallengeCompletion, bool, error)
	SaveCompletion(ctx context.Context, completion domain.ChallengeCompletion) error
	CountCompleted(ctx context.Context, playerID int64) (int, error)
	ListCompletions(ctx context.Context, playerID int64) ([]domain.ChallengeCompletion, error)
}

// ChallengeCatalog reads challenge definitions.
type ChallengeCatalog interface {
	Challenge(ctx context.Context, id string) (domain.Challenge, error)
	ListChallenges(ctx context.Context) ([]domain.Challenge, error)
	CountChallenges(ctx context.Context) (int, error)
}

// PointsSource exposes the sums the aggregate is derived from.
type PointsSource interface {
	SumBestScores(ctx context.Context, playerID int64) (int, error)
	SumChallengePoints(ctx context.Context, playerID int64) (int, error)
}

// PlayerStore reads and writes player rows.
type PlayerStore interface {
	Player(ctx context.Context, id int64) (domain.Player, error)
	// LockPlayer loads the player and holds it until the transaction ends.
	LockPlayer(ctx context.Context, id int64) (domain.Player, error)
	PlayerExists(ctx context.Context, email, enrollment string) (bool, error)
	// PlayerByLogin finds the player whose email or enrollment matches.
	PlayerByLogin(ctx context.Context, email, enrollment string) (domain.Player, error)
	InsertPlayer(ctx context.Context, player *domain.Player) error
	PlayersByInstitution(ctx context.Context, institutionID int64) ([]domain.Player, error)
	SetPlayerPoints(ctx context.Context, id int64, points int) error
	SetPlayerProgress(ctx context.Context, id int64, levelProgress int) error
}

// SubmissionStore holds challenge submissions awaiting or past review.
type SubmissionStore interface {
	InsertSubmission(ctx context.Context, submission *domain.ChallengeSubmission) error
	// LockSubmission loads a submission and holds it until the transaction ends.
	LockSubmission(ctx context.Context, id int64) (domain.ChallengeSubmission, error)
	LatestSubmission(ctx context.Context, playerID int64, challengeID string) (domain.ChallengeSubmission, bool, error)
	PendingSubmissions(ctx context.Context, institutionID int64) ([]domain.PendingSubmission, error)
	SetSubmissionStatus(ctx context.Context, id int64, status domain.SubmissionStatus, reviewedAt time.Time) error
}

// LedgerTx is a transactional view over every scoring table.
type LedgerTx interface {
	AttemptStore
	BestScoreStore
	CompletionStore
	ChallengeCatalog
	PointsSource
	PlayerStore
	SubmissionStore
}

// LedgerStore runs units of work against the scoring tables.
// WithinTx commits only when fn returns nil; View is read-only.
type LedgerStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
	View(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// PointsFeed fans out aggregate changes to subscribers (in-memory, Redis, etc).
type PointsFeed interface {
	Publish(ctx context.Context, update domain.PointsUpdate) error
	// Subscribe returns a channel of updates for one player.
	// The caller must invoke the returned cancel function to avoid leaks.
	Subscribe(ctx context.Context, playerID int64) (<-chan domain.PointsUpdate, func(), error)
}
