package domain

import (
	"sort"
	"time"
)

// MaxQuizAttempts caps how many attempts a player gets per quiz.
const MaxQuizAttempts = 2

// DefaultQuestionPoints applies when a question carries no point value.
const DefaultQuestionPoints = 5

// Player is an end-user account that accumulates points.
type Player struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Enrollment    string    `json:"enrollment"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	InstitutionID *int64    `json:"institutionId,omitempty"`
	Points        int       `json:"points"`
	Level         int       `json:"level"`
	LevelProgress int       `json:"levelProgress"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Question models a four-option question with one correct letter.
type Question struct {
	ID      int64     `json:"id"`
	Prompt  string    `json:"prompt"`
	Options [4]string `json:"options"`
	Answer  string    `json:"answer"`
	Points  int       `json:"points"` // defaults to DefaultQuestionPoints if zero
}

// Value returns the points a correct answer is worth.
func (q Question) Value() int {
	if q.Points <= 0 {
		return DefaultQuestionPoints
	}
	return q.Points
}

// Quiz is a slug-identified collection of questions.
type Quiz struct {
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Image     string     `json:"image,omitempty"`
	Questions []Question `json:"questions"`
}

// InIDOrder returns a copy of the quiz with questions sorted by id, the order
// answers are graded in.
func (q Quiz) InIDOrder() Quiz {
	ordered := make([]Question, len(q.Questions))
	copy(ordered, q.Questions)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	q.Questions = ordered
	return q
}

// QuizSummary is the catalog view of a quiz.
type QuizSummary struct {
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Image         string `json:"image,omitempty"`
	QuestionCount int    `json:"questionCount"`
}

// PublicQuestion is a question with its answer stripped.
type PublicQuestion struct {
	ID      int64     `json:"id"`
	Prompt  string    `json:"prompt"`
	Options [4]string `json:"options"`
	Points  int       `json:"points"`
}

// Challenge is an open-ended task worth a fixed number of points.
type Challenge struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Points      int    `json:"points"`
}

// Attempt is one append-only quiz ledger entry.
type Attempt struct {
	PlayerID  int64
	QuizSlug  string
	Score     int
	CreatedAt time.Time
}

// BestQuizScore holds the highest score a player reached on a quiz.
type BestQuizScore struct {
	PlayerID      int64
	QuizSlug      string
	Score         int
	AttemptNumber int
}

// ChallengeCompletion records that a player finished a challenge.
type ChallengeCompletion struct {
	PlayerID      int64
	ChallengeID   string
	Completed     bool
	PointsAwarded int
	CompletedAt   time.Time
}

// QuizSubmission is the input of a quiz attempt.
type QuizSubmission struct {
	PlayerID int64
	QuizSlug string
	Answers  []string
}

// SubmissionResult is returned for an accepted quiz attempt.
type SubmissionResult struct {
	Score   int `json:"score"`
	Attempt int `json:"attempt"`
}

// CompletionResult is returned by a challenge completion.
type CompletionResult struct {
	PointsAwarded   int  `json:"pointsAwarded"`
	ProgressPercent int  `json:"progressPercent"`
	AlreadyDone     bool `json:"alreadyCompleted"`
}

// PointsBreakdown is the authoritative aggregate for a player.
type PointsBreakdown struct {
	FromChallenges int `json:"fromChallenges"`
	FromQuizzes    int `json:"fromQuizzes"`
	Total          int `json:"total"`
}

// PointsUpdate is published whenever a player's cached aggregate changes.
type PointsUpdate struct {
	PlayerID      int64     `json:"playerId"`
	Points        int       `json:"points"`
	LevelProgress int       `json:"levelProgress"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ChallengeStatus is a challenge as seen by one player.
type ChallengeStatus struct {
	Challenge
	Completed bool `json:"completed"`
}

// ChallengeBoard lists all challenges for a player.
type ChallengeBoard struct {
	Challenges []ChallengeStatus `json:"challenges"`
	Points     int               `json:"points"`
}

// HistoryKind separates challenge and quiz history items.
type HistoryKind string

const (
	HistoryChallenge HistoryKind = "challenge"
	HistoryQuiz      HistoryKind = "quiz"
)

// HistoryItem is a completed challenge or a best quiz score.
type HistoryItem struct {
	Kind   HistoryKind `json:"kind"`
	Ref    string      `json:"ref"`
	Title  string      `json:"title"`
	Image  string      `json:"image,omitempty"`
	Points int         `json:"points"`
}

// RosterStatus summarizes how far a player is through the challenges.
type RosterStatus string

const (
	StatusNotStarted RosterStatus = "not_started"
	StatusInProgress RosterStatus = "in_progress"
	StatusCompleted  RosterStatus = "completed"
)

// RosterEntry is a player row in an institution roster.
type RosterEntry struct {
	PlayerID        int64        `json:"playerId"`
	Name            string       `json:"name"`
	Enrollment      string       `json:"enrollment"`
	Email           string       `json:"email"`
	Points          int          `json:"points"`
	Level           int          `json:"level"`
	LevelProgress   int          `json:"levelProgress"`
	Completed       int          `json:"completed"`
	Pending         int          `json:"pending"`
	TotalChallenges int          `json:"totalChallenges"`
	Status          RosterStatus `json:"status"`
}

// RosterStatusFor classifies completion counts.
func RosterStatusFor(completed, total int) RosterStatus {
	pending := total - completed
	switch {
	case total > 0 && pending <= 0:
		return StatusCompleted
	case completed > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// NewPlayer is the input for registration.
type NewPlayer struct {
	Name          string
	Enrollment    string
	Email         string
	Password      string
	InstitutionID *int64
}

// MaxSubmissionPhotos bounds the photos attached to one challenge submission.
const MaxSubmissionPhotos = 5

// SubmissionStatus is the review state of a challenge submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// SubmissionKind records what evidence a player sent.
type SubmissionKind string

const (
	SubmissionPhoto     SubmissionKind = "photo"
	SubmissionText      SubmissionKind = "text"
	SubmissionPhotoText SubmissionKind = "photo_text"
)

// SubmissionKindFor classifies a submission by its evidence.
func SubmissionKindFor(text string, photos int) SubmissionKind {
	switch {
	case photos > 0 && text != "":
		return SubmissionPhotoText
	case photos > 0:
		return SubmissionPhoto
	default:
		return SubmissionText
	}
}

// ChallengeSubmission is a player's evidence for a challenge, reviewed by
// the player's institution. Photos are URLs in the external blob store.
type ChallengeSubmission struct {
	ID          int64            `json:"id"`
	PlayerID    int64            `json:"playerId"`
	ChallengeID string           `json:"challengeId"`
	Kind        SubmissionKind   `json:"kind"`
	Photos      []string         `json:"photos"`
	Text        string           `json:"text,omitempty"`
	Status      SubmissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	ReviewedAt  *time.Time       `json:"reviewedAt,omitempty"`
}

// NewSubmission is the input of a challenge submission.
type NewSubmission struct {
	PlayerID    int64
	ChallengeID string
	Text        string
	Photos      []string
}

// PendingSubmission is a submission in an institution's review queue.
type PendingSubmission struct {
	ChallengeSubmission
	PlayerName      string `json:"playerName"`
	ChallengeTitle  string `json:"challengeTitle"`
	ChallengePoints int    `json:"challengePoints"`
}

// ReviewResult is returned by a review; Completion is set only on approval.
type ReviewResult struct {
	Submission ChallengeSubmission `json:"submission"`
	Completion *CompletionResult   `json:"completion,omitempty"`
}
