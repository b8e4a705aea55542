package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"reciclagame-service/internal/domain"
)

type playerRow struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID            int64     `bun:"id,pk,autoincrement"`
	Name          string    `bun:"name,notnull"`
	Enrollment    string    `bun:"enrollment,notnull"`
	Email         string    `bun:"email,notnull"`
	PasswordHash  string    `bun:"password_hash,notnull"`
	InstitutionID *int64    `bun:"institution_id"`
	Points        int       `bun:"points,notnull"`
	Level         int       `bun:"level,notnull"`
	LevelProgress int       `bun:"level_progress,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func (r playerRow) toDomain() domain.Player {
	return domain.Player{
		ID:            r.ID,
		Name:          r.Name,
		Enrollment:    r.Enrollment,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		InstitutionID: r.InstitutionID,
		Points:        r.Points,
		Level:         r.Level,
		LevelProgress: r.LevelProgress,
		CreatedAt:     r.CreatedAt,
	}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID        int64     `bun:"id,pk,autoincrement"`
	PlayerID  int64     `bun:"player_id,notnull"`
	QuizSlug  string    `bun:"quiz_slug,notnull"`
	Score     int       `bun:"score,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type bestScoreRow struct {
	bun.BaseModel `bun:"table:best_quiz_scores,alias:bqs"`

	PlayerID      int64  `bun:"player_id,pk"`
	QuizSlug      string `bun:"quiz_slug,pk"`
	Score         int    `bun:"score,notnull"`
	AttemptNumber int    `bun:"attempt_number,notnull"`
}

func (r bestScoreRow) toDomain() domain.BestQuizScore {
	return domain.BestQuizScore{
		PlayerID:      r.PlayerID,
		QuizSlug:      r.QuizSlug,
		Score:         r.Score,
		AttemptNumber: r.AttemptNumber,
	}
}

type completionRow struct {
	bun.BaseModel `bun:"table:player_challenges,alias:pc"`

	PlayerID      int64     `bun:"player_id,pk"`
	ChallengeID   string    `bun:"challenge_id,pk"`
	Completed     bool      `bun:"completed,notnull"`
	PointsAwarded int       `bun:"points_awarded,notnull"`
	CompletedAt   time.Time `bun:"completed_at,nullzero"`
}

func (r completionRow) toDomain() domain.ChallengeCompletion {
	return domain.ChallengeCompletion{
		PlayerID:      r.PlayerID,
		ChallengeID:   r.ChallengeID,
		Completed:     r.Completed,
		PointsAwarded: r.PointsAwarded,
		CompletedAt:   r.CompletedAt,
	}
}

type challengeRow struct {
	bun.BaseModel `bun:"table:challenges,alias:c"`

	ID          string `bun:"id,pk"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description,notnull"`
	Image       string `bun:"image,notnull"`
	Points      int    `bun:"points,notnull"`
}

func (r challengeRow) toDomain() domain.Challenge {
	return domain.Challenge{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Image:       r.Image,
		Points:      r.Points,
	}
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	Slug  string `bun:"slug,pk"`
	Title string `bun:"title,notnull"`
	Image string `bun:"image,notnull"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:quiz_questions,alias:qq"`

	ID       int64  `bun:"id,pk,autoincrement"`
	QuizSlug string `bun:"quiz_slug,notnull"`
	Prompt   string `bun:"prompt,notnull"`
	OptionA  string `bun:"option_a,notnull"`
	OptionB  string `bun:"option_b,notnull"`
	OptionC  string `bun:"option_c,notnull"`
	OptionD  string `bun:"option_d,notnull"`
	Answer   string `bun:"answer,notnull"`
	Points   int    `bun:"points,notnull"`
}

type submissionRow struct {
	bun.BaseModel `bun:"table:challenge_submissions,alias:cs"`

	ID          int64      `bun:"id,pk,autoincrement"`
	PlayerID    int64      `bun:"player_id,notnull"`
	ChallengeID string     `bun:"challenge_id,notnull"`
	Kind        string     `bun:"kind,notnull"`
	Photos      []string   `bun:"photos,array"`
	Text        string     `bun:"text,notnull"`
	Status      string     `bun:"status,notnull"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	ReviewedAt  *time.Time `bun:"reviewed_at"`
}

func (r submissionRow) toDomain() domain.ChallengeSubmission {
	photos := r.Photos
	if photos == nil {
		photos = []string{}
	}
	return domain.ChallengeSubmission{
		ID:          r.ID,
		PlayerID:    r.PlayerID,
		ChallengeID: r.ChallengeID,
		Kind:        domain.SubmissionKind(r.Kind),
		Photos:      photos,
		Text:        r.Text,
		Status:      domain.SubmissionStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		ReviewedAt:  r.ReviewedAt,
	}
}

// pendingSubmissionRow is a submission joined with its player and challenge.
type pendingSubmissionRow struct {
	submissionRow `bun:",extend"`

	PlayerName      string `bun:"player_name"`
	ChallengeTitle  string `bun:"challenge_title"`
	ChallengePoints int    `bun:"challenge_points"`
}
