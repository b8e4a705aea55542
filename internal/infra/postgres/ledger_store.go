package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"reciclagame-service/internal/app"
	"reciclagame-service/internal/domain"
)

// LedgerStore implements app.LedgerStore on Postgres via bun.
// Every unit of work is a database transaction; LockPlayer takes a row lock
// so the attempt cap check and insert cannot interleave across requests.
type LedgerStore struct {
	db *bun.DB
}

func NewLedgerStore(db *bun.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.LedgerTx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &ledgerTx{db: tx})
	})
}

func (s *LedgerStore) View(ctx context.Context, fn func(ctx context.Context, tx app.LedgerTx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &ledgerTx{db: tx})
	})
}

type ledgerTx struct {
	db bun.IDB
}

func (t *ledgerTx) CountAttempts(ctx context.Context, playerID int64, quizSlug string) (int, error) {
	return t.db.NewSelect().
		Model((*attemptRow)(nil)).
		Where("player_id = ? AND quiz_slug = ?", playerID, quizSlug).
		Count(ctx)
}

func (t *ledgerTx) InsertAttempt(ctx context.Context, attempt domain.Attempt) error {
	row := &attemptRow{
		PlayerID:  attempt.PlayerID,
		QuizSlug:  attempt.QuizSlug,
		Score:     attempt.Score,
		CreatedAt: attempt.CreatedAt,
	}
	_, err := t.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (t *ledgerTx) BestScore(ctx context.Context, playerID int64, quizSlug string) (domain.BestQuizScore, bool, error) {
	row := new(bestScoreRow)
	err := t.db.NewSelect().
		Model(row).
		Where("player_id = ? AND quiz_slug = ?", playerID, quizSlug).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BestQuizScore{}, false, nil
	}
	if err != nil {
		return domain.BestQuizScore{}, false, err
	}
	return row.toDomain(), true, nil
}

func (t *ledgerTx) InsertBestScore(ctx context.Context, best domain.BestQuizScore) error {
	row := &bestScoreRow{
		PlayerID:      best.PlayerID,
		QuizSlug:      best.QuizSlug,
		Score:         best.Score,
		AttemptNumber: best.AttemptNumber,
	}
	_, err := t.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (t *ledgerTx) UpdateBestScore(ctx context.Context, best domain.BestQuizScore) error {
	row := &bestScoreRow{
		PlayerID:      best.PlayerID,
		QuizSlug:      best.QuizSlug,
		Score:         best.Score,
		AttemptNumber: best.AttemptNumber,
	}
	res, err := t.db.NewUpdate().
		Model(row).
		Column("score", "attempt_number").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOneRow(res, "best score")
}

func (t *ledgerTx) ListBestScores(ctx context.Context, playerID int64) ([]domain.BestQuizScore, error) {
	var rows []bestScoreRow
	err := t.db.NewSelect().
		Model(&rows).
		Where("player_id = ?", playerID).
		Order("quiz_slug ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BestQuizScore, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *ledgerTx) Completion(ctx context.Context, playerID int64, challengeID string) (domain.ChallengeCompletion, bool, error) {
	row := new(completionRow)
	err := t.db.NewSelect().
		Model(row).
		Where("player_id = ? AND challenge_id = ?", playerID, challengeID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChallengeCompletion{}, false, nil
	}
	if err != nil {
		return domain.ChallengeCompletion{}, false, err
	}
	return row.toDomain(), true, nil
}

// SaveCompletion upserts the row. Callers skip rows already completed, so the
// update branch only ever promotes an incomplete row.
func (t *ledgerTx) SaveCompletion(ctx context.Context, completion domain.ChallengeCompletion) error {
	row := &completionRow{
		PlayerID:      completion.PlayerID,
		ChallengeID:   completion.ChallengeID,
		Completed:     completion.Completed,
		PointsAwarded: completion.PointsAwarded,
		CompletedAt:   completion.CompletedAt,
	}
	_, err := t.db.NewInsert().
		Model(row).
		On("CONFLICT (player_id, challenge_id) DO UPDATE").
		Set("completed = EXCLUDED.completed").
		Set("points_awarded = EXCLUDED.points_awarded").
		Set("completed_at = EXCLUDED.completed_at").
		Exec(ctx)
	return err
}

func (t *ledgerTx) CountCompleted(ctx context.Context, playerID int64) (int, error) {
	return t.db.NewSelect().
		Model((*completionRow)(nil)).
		Where("player_id = ? AND completed = TRUE", playerID).
		Count(ctx)
}

func (t *ledgerTx) ListCompletions(ctx context.Context, playerID int64) ([]domain.ChallengeCompletion, error) {
	var rows []completionRow
	err := t.db.NewSelect().
		Model(&rows).
		Where("player_id = ?", playerID).
		Order("challenge_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChallengeCompletion, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *ledgerTx) Challenge(ctx context.Context, id string) (domain.Challenge, error) {
	row := new(challengeRow)
	err := t.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.Challenge{}, err
	}
	return row.toDomain(), nil
}

func (t *ledgerTx) ListChallenges(ctx context.Context) ([]domain.Challenge, error) {
	var rows []challengeRow
	if err := t.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Challenge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *ledgerTx) CountChallenges(ctx context.Context) (int, error) {
	return t.db.NewSelect().Model((*challengeRow)(nil)).Count(ctx)
}

func (t *ledgerTx) SumBestScores(ctx context.Context, playerID int64) (int, error) {
	var sum int
	err := t.db.NewSelect().
		Model((*bestScoreRow)(nil)).
		ColumnExpr("COALESCE(SUM(score), 0)").
		Where("player_id = ?", playerID).
		Scan(ctx, &sum)
	return sum, err
}

func (t *ledgerTx) SumChallengePoints(ctx context.Context, playerID int64) (int, error) {
	var sum int
	err := t.db.NewSelect().
		Model((*completionRow)(nil)).
		ColumnExpr("COALESCE(SUM(points_awarded), 0)").
		Where("player_id = ? AND completed = TRUE", playerID).
		Scan(ctx, &sum)
	return sum, err
}

func (t *ledgerTx) Player(ctx context.Context, id int64) (domain.Player, error) {
	return t.loadPlayer(ctx, id, false)
}

func (t *ledgerTx) LockPlayer(ctx context.Context, id int64) (domain.Player, error) {
	return t.loadPlayer(ctx, id, true)
}

func (t *ledgerTx) loadPlayer(ctx context.Context, id int64, lock bool) (domain.Player, error) {
	row := new(playerRow)
	q := t.db.NewSelect().Model(row).Where("p.id = ?", id)
	if lock {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.Player{}, err
	}
	return row.toDomain(), nil
}

func (t *ledgerTx) PlayerExists(ctx context.Context, email, enrollment string) (bool, error) {
	return t.db.NewSelect().
		Model((*playerRow)(nil)).
		Where("email = ? OR enrollment = ?", email, enrollment).
		Exists(ctx)
}

func (t *ledgerTx) PlayerByLogin(ctx context.Context, email, enrollment string) (domain.Player, error) {
	row := new(playerRow)
	err := t.db.NewSelect().
		Model(row).
		Where("p.email = ? OR p.enrollment = ?", email, enrollment).
		Order("p.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.Player{}, err
	}
	return row.toDomain(), nil
}

func (t *ledgerTx) InsertPlayer(ctx context.Context, player *domain.Player) error {
	row := &playerRow{
		Name:          player.Name,
		Enrollment:    player.Enrollment,
		Email:         player.Email,
		PasswordHash:  player.PasswordHash,
		InstitutionID: player.InstitutionID,
		Points:        player.Points,
		Level:         player.Level,
		LevelProgress: player.LevelProgress,
		CreatedAt:     player.CreatedAt,
	}
	if _, err := t.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicatePlayer
		}
		return err
	}
	player.ID = row.ID
	return nil
}

func (t *ledgerTx) PlayersByInstitution(ctx context.Context, institutionID int64) ([]domain.Player, error) {
	var rows []playerRow
	err := t.db.NewSelect().
		Model(&rows).
		Where("institution_id = ?", institutionID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Player, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *ledgerTx) SetPlayerPoints(ctx context.Context, id int64, points int) error {
	res, err := t.db.NewUpdate().
		Model((*playerRow)(nil)).
		Set("points = ?", points).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOneRow(res, "player")
}

func (t *ledgerTx) SetPlayerProgress(ctx context.Context, id int64, levelProgress int) error {
	res, err := t.db.NewUpdate().
		Model((*playerRow)(nil)).
		Set("level_progress = ?", levelProgress).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOneRow(res, "player")
}

func (t *ledgerTx) InsertSubmission(ctx context.Context, submission *domain.ChallengeSubmission) error {
	photos := submission.Photos
	if photos == nil {
		photos = []string{}
	}
	row := &submissionRow{
		PlayerID:    submission.PlayerID,
		ChallengeID: submission.ChallengeID,
		Kind:        string(submission.Kind),
		Photos:      photos,
		Text:        submission.Text,
		Status:      string(submission.Status),
		CreatedAt:   submission.CreatedAt,
	}
	if _, err := t.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return err
	}
	submission.ID = row.ID
	return nil
}

func (t *ledgerTx) LockSubmission(ctx context.Context, id int64) (domain.ChallengeSubmission, error) {
	row := new(submissionRow)
	err := t.db.NewSelect().Model(row).Where("cs.id = ?", id).For("UPDATE").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChallengeSubmission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.ChallengeSubmission{}, err
	}
	return row.toDomain(), nil
}

func (t *ledgerTx) LatestSubmission(ctx context.Context, playerID int64, challengeID string) (domain.ChallengeSubmission, bool, error) {
	row := new(submissionRow)
	err := t.db.NewSelect().
		Model(row).
		Where("cs.player_id = ? AND cs.challenge_id = ?", playerID, challengeID).
		Order("cs.id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChallengeSubmission{}, false, nil
	}
	if err != nil {
		return domain.ChallengeSubmission{}, false, err
	}
	return row.toDomain(), true, nil
}

func (t *ledgerTx) PendingSubmissions(ctx context.Context, institutionID int64) ([]domain.PendingSubmission, error) {
	var rows []pendingSubmissionRow
	err := t.db.NewSelect().
		Model(&rows).
		ColumnExpr("cs.*").
		ColumnExpr("p.name AS player_name").
		ColumnExpr("c.title AS challenge_title, c.points AS challenge_points").
		Join("JOIN players AS p ON p.id = cs.player_id").
		Join("JOIN challenges AS c ON c.id = cs.challenge_id").
		Where("p.institution_id = ? AND cs.status = ?", institutionID, string(domain.SubmissionPending)).
		OrderExpr("cs.created_at ASC, cs.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PendingSubmission, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.PendingSubmission{
			ChallengeSubmission: r.submissionRow.toDomain(),
			PlayerName:          r.PlayerName,
			ChallengeTitle:      r.ChallengeTitle,
			ChallengePoints:     r.ChallengePoints,
		})
	}
	return out, nil
}

func (t *ledgerTx) SetSubmissionStatus(ctx context.Context, id int64, status domain.SubmissionStatus, reviewedAt time.Time) error {
	res, err := t.db.NewUpdate().
		Model((*submissionRow)(nil)).
		Set("status = ?", string(status)).
		Set("reviewed_at = ?", reviewedAt).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOneRow(res, "submission")
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("update %s: %d rows affected", what, n)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
