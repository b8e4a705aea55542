package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"reciclagame-service/internal/domain"
)

// QuizLoader loads quizzes and their questions from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	quiz := domain.Quiz{Slug: slug}
	err := l.pool.QueryRow(ctx, `SELECT title, image FROM quizzes WHERE slug=$1`, slug).Scan(&quiz.Title, &quiz.Image)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT id, prompt, option_a, option_b, option_c, option_d, answer, points
		FROM quiz_questions
		WHERE quiz_slug=$1
		ORDER BY id`, slug)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Options[0], &q.Options[1], &q.Options[2], &q.Options[3], &q.Answer, &q.Points); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}

func (l *QuizLoader) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT q.slug, q.title, q.image, COUNT(qq.id)
		FROM quizzes q
		LEFT JOIN quiz_questions qq ON qq.quiz_slug = q.slug
		GROUP BY q.slug, q.title, q.image
		ORDER BY q.slug`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.QuizSummary
	for rows.Next() {
		var s domain.QuizSummary
		if err := rows.Scan(&s.Slug, &s.Title, &s.Image, &s.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
