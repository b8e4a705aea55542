package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"reciclagame-service/internal/domain"
)

// SeedCatalog upserts quizzes (replacing their questions) and challenges.
func SeedCatalog(ctx context.Context, db *bun.DB, quizzes []domain.Quiz, challenges []domain.Challenge) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, quiz := range quizzes {
			row := &quizRow{Slug: quiz.Slug, Title: quiz.Title, Image: quiz.Image}
			_, err := tx.NewInsert().
				Model(row).
				On("CONFLICT (slug) DO UPDATE").
				Set("title = EXCLUDED.title").
				Set("image = EXCLUDED.image").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("upsert quiz %s: %w", quiz.Slug, err)
			}

			if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("quiz_slug = ?", quiz.Slug).Exec(ctx); err != nil {
				return fmt.Errorf("clear questions %s: %w", quiz.Slug, err)
			}
			if len(quiz.Questions) == 0 {
				continue
			}
			questions := make([]questionRow, 0, len(quiz.Questions))
			for _, q := range quiz.Questions {
				questions = append(questions, questionRow{
					QuizSlug: quiz.Slug,
					Prompt:   q.Prompt,
					OptionA:  q.Options[0],
					OptionB:  q.Options[1],
					OptionC:  q.Options[2],
					OptionD:  q.Options[3],
					Answer:   q.Answer,
					Points:   q.Points,
				})
			}
			if _, err := tx.NewInsert().Model(&questions).Exec(ctx); err != nil {
				return fmt.Errorf("insert questions %s: %w", quiz.Slug, err)
			}
		}

		if len(challenges) == 0 {
			return nil
		}
		rows := make([]challengeRow, 0, len(challenges))
		for _, c := range challenges {
			rows = append(rows, challengeRow{ID: c.ID, Title: c.Title, Description: c.Description, Image: c.Image, Points: c.Points})
		}
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (id) DO UPDATE").
			Set("title = EXCLUDED.title").
			Set("description = EXCLUDED.description").
			Set("image = EXCLUDED.image").
			Set("points = EXCLUDED.points").
			Exec(ctx)
		return err
	})
}
