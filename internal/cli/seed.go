package cli

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"reciclagame-service/internal/config"
	"reciclagame-service/internal/domain"
	"reciclagame-service/internal/infra/postgres"
	redisinfra "reciclagame-service/internal/infra/redis"
)

// NewSeedCmd loads the sample quiz and challenge catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the quiz and challenge catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			setupLogger(cfg)
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			db := postgres.OpenDB(cfg.Postgres.URL)
			defer db.Close()

			quizzes := sampleQuizList()
			challenges := sampleChallenges()
			if err := postgres.SeedCatalog(cmd.Context(), db, quizzes, challenges); err != nil {
				return err
			}
			log.Info().Int("quizzes", len(quizzes)).Int("challenges", len(challenges)).Msg("catalog seeded")

			if cfg.Redis.Addr == "" {
				return nil
			}
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer client.Close()
			return invalidateQuizzes(cmd.Context(), redisinfra.NewQuizRepository(client, nil, 0), quizzes)
		},
	}
}

type quizInvalidator interface {
	Invalidate(ctx context.Context, slug string) error
}

// invalidateQuizzes drops cached copies so reseeded question ids and answers
// are served immediately.
func invalidateQuizzes(ctx context.Context, cache quizInvalidator, quizzes []domain.Quiz) error {
	for _, q := range quizzes {
		if err := cache.Invalidate(ctx, q.Slug); err != nil {
			return err
		}
	}
	log.Info().Int("quizzes", len(quizzes)).Msg("quiz cache invalidated")
	return nil
}
