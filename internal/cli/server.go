package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"reciclagame-service/internal/app"
	"reciclagame-service/internal/config"
	"reciclagame-service/internal/infra/memory"
	"reciclagame-service/internal/infra/postgres"
	redisinfra "reciclagame-service/internal/infra/redis"
	transport "reciclagame-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the scoring server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	var (
		store  app.LedgerStore
		loader memory.QuizLoader
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		db := postgres.OpenDB(cfg.Postgres.URL)
		defer db.Close()
		store = postgres.NewLedgerStore(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewQuizLoader(pool)
		log.Info().Msg("using postgres ledger")
	} else {
		store = memory.NewLedgerStore(sampleChallenges()...)
		loader = memory.NewStaticQuizLoader(sampleQuizzes())
		log.Warn().Msg("postgres not configured, ledger is in memory")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizzes app.QuizRepository
		feed    app.PointsFeed
	)
	if redisClient != nil {
		quizzes = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
		feed = redisinfra.NewPointsFeed(redisClient)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
		feed = memory.NewPointsFeed()
	}

	scoring := app.NewScoringService(store, quizzes, feed)
	players := app.NewPlayerService(store, quizzes)
	if cfg.Auth.BcryptCost > 0 {
		players = players.WithBcryptCost(cfg.Auth.BcryptCost)
	}
	catalog := app.NewCatalogService(store, quizzes)
	submissions := app.NewSubmissionService(store, scoring)

	mux := http.NewServeMux()
	var metrics *transport.Metrics
	if cfg.MetricsEnabled() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = transport.NewMetrics(reg)
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewRESTHandler(scoring, catalog, players, submissions, metrics).Register(mux)
	mux.HandleFunc("GET /ws", transport.NewWSHandler(scoring, metrics).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.Instrument(mux, metrics),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}
	shutdownTimeout := config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting reciclagame service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
