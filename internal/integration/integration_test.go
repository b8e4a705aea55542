package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"reciclagame-service/internal/app"
	"reciclagame-service/internal/domain"
	"reciclagame-service/internal/infra/postgres"
	infraredis "reciclagame-service/internal/infra/redis"
)

func TestScoringEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.OpenDB(pgURL)
	defer db.Close()
	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	challenges := []domain.Challenge{
		{ID: "coleta1", Title: "Coleta seletiva", Points: 20},
		{ID: "pet", Title: "Garrafas PET", Points: 30},
	}
	if err := postgres.SeedCatalog(ctx, db, []domain.Quiz{sampleQuiz()}, challenges); err != nil {
		t.Fatalf("seed: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := postgres.NewLedgerStore(db)
	quizzes := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute)
	feed := infraredis.NewPointsFeed(redisClient)
	scoring := app.NewScoringService(store, quizzes, feed)
	players := app.NewPlayerService(store, quizzes).WithBcryptCost(4)

	player, err := players.Register(ctx, domain.NewPlayer{Name: "Sete", Enrollment: "7", Email: "sete@escola.example", Password: "segredo123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := players.Register(ctx, domain.NewPlayer{Name: "Outro", Enrollment: "7", Email: "outro@escola.example", Password: "segredo123"}); !errors.Is(err, domain.ErrDuplicatePlayer) {
		t.Fatalf("expected duplicate enrollment rejected, got %v", err)
	}

	updates, cancel, err := scoring.Subscribe(ctx, player.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	res, err := scoring.SubmitQuiz(ctx, domain.QuizSubmission{PlayerID: player.ID, QuizSlug: "eco101", Answers: []string{"A", "B"}})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if res.Score != 10 || res.Attempt != 1 {
		t.Fatalf("expected score 10 attempt 1, got %+v", res)
	}
	select {
	case u := <-updates:
		if u.Points != 10 {
			t.Fatalf("expected pushed points 10, got %+v", u)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no points update received")
	}

	res, err = scoring.SubmitQuiz(ctx, domain.QuizSubmission{PlayerID: player.ID, QuizSlug: "eco101", Answers: []string{"A", "C"}})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if res.Score != 5 || res.Attempt != 2 {
		t.Fatalf("expected score 5 attempt 2, got %+v", res)
	}
	if _, err := scoring.SubmitQuiz(ctx, domain.QuizSubmission{PlayerID: player.ID, QuizSlug: "eco101", Answers: []string{"A", "B"}}); !errors.Is(err, domain.ErrAttemptCapExceeded) {
		t.Fatalf("expected cap exceeded, got %v", err)
	}

	for i := 0; i < 2; i++ {
		done, err := scoring.CompleteChallenge(ctx, player.ID, "coleta1")
		if err != nil {
			t.Fatalf("complete #%d: %v", i+1, err)
		}
		if done.PointsAwarded != 20 || done.ProgressPercent != 50 {
			t.Fatalf("unexpected completion %+v", done)
		}
	}

	points, err := scoring.TotalPoints(ctx, player.ID)
	if err != nil {
		t.Fatalf("total points: %v", err)
	}
	if points.FromQuizzes != 10 || points.FromChallenges != 20 || points.Total != 30 {
		t.Fatalf("unexpected breakdown %+v", points)
	}
	stored, err := players.Get(ctx, player.ID)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if stored.Points != 30 || stored.LevelProgress != 50 {
		t.Fatalf("cached aggregate out of sync: %+v", stored)
	}

	history, err := players.History(ctx, player.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected challenge and quiz in history, got %+v", history)
	}

	if got, err := players.Login(ctx, "SETE@escola.example", "segredo123"); err != nil || got.ID != player.ID {
		t.Fatalf("login: %+v (%v)", got, err)
	}
	if _, err := players.Login(ctx, "7", "errada"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	school := int64(3)
	student, err := players.Register(ctx, domain.NewPlayer{Name: "Oito", Enrollment: "8", Email: "oito@escola.example", Password: "segredo123", InstitutionID: &school})
	if err != nil {
		t.Fatalf("register student: %v", err)
	}
	submissions := app.NewSubmissionService(store, scoring)
	sub, err := submissions.Submit(ctx, domain.NewSubmission{PlayerID: student.ID, ChallengeID: "pet", Photos: []string{"https://img.example/pet.jpg"}})
	if err != nil {
		t.Fatalf("submit challenge: %v", err)
	}
	if _, err := submissions.Submit(ctx, domain.NewSubmission{PlayerID: student.ID, ChallengeID: "pet", Text: "de novo"}); !errors.Is(err, domain.ErrSubmissionPending) {
		t.Fatalf("expected pending conflict, got %v", err)
	}
	pending, err := submissions.Pending(ctx, school)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].PlayerName != "Oito" || pending[0].ChallengePoints != 30 || len(pending[0].Photos) != 1 {
		t.Fatalf("unexpected pending list %+v", pending)
	}
	review, err := submissions.Review(ctx, sub.ID, domain.SubmissionApproved)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if review.Completion == nil || review.Completion.PointsAwarded != 30 {
		t.Fatalf("unexpected review %+v", review)
	}
	if _, err := submissions.Review(ctx, sub.ID, domain.SubmissionRejected); !errors.Is(err, domain.ErrSubmissionReviewed) {
		t.Fatalf("expected already reviewed, got %v", err)
	}
	studentPoints, err := scoring.TotalPoints(ctx, student.ID)
	if err != nil || studentPoints.Total != 30 {
		t.Fatalf("expected approval to award 30, got %+v (%v)", studentPoints, err)
	}
}

func TestConcurrentSubmissionsRespectCap(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := postgres.OpenDB(pgURL)
	defer db.Close()
	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := postgres.SeedCatalog(ctx, db, []domain.Quiz{sampleQuiz()}, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := postgres.NewLedgerStore(db)
	loader := postgres.NewQuizLoader(pool)
	scoring := app.NewScoringService(store, loaderRepository{loader}, nil)
	players := app.NewPlayerService(store, loaderRepository{loader}).WithBcryptCost(4)

	player, err := players.Register(ctx, domain.NewPlayer{Name: "Ana", Enrollment: "1", Email: "ana@escola.example", Password: "segredo123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := scoring.SubmitQuiz(ctx, domain.QuizSubmission{PlayerID: player.ID, QuizSlug: "eco101", Answers: []string{"A"}})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrAttemptCapExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != domain.MaxQuizAttempts {
		t.Fatalf("expected %d accepted submissions, got %d", domain.MaxQuizAttempts, accepted)
	}
	n, err := scoring.AttemptCount(ctx, player.ID, "eco101")
	if err != nil || n != domain.MaxQuizAttempts {
		t.Fatalf("expected %d attempts stored, got %d (%v)", domain.MaxQuizAttempts, n, err)
	}
}

// loaderRepository serves quizzes straight from Postgres without a cache.
type loaderRepository struct {
	loader *postgres.QuizLoader
}

func (r loaderRepository) GetQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	return r.loader.LoadQuiz(ctx, slug)
}

func (r loaderRepository) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	return r.loader.ListQuizzes(ctx)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "recicla", "POSTGRES_PASSWORD": "reciclapass", "POSTGRES_DB": "reciclagame"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://recicla:reciclapass@%s:%s/reciclagame?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Slug:  "eco101",
		Title: "Reciclagem básica",
		Questions: []domain.Question{
			{Prompt: "Papel vai na lixeira...", Options: [4]string{"Azul", "Verde", "Vermelha", "Amarela"}, Answer: "A"},
			{Prompt: "Vidro vai na lixeira...", Options: [4]string{"Azul", "Verde", "Vermelha", "Amarela"}, Answer: "B"},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
