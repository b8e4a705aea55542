package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"reciclagame-service/internal/domain"
	"reciclagame-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"eco101": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	first, err := repo.GetQuiz(context.Background(), "eco101")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), "eco101")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Title != first.Title || len(cached.Questions) != 2 {
		t.Fatalf("unexpected cached quiz %+v", cached)
	}
	if cached.Questions[0].ID != 1 || cached.Questions[0].Answer != "A" || cached.Questions[1].Points != 10 {
		t.Fatalf("cached questions out of order or incomplete: %+v", cached.Questions)
	}
	if ttl := mr.TTL("quiz:eco101:questions"); ttl <= 0 {
		t.Fatalf("expected ttl on cache key, got %v", ttl)
	}
}

func TestQuizRepositoryInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"eco101": sampleQuiz()}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	_, _ = repo.GetQuiz(context.Background(), "eco101")
	if err := repo.Invalidate(context.Background(), "eco101"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:eco101:meta") {
		t.Fatalf("expected meta key removed")
	}
	_, _ = repo.GetQuiz(context.Background(), "eco101")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, calls=%d", loader.calls)
	}
}

func TestQuizRepositoryMissingQuiz(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuizRepository(newClient(mr), memory.NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if mr.Exists("quiz:nope:meta") {
		t.Fatalf("missing quiz must not be cached")
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, slug)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Slug:  "eco101",
		Title: "Reciclagem básica",
		Questions: []domain.Question{
			{ID: 1, Prompt: "Papel vai na lixeira...", Options: [4]string{"Azul", "Verde", "Vermelha", "Amarela"}, Answer: "A"},
			{ID: 2, Prompt: "Vidro vai na lixeira...", Options: [4]string{"Azul", "Verde", "Vermelha", "Amarela"}, Answer: "B", Points: 10},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
