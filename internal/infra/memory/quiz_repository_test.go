package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"reciclagame-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"eco101": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "eco101"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "eco101"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{"eco101": sampleQuiz()}),
	}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuiz(context.Background(), "eco101")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), "eco101")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	_, err := repo.GetQuiz(context.Background(), "missing")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected generic not found match, got %v", err)
	}
}

func TestQuizRepositoryOrdersQuestionsByID(t *testing.T) {
	quiz := sampleQuiz()
	quiz.Questions[0], quiz.Questions[1] = quiz.Questions[1], quiz.Questions[0]
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]domain.Quiz{"eco101": quiz}), time.Minute)

	for i := 0; i < 2; i++ {
		got, err := repo.GetQuiz(context.Background(), "eco101")
		if err != nil {
			t.Fatalf("get quiz: %v", err)
		}
		if got.Questions[0].ID != 1 || got.Questions[1].ID != 2 {
			t.Fatalf("expected id order on call %d, got %+v", i+1, got.Questions)
		}
	}
	if quiz.Questions[0].ID != 2 {
		t.Fatalf("loader's quiz must not be reordered in place")
	}
}

func TestStaticLoaderListsSorted(t *testing.T) {
	loader := NewStaticQuizLoader(map[string]domain.Quiz{
		"eco102": {Slug: "eco102", Title: "Compostagem"},
		"eco101": sampleQuiz(),
	})
	list, err := loader.ListQuizzes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Slug != "eco101" || list[0].QuestionCount != 2 {
		t.Fatalf("unexpected listing %+v", list)
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
			{ID: 1, Prompt: "Qual a cor da lixeira de papel?", Options: [4]string{"Azul", "Verde", "Vermelha", "Amarela"}, Answer: "A"},
			{ID: 2, Prompt: "Vidro vai na lixeira...", Options: [4]string{"Azul", "Verde", "Vermelha", "Amarela"}, Answer: "B"},
		},
	}
}
