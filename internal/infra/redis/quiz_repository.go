package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"reciclagame-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
}

// QuizRepository caches quizzes in Redis and falls back to a loader on cache miss.
// Questions are stored as: HSET quiz:{slug}:questions {questionID} {question JSON}
// Metadata is stored as:   HSET quiz:{slug}:meta title {title} image {image}
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	if quiz, ok := r.fromCache(ctx, slug); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.fromCache(ctx, slug); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, slug)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz = quiz.InIDOrder()
		r.store(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	return r.loader.ListQuizzes(ctx)
}

// Invalidate drops the cached copy of a quiz.
func (r *QuizRepository) Invalidate(ctx context.Context, slug string) error {
	return r.client.Del(ctx, r.questionsKey(slug), r.metaKey(slug)).Err()
}

func (r *QuizRepository) fromCache(ctx context.Context, slug string) (domain.Quiz, bool) {
	meta, err := r.client.HGetAll(ctx, r.metaKey(slug)).Result()
	if err != nil || len(meta) == 0 {
		return domain.Quiz{}, false
	}
	fields, err := r.client.HGetAll(ctx, r.questionsKey(slug)).Result()
	if err != nil {
		return domain.Quiz{}, false
	}

	quiz := domain.Quiz{Slug: slug, Title: meta["title"], Image: meta["image"]}
	for _, raw := range fields {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return domain.Quiz{}, false
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	// hash order is random; scoring depends on id order
	return quiz.InIDOrder(), true
}

// store is best-effort; a failed write only costs another load.
func (r *QuizRepository) store(ctx context.Context, quiz domain.Quiz) {
	questionsKey := r.questionsKey(quiz.Slug)
	metaKey := r.metaKey(quiz.Slug)
	ttl := r.ttlWithJitter()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, questionsKey)
	for _, q := range quiz.Questions {
		raw, err := json.Marshal(q)
		if err != nil {
			return
		}
		pipe.HSet(ctx, questionsKey, q.ID, raw)
	}
	// meta is written last and always has a field, so its presence marks a complete entry
	pipe.HSet(ctx, metaKey, "title", quiz.Title, "image", quiz.Image)
	if ttl > 0 {
		pipe.Expire(ctx, questionsKey, ttl)
		pipe.Expire(ctx, metaKey, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (r *QuizRepository) questionsKey(slug string) string {
	return "quiz:" + slug + ":questions"
}

func (r *QuizRepository) metaKey(slug string) string {
	return "quiz:" + slug + ":meta"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
