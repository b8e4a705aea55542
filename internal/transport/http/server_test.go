package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"reciclagame-service/internal/app"
	"reciclagame-service/internal/domain"
	"reciclagame-service/internal/infra/memory"
)

type testServer struct {
	*httptest.Server
	players *app.PlayerService
	feed    *memory.PointsFeed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewLedgerStore(
		domain.Challenge{ID: "coleta1", Title: "Coleta seletiva", Points: 20},
		domain.Challenge{ID: "coleta2", Title: "Garrafas PET", Points: 30},
	)
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	feed := memory.NewPointsFeed()
	scoring := app.NewScoringService(store, quizzes, feed)
	players := app.NewPlayerService(store, quizzes).WithBcryptCost(4)
	catalog := app.NewCatalogService(store, quizzes)
	submissions := app.NewSubmissionService(store, scoring)

	metrics := NewMetrics(prometheus.NewRegistry())
	mux := http.NewServeMux()
	NewRESTHandler(scoring, catalog, players, submissions, metrics).Register(mux)
	mux.HandleFunc("GET /ws", NewWSHandler(scoring, metrics).ServeWS)

	srv := httptest.NewServer(Instrument(mux, metrics))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, players: players, feed: feed}
}

func (s *testServer) register(t *testing.T, enrollment string) domain.Player {
	t.Helper()
	inst := int64(1)
	p, err := s.players.Register(context.Background(), domain.NewPlayer{
		Name:          "Jogador " + enrollment,
		Enrollment:    enrollment,
		Email:         enrollment + "@escola.example",
		Password:      "segredo123",
		InstitutionID: &inst,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return p
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"eco101": {
			Slug:  "eco101",
			Title: "Reciclagem básica",
			Questions: []domain.Question{
				{ID: 1, Prompt: "Papel vai na lixeira...", Options: [4]string{"Azul", "Verde", "Vermelha", "Amarela"}, Answer: "A"},
				{ID: 2, Prompt: "Vidro vai na lixeira...", Options: [4]string{"Azul", "Verde", "Vermelha", "Amarela"}, Answer: "B"},
			},
		},
	}
}
