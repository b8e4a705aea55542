package app

import (
	"reciclagame-service/internal/domain"
)

// ScoreAnswers grades answers positionally. Questions must be in id order,
// which QuizRepository guarantees. Extra answers are ignored and missing ones
// count as wrong.
func ScoreAnswers(questions []domain.Question, answers []string) int {
	total := 0
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		if answers[i] == q.Answer {
			total += q.Value()
		}
	}
	return total
}
