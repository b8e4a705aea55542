package cli

import (
	"sort"

	"reciclagame-service/internal/domain"
)

var colors = [4]string{"Azul", "Verde", "Vermelha", "Amarela"}

// sampleQuizzes is the catalog served when no database is configured and the
// one written by the seed command.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"eco101": {
			Slug:  "eco101",
			Title: "Reciclagem básica",
			Questions: []domain.Question{
				{ID: 1, Prompt: "Em qual lixeira vai o papel?", Options: colors, Answer: "A"},
				{ID: 2, Prompt: "Em qual lixeira vai o vidro?", Options: colors, Answer: "B"},
				{ID: 3, Prompt: "Em qual lixeira vai o plástico?", Options: colors, Answer: "C"},
				{ID: 4, Prompt: "Em qual lixeira vai o metal?", Options: colors, Answer: "D"},
			},
		},
		"compostagem": {
			Slug:  "compostagem",
			Title: "Compostagem em casa",
			Questions: []domain.Question{
				{ID: 5, Prompt: "Qual destes pode ir para a composteira?", Options: [4]string{"Casca de banana", "Pilha", "Isopor", "Vidro"}, Answer: "A", Points: 10},
				{ID: 6, Prompt: "O que a compostagem produz?", Options: [4]string{"Plástico", "Adubo", "Metal", "Papel"}, Answer: "B", Points: 10},
			},
		},
	}
}

func sampleQuizList() []domain.Quiz {
	byslug := sampleQuizzes()
	out := make([]domain.Quiz, 0, len(byslug))
	for _, q := range byslug {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func sampleChallenges() []domain.Challenge {
	return []domain.Challenge{
		{ID: "coleta1", Title: "Coleta seletiva", Description: "Separe o lixo reciclável da sua casa por uma semana.", Points: 20},
		{ID: "pet", Title: "Garrafas PET", Description: "Leve 10 garrafas PET a um ponto de coleta.", Points: 30},
		{ID: "oleo", Title: "Óleo de cozinha", Description: "Descarte óleo usado em um ponto de coleta.", Points: 25},
	}
}
