package cli

import (
	"time"

	"learnassess/internal/domain"
)

// sampleQuizzes seeds the in-memory store so a server without Postgres has
// something to take.
func sampleQuizzes() []domain.Quiz {
	created := time.Date(2024, 11, 22, 0, 0, 0, 0, time.UTC)
	return []domain.Quiz{
		{
			ID:          "quiz-1",
			Title:       "Arithmetic warm-up",
			Description: "Four quick sums",
			Category:    domain.CategoryMath,
			TimeLimit:   2,
			CreatedAt:   created,
			UpdatedAt:   created,
			Questions: []domain.Question{
				{Text: "What is 2 + 2?", Options: []domain.Option{{Text: "3"}, {Text: "4", IsCorrect: true}, {Text: "5"}}},
				{Text: "What is 9 - 3?", Options: []domain.Option{{Text: "6", IsCorrect: true}, {Text: "7"}, {Text: "5"}}},
				{Text: "What is 3 * 4?", Options: []domain.Option{{Text: "7"}, {Text: "14"}, {Text: "12", IsCorrect: true}}},
				{Text: "What is 10 / 2?", Options: []domain.Option{{Text: "2"}, {Text: "5", IsCorrect: true}, {Text: "20"}}},
			},
		},
		{
			ID:          "quiz-2",
			Title:       "Go basics",
			Description: "Syntax and the standard toolchain",
			Category:    domain.CategoryProgramming,
			TimeLimit:   5,
			CreatedAt:   created.Add(time.Hour),
			UpdatedAt:   created.Add(time.Hour),
			Questions: []domain.Question{
				{Text: "Which keyword starts a goroutine?", Options: []domain.Option{{Text: "async"}, {Text: "go", IsCorrect: true}, {Text: "spawn"}}},
				{Text: "What does len return for a nil slice?", Options: []domain.Option{{Text: "0", IsCorrect: true}, {Text: "-1"}, {Text: "it panics"}}},
				{Text: "Which command formats source files?", Options: []domain.Option{{Text: "go vet"}, {Text: "go fmt", IsCorrect: true}, {Text: "go lint"}}},
			},
		},
	}
}
