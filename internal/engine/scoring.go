package engine

import (
	"math"

	"learnassess/internal/domain"
)

// Score counts the questions whose selected option is flagged correct and
// returns the rounded percentage. Questions without a selection, or whose
// selection points outside the options, count as incorrect. An empty quiz
// scores 0.
func Score(quiz domain.Quiz, selected map[int]int) (correct int, score float64) {
	for i, question := range quiz.Questions {
		sel, ok := selected[i]
		if !ok || sel < 0 || sel >= len(question.Options) {
			continue
		}
		if question.Options[sel].IsCorrect {
			correct++
		}
	}
	total := quiz.QuestionCount()
	if total == 0 {
		return 0, 0
	}
	return correct, Percent(correct, total)
}

// Percent rounds 100*correct/total half-up to a whole percentage.
func Percent(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Floor(float64(correct)*100/float64(total) + 0.5)
}
