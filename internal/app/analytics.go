package app

import (
	"math"
	"sort"

	"learnassess/internal/domain"
)

const recentLimit = 10

var buckets = []struct {
	label string
	min   float64
}{
	{"90-100", 90},
	{"80-89", 80},
	{"70-79", 70},
	{"60-69", 60},
	{"below-60", math.Inf(-1)},
}

// BuildAnalytics derives the analytics view from a user's results. Order of
// the input does not matter.
func BuildAnalytics(views []domain.ResultView) domain.Analytics {
	out := domain.Analytics{
		ScoreDistribution: make([]domain.ScoreBucket, len(buckets)),
		Recent:            []domain.RecentScore{},
		PerQuiz:           []domain.QuizAverage{},
	}
	for i, b := range buckets {
		out.ScoreDistribution[i].Label = b.label
	}
	if len(views) == 0 {
		return out
	}

	sorted := make([]domain.ResultView, len(views))
	copy(sorted, views)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.Before(sorted[j].CompletedAt)
	})

	type perQuiz struct {
		title string
		sum   float64
		count int
	}
	quizzes := make(map[string]*perQuiz)
	var order []string

	var scoreSum float64
	var timeSum int
	for _, v := range sorted {
		scoreSum += v.Score
		timeSum += v.TimeSpent
		if v.Score > out.HighestScore {
			out.HighestScore = v.Score
		}
		for i, b := range buckets {
			if v.Score >= b.min {
				out.ScoreDistribution[i].Count++
				break
			}
		}

		pq, ok := quizzes[v.QuizID]
		if !ok {
			title := v.QuizID
			if v.Quiz != nil && v.Quiz.Title != "" {
				title = v.Quiz.Title
			}
			pq = &perQuiz{title: title}
			quizzes[v.QuizID] = pq
			order = append(order, v.QuizID)
		}
		pq.sum += v.Score
		pq.count++
	}

	n := len(sorted)
	out.TotalAttempts = n
	out.AverageScore = roundInt(scoreSum / float64(n))
	out.AverageTimeMinutes = roundInt(float64(timeSum) / float64(n) / 60)

	start := n - recentLimit
	if start < 0 {
		start = 0
	}
	for _, v := range sorted[start:] {
		out.Recent = append(out.Recent, domain.RecentScore{
			ResultID:    v.ID,
			QuizID:      v.QuizID,
			Score:       v.Score,
			CompletedAt: v.CompletedAt,
		})
	}

	for _, id := range order {
		pq := quizzes[id]
		out.PerQuiz = append(out.PerQuiz, domain.QuizAverage{
			QuizID:   id,
			Title:    pq.title,
			Average:  roundInt(pq.sum / float64(pq.count)),
			Attempts: pq.count,
		})
	}
	return out
}

func roundInt(v float64) int {
	return int(math.Floor(v + 0.5))
}
