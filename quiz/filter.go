package quiz

import (
	"math/rand"

	"studyquiz-server/models"
	"studyquiz-server/utils"
)

// Filter returns every question whose category is selected, in a fresh random order.
// An empty selection yields an empty working set.
func Filter(questions []models.Question, selected []string, r *rand.Rand) []models.Question {
	if len(selected) == 0 {
		return []models.Question{}
	}
	working := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		if utils.ContainsString(selected, q.Category) {
			working = append(working, q)
		}
	}
	r.Shuffle(len(working), func(i, j int) {
		working[i], working[j] = working[j], working[i]
	})
	return working
}
