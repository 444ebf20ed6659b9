package services

import (
	"math/rand/v2"

	"auscultify/internal/models"
)

// randomSource is satisfied by *rand.Rand and by the package-level generator
type randomSource interface {
	IntN(n int) int
	Float64() float64
	Perm(n int) []int
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) Perm(n int) []int { return rand.Perm(n) }

// rankedQuestion is a history-ranked candidate with its selection weight
type rankedQuestion struct {
	models.Question
	Attempts int
	Hits     int
	Weight   float64
}

// sampleWithReplacement draws n questions uniformly; the same question may repeat
func sampleWithReplacement(pool []models.Question, n int, rng randomSource) []models.Question {
	if len(pool) == 0 || n <= 0 {
		return nil
	}
	out := make([]models.Question, n)
	for i := range out {
		out[i] = pool[rng.IntN(len(pool))]
	}
	return out
}

// sampleWithoutReplacement draws min(n, len(pool)) distinct questions
func sampleWithoutReplacement(pool []models.Question, n int, rng randomSource) []models.Question {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}
	cp := append([]models.Question(nil), pool...)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(cp)-i)
		cp[i], cp[j] = cp[j], cp[i]
	}
	return cp[:n]
}

// weightedWithoutReplacement draws min(n, len(cands)) candidates, each draw proportional to
// the remaining weights. All-zero weights degrade to a uniform draw.
func weightedWithoutReplacement(cands []rankedQuestion, n int, rng randomSource) []rankedQuestion {
	left := append([]rankedQuestion(nil), cands...)
	if n > len(left) {
		n = len(left)
	}
	out := make([]rankedQuestion, 0, n)
	for len(out) < n {
		total := 0.0
		for _, c := range left {
			total += c.Weight
		}
		idx := len(left) - 1
		if total <= 0 {
			idx = rng.IntN(len(left))
		} else {
			target := rng.Float64() * total
			for i, c := range left {
				if target < c.Weight {
					idx = i
					break
				}
				target -= c.Weight
			}
		}
		out = append(out, left[idx])
		left = append(left[:idx], left[idx+1:]...)
	}
	return out
}

// historyWeight favours a high rate first and then a high count, capped at 0.5
func historyWeight(rate float64, count int) float64 {
	bonus := float64(count) / 10
	if bonus > 0.5 {
		bonus = 0.5
	}
	return rate + bonus
}

// pickDecoys returns up to n distinct answer texts different from q's answer. Candidates in
// primary are tried first in random order, then those in fallback.
func pickDecoys(q models.Question, primary, fallback []models.Question, n int, rng randomSource) []string {
	decoys := make([]string, 0, n)
	seen := map[string]struct{}{q.Answer: {}}

	take := func(pool []models.Question) {
		order := rng.Perm(len(pool))
		for _, i := range order {
			if len(decoys) >= n {
				return
			}
			c := pool[i]
			if c.ID == q.ID {
				continue
			}
			if _, dup := seen[c.Answer]; dup {
				continue
			}
			seen[c.Answer] = struct{}{}
			decoys = append(decoys, c.Answer)
		}
	}
	take(primary)
	take(fallback)
	return decoys
}

// pickCategory returns the category with the lowest (weakest) or highest accuracy.
// Input is ordered by category id and only a strictly better ratio replaces the current
// pick, so ties go to the lowest id.
func pickCategory(stats []models.CategoryAccuracy, weakest bool) (models.CategoryAccuracy, bool) {
	var (
		best  models.CategoryAccuracy
		found bool
	)
	for _, c := range stats {
		if c.Answered <= 0 {
			continue
		}
		if !found {
			best, found = c, true
			continue
		}
		// compare c.Correct/c.Answered with best.Correct/best.Answered without division
		lhs := c.Correct * best.Answered
		rhs := best.Correct * c.Answered
		if (weakest && lhs < rhs) || (!weakest && lhs > rhs) {
			best = c
		}
	}
	return best, found
}

func filterByCategory(pool []models.Question, categoryID int, same bool) []models.Question {
	out := make([]models.Question, 0, len(pool))
	for _, q := range pool {
		if (q.CategoryID == categoryID) == same {
			out = append(out, q)
		}
	}
	return out
}
