package reviews

import (
	"math"
	"strconv"
)

// Aggregate is the raw AVG/COUNT result over a filtered set of reviews.
type Aggregate struct {
	AvgOverall    *float64
	AvgDifficulty *float64
	AvgWorkload   *float64
	Count         int
}

// Stats is the response shape for review statistics.
type Stats struct {
	AvgOverallRating    *float64 `json:"avg_overall_rating"`
	AvgDifficultyRating *float64 `json:"avg_difficulty_rating"`
	AvgWorkloadRating   *float64 `json:"avg_workload_rating"`
	ReviewCount         int      `json:"review_count"`
}

func (a Aggregate) Stats() Stats {
	if a.Count == 0 {
		return Stats{}
	}
	return Stats{
		AvgOverallRating:    a.AvgOverall,
		AvgDifficultyRating: a.AvgDifficulty,
		AvgWorkloadRating:   a.AvgWorkload,
		ReviewCount:         a.Count,
	}
}

// Rounded returns the averages rounded to two decimal places, nil when there are no reviews.
func (a Aggregate) Rounded() (overall, difficulty, workload *float64) {
	if a.Count == 0 {
		return nil, nil, nil
	}
	return roundPtr(a.AvgOverall), roundPtr(a.AvgDifficulty), roundPtr(a.AvgWorkload)
}

// Distribution counts reviews per overall rating, keyed "5" down to "1".
type Distribution map[string]int

// NewDistribution builds a distribution with every key present. Ratings outside 1..5 are dropped.
func NewDistribution(counts map[int]int) Distribution {
	dist := Distribution{"5": 0, "4": 0, "3": 0, "2": 0, "1": 0}
	for rating, n := range counts {
		if rating < 1 || rating > 5 {
			continue
		}
		dist[strconv.Itoa(rating)] += n
	}
	return dist
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round2(*v)
	return &r
}
