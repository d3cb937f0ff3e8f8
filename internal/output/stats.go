package output

import (
	"fmt"

	"github.com/avallverdu/eval-runner/internal/model"
)

// ScoreStats summarizes the scores of a set of result rows.
type ScoreStats struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

// Summarize computes score statistics over rows.
// A zero-row input yields a zero-value summary, never a fault.
func Summarize(rows []model.ResultRow) ScoreStats {
	if len(rows) == 0 {
		return ScoreStats{}
	}

	s := ScoreStats{
		Count: len(rows),
		Min:   rows[0].Score,
		Max:   rows[0].Score,
	}
	sum := 0.0
	for _, r := range rows {
		sum += r.Score
		if r.Score < s.Min {
			s.Min = r.Score
		}
		if r.Score > s.Max {
			s.Max = r.Score
		}
	}
	s.Mean = sum / float64(s.Count)
	return s
}

func (s ScoreStats) String() string {
	return fmt.Sprintf("count=%d mean=%.2f min=%.0f max=%.0f", s.Count, s.Mean, s.Min, s.Max)
}
