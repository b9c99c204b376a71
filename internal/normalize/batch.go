package normalize

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// topMessageLimit bounds the reported distinct error/warning messages.
const topMessageLimit = 10

// NormalizeBatch runs the pipeline over a batch of items and
// aggregates validity counts, the mean quality score and the most
// frequent finding messages.
func (n *Normalizer) NormalizeBatch(items []Item, baseURL string) BatchResult {
	batch := BatchResult{Results: make([]Result, 0, len(items))}

	scores := make([]float64, 0, len(items))
	frequencies := map[string]int{}

	for _, item := range items {
		res := n.Normalize(item, baseURL)
		batch.Results = append(batch.Results, res)

		if res.IsValid {
			batch.ValidItems++
		} else {
			batch.InvalidItems++
		}
		scores = append(scores, res.Quality.Overall)

		for _, issue := range res.Errors {
			frequencies[issue.Message]++
		}
		for _, issue := range res.Warnings {
			frequencies[issue.Message]++
		}
	}

	if len(scores) > 0 {
		batch.AverageQualityScore = round2(stat.Mean(scores, nil))
	}
	batch.TopMessages = topMessages(frequencies, topMessageLimit)
	return batch
}

// topMessages orders distinct messages by descending frequency, ties
// broken alphabetically for determinism.
func topMessages(frequencies map[string]int, limit int) []MessageCount {
	counts := make([]MessageCount, 0, len(frequencies))
	for msg, count := range frequencies {
		counts = append(counts, MessageCount{Message: msg, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Message < counts[j].Message
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
