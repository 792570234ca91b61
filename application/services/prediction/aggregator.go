package prediction

import "sort"

// Aggregate merges one session's match results into a deduplicated
// prediction set: one entry per matched student carrying the maximum
// similarity seen and every contributing image index. Unknown results are
// ignored; students never matched are simply absent. Idempotent.
func Aggregate(results []MatchResult) []Prediction {
	grouped := map[string]*Prediction{}
	contributors := map[string]map[int]struct{}{}

	for _, result := range results {
		if !result.Matched() {
			continue
		}

		entry, ok := grouped[result.StudentID]
		if !ok {
			entry = &Prediction{
				StudentID:  result.StudentID,
				Confidence: result.Similarity,
				Tier:       result.Tier,
			}
			grouped[result.StudentID] = entry
			contributors[result.StudentID] = map[int]struct{}{}
		}

		if result.Similarity > entry.Confidence {
			entry.Confidence = result.Similarity
			entry.Tier = result.Tier
		}
		contributors[result.StudentID][result.Face.ImageIndex] = struct{}{}
	}

	predictions := make([]Prediction, 0, len(grouped))
	for studentID, entry := range grouped {
		indices := make([]int, 0, len(contributors[studentID]))
		for index := range contributors[studentID] {
			indices = append(indices, index)
		}
		sort.Ints(indices)
		entry.ImageIndices = indices
		predictions = append(predictions, *entry)
	}

	sort.Slice(predictions, func(i, j int) bool {
		return predictions[i].StudentID < predictions[j].StudentID
	})
	return predictions
}
