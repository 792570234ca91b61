package prediction

import (
	"math"

	"rollcall.io/infrastructure/gallery"
)

// MatchOptions tunes one matching decision.
type MatchOptions struct {
	// Threshold is the minimum cosine similarity for an accepted identity.
	Threshold float64
	// Eligible restricts matching to a roster subset. Empty means the whole
	// snapshot is eligible.
	Eligible []string
}

// Match compares one query embedding against a gallery snapshot and decides
// an identity. A student with several reference vectors scores with the best
// of them. Exact ties between students go to the more recently refreshed
// reference. Pure function: no side effects on the snapshot.
func Match(query []float32, snapshot []gallery.Entry, opts MatchOptions) MatchResult {
	var eligible map[string]struct{}
	if len(opts.Eligible) > 0 {
		eligible = make(map[string]struct{}, len(opts.Eligible))
		for _, id := range opts.Eligible {
			eligible[id] = struct{}{}
		}
	}

	best := MatchResult{
		StudentID:  UnknownStudent,
		Similarity: -1,
		Tier:       TierNone,
	}
	var bestEntry *gallery.Entry

	for i := range snapshot {
		entry := &snapshot[i]
		if eligible != nil {
			if _, ok := eligible[entry.StudentID]; !ok {
				continue
			}
		}

		score := -1.0
		for _, vector := range entry.Vectors {
			if similarity := cosineSimilarity(query, vector); similarity > score {
				score = similarity
			}
		}

		if score > best.Similarity {
			best.Similarity = score
			bestEntry = entry
		} else if score == best.Similarity && bestEntry != nil &&
			entry.RefreshedAt.After(bestEntry.RefreshedAt) {
			bestEntry = entry
		}
	}

	if bestEntry != nil && best.Similarity >= opts.Threshold {
		best.StudentID = bestEntry.StudentID
		best.Tier = TierFor(best.Similarity, opts.Threshold)
	}
	return best
}

// cosineSimilarity calculates cosine similarity between two embeddings.
// Mismatched dimensions score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	dotProduct := 0.0
	normA := 0.0
	normB := 0.0

	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))

	// Clamp to [-1, 1] range
	if similarity > 1.0 {
		similarity = 1.0
	}
	if similarity < -1.0 {
		similarity = -1.0
	}

	return similarity
}
