package prediction

import (
	"math"
	"testing"
	"time"

	"rollcall.io/infrastructure/gallery"
)

func entry(studentID string, refreshedAt time.Time, vectors ...[]float32) gallery.Entry {
	return gallery.Entry{
		StudentID:   studentID,
		Vectors:     vectors,
		RefreshedAt: refreshedAt,
	}
}

func TestMatch(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name          string
		query         []float32
		snapshot      []gallery.Entry
		opts          MatchOptions
		wantStudent   string
		wantTier      ConfidenceTier
		wantSimAround float64
	}{
		{
			name:  "clear winner above threshold",
			query: []float32{1, 0, 0},
			snapshot: []gallery.Entry{
				entry("STU-A", now, []float32{1, 0, 0}),
				entry("STU-B", now, []float32{0, 1, 0}),
			},
			opts:          MatchOptions{Threshold: 0.6},
			wantStudent:   "STU-A",
			wantTier:      TierHigh,
			wantSimAround: 1.0,
		},
		{
			name:  "best score below threshold stays unknown",
			query: []float32{1, 0, 0},
			snapshot: []gallery.Entry{
				entry("STU-A", now, []float32{0.5, 0.87, 0}),
			},
			opts:        MatchOptions{Threshold: 0.9},
			wantStudent: UnknownStudent,
			wantTier:    TierNone,
		},
		{
			name:  "student scores with best of several vectors",
			query: []float32{1, 0, 0},
			snapshot: []gallery.Entry{
				entry("STU-A", now, []float32{0, 1, 0}, []float32{1, 0, 0}),
			},
			opts:          MatchOptions{Threshold: 0.6},
			wantStudent:   "STU-A",
			wantTier:      TierHigh,
			wantSimAround: 1.0,
		},
		{
			name:  "eligible roster excludes the would-be winner",
			query: []float32{1, 0, 0},
			snapshot: []gallery.Entry{
				entry("STU-A", now, []float32{1, 0, 0}),
				entry("STU-B", now, []float32{0.8, 0.6, 0}),
			},
			opts:          MatchOptions{Threshold: 0.6, Eligible: []string{"STU-B"}},
			wantStudent:   "STU-B",
			wantTier:      TierHigh,
			wantSimAround: 0.8,
		},
		{
			name:  "exact tie goes to the more recently refreshed student",
			query: []float32{1, 0, 0},
			snapshot: []gallery.Entry{
				entry("STU-A", now.Add(-time.Hour), []float32{1, 0, 0}),
				entry("STU-B", now, []float32{1, 0, 0}),
			},
			opts:          MatchOptions{Threshold: 0.6},
			wantStudent:   "STU-B",
			wantTier:      TierHigh,
			wantSimAround: 1.0,
		},
		{
			name:  "mismatched dimensions score zero",
			query: []float32{1, 0},
			snapshot: []gallery.Entry{
				entry("STU-A", now, []float32{1, 0, 0}),
			},
			opts:        MatchOptions{Threshold: 0.45},
			wantStudent: UnknownStudent,
			wantTier:    TierNone,
		},
		{
			name:     "empty snapshot stays unknown",
			query:    []float32{1, 0, 0},
			snapshot: nil,
			opts:     MatchOptions{Threshold: 0.45},

			wantStudent: UnknownStudent,
			wantTier:    TierNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.query, tt.snapshot, tt.opts)
			if got.StudentID != tt.wantStudent {
				t.Errorf("Match() student = %q, want %q", got.StudentID, tt.wantStudent)
			}
			if got.Tier != tt.wantTier {
				t.Errorf("Match() tier = %q, want %q", got.Tier, tt.wantTier)
			}
			if tt.wantSimAround != 0 && math.Abs(got.Similarity-tt.wantSimAround) > 1e-6 {
				t.Errorf("Match() similarity = %v, want about %v", got.Similarity, tt.wantSimAround)
			}
		})
	}
}

func TestMatchScoreAboveThresholdBeatsHigherIneligible(t *testing.T) {
	// one face, student A at 0.82 and student B at 0.40 with threshold 0.60
	// must resolve to A even though B is also on the roster
	now := time.Now()
	snapshot := []gallery.Entry{
		entry("STU-A", now, []float32{0.82, float32(math.Sqrt(1 - 0.82*0.82)), 0}),
		entry("STU-B", now, []float32{0.40, 0, float32(math.Sqrt(1 - 0.40*0.40))}),
	}
	got := Match([]float32{1, 0, 0}, snapshot, MatchOptions{Threshold: 0.60})
	if got.StudentID != "STU-A" {
		t.Fatalf("Match() student = %q, want STU-A", got.StudentID)
	}
	if got.Tier != TierHigh {
		t.Errorf("Match() tier = %q, want %q", got.Tier, TierHigh)
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score     float64
		threshold float64
		want      ConfidenceTier
	}{
		{0.90, 0.45, TierHigh},
		{0.75, 0.45, TierHigh},
		{0.74, 0.45, TierMedium},
		{0.60, 0.45, TierMedium},
		{0.59, 0.45, TierLow},
		{0.45, 0.45, TierLow},
		{0.44, 0.45, TierNone},
	}
	for _, tt := range tests {
		if got := TierFor(tt.score, tt.threshold); got != tt.want {
			t.Errorf("TierFor(%v, %v) = %q, want %q", tt.score, tt.threshold, got, tt.want)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"mismatched dims", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
