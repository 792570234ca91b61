package prediction

// UnknownStudent is the identity assigned to faces whose best gallery score
// falls below the match threshold.
const UnknownStudent = "Unknown"

// Box is a face bounding box in pixel coordinates.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b Box) Width() int {
	return b.X2 - b.X1
}

func (b Box) Height() int {
	return b.Y2 - b.Y1
}

func (b Box) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// DetectedFace is one face found in one input image.
type DetectedFace struct {
	ImageIndex int     `json:"image_index"`
	Box        Box     `json:"box"`
	Confidence float32 `json:"confidence"`
}

// ConfidenceTier buckets an accepted match score for review UIs.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
	TierNone   ConfidenceTier = "none"
)

// TierFor maps an accepted similarity score to its tier. Scores below the
// threshold carry no tier.
func TierFor(score float64, threshold float64) ConfidenceTier {
	switch {
	case score < threshold:
		return TierNone
	case score >= 0.75:
		return TierHigh
	case score >= 0.60:
		return TierMedium
	default:
		return TierLow
	}
}

// MatchResult is the outcome of comparing one face embedding to the gallery.
// StudentID is UnknownStudent when the best score missed the threshold; the
// score is still carried for diagnostics.
type MatchResult struct {
	Face       DetectedFace   `json:"face"`
	StudentID  string         `json:"student_id"`
	Similarity float64        `json:"similarity"`
	Tier       ConfidenceTier `json:"tier"`
}

func (m MatchResult) Matched() bool {
	return m.StudentID != UnknownStudent
}

// Prediction is the aggregated per-student verdict for one session.
type Prediction struct {
	StudentID    string         `json:"student_id"`
	Confidence   float64        `json:"confidence"`
	Tier         ConfidenceTier `json:"tier"`
	ImageIndices []int          `json:"image_indices"`
}

// TaskState tracks one image task through the pipeline. Transitions are
// strictly forward; StateDone and StateFailed are terminal.
type TaskState string

const (
	StateQueued      TaskState = "queued"
	StateDecoding    TaskState = "decoding"
	StateDetecting   TaskState = "detecting"
	StateNormalizing TaskState = "normalizing"
	StateExtracting  TaskState = "extracting"
	StateMatching    TaskState = "matching"
	StateDone        TaskState = "done"
	StateFailed      TaskState = "failed"
)

func (s TaskState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ImageReport is the per-image diagnostics entry returned alongside the
// prediction set. A failed state with an error kind distinguishes "could not
// be processed" from a done state with zero faces.
type ImageReport struct {
	Index      int       `json:"index"`
	State      TaskState `json:"state"`
	FaultStage TaskState `json:"fault_stage,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	FacesFound int       `json:"faces_found"`
	Annotated  *string   `json:"annotated,omitempty"`
}

// Result is the structured outcome of one prediction session.
type Result struct {
	SessionID   string        `json:"session_id"`
	Predictions []Prediction  `json:"predictions"`
	Images      []ImageReport `json:"images"`
}

// Request is one prediction invocation: the session's images plus the
// matching scope supplied by the caller.
type Request struct {
	Images           [][]byte
	EligibleStudents []string
	Threshold        *float64
	Annotate         bool
}
