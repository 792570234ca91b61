package prediction

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"rollcall.io/infrastructure/gallery"
	"rollcall.io/infrastructure/logger"
	"rollcall.io/infrastructure/session"
)

// Config carries the orchestrator's externally supplied tuning values.
type Config struct {
	SimilarityThreshold float64
	WorkerPoolSize      int
	SessionTimeout      time.Duration
}

// Deps are the pipeline collaborators. FallbackDetector and
// FallbackExtractor are the degraded retry paths; either may be nil, in
// which case the stage fails without a second attempt.
type Deps struct {
	Decoder           Decoder
	Detector          Detector
	FallbackDetector  Detector
	Normalizer        Normalizer
	Extractor         Extractor
	FallbackExtractor Extractor
	Gallery           *gallery.Store
	Sessions          *session.Manager
}

// Orchestrator coordinates per-image pipeline tasks across one session with
// bounded concurrency, joins them, and aggregates the surviving match
// results into the session's prediction set.
type Orchestrator struct {
	deps Deps
	cfg  Config
}

func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 1
	}
	return &Orchestrator{deps: deps, cfg: cfg}
}

// imageTask tracks one image through the pipeline state machine. All state
// mutations go through the mutex; terminal states are final, so a worker
// finishing late cannot overwrite a timeout verdict.
type imageTask struct {
	index int

	mutex      sync.Mutex
	state      TaskState
	faultStage TaskState
	errKind    string
	facesFound int
	matches    []MatchResult
	annotated  *string
}

// advance moves the task forward one stage. Returns false once the task is
// terminal.
func (t *imageTask) advance(next TaskState) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state.Terminal() {
		return false
	}
	t.state = next
	return true
}

func (t *imageTask) fail(stage TaskState, err error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state.Terminal() {
		return
	}
	t.state = StateFailed
	t.faultStage = stage
	t.errKind = Kind(err)
}

func (t *imageTask) complete(matches []MatchResult) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state.Terminal() {
		return
	}
	t.state = StateDone
	t.matches = matches
}

func (t *imageTask) setFacesFound(n int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.facesFound = n
}

func (t *imageTask) setAnnotated(encoded string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.annotated = &encoded
}

func (t *imageTask) report() ImageReport {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return ImageReport{
		Index:      t.index,
		State:      t.state,
		FaultStage: t.faultStage,
		ErrorKind:  t.errKind,
		FacesFound: t.facesFound,
		Annotated:  t.annotated,
	}
}

func (t *imageTask) doneMatches() []MatchResult {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state != StateDone {
		return nil
	}
	return t.matches
}

// Predict runs one prediction session over the request's images. The caller
// always gets a structured result unless the gallery precondition fails or
// the session working area cannot be allocated; per-image faults surface as
// flagged diagnostics, and a session timeout yields the partial result built
// from the images that finished in time.
func (o *Orchestrator) Predict(ctx context.Context, req Request) (*Result, error) {
	snapshot, err := o.deps.Gallery.LookupScoped(req.EligibleStudents)
	if err != nil {
		if errors.Is(err, gallery.ErrNotLoaded) {
			return nil, &GalleryMissingError{}
		}
		return nil, err
	}

	sess, err := o.deps.Sessions.Open(req.Images)
	if err != nil {
		return nil, err
	}
	defer o.deps.Sessions.Close(sess)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.SessionTimeout)
	defer cancel()

	threshold := o.cfg.SimilarityThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	opts := MatchOptions{Threshold: threshold, Eligible: req.EligibleStudents}

	tasks := make([]*imageTask, len(req.Images))
	for i := range tasks {
		tasks[i] = &imageTask{index: i, state: StateQueued}
	}

	jobs := make(chan *imageTask)
	var wg sync.WaitGroup
	workers := o.cfg.WorkerPoolSize
	if workers > len(tasks) {
		workers = len(tasks)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				o.runTask(ctx, sess, req, task, snapshot, opts)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, task := range tasks {
			select {
			case jobs <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-ctx.Done():
		// Cut off whatever has not reached a terminal state; completed
		// tasks keep their results.
		for _, task := range tasks {
			task.fail(task.currentState(), &TimeoutError{})
		}
		logger.Warning("session timed out, returning partial result", logger.LoggerOptions{
			Key:  "session_id",
			Data: sess.ID,
		})
	}

	allMatches := []MatchResult{}
	reports := make([]ImageReport, len(tasks))
	for i, task := range tasks {
		allMatches = append(allMatches, task.doneMatches()...)
		reports[i] = task.report()
	}

	result := &Result{
		SessionID:   sess.ID,
		Predictions: Aggregate(allMatches),
		Images:      reports,
	}

	logger.Info("prediction session finished", logger.LoggerOptions{
		Key:  "session_id",
		Data: sess.ID,
	}, logger.LoggerOptions{
		Key:  "predictions",
		Data: len(result.Predictions),
	}, logger.LoggerOptions{
		Key:  "images",
		Data: len(reports),
	})
	return result, nil
}

func (t *imageTask) currentState() TaskState {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.state
}

// runTask walks one image through decode → detect → normalize → extract →
// match. Detection and extraction each get one degraded retry; every other
// fault is terminal for the image only.
func (o *Orchestrator) runTask(ctx context.Context, sess *session.Session, req Request, task *imageTask, snapshot []gallery.Entry, opts MatchOptions) {
	if !o.enterStage(ctx, task, StateDecoding) {
		return
	}
	img, err := o.deps.Decoder.Decode(req.Images[task.index])
	if err != nil {
		task.fail(StateDecoding, err)
		return
	}
	defer img.Close()

	if !o.enterStage(ctx, task, StateDetecting) {
		return
	}
	faces, err := o.detectWithFallback(img)
	if err != nil {
		task.fail(StateDetecting, err)
		return
	}
	task.setFacesFound(len(faces))

	if !o.enterStage(ctx, task, StateNormalizing) {
		return
	}
	tensors := make([]FaceTensor, 0, len(faces))
	kept := make([]DetectedFace, 0, len(faces))
	for _, face := range faces {
		face.ImageIndex = task.index
		tensor, err := o.deps.Normalizer.Normalize(img, face.Box)
		if err != nil {
			// degenerate crop: drop this face, keep the image going
			logger.Warning("dropping unprocessable face", logger.LoggerOptions{
				Key:  "image_index",
				Data: task.index,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			continue
		}
		tensors = append(tensors, tensor)
		kept = append(kept, face)
	}
	defer func() {
		for _, tensor := range tensors {
			tensor.Close()
		}
	}()

	if !o.enterStage(ctx, task, StateExtracting) {
		return
	}
	embeddings := make([][]float32, len(tensors))
	for i, tensor := range tensors {
		embedding, err := o.extractWithFallback(tensor)
		if err != nil {
			task.fail(StateExtracting, err)
			return
		}
		embeddings[i] = embedding
	}

	if !o.enterStage(ctx, task, StateMatching) {
		return
	}
	matches := make([]MatchResult, len(embeddings))
	for i, embedding := range embeddings {
		match := Match(embedding, snapshot, opts)
		match.Face = kept[i]
		matches[i] = match
	}

	if req.Annotate {
		o.annotate(sess, task, img, kept, matches)
	}

	task.complete(matches)
}

// enterStage advances the task, converting an expired session budget into a
// timeout failure.
func (o *Orchestrator) enterStage(ctx context.Context, task *imageTask, stage TaskState) bool {
	if ctx.Err() != nil {
		task.fail(stage, &TimeoutError{})
		return false
	}
	return task.advance(stage)
}

func (o *Orchestrator) detectWithFallback(img Image) ([]DetectedFace, error) {
	faces, err := o.deps.Detector.Detect(img)
	if err == nil {
		return faces, nil
	}

	if o.deps.FallbackDetector == nil {
		return nil, err
	}
	logger.Warning("primary detector failed, retrying on fallback", logger.LoggerOptions{
		Key:  "detector",
		Data: o.deps.Detector.Name(),
	}, logger.LoggerOptions{
		Key:  "error",
		Data: err,
	})
	return o.deps.FallbackDetector.Detect(img)
}

func (o *Orchestrator) extractWithFallback(tensor FaceTensor) ([]float32, error) {
	embedding, err := o.deps.Extractor.Extract(tensor)
	if err == nil {
		return embedding, nil
	}

	if o.deps.FallbackExtractor == nil {
		return nil, err
	}
	logger.Warning("primary extractor failed, retrying on degraded path", logger.LoggerOptions{
		Key:  "extractor",
		Data: o.deps.Extractor.Name(),
	}, logger.LoggerOptions{
		Key:  "error",
		Data: err,
	})
	return o.deps.FallbackExtractor.Extract(tensor)
}

func (o *Orchestrator) annotate(sess *session.Session, task *imageTask, img Image, faces []DetectedFace, matches []MatchResult) {
	annotator, ok := img.(Annotator)
	if !ok {
		return
	}

	labels := make([]string, len(matches))
	for i, match := range matches {
		if match.Matched() {
			labels[i] = fmt.Sprintf("%s (%.2f)", match.StudentID, match.Similarity)
		} else {
			labels[i] = UnknownStudent
		}
	}

	encoded, err := annotator.AnnotateJPEG(faces, labels)
	if err != nil {
		logger.Warning("failed to render annotated image", logger.LoggerOptions{
			Key:  "image_index",
			Data: task.index,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return
	}

	name := fmt.Sprintf("annotated_%03d.jpg", task.index)
	if err := sess.WriteArtifact(name, encoded); err != nil {
		logger.Warning("failed to store annotated image", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
	task.setAnnotated(base64.StdEncoding.EncodeToString(encoded))
}
