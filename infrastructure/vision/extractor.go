package vision

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"
	prediction "rollcall.io/application/services/prediction"
	"rollcall.io/infrastructure/logger"
)

// EmbeddingExtractor wraps the LightCNN-style embedding net. Inference is
// deterministic for a given model and input.
type EmbeddingExtractor struct {
	net          gocv.Net
	inputSize    image.Point
	embeddingDim int
	label        string
	modelLoaded  bool
	mutex        sync.Mutex
}

// ExtractorConfig holds configuration for the embedding model
type ExtractorConfig struct {
	ModelPath    string
	FaceSize     int
	EmbeddingDim int
	Backend      gocv.NetBackendType
	Target       gocv.NetTargetType
	Label        string
}

// NewEmbeddingExtractor loads the ONNX embedding model. Two instances of
// the same model with different net targets form the primary/degraded pair:
// the degraded one pins inference to the plain CPU target.
func NewEmbeddingExtractor(config ExtractorConfig) *EmbeddingExtractor {
	extractor := &EmbeddingExtractor{
		inputSize:    image.Pt(config.FaceSize, config.FaceSize),
		embeddingDim: config.EmbeddingDim,
		label:        config.Label,
	}
	if extractor.label == "" {
		extractor.label = "lightcnn"
	}

	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		logger.Error("embedding model file not found", logger.LoggerOptions{
			Key:  "model_path",
			Data: config.ModelPath,
		})
		return extractor
	}

	net := gocv.ReadNet(config.ModelPath, "")
	if net.Empty() {
		logger.Error("failed to load embedding model", logger.LoggerOptions{
			Key:  "model_path",
			Data: config.ModelPath,
		})
		return extractor
	}

	net.SetPreferableBackend(config.Backend)
	net.SetPreferableTarget(config.Target)

	extractor.net = net
	extractor.modelLoaded = true

	logger.Info("embedding extractor initialized", logger.LoggerOptions{
		Key: "model_info",
		Data: map[string]interface{}{
			"model_path":    config.ModelPath,
			"input_size":    fmt.Sprintf("%dx%d", config.FaceSize, config.FaceSize),
			"embedding_dim": config.EmbeddingDim,
			"label":         extractor.label,
		},
	})
	return extractor
}

func (e *EmbeddingExtractor) Name() string {
	return e.label
}

func (e *EmbeddingExtractor) IsHealthy() bool {
	return e.modelLoaded
}

// Extract runs one normalized face through the net and returns the
// L2-normalized embedding vector.
func (e *EmbeddingExtractor) Extract(tensor prediction.FaceTensor) ([]float32, error) {
	faceMat, ok := tensor.(*FaceMat)
	if !ok {
		return nil, &prediction.ExtractionError{Extractor: e.Name(), Reason: "unsupported face tensor type"}
	}
	if !e.modelLoaded {
		return nil, &prediction.ExtractionError{Extractor: e.Name(), Reason: "model not loaded"}
	}
	if faceMat.mat.Empty() {
		return nil, &prediction.ExtractionError{Extractor: e.Name(), Reason: "empty face tensor"}
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	// Intensity normalization to mean/std 0.5 in [0,1] scale happens in the
	// blob conversion: (x - 127.5) / 127.5
	blob := gocv.BlobFromImage(
		faceMat.mat,
		1.0/127.5,
		e.inputSize,
		gocv.NewScalar(127.5, 127.5, 127.5, 0),
		false, // grayscale input, no channel swap
		false,
	)
	defer blob.Close()

	e.net.SetInput(blob, "")
	output := e.net.Forward("")
	defer output.Close()

	if output.Empty() || output.Total() < e.embeddingDim {
		return nil, &prediction.ExtractionError{
			Extractor: e.Name(),
			Reason:    fmt.Sprintf("model output too small for %d-dim embedding", e.embeddingDim),
		}
	}

	embedding := make([]float32, e.embeddingDim)
	for i := 0; i < e.embeddingDim; i++ {
		embedding[i] = output.GetFloatAt(0, i)
	}

	return normalizeEmbedding(embedding), nil
}

// Close releases resources
func (e *EmbeddingExtractor) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.modelLoaded {
		return nil
	}
	e.modelLoaded = false
	if err := e.net.Close(); err != nil {
		return fmt.Errorf("failed to close embedding network: %v", err)
	}
	return nil
}

// normalizeEmbedding performs L2 normalization on the embedding
func normalizeEmbedding(embedding []float32) []float32 {
	norm := 0.0
	for _, val := range embedding {
		norm += float64(val) * float64(val)
	}
	norm = math.Sqrt(norm)

	if norm == 0 {
		return embedding
	}

	normalized := make([]float32, len(embedding))
	for i, val := range embedding {
		normalized[i] = float32(float64(val) / norm)
	}
	return normalized
}
