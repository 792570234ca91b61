package vision

import (
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
	prediction "rollcall.io/application/services/prediction"
	"rollcall.io/infrastructure/logger"
)

// YuNetDetector is the primary face detector, backed by the YuNet ONNX
// model.
type YuNetDetector struct {
	detector      gocv.FaceDetectorYN
	minConfidence float32
	nmsThreshold  float32
	topK          int
	modelLoaded   bool
	mutex         sync.Mutex
}

// YuNetConfig holds configuration for the YuNet detector
type YuNetConfig struct {
	ModelPath     string
	InputSize     image.Point
	MinConfidence float32
	NMSThreshold  float32
	TopK          int
}

// GetDefaultYuNetConfig returns default YuNet configuration
func GetDefaultYuNetConfig(modelPath string, minConfidence float32) YuNetConfig {
	return YuNetConfig{
		ModelPath:     modelPath,
		InputSize:     image.Pt(320, 320),
		MinConfidence: minConfidence,
		NMSThreshold:  0.3,
		TopK:          5000,
	}
}

// NewYuNetDetector creates the detector. A missing model leaves the
// detector unhealthy; Detect then fails with a DetectionError so the
// orchestrator can degrade to the cascade fallback.
func NewYuNetDetector(config YuNetConfig) *YuNetDetector {
	service := &YuNetDetector{
		minConfidence: config.MinConfidence,
		nmsThreshold:  config.NMSThreshold,
		topK:          config.TopK,
	}

	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		logger.Error("YuNet model file not found", logger.LoggerOptions{
			Key:  "model_path",
			Data: config.ModelPath,
		})
		return service
	}

	detector := gocv.NewFaceDetectorYN(config.ModelPath, "", config.InputSize)
	detector.SetScoreThreshold(config.MinConfidence)
	detector.SetNMSThreshold(config.NMSThreshold)
	detector.SetTopK(config.TopK)

	service.detector = detector
	service.modelLoaded = true

	logger.Info("YuNet detector initialized", logger.LoggerOptions{
		Key: "model_info",
		Data: map[string]interface{}{
			"model_path":     config.ModelPath,
			"min_confidence": config.MinConfidence,
			"nms_threshold":  config.NMSThreshold,
			"top_k":          config.TopK,
		},
	})
	return service
}

func (d *YuNetDetector) Name() string {
	return "yunet"
}

func (d *YuNetDetector) IsHealthy() bool {
	return d.modelLoaded
}

// Detect runs YuNet over the frame and returns the surviving boxes in model
// output order. Boxes below the minimum confidence are discarded before
// returning.
func (d *YuNetDetector) Detect(img prediction.Image) ([]prediction.DetectedFace, error) {
	frame, ok := frameOf(img)
	if !ok {
		return nil, &prediction.DetectionError{Detector: d.Name(), Reason: "unsupported input image type"}
	}
	if !d.modelLoaded {
		return nil, &prediction.DetectionError{Detector: d.Name(), Reason: "model not loaded"}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.detector.SetInputSize(image.Pt(frame.mat.Cols(), frame.mat.Rows()))

	facesMat := gocv.NewMat()
	defer facesMat.Close()
	d.detector.Detect(frame.mat, &facesMat)

	return d.parseDetections(facesMat, frame.mat), nil
}

// parseDetections parses the YuNet output rows. Each row carries
// [x, y, w, h, 5 landmark pairs, score]; only the box and score are used.
func (d *YuNetDetector) parseDetections(facesMat gocv.Mat, img gocv.Mat) []prediction.DetectedFace {
	faces := []prediction.DetectedFace{}
	if facesMat.Empty() || facesMat.Rows() == 0 {
		return faces
	}

	for i := 0; i < facesMat.Rows(); i++ {
		x := int(facesMat.GetFloatAt(i, 0))
		y := int(facesMat.GetFloatAt(i, 1))
		w := int(facesMat.GetFloatAt(i, 2))
		h := int(facesMat.GetFloatAt(i, 3))
		confidence := facesMat.GetFloatAt(i, 14)

		if confidence < d.minConfidence {
			continue
		}
		if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > img.Cols() || y+h > img.Rows() {
			continue
		}

		faces = append(faces, prediction.DetectedFace{
			Box:        prediction.Box{X1: x, Y1: y, X2: x + w, Y2: y + h},
			Confidence: confidence,
		})
	}
	return faces
}

// Close releases resources
func (d *YuNetDetector) Close() {
	if d.modelLoaded {
		d.detector.Close()
		d.modelLoaded = false
	}
}
