package vision

import (
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
	prediction "rollcall.io/application/services/prediction"
	"rollcall.io/infrastructure/logger"
)

// cascadeConfidence stands in for Haar detections, which carry no score.
// It sits above any sane minimum-confidence setting so fallback results
// survive filtering.
const cascadeConfidence float32 = 0.8

// CascadeDetector is the degraded fallback detector, backed by the Haar
// frontal-face cascade. Slower to miss but much cheaper to run than YuNet,
// and it keeps working when the DNN runtime faults.
type CascadeDetector struct {
	classifier  gocv.CascadeClassifier
	modelLoaded bool
	mutex       sync.Mutex
}

func NewCascadeDetector(cascadePath string) *CascadeDetector {
	service := &CascadeDetector{}

	if _, err := os.Stat(cascadePath); os.IsNotExist(err) {
		logger.Error("Haar cascade file not found", logger.LoggerOptions{
			Key:  "cascade_path",
			Data: cascadePath,
		})
		return service
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		logger.Error("failed to load Haar cascade", logger.LoggerOptions{
			Key:  "cascade_path",
			Data: cascadePath,
		})
		return service
	}

	service.classifier = classifier
	service.modelLoaded = true
	logger.Info("cascade fallback detector initialized", logger.LoggerOptions{
		Key:  "cascade_path",
		Data: cascadePath,
	})
	return service
}

func (d *CascadeDetector) Name() string {
	return "haar-cascade"
}

func (d *CascadeDetector) IsHealthy() bool {
	return d.modelLoaded
}

func (d *CascadeDetector) Detect(img prediction.Image) ([]prediction.DetectedFace, error) {
	frame, ok := frameOf(img)
	if !ok {
		return nil, &prediction.DetectionError{Detector: d.Name(), Reason: "unsupported input image type"}
	}
	if !d.modelLoaded {
		return nil, &prediction.DetectionError{Detector: d.Name(), Reason: "cascade not loaded"}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	// Grayscale + histogram equalization gives the cascade better contrast
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame.mat, &gray, gocv.ColorBGRToGray)

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(gray, &equalized)

	rects := d.classifier.DetectMultiScaleWithParams(
		equalized,
		1.1,                   // scale factor
		3,                     // min neighbors
		0,                     // flags
		image.Point{X: 30, Y: 30},
		image.Point{X: 800, Y: 800},
	)

	// Retry with relaxed parameters before giving up on the image
	if len(rects) == 0 {
		rects = d.classifier.DetectMultiScaleWithParams(
			equalized,
			1.05,
			2,
			0,
			image.Point{X: 20, Y: 20},
			image.Point{X: 1000, Y: 1000},
		)
	}

	faces := make([]prediction.DetectedFace, 0, len(rects))
	for _, rect := range rects {
		faces = append(faces, prediction.DetectedFace{
			Box: prediction.Box{
				X1: rect.Min.X,
				Y1: rect.Min.Y,
				X2: rect.Max.X,
				Y2: rect.Max.Y,
			},
			Confidence: cascadeConfidence,
		})
	}
	return faces, nil
}

// Close releases resources
func (d *CascadeDetector) Close() {
	if d.modelLoaded {
		d.classifier.Close()
		d.modelLoaded = false
	}
}
