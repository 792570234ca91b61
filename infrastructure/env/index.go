package env

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"rollcall.io/infrastructure/logger"
)

var loadOnce sync.Once

// LoadEnv reads the .env file into the process environment. Idempotent; the
// single load site for the whole process.
func LoadEnv() {
	loadOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			logger.Info("error loading env variables")
		}
	})
}

// Config carries the externally supplied tuning surface of the prediction
// core. Nothing here is hard-coded at the call sites.
type Config struct {
	SimilarityThreshold    float64
	MinDetectionConfidence float32
	WorkerPoolSize         int
	SessionTTL             time.Duration
	SessionTimeout         time.Duration
	EmbeddingDim           int
	FaceSize               int

	GalleryDir         string
	DetectorModelPath  string
	CascadePath        string
	ExtractorModelPath string
}

// PredictionConfig reads the prediction tuning values from the environment,
// falling back to the defaults the original deployment shipped with.
func PredictionConfig() Config {
	return Config{
		SimilarityThreshold:    getFloat("SIMILARITY_THRESHOLD", 0.45),
		MinDetectionConfidence: float32(getFloat("MIN_DETECTION_CONFIDENCE", 0.6)),
		WorkerPoolSize:         getInt("WORKER_POOL_SIZE", 8),
		SessionTTL:             time.Duration(getInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		SessionTimeout:         time.Duration(getInt("SESSION_TIMEOUT_SECONDS", 120)) * time.Second,
		EmbeddingDim:           getInt("EMBEDDING_DIM", 256),
		FaceSize:               getInt("FACE_SIZE", 128),
		GalleryDir:             getString("GALLERY_DIR", "./gallery"),
		DetectorModelPath:      getString("DETECTOR_MODEL_PATH", "./models/yunet/face_detection_yunet_2023mar.onnx"),
		CascadePath:            getString("CASCADE_PATH", "./models/haarcascades/haarcascade_frontalface_alt.xml"),
		ExtractorModelPath:     getString("EXTRACTOR_MODEL_PATH", "./models/lightcnn/lightcnn_29v2.onnx"),
	}
}

func getString(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logger.Warning("invalid integer env value, using fallback", logger.LoggerOptions{
			Key:  key,
			Data: value,
		})
		return fallback
	}
	return parsed
}

func getFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Warning("invalid float env value, using fallback", logger.LoggerOptions{
			Key:  key,
			Data: value,
		})
		return fallback
	}
	return parsed
}
