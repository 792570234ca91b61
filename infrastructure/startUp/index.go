package startup

import (
	"os"
	"time"

	"gocv.io/x/gocv"
	"rollcall.io/application/controller"
	"rollcall.io/application/services/enrollment"
	"rollcall.io/application/services/prediction"
	"rollcall.io/infrastructure/database"
	"rollcall.io/infrastructure/database/connection/datastore"
	"rollcall.io/infrastructure/env"
	"rollcall.io/infrastructure/gallery"
	"rollcall.io/infrastructure/logger"
	queue_tasks "rollcall.io/infrastructure/message_queue/tasks"
	"rollcall.io/infrastructure/session"
	"rollcall.io/infrastructure/vision"
)

var galleryStore *gallery.Store
var sessionManager *session.Manager
var yunetDetector *vision.YuNetDetector
var cascadeDetector *vision.CascadeDetector
var primaryExtractor *vision.EmbeddingExtractor
var degradedExtractor *vision.EmbeddingExtractor

// StartServices brings up loggers, databases, the gallery cache, the session
// manager and the vision pipeline, then wires the controller and queue tasks.
func StartServices() {
	logger.InitializeLogger()
	database.SetUpDatabase()

	cfg := env.PredictionConfig()

	galleryStore = gallery.NewStore(cfg.GalleryDir, cfg.EmbeddingDim)
	if err := galleryStore.Load(); err != nil {
		logger.Warning("gallery did not load at startup, predictions will 412 until a refresh lands", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}

	sessionManager = session.NewManager(os.TempDir(), cfg.SessionTTL)
	sessionManager.StartReaper(time.Hour)

	decoder := vision.NewImageDecoder()
	yunetDetector = vision.NewYuNetDetector(vision.GetDefaultYuNetConfig(cfg.DetectorModelPath, cfg.MinDetectionConfidence))
	cascadeDetector = vision.NewCascadeDetector(cfg.CascadePath)
	normalizer := vision.NewFaceNormalizer(cfg.FaceSize)
	primaryExtractor = vision.NewEmbeddingExtractor(vision.ExtractorConfig{
		ModelPath:    cfg.ExtractorModelPath,
		FaceSize:     cfg.FaceSize,
		EmbeddingDim: cfg.EmbeddingDim,
		Backend:      gocv.NetBackendDefault,
		Target:       gocv.NetTargetCPU,
		Label:        "lightcnn",
	})
	// same weights pinned to the plain CPU path, used when the primary
	// extractor faults
	degradedExtractor = vision.NewEmbeddingExtractor(vision.ExtractorConfig{
		ModelPath:    cfg.ExtractorModelPath,
		FaceSize:     cfg.FaceSize,
		EmbeddingDim: cfg.EmbeddingDim,
		Backend:      gocv.NetBackendOpenCV,
		Target:       gocv.NetTargetCPU,
		Label:        "lightcnn-degraded",
	})

	orchestrator := prediction.NewOrchestrator(prediction.Deps{
		Decoder:           decoder,
		Detector:          yunetDetector,
		FallbackDetector:  cascadeDetector,
		Normalizer:        normalizer,
		Extractor:         primaryExtractor,
		FallbackExtractor: degradedExtractor,
		Gallery:           galleryStore,
		Sessions:          sessionManager,
	}, prediction.Config{
		SimilarityThreshold: cfg.SimilarityThreshold,
		WorkerPoolSize:      cfg.WorkerPoolSize,
		SessionTimeout:      cfg.SessionTimeout,
	})

	enrollmentService := &enrollment.Service{
		Decoder:    decoder,
		Detector:   yunetDetector,
		Normalizer: normalizer,
		Extractor:  primaryExtractor,
		Gallery:    galleryStore,
	}

	controller.InitAttendanceController(orchestrator, galleryStore, sessionManager, enrollmentService)
	queue_tasks.SetGalleryStore(galleryStore)
	queue_tasks.SetSessionManager(sessionManager)
}

// CleanUpServices releases what StartServices acquired.
func CleanUpServices() {
	datastore.CleanUp()
	if sessionManager != nil {
		sessionManager.StopReaper()
	}
	if yunetDetector != nil {
		yunetDetector.Close()
	}
	if cascadeDetector != nil {
		cascadeDetector.Close()
	}
	if primaryExtractor != nil {
		primaryExtractor.Close()
	}
	if degradedExtractor != nil {
		degradedExtractor.Close()
	}
}
