package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "rollcall.io/application/appErrors"
	"rollcall.io/application/constants"
	"rollcall.io/application/controller/dto"
	"rollcall.io/application/interfaces"
	"rollcall.io/application/repository"
	"rollcall.io/application/services/enrollment"
	"rollcall.io/application/services/prediction"
	"rollcall.io/application/utils"
	"rollcall.io/entities"
	"rollcall.io/infrastructure/database/repository/cache"
	"rollcall.io/infrastructure/gallery"
	"rollcall.io/infrastructure/logger"
	messagequeue "rollcall.io/infrastructure/message_queue"
	queue_tasks "rollcall.io/infrastructure/message_queue/tasks"
	mq_types "rollcall.io/infrastructure/message_queue/types"
	server_response "rollcall.io/infrastructure/serverResponse"
	"rollcall.io/infrastructure/session"
	"rollcall.io/infrastructure/validator"
)

var orchestrator *prediction.Orchestrator
var galleryStore *gallery.Store
var sessionManager *session.Manager
var enrollmentService *enrollment.Service

// InitAttendanceController wires the controller's collaborators. Called once
// during startup.
func InitAttendanceController(orch *prediction.Orchestrator, store *gallery.Store, sessions *session.Manager, enroll *enrollment.Service) {
	orchestrator = orch
	galleryStore = store
	sessionManager = sessions
	enrollmentService = enroll
}

// PredictAttendance runs one prediction session over the request's images and
// responds with the per-student verdicts plus per-image diagnostics.
func PredictAttendance(ctx *interfaces.ApplicationContext[dto.PredictAttendanceDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}

	images := make([][]byte, len(ctx.Body.Images))
	for i, encoded := range ctx.Body.Images {
		data, err := utils.DecodeBase64Image(encoded)
		if err != nil {
			apperrors.ClientError(ctx.Ctx, fmt.Sprintf("image %d is not valid base64", i), nil, nil)
			return
		}
		images[i] = data
	}

	result, err := orchestrator.Predict(ctx.Ctx.Request.Context(), prediction.Request{
		Images:           images,
		EligibleStudents: ctx.Body.EligibleStudents,
		Threshold:        ctx.Body.Threshold,
		Annotate:         ctx.Body.Annotate,
	})
	if err != nil {
		var galleryErr *prediction.GalleryMissingError
		if errors.As(err, &galleryErr) {
			apperrors.PreconditionFailedError(ctx.Ctx, "no gallery loaded. enroll students or refresh the gallery first.", &constants.GALLERY_NOT_LOADED)
			return
		}
		apperrors.FatalServerError(ctx.Ctx, err)
		return
	}

	persistSessionOutcome(result)
	cacheSessionResult(result)

	var responseCode *uint
	if sessionTimedOut(result) {
		responseCode = &constants.SESSION_TIMED_OUT
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "attendance prediction completed", result, nil, responseCode)
}

// RefreshGallery queues a reload of the given students' reference records.
// The reload happens off the request path; predictions keep using the
// previous entries until each refresh lands.
func RefreshGallery(ctx *interfaces.ApplicationContext[dto.RefreshGalleryDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}

	for _, studentID := range ctx.Body.StudentIDs {
		payload, err := json.Marshal(queue_tasks.GalleryRefreshPayload{StudentID: studentID})
		if err != nil {
			apperrors.FatalServerError(ctx.Ctx, err)
			return
		}
		messagequeue.Enqueue(mq_types.QueueTask{
			Name:     queue_tasks.HandleGalleryRefreshTaskName,
			Payload:  payload,
			Priority: mq_types.High,
		})
	}

	server_response.Responder.Respond(ctx.Ctx, http.StatusAccepted, "gallery refresh queued", map[string]any{
		"queued": len(ctx.Body.StudentIDs),
	}, nil, nil)
}

// EnrollStudent extracts reference embeddings from the student's photos and
// publishes them to the gallery.
func EnrollStudent(ctx *interfaces.ApplicationContext[dto.EnrollStudentDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}

	photos := make([][]byte, len(ctx.Body.Photos))
	for i, encoded := range ctx.Body.Photos {
		data, err := utils.DecodeBase64Image(encoded)
		if err != nil {
			apperrors.ClientError(ctx.Ctx, fmt.Sprintf("photo %d is not valid base64", i), nil, nil)
			return
		}
		photos[i] = data
	}

	vectors, err := enrollmentService.Enroll(ctx.Body.StudentID, photos)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, err.Error(), nil, &constants.NO_USABLE_ENROLLMENT)
		return
	}

	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "student enrolled", map[string]any{
		"studentID": ctx.Body.StudentID,
		"vectors":   vectors,
	}, nil, nil)
}

// GetSessionResult serves the outcome of a past prediction session: the
// redis-cached full result while it is still warm, then the persisted audit
// record and verdicts.
func GetSessionResult(ctx *interfaces.ApplicationContext[any]) {
	sessionID, _ := ctx.Keys["sessionID"].(string)
	if err := validator.ValidatorInstance.ValidateValue(sessionID, "required,alphanum,len=26"); err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid session id", nil, nil)
		return
	}

	if cached := cache.Cache.FindOne(sessionCacheKey(sessionID)); cached != nil {
		result, err := parseCachedResult(*cached)
		if err == nil {
			server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "session result", result, nil, nil)
			return
		}
		logger.Warning("discarding unreadable cached session result", logger.LoggerOptions{
			Key:  "session_id",
			Data: sessionID,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}

	filter := map[string]interface{}{"sessionID": sessionID}
	sess, err := repository.SessionRepo().FindOneByFilter(filter)
	if err != nil {
		apperrors.FatalServerError(ctx.Ctx, err)
		return
	}
	if sess == nil {
		apperrors.NotFoundError(ctx.Ctx, fmt.Sprintf("session %s not found", sessionID))
		return
	}

	records, err := repository.PredictionRepo().FindMany(filter)
	if err != nil {
		apperrors.FatalServerError(ctx.Ctx, err)
		return
	}

	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "session result", archivedSessionView(sess, *records), nil, nil)
}

// PipelineHealth reports the moving parts a deployment dashboard cares about.
func PipelineHealth(ctx *interfaces.ApplicationContext[any]) {
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "pipeline health", map[string]any{
		"galleryStudents": galleryStore.Size(),
		"activeSessions":  sessionManager.Active(),
	}, nil, nil)
}

// persistSessionOutcome stores the audit record and verdicts for review.
// Persistence is best effort; a datastore fault never fails the response.
func persistSessionOutcome(result *prediction.Result) {
	done, failed := 0, 0
	for _, report := range result.Images {
		if report.State == prediction.StateDone {
			done++
		} else {
			failed++
		}
	}

	_, err := repository.SessionRepo().CreateOne(entities.PredictionSession{
		SessionID:   result.SessionID,
		ImageCount:  len(result.Images),
		DoneCount:   done,
		FailedCount: failed,
		Predictions: len(result.Predictions),
	})
	if err != nil {
		logger.Error("failed to persist session audit record", logger.LoggerOptions{
			Key:  "session_id",
			Data: result.SessionID,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}

	if len(result.Predictions) == 0 {
		return
	}
	records := make([]entities.AttendancePrediction, len(result.Predictions))
	for i, pred := range result.Predictions {
		records[i] = entities.AttendancePrediction{
			SessionID:    result.SessionID,
			StudentID:    pred.StudentID,
			Confidence:   pred.Confidence,
			Tier:         string(pred.Tier),
			ImageIndices: pred.ImageIndices,
		}
	}
	if _, err := repository.PredictionRepo().CreateBulk(records); err != nil {
		logger.Error("failed to persist prediction records", logger.LoggerOptions{
			Key:  "session_id",
			Data: result.SessionID,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
}

func cacheSessionResult(result *prediction.Result) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	cache.Cache.CreateEntry(sessionCacheKey(result.SessionID), payload, time.Hour*24)
}

func sessionCacheKey(sessionID string) string {
	return fmt.Sprintf("%s_%s", constants.PREDICTION_CACHE_PREFIX, sessionID)
}

func parseCachedResult(payload string) (*prediction.Result, error) {
	var result prediction.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// archivedSessionView reassembles a session outcome from the persisted
// records once the cached full result has expired. Per-image diagnostics are
// not persisted, so the view carries counts instead.
func archivedSessionView(sess *entities.PredictionSession, records []entities.AttendancePrediction) map[string]any {
	predictions := make([]map[string]any, len(records))
	for i, record := range records {
		predictions[i] = map[string]any{
			"student_id":    record.StudentID,
			"confidence":    record.Confidence,
			"tier":          record.Tier,
			"image_indices": record.ImageIndices,
			"status":        record.Status,
		}
	}
	return map[string]any{
		"session_id":   sess.SessionID,
		"image_count":  sess.ImageCount,
		"done_count":   sess.DoneCount,
		"failed_count": sess.FailedCount,
		"predictions":  predictions,
		"created_at":   sess.CreatedAt,
	}
}

func sessionTimedOut(result *prediction.Result) bool {
	for _, report := range result.Images {
		if report.ErrorKind == prediction.KindTimeout {
			return true
		}
	}
	return false
}
