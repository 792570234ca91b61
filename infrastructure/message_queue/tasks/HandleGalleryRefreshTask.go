package queue_tasks

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	mq_types "rollcall.io/infrastructure/message_queue/types"

	"rollcall.io/infrastructure/gallery"
	"rollcall.io/infrastructure/logger"
)

const HandleGalleryRefreshTaskName mq_types.TaskName = "gallery:refresh"

type GalleryRefreshPayload struct {
	StudentID string `json:"studentID"`
}

var galleryStore *gallery.Store

// SetGalleryStore wires the store the refresh task operates on. Called once
// during startup before the broker begins consuming.
func SetGalleryStore(store *gallery.Store) {
	galleryStore = store
}

// HandleGalleryRefreshTask re-reads one student's gallery record after their
// reference images changed.
func HandleGalleryRefreshTask(ctx context.Context, task *asynq.Task) error {
	var payload GalleryRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Error("malformed gallery refresh payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}

	if galleryStore == nil {
		logger.Warning("gallery refresh requested before store was wired")
		return nil
	}

	if err := galleryStore.Refresh(payload.StudentID); err != nil {
		logger.Error("gallery refresh task failed", logger.LoggerOptions{
			Key:  "student_id",
			Data: payload.StudentID,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}
	return nil
}
