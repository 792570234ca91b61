package queue_tasks

import (
	"context"

	"github.com/hibiken/asynq"
	mq_types "rollcall.io/infrastructure/message_queue/types"

	"rollcall.io/infrastructure/logger"
	"rollcall.io/infrastructure/session"
)

const HandleSessionSweepTaskName mq_types.TaskName = "session:sweep"

var sessionManager *session.Manager

// SetSessionManager wires the manager the sweep task operates on.
func SetSessionManager(manager *session.Manager) {
	sessionManager = manager
}

// HandleSessionSweepTask forces a TTL sweep outside the reaper's regular
// interval, e.g. ahead of a bulk upload.
func HandleSessionSweepTask(ctx context.Context, task *asynq.Task) error {
	if sessionManager == nil {
		logger.Warning("session sweep requested before manager was wired")
		return nil
	}

	expired := sessionManager.Sweep()
	logger.Info("session sweep task completed", logger.LoggerOptions{
		Key:  "expired",
		Data: expired,
	})
	return nil
}
