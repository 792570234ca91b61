package asynq

import (
	"os"
	"time"

	"github.com/hibiken/asynq"
	queue_tasks "rollcall.io/infrastructure/message_queue/tasks"
	mq_types "rollcall.io/infrastructure/message_queue/types"

	"rollcall.io/infrastructure/logger"
)

type AsynqBroker struct {
	Client *asynq.Client
}

func (aq *AsynqBroker) Start() {
	redisConnOpt := asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}

	aq.Client = asynq.NewClient(redisConnOpt)

	srv := asynq.NewServer(
		redisConnOpt,
		asynq.Config{
			Concurrency: 20,
			Queues: map[string]int{
				string(mq_types.High):   7,
				string(mq_types.Medium): 2,
				string(mq_types.Low):    1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(string(queue_tasks.HandleGalleryRefreshTaskName), queue_tasks.HandleGalleryRefreshTask)
	mux.HandleFunc(string(queue_tasks.HandleSessionSweepTaskName), queue_tasks.HandleSessionSweepTask)

	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Error("asynq server stopped", logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
		}
	}()

	// periodic session sweep as a cross-process backstop behind the
	// in-process reaper
	scheduler := asynq.NewScheduler(redisConnOpt, nil)
	_, err := scheduler.Register("@every 1h",
		asynq.NewTask(string(queue_tasks.HandleSessionSweepTaskName), nil),
		asynq.Queue(string(mq_types.Low)))
	if err != nil {
		logger.Error("failed to register session sweep schedule", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("asynq scheduler stopped", logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
		}
	}()
}

func (aq *AsynqBroker) Enqueue(task mq_types.QueueTask) {
	if task.TimeOut == 0 {
		task.TimeOut = 60
	}
	_, err := aq.Client.Enqueue(asynq.NewTask(string(task.Name), task.Payload),
		asynq.ProcessIn(time.Duration(task.ProcessIn)*time.Second),
		asynq.MaxRetry(10),
		asynq.Timeout(time.Second*time.Duration(task.TimeOut)),
		asynq.Queue(string(task.Priority)))
	if err != nil {
		logger.Error("failed to enqueue task", logger.LoggerOptions{
			Key:  "task",
			Data: task.Name,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
}
