package messagequeue

import (
	broker "rollcall.io/infrastructure/message_queue/asynq"
	mq_types "rollcall.io/infrastructure/message_queue/types"
)

var MessageQueue = &broker.AsynqBroker{}

func StartMessageQueue() {
	MessageQueue.Start()
}

func Enqueue(task mq_types.QueueTask) {
	MessageQueue.Enqueue(task)
}
