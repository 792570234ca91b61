package mq_types

type Priority string

const (
	High   Priority = "high"
	Medium Priority = "medium"
	Low    Priority = "low"
)

type TaskName string

type QueueTask struct {
	Name      TaskName
	Payload   []byte
	Priority  Priority
	ProcessIn int64
	TimeOut   int64
}
