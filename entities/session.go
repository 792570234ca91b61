package entities

import (
	"time"

	"rollcall.io/application/utils"
)

// PredictionSession is the audit record of one prediction request: how many
// images arrived, how many were processed, and how the session ended.
type PredictionSession struct {
	SessionID   string `bson:"sessionID" json:"sessionID"`
	ImageCount  int    `bson:"imageCount" json:"imageCount"`
	DoneCount   int    `bson:"doneCount" json:"doneCount"`
	FailedCount int    `bson:"failedCount" json:"failedCount"`
	Predictions int    `bson:"predictions" json:"predictions"`

	ID        string     `bson:"_id" json:"id"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt *time.Time `bson:"deletedAt" json:"deletedAt"`
}

func (model PredictionSession) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		if model.ID == "" {
			model.ID = utils.GenerateULIDString()
		}
	}
	model.UpdatedAt = now
	return &model
}
