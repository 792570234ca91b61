package entities

import (
	"time"

	"rollcall.io/application/utils"
)

type PredictionStatus string

const (
	PredictionPendingReview PredictionStatus = "pending_review"
	PredictionConfirmed     PredictionStatus = "confirmed"
	PredictionRejected      PredictionStatus = "rejected"
)

// AttendancePrediction is one per-student verdict for one session, stored
// for later human review. (session, student) pairs are unique.
type AttendancePrediction struct {
	SessionID    string           `bson:"sessionID" json:"sessionID"`
	StudentID    string           `bson:"studentID" json:"studentID"`
	Confidence   float64          `bson:"confidence" json:"confidence"`
	Tier         string           `bson:"tier" json:"tier"`
	ImageIndices []int            `bson:"imageIndices" json:"imageIndices"`
	Status       PredictionStatus `bson:"status" json:"status"`

	ID        string     `bson:"_id" json:"id"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt *time.Time `bson:"deletedAt" json:"deletedAt"`
}

func (model AttendancePrediction) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		if model.ID == "" {
			model.ID = utils.GenerateULIDString()
		}
	}
	if model.Status == "" {
		model.Status = PredictionPendingReview
	}
	model.UpdatedAt = now
	return &model
}
