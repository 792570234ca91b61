package repository

import (
	"sync"

	"rollcall.io/entities"
	"rollcall.io/infrastructure/database/connection/datastore"
	"rollcall.io/infrastructure/database/repository/mongo"
)

var predictionOnce = sync.Once{}

var predictionRepository mongo.MongoRepository[entities.AttendancePrediction]

func PredictionRepo() *mongo.MongoRepository[entities.AttendancePrediction] {
	predictionOnce.Do(func() {
		predictionRepository = mongo.MongoRepository[entities.AttendancePrediction]{Model: datastore.PredictionModel}
	})
	return &predictionRepository
}
