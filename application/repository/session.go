package repository

import (
	"sync"

	"rollcall.io/entities"
	"rollcall.io/infrastructure/database/connection/datastore"
	"rollcall.io/infrastructure/database/repository/mongo"
)

var sessionOnce = sync.Once{}

var sessionRepository mongo.MongoRepository[entities.PredictionSession]

func SessionRepo() *mongo.MongoRepository[entities.PredictionSession] {
	sessionOnce.Do(func() {
		sessionRepository = mongo.MongoRepository[entities.PredictionSession]{Model: datastore.SessionModel}
	})
	return &sessionRepository
}
