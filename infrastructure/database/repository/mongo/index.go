package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"rollcall.io/infrastructure/logger"
)

func (repo *MongoRepository[T]) createCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func (repo *MongoRepository[T]) CreateOne(payload T) (*T, error) {
	ctx, cancel := repo.createCtx()
	defer cancel()

	parsed := payload.ParseModel().(*T)
	_, err := repo.Model.InsertOne(ctx, parsed)
	if err != nil {
		logger.Error("mongo error occured while running CreateOne", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	return parsed, nil
}

func (repo *MongoRepository[T]) CreateBulk(payload []T) (*int, error) {
	ctx, cancel := repo.createCtx()
	defer cancel()

	parsed := make([]interface{}, len(payload))
	for i, item := range payload {
		parsed[i] = item.ParseModel()
	}

	result, err := repo.Model.InsertMany(ctx, parsed)
	if err != nil {
		logger.Error("mongo error occured while running CreateBulk", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	count := len(result.InsertedIDs)
	return &count, nil
}

func (repo *MongoRepository[T]) FindOneByFilter(filter map[string]interface{}, opts ...FindOptions) (*T, error) {
	ctx, cancel := repo.createCtx()
	defer cancel()

	findOpts := options.FindOne()
	if len(opts) > 0 {
		if opts[0].Projection != nil {
			findOpts.SetProjection(*opts[0].Projection)
		}
		if opts[0].Sort != nil {
			findOpts.SetSort(*opts[0].Sort)
		}
	}

	var result T
	err := repo.Model.FindOne(ctx, filter, findOpts).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		logger.Error("mongo error occured while running FindOneByFilter", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) FindMany(filter map[string]interface{}, opts ...FindOptions) (*[]T, error) {
	ctx, cancel := repo.createCtx()
	defer cancel()

	findOpts := options.Find()
	if len(opts) > 0 {
		if opts[0].Projection != nil {
			findOpts.SetProjection(*opts[0].Projection)
		}
		if opts[0].Sort != nil {
			findOpts.SetSort(*opts[0].Sort)
		}
		if opts[0].Skip != nil {
			findOpts.SetSkip(*opts[0].Skip)
		}
	}

	cursor, err := repo.Model.Find(ctx, filter, findOpts)
	if err != nil {
		logger.Error("mongo error occured while running FindMany", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}

	var results []T
	if err := cursor.All(ctx, &results); err != nil {
		logger.Error("mongo error occured while decoding FindMany results", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	return &results, nil
}

func (repo *MongoRepository[T]) UpdatePartialByFilter(filter map[string]interface{}, update map[string]interface{}) (bool, error) {
	ctx, cancel := repo.createCtx()
	defer cancel()

	result, err := repo.Model.UpdateMany(ctx, filter, map[string]interface{}{"$set": update})
	if err != nil {
		logger.Error("mongo error occured while running UpdatePartialByFilter", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (repo *MongoRepository[T]) CountDocs(filter map[string]interface{}) (int64, error) {
	ctx, cancel := repo.createCtx()
	defer cancel()

	count, err := repo.Model.CountDocuments(ctx, filter)
	if err != nil {
		logger.Error("mongo error occured while running CountDocs", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return 0, err
	}
	return count, nil
}
