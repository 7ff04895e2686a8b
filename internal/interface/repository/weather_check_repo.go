package repository

import (
	"context"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoWeatherCheckRepository implements WeatherCheckRepository
type MongoWeatherCheckRepository struct {
	collection *mongo.Collection
}

// NewMongoWeatherCheckRepository creates a new weather check repository
func NewMongoWeatherCheckRepository(db *mongo.Database) repository.WeatherCheckRepository {
	collection := db.Collection("weather_checks")

	ctx := context.Background()
	flightIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "flightId", Value: 1},
			{Key: "checkedAt", Value: -1},
		},
	}
	collection.Indexes().CreateOne(ctx, flightIndex)

	return &MongoWeatherCheckRepository{collection: collection}
}

// Insert appends one evaluation record; checks are never updated
func (r *MongoWeatherCheckRepository) Insert(ctx context.Context, check *entity.WeatherCheck) error {
	if check.ID == "" {
		check.ID = newObjectID()
	}
	if check.CheckedAt.IsZero() {
		check.CheckedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, check)
	return err
}

// LatestByFlight returns the most recent check for a flight
func (r *MongoWeatherCheckRepository) LatestByFlight(ctx context.Context, flightID string) (*entity.WeatherCheck, error) {
	var check entity.WeatherCheck
	opts := options.FindOne().SetSort(bson.M{"checkedAt": -1})
	err := r.collection.FindOne(ctx, bson.M{"flightId": flightID}, opts).Decode(&check)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFoundf("no weather check for flight %s", flightID)
	}
	if err != nil {
		return nil, err
	}
	return &check, nil
}
