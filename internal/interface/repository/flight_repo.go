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

// MongoFlightRepository implements FlightRepository
type MongoFlightRepository struct {
	collection *mongo.Collection
}

// NewMongoFlightRepository creates a new flight repository
func NewMongoFlightRepository(db *mongo.Database) repository.FlightRepository {
	collection := db.Collection("flights")

	ctx := context.Background()

	// Compound index for the grounding cascade query
	aircraftIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "aircraftId", Value: 1},
			{Key: "status", Value: 1},
			{Key: "scheduledStart", Value: 1},
		},
	}

	// Index for date-bounded batch submission
	scheduleIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "scheduledStart", Value: 1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		aircraftIndex,
		scheduleIndex,
	})

	return &MongoFlightRepository{collection: collection}
}

// Create inserts a new flight
func (r *MongoFlightRepository) Create(ctx context.Context, flight *entity.Flight) error {
	now := time.Now()
	if flight.ID == "" {
		flight.ID = newObjectID()
	}
	flight.CreatedAt = now
	flight.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, flight)
	return err
}

// Delete removes a flight, used to roll back a speculative successor
func (r *MongoFlightRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// FindByID finds a flight by its id
func (r *MongoFlightRepository) FindByID(ctx context.Context, id string) (*entity.Flight, error) {
	var flight entity.Flight
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&flight)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFoundf("flight %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &flight, nil
}

// FindFutureByAircraft lists flights on an aircraft starting after the
// given time, restricted to the given statuses
func (r *MongoFlightRepository) FindFutureByAircraft(ctx context.Context, aircraftID string, after time.Time, statuses []string) ([]*entity.Flight, error) {
	filter := bson.M{
		"aircraftId":     aircraftID,
		"status":         bson.M{"$in": statuses},
		"scheduledStart": bson.M{"$gt": after},
	}
	return r.find(ctx, filter)
}

// FindScheduledBetween lists flights starting inside [from, to)
func (r *MongoFlightRepository) FindScheduledBetween(ctx context.Context, from, to time.Time, statuses []string) ([]*entity.Flight, error) {
	filter := bson.M{
		"status":         bson.M{"$in": statuses},
		"scheduledStart": bson.M{"$gte": from, "$lt": to},
	}
	return r.find(ctx, filter)
}

func (r *MongoFlightRepository) find(ctx context.Context, filter bson.M) ([]*entity.Flight, error) {
	opts := options.Find().SetSort(bson.M{"scheduledStart": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var flights []*entity.Flight
	if err := cursor.All(ctx, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

// UpdateStatus transitions a flight's status conditionally on its
// current status; zero matched documents is the conflict signal
func (r *MongoFlightRepository) UpdateStatus(ctx context.Context, id string, fromStatuses []string, to string) error {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": fromStatuses},
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"status":    to,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.Conflictf("flight %s is not in %v", id, fromStatuses)
	}
	return nil
}

// BulkUpdateStatus transitions many flights at once, counting only
// documents that were still in one of the expected statuses
func (r *MongoFlightRepository) BulkUpdateStatus(ctx context.Context, ids []string, fromStatuses []string, to string) (int64, error) {
	filter := bson.M{
		"_id":    bson.M{"$in": ids},
		"status": bson.M{"$in": fromStatuses},
	}
	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"status":    to,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// SetOverride forces a weather-cancelled flight back to confirmed,
// recording who approved the override and why
func (r *MongoFlightRepository) SetOverride(ctx context.Context, id, approverID, reason string) error {
	filter := bson.M{
		"_id":    id,
		"status": entity.FlightStatusWeatherCancelled,
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"status":          entity.FlightStatusConfirmed,
		"weatherOverride": true,
		"overrideReason":  reason,
		"overrideBy":      approverID,
		"updatedAt":       time.Now(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.Conflictf("flight %s is not weather-cancelled", id)
	}
	return nil
}
