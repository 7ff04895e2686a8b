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

// MongoRescheduleRequestRepository implements RescheduleRequestRepository
type MongoRescheduleRequestRepository struct {
	collection *mongo.Collection
}

// NewMongoRescheduleRequestRepository creates a new reschedule request repository
func NewMongoRescheduleRequestRepository(db *mongo.Database) repository.RescheduleRequestRepository {
	collection := db.Collection("reschedule_requests")

	ctx := context.Background()

	// Partial unique index: at most one open request per flight,
	// enforced at the data-access boundary
	openIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "flightId", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"status": bson.M{"$in": entity.OpenStatuses()},
			}),
	}

	// Index for instructor listings
	instructorIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "selectedInstructorId", Value: 1},
			{Key: "originalInstructorId", Value: 1},
		},
	}

	// Index for the expiry sweep
	expiryIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "expiresAt", Value: 1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		openIndex,
		instructorIndex,
		expiryIndex,
	})

	return &MongoRescheduleRequestRepository{collection: collection}
}

// Create inserts a new request; a duplicate-key error from the partial
// unique index means an open request already exists for the flight
func (r *MongoRescheduleRequestRepository) Create(ctx context.Context, req *entity.RescheduleRequest) error {
	now := time.Now()
	if req.ID == "" {
		req.ID = newObjectID()
	}
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, req)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflictf("open reschedule request already exists for flight %s", req.FlightID)
	}
	return err
}

// FindByID finds a request by its id
func (r *MongoRescheduleRequestRepository) FindByID(ctx context.Context, id string) (*entity.RescheduleRequest, error) {
	var req entity.RescheduleRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFoundf("reschedule request %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindOpenByFlight finds the open request for a flight, if any
func (r *MongoRescheduleRequestRepository) FindOpenByFlight(ctx context.Context, flightID string) (*entity.RescheduleRequest, error) {
	var req entity.RescheduleRequest
	filter := bson.M{
		"flightId": flightID,
		"status":   bson.M{"$in": entity.OpenStatuses()},
	}
	err := r.collection.FindOne(ctx, filter).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFoundf("no open reschedule request for flight %s", flightID)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// SelectOption binds the student's chosen suggestion and moves the
// request to PENDING_INSTRUCTOR, conditioned on PENDING_STUDENT
func (r *MongoRescheduleRequestRepository) SelectOption(ctx context.Context, id string, option int, selectedInstructorID string, at time.Time) error {
	filter := bson.M{
		"_id":    id,
		"status": entity.RequestStatusPendingStudent,
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"status":               entity.RequestStatusPendingInstructor,
		"selectedOption":       option,
		"selectedBy":           entity.SelectedByStudent,
		"selectedInstructorId": selectedInstructorID,
		"studentConfirmedAt":   at,
		"updatedAt":            at,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.Conflictf("reschedule request %s is not awaiting the student", id)
	}
	return nil
}

// Accept finalizes the request, conditioned on PENDING_INSTRUCTOR so
// exactly one of two racing confirmers succeeds
func (r *MongoRescheduleRequestRepository) Accept(ctx context.Context, id string, newFlightID string, at time.Time) error {
	filter := bson.M{
		"_id":    id,
		"status": entity.RequestStatusPendingInstructor,
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"status":                entity.RequestStatusAccepted,
		"newFlightId":           newFlightID,
		"instructorConfirmedAt": at,
		"updatedAt":             at,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.Conflictf("reschedule request %s is not awaiting the instructor", id)
	}
	return nil
}

// Reject terminates any open request with a reason
func (r *MongoRescheduleRequestRepository) Reject(ctx context.Context, id string, reason string, at time.Time) error {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": entity.OpenStatuses()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"status":       entity.RequestStatusRejected,
		"rejectReason": reason,
		"updatedAt":    at,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.Conflictf("reschedule request %s is not open", id)
	}
	return nil
}

// ExpireOverdue flips every overdue open request to EXPIRED
func (r *MongoRescheduleRequestRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":    bson.M{"$in": entity.OpenStatuses()},
		"expiresAt": bson.M{"$lt": now},
	}
	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"status":    entity.RequestStatusExpired,
		"updatedAt": now,
	}})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// ListForInstructor lists the requests an instructor may act on. While
// a request is PENDING_INSTRUCTOR only the instructor named in the
// selected suggestion sees it; in every other status visibility
// reverts to the original flight's instructor.
func (r *MongoRescheduleRequestRepository) ListForInstructor(ctx context.Context, instructorID string) ([]*entity.RescheduleRequest, error) {
	filter := bson.M{"$or": []bson.M{
		{
			"status":               entity.RequestStatusPendingInstructor,
			"selectedInstructorId": instructorID,
		},
		{
			"status":               bson.M{"$ne": entity.RequestStatusPendingInstructor},
			"originalInstructorId": instructorID,
		},
	}}
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []*entity.RescheduleRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}
