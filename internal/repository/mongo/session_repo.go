// internal/repository/mongo/session_repo.go
package mongo

import (
	"alcyxob/tt-trainer/internal/domain"
	"alcyxob/tt-trainer/internal/repository"
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionCollectionName = "sessions"

// mongoSessionRepository implements repository.SessionRepository.
// The exercise ordering is embedded in the session document, so every
// write of a session is a single-document (atomic) operation.
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new Session repository.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new session.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if session.Title == "" {
		return primitive.NilObjectID, errors.New("session title is required")
	}
	if err := domain.ValidateOrdering(session.Exercises); err != nil {
		return primitive.NilObjectID, err
	}
	session.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.Exercises == nil {
		session.Exercises = []domain.SessionExercise{}
	}

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single session by its ID.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// List retrieves sessions matching the filter, sorted by scheduled date.
func (r *mongoSessionRepository) List(ctx context.Context, f repository.SessionFilter) ([]domain.Session, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.From != nil || f.To != nil {
		dateRange := bson.M{}
		if f.From != nil {
			dateRange["$gte"] = f.From.UTC()
		}
		if f.To != nil {
			dateRange["$lte"] = f.To.UTC()
		}
		filter["scheduledDate"] = dateRange
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sessions := []domain.Session{}
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Save replaces the stored session document while its status is unchanged.
func (r *mongoSessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if session.ID == primitive.NilObjectID {
		return errors.New("session ID is required for save")
	}
	if err := domain.ValidateOrdering(session.Exercises); err != nil {
		return err
	}
	session.UpdatedAt = time.Now().UTC()
	if session.Exercises == nil {
		session.Exercises = []domain.SessionExercise{}
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID, "status": session.Status}, session)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return r.missOrConflict(ctx, session.ID)
	}
	return nil
}

// UpdateStatus performs a conditional status write guarded on the expected status.
func (r *mongoSessionRepository) UpdateStatus(ctx context.Context, session *domain.Session, expected domain.SessionStatus) error {
	filter := bson.M{"_id": session.ID, "status": expected}
	set := bson.M{
		"status":    session.Status,
		"updatedAt": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if session.CompletedAt != nil {
		set["completedAt"] = session.CompletedAt.UTC()
	} else {
		update["$unset"] = bson.M{"completedAt": ""}
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return r.missOrConflict(ctx, session.ID)
	}
	return nil
}

// missOrConflict tells a missing session from a lost race after a guarded write matched nothing.
func (r *mongoSessionRepository) missOrConflict(ctx context.Context, id primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrStatusConflict
}

// Delete removes a session. History records are kept.
func (r *mongoSessionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CountByExercise counts sessions whose ordering references the exercise.
func (r *mongoSessionRepository) CountByExercise(ctx context.Context, exerciseID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"exercises.exerciseId": exerciseID})
}

// EnsureSessionIndexes creates necessary indexes. Call during startup.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "scheduledDate", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "scheduledDate", Value: 1}},
			Options: options.Index(),
		},
		{
			// Reference counting before exercise deletion
			Keys:    bson.D{{Key: "exercises.exerciseId", Value: 1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
