package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/repository"
)

// mongoExerciseRepository implements repository.ExerciseRepository.
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new exercise library repository.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

// GetByID retrieves a single exercise definition.
func (r *mongoExerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	var ex domain.Exercise
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ex)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &ex, nil
}

// GetByIDs fetches a batch of exercises keyed by ID.
func (r *mongoExerciseRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Exercise, error) {
	result := make(map[primitive.ObjectID]domain.Exercise, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var exercises []domain.Exercise
	if err := cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	for _, ex := range exercises {
		result[ex.ID] = ex
	}
	return result, nil
}

// SetImageKey records the S3 object key of an exercise's demo image,
// called after the admin upload is confirmed.
func (r *mongoExerciseRepository) SetImageKey(ctx context.Context, id primitive.ObjectID, key string) error {
	update := bson.M{
		"$set": bson.M{
			"imageKey":  key,
			"updatedAt": time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
