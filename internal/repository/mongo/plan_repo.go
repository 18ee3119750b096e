package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/repository"
)

const userPlanCollectionName = "user_plans"

// mongoPlanRepository implements repository.PlanRepository.
// The unique index on userId is what enforces "one active plan per user";
// Upsert replaces the previous assignment wholesale.
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new UserPlan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(userPlanCollectionName),
	}
}

// GetByUserID retrieves the single plan document for a user.
func (r *mongoPlanRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.UserPlan, error) {
	var plan domain.UserPlan
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Upsert inserts or fully replaces the plan keyed by userId
// (replace-on-conflict: the old assignment is discarded).
func (r *mongoPlanRepository) Upsert(ctx context.Context, plan *domain.UserPlan) error {
	if plan.UserID == primitive.NilObjectID || plan.TemplateID == primitive.NilObjectID {
		return errors.New("plan requires userId and templateId")
	}
	if plan.AssignedAt.IsZero() {
		plan.AssignedAt = time.Now().UTC()
	}
	if plan.ID == primitive.NilObjectID {
		plan.ID = primitive.NewObjectID()
	}

	filter := bson.M{"userId": plan.UserID}
	// Keep the existing _id when replacing so the document identity is
	// stable across re-assignments.
	var existing domain.UserPlan
	err := r.collection.FindOne(ctx, filter).Decode(&existing)
	if err == nil {
		plan.ID = existing.ID
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	opts := options.Replace().SetUpsert(true)
	_, err = r.collection.ReplaceOne(ctx, filter, plan, opts)
	return err
}

// DeleteByUserID removes the user's plan. Idempotent: deleting a plan
// that does not exist is not an error.
func (r *mongoPlanRepository) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}

// EnsureUserPlanIndexes creates necessary indexes. Call during startup.
func EnsureUserPlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One plan per user.
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
