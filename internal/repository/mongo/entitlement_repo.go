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

const entitlementCollectionName = "user_entitlements"

// mongoEntitlementRepository implements repository.EntitlementRepository.
// Only the billing webhook writes here; sessions read.
type mongoEntitlementRepository struct {
	collection *mongo.Collection
}

// NewMongoEntitlementRepository creates a new entitlement repository.
func NewMongoEntitlementRepository(db *mongo.Database) repository.EntitlementRepository {
	return &mongoEntitlementRepository{
		collection: db.Collection(entitlementCollectionName),
	}
}

// GetByUserID retrieves the entitlement record for a user.
// A missing record means the user never subscribed.
func (r *mongoEntitlementRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.EntitlementRecord, error) {
	var rec domain.EntitlementRecord
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Upsert replaces the record keyed by userId. Last event processed wins;
// redelivering the same event writes the same fields, so redelivery is
// idempotent.
func (r *mongoEntitlementRepository) Upsert(ctx context.Context, rec *domain.EntitlementRecord) error {
	if rec.UserID == primitive.NilObjectID {
		return errors.New("entitlement record requires userId")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	filter := bson.M{"userId": rec.UserID}
	var existing domain.EntitlementRecord
	err := r.collection.FindOne(ctx, filter).Decode(&existing)
	if err == nil {
		rec.ID = existing.ID
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	} else if rec.ID == primitive.NilObjectID {
		rec.ID = primitive.NewObjectID()
	}

	opts := options.Replace().SetUpsert(true)
	_, err = r.collection.ReplaceOne(ctx, filter, rec, opts)
	return err
}

// EnsureEntitlementIndexes creates necessary indexes. Call during startup.
func EnsureEntitlementIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
