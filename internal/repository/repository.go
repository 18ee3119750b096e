package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/domain"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// PlanRepository manages the single active plan per user.
type PlanRepository interface {
	// GetByUserID returns the user's plan document (not hydrated), or
	// ErrNotFound if the user has no plan.
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.UserPlan, error)
	// Upsert replaces any existing plan for the plan's UserID
	// (replace-on-conflict keyed by userId).
	Upsert(ctx context.Context, plan *domain.UserPlan) error
	// DeleteByUserID removes the user's plan. Deleting a nonexistent
	// plan is not an error.
	DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error
}

// TemplateRepository resolves the fixed template catalog.
type TemplateRepository interface {
	GetBySlug(ctx context.Context, slug domain.TemplateSlug) (*domain.PlanTemplate, error)
	// GetHydrated loads the template with its days and exercises joined
	// in, days ascending by day number and exercises ascending by order
	// index within each day.
	GetHydrated(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error)
	List(ctx context.Context) ([]domain.PlanTemplate, error)
}

// ExerciseRepository reads the exercise library.
type ExerciseRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Exercise, error)
	SetImageKey(ctx context.Context, id primitive.ObjectID, key string) error
}

// EntitlementRepository stores the server-verified entitlement truth.
// One writer (the billing webhook), many readers (session reconcilers).
type EntitlementRepository interface {
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.EntitlementRecord, error)
	// Upsert replaces the record for the record's UserID; last event
	// processed wins.
	Upsert(ctx context.Context, rec *domain.EntitlementRecord) error
}
