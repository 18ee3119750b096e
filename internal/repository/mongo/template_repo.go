package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/repository"
)

const (
	templateCollectionName         = "plan_templates"
	templateDayCollectionName      = "plan_template_days"
	templateExerciseCollectionName = "plan_template_exercises"
	exerciseCollectionName         = "exercises"
)

// mongoTemplateRepository implements repository.TemplateRepository over the
// four catalog collections. The catalog is seeded data; this repository
// only reads it.
type mongoTemplateRepository struct {
	templates         *mongo.Collection
	days              *mongo.Collection
	templateExercises *mongo.Collection
	exercises         *mongo.Collection
}

// NewMongoTemplateRepository creates a new template catalog repository.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		templates:         db.Collection(templateCollectionName),
		days:              db.Collection(templateDayCollectionName),
		templateExercises: db.Collection(templateExerciseCollectionName),
		exercises:         db.Collection(exerciseCollectionName),
	}
}

// GetBySlug resolves a template by its stable slug. The planner only
// produces slugs from the seeded set, so ErrNotFound here means the
// catalog itself is inconsistent.
func (r *mongoTemplateRepository) GetBySlug(ctx context.Context, slug domain.TemplateSlug) (*domain.PlanTemplate, error) {
	var tmpl domain.PlanTemplate
	err := r.templates.FindOne(ctx, bson.M{"slug": slug}).Decode(&tmpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &tmpl, nil
}

// GetHydrated loads a template with its full day/exercise structure.
// Days come back ascending by dayNumber, exercises within each day
// ascending by orderIndex.
func (r *mongoTemplateRepository) GetHydrated(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error) {
	var tmpl domain.PlanTemplate
	err := r.templates.FindOne(ctx, bson.M{"_id": id}).Decode(&tmpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	// Days, sorted by day number.
	dayOpts := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}})
	cursor, err := r.days.Find(ctx, bson.M{"templateId": id}, dayOpts)
	if err != nil {
		return nil, err
	}
	var days []domain.TemplateDay
	if err := cursor.All(ctx, &days); err != nil {
		return nil, err
	}

	// Exercise slots per day, sorted by order index, plus the referenced
	// exercise definitions in one batch.
	var exerciseIDs []primitive.ObjectID
	for i := range days {
		slotOpts := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}})
		slotCursor, err := r.templateExercises.Find(ctx, bson.M{"dayId": days[i].ID}, slotOpts)
		if err != nil {
			return nil, err
		}
		var slots []domain.TemplateExercise
		if err := slotCursor.All(ctx, &slots); err != nil {
			return nil, err
		}
		days[i].Exercises = slots
		for _, slot := range slots {
			exerciseIDs = append(exerciseIDs, slot.ExerciseID)
		}
	}

	exerciseByID, err := r.fetchExercises(ctx, exerciseIDs)
	if err != nil {
		return nil, err
	}
	for i := range days {
		for j := range days[i].Exercises {
			if ex, ok := exerciseByID[days[i].Exercises[j].ExerciseID]; ok {
				exCopy := ex
				days[i].Exercises[j].Exercise = &exCopy
			}
		}
	}

	tmpl.Days = days
	return &tmpl, nil
}

// List returns the whole catalog (without day structure) for the wizard.
func (r *mongoTemplateRepository) List(ctx context.Context) ([]domain.PlanTemplate, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.templates.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []domain.PlanTemplate
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *mongoTemplateRepository) fetchExercises(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Exercise, error) {
	result := make(map[primitive.ObjectID]domain.Exercise, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cursor, err := r.exercises.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var exercises []domain.Exercise
	if err := cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	for _, ex := range exercises {
		result[ex.ID] = ex
	}
	return result, nil
}

// EnsureTemplateIndexes creates necessary indexes. Call during startup.
func EnsureTemplateIndexes(ctx context.Context, db *mongo.Database) {
	_, _ = db.Collection(templateCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	_, _ = db.Collection(templateDayCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "templateId", Value: 1}, {Key: "dayNumber", Value: 1}},
			Options: options.Index(),
		},
	})
	_, _ = db.Collection(templateExerciseCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "dayId", Value: 1}, {Key: "orderIndex", Value: 1}},
			Options: options.Index(),
		},
	})
}
