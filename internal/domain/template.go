package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanTemplate is one of the fixed workout blueprints users get assigned.
// Day/exercise structure lives in separate collections and is joined in
// by the repository (days ascending by day number, exercises ascending
// by order index within each day).
type PlanTemplate struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug                TemplateSlug       `bson:"slug" json:"slug"` // unique
	Name                string             `bson:"name" json:"name"`
	Description         string             `bson:"description,omitempty" json:"description,omitempty"`
	DaysPerWeek         int                `bson:"daysPerWeek" json:"daysPerWeek"`
	SessionDurationMins int                `bson:"sessionDurationMins" json:"sessionDurationMins"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`

	Days []TemplateDay `bson:"-" json:"days,omitempty"`
}

// TemplateDay is a single training day within a template.
type TemplateDay struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TemplateID primitive.ObjectID `bson:"templateId" json:"templateId"`
	DayNumber  int                `bson:"dayNumber" json:"dayNumber"`
	DayName    string             `bson:"dayName" json:"dayName"` // e.g., "Push Day"
	Focus      string             `bson:"focus,omitempty" json:"focus,omitempty"`

	Exercises []TemplateExercise `bson:"-" json:"exercises,omitempty"`
}

// TemplateExercise is one prescribed exercise slot within a template day.
type TemplateExercise struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DayID       primitive.ObjectID `bson:"dayId" json:"dayId"`
	ExerciseID  primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	OrderIndex  int                `bson:"orderIndex" json:"orderIndex"`
	Sets        int                `bson:"sets" json:"sets"`
	Reps        string             `bson:"reps" json:"reps"` // "8-12", "30s", etc.
	RestSeconds int                `bson:"restSeconds" json:"restSeconds"`

	Exercise *Exercise `bson:"-" json:"exercise,omitempty"`
}

// ExerciseCategory groups exercises for the library screens.
type ExerciseCategory string

const (
	CategoryStrength ExerciseCategory = "strength"
	CategoryCardio   ExerciseCategory = "cardio"
	CategoryAbs      ExerciseCategory = "abs"
	CategoryHIIT     ExerciseCategory = "hiit"
)

// Exercise is a single exercise definition in the library.
type Exercise struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Category     ExerciseCategory   `bson:"category" json:"category"`
	MuscleGroups []string           `bson:"muscleGroups,omitempty" json:"muscleGroups,omitempty"`
	Difficulty   Level              `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	Instructions []string           `bson:"instructions,omitempty" json:"instructions,omitempty"`
	Equipment    []string           `bson:"equipment,omitempty" json:"equipment,omitempty"`
	ImageKey     string             `bson:"imageKey,omitempty" json:"-"` // S3 object key, resolved to a presigned URL on read
	ImageURL     string             `bson:"-" json:"imageUrl,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
