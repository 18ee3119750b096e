package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal is the training goal the user picked in the plan wizard.
type Goal string

const (
	GoalMuscle    Goal = "muscle"
	GoalStrength  Goal = "strength"
	GoalFatLoss   Goal = "fat_loss"
	GoalEndurance Goal = "endurance"
	GoalAbs       Goal = "abs"
)

// Level is the user's self-reported experience level.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// TemplateSlug identifies one of the fixed catalog of plan templates.
// Templates are seeded into the plan_templates collection; the planner
// only ever picks from this set.
type TemplateSlug string

const (
	SlugPPL        TemplateSlug = "ppl"
	SlugUpperLower TemplateSlug = "upper-lower"
	SlugFullBody   TemplateSlug = "full-body"
	SlugAbsFocused TemplateSlug = "abs-focused"
	SlugHIIT       TemplateSlug = "hiit"
	SlugQuick30    TemplateSlug = "quick-30"
)

// AllTemplateSlugs lists every slug the planner can produce.
var AllTemplateSlugs = []TemplateSlug{
	SlugPPL, SlugUpperLower, SlugFullBody, SlugAbsFocused, SlugHIIT, SlugQuick30,
}

// AssignmentInput captures the four wizard answers that fully determine
// which template a user gets. The UI requires all four fields before
// submission, so the planner treats the input as already valid.
type AssignmentInput struct {
	Goal            Goal  `json:"goal"`
	Level           Level `json:"level"`
	DaysPerWeek     int   `json:"daysPerWeek"`     // 3-6
	SessionDuration int   `json:"sessionDuration"` // minutes: 30, 45 or 60
}

// UserPlan is the single active plan for a user. Replaced wholesale on
// re-assignment (unique index on userId), deleted on reset.
type UserPlan struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	TemplateID      primitive.ObjectID `bson:"templateId" json:"templateId"`
	Goal            Goal               `bson:"goal" json:"goal"`
	Level           Level              `bson:"level" json:"level"`
	DaysPerWeek     int                `bson:"daysPerWeek" json:"daysPerWeek"`
	SessionDuration int                `bson:"sessionDuration" json:"sessionDuration"`
	AssignedAt      time.Time          `bson:"assignedAt" json:"assignedAt"`

	// Hydrated by the repository on fetch, never stored on the plan document.
	Template *PlanTemplate `bson:"-" json:"template,omitempty"`
}
