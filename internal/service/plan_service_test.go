package service

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/repository"
)

// mockPlanRepo implements repository.PlanRepository in memory.
type mockPlanRepo struct {
	plans     map[primitive.ObjectID]*domain.UserPlan
	upsertErr error
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{plans: make(map[primitive.ObjectID]*domain.UserPlan)}
}

func (m *mockPlanRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.UserPlan, error) {
	plan, ok := m.plans[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *plan
	return &cp, nil
}

func (m *mockPlanRepo) Upsert(ctx context.Context, plan *domain.UserPlan) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cp := *plan
	m.plans[plan.UserID] = &cp
	return nil
}

func (m *mockPlanRepo) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	delete(m.plans, userID)
	return nil
}

// mockTemplateRepo implements repository.TemplateRepository over fixtures.
type mockTemplateRepo struct {
	bySlug map[domain.TemplateSlug]*domain.PlanTemplate
	byID   map[primitive.ObjectID]*domain.PlanTemplate
}

func newMockTemplateRepo(templates ...*domain.PlanTemplate) *mockTemplateRepo {
	m := &mockTemplateRepo{
		bySlug: make(map[domain.TemplateSlug]*domain.PlanTemplate),
		byID:   make(map[primitive.ObjectID]*domain.PlanTemplate),
	}
	for _, tmpl := range templates {
		m.bySlug[tmpl.Slug] = tmpl
		m.byID[tmpl.ID] = tmpl
	}
	return m
}

func (m *mockTemplateRepo) GetBySlug(ctx context.Context, slug domain.TemplateSlug) (*domain.PlanTemplate, error) {
	tmpl, ok := m.bySlug[slug]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return tmpl, nil
}

func (m *mockTemplateRepo) GetHydrated(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error) {
	tmpl, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return tmpl, nil
}

func (m *mockTemplateRepo) List(ctx context.Context) ([]domain.PlanTemplate, error) {
	result := make([]domain.PlanTemplate, 0, len(m.bySlug))
	for _, tmpl := range m.bySlug {
		result = append(result, *tmpl)
	}
	return result, nil
}

// pplTemplate builds a hydrated fixture in catalog order: days ascending
// by day number, exercises ascending by order index.
func pplTemplate() *domain.PlanTemplate {
	tmpl := &domain.PlanTemplate{
		ID:   primitive.NewObjectID(),
		Slug: domain.SlugPPL,
		Name: "Push / Pull / Legs",
	}
	for day := 1; day <= 3; day++ {
		d := domain.TemplateDay{
			ID:         primitive.NewObjectID(),
			TemplateID: tmpl.ID,
			DayNumber:  day,
		}
		for idx := 0; idx < 3; idx++ {
			d.Exercises = append(d.Exercises, domain.TemplateExercise{
				ID:         primitive.NewObjectID(),
				DayID:      d.ID,
				OrderIndex: idx,
				Sets:       3,
				Reps:       "8-12",
			})
		}
		tmpl.Days = append(tmpl.Days, d)
	}
	return tmpl
}

func TestAssignPlanThenGetPlan(t *testing.T) {
	tmpl := pplTemplate()
	planRepo := newMockPlanRepo()
	svc := NewPlanService(planRepo, newMockTemplateRepo(tmpl), nil)
	userID := primitive.NewObjectID()

	input := domain.AssignmentInput{
		Goal:            domain.GoalMuscle,
		Level:           domain.LevelAdvanced,
		DaysPerWeek:     6,
		SessionDuration: 60,
	}

	plan, err := svc.AssignPlan(context.Background(), userID, input)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, tmpl.ID, plan.TemplateID)
	assert.Equal(t, input.Goal, plan.Goal)
	assert.False(t, plan.AssignedAt.IsZero())

	require.NotNil(t, plan.Template)
	require.NotEmpty(t, plan.Template.Days)
	assert.True(t, sort.SliceIsSorted(plan.Template.Days, func(i, j int) bool {
		return plan.Template.Days[i].DayNumber < plan.Template.Days[j].DayNumber
	}))
	for _, day := range plan.Template.Days {
		exercises := day.Exercises
		assert.True(t, sort.SliceIsSorted(exercises, func(i, j int) bool {
			return exercises[i].OrderIndex < exercises[j].OrderIndex
		}), "day %d exercises out of order", day.DayNumber)
	}

	got, err := svc.GetPlan(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, plan.TemplateID, got.TemplateID)
}

func TestAssignPlanReplacesExisting(t *testing.T) {
	pplTmpl := pplTemplate()
	hiitTmpl := &domain.PlanTemplate{ID: primitive.NewObjectID(), Slug: domain.SlugHIIT, Name: "HIIT Burner"}
	planRepo := newMockPlanRepo()
	svc := NewPlanService(planRepo, newMockTemplateRepo(pplTmpl, hiitTmpl), nil)
	userID := primitive.NewObjectID()

	_, err := svc.AssignPlan(context.Background(), userID, domain.AssignmentInput{
		Goal: domain.GoalMuscle, Level: domain.LevelAdvanced, DaysPerWeek: 6, SessionDuration: 60,
	})
	require.NoError(t, err)

	// Re-running the wizard with new answers discards the old assignment.
	plan, err := svc.AssignPlan(context.Background(), userID, domain.AssignmentInput{
		Goal: domain.GoalFatLoss, Level: domain.LevelAdvanced, DaysPerWeek: 4, SessionDuration: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, hiitTmpl.ID, plan.TemplateID)
	assert.Len(t, planRepo.plans, 1)
}

func TestAssignPlanMissingTemplateIsSurfaced(t *testing.T) {
	// Catalog missing the hiit template the planner will pick.
	svc := NewPlanService(newMockPlanRepo(), newMockTemplateRepo(pplTemplate()), nil)

	_, err := svc.AssignPlan(context.Background(), primitive.NewObjectID(), domain.AssignmentInput{
		Goal: domain.GoalFatLoss, Level: domain.LevelBeginner, DaysPerWeek: 3, SessionDuration: 45,
	})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestAssignPlanRejectsInvalidInput(t *testing.T) {
	svc := NewPlanService(newMockPlanRepo(), newMockTemplateRepo(pplTemplate()), nil)

	cases := []domain.AssignmentInput{
		{Goal: "cardio", Level: domain.LevelBeginner, DaysPerWeek: 3, SessionDuration: 45},
		{Goal: domain.GoalMuscle, Level: "expert", DaysPerWeek: 3, SessionDuration: 45},
		{Goal: domain.GoalMuscle, Level: domain.LevelBeginner, DaysPerWeek: 7, SessionDuration: 45},
		{Goal: domain.GoalMuscle, Level: domain.LevelBeginner, DaysPerWeek: 3, SessionDuration: 50},
	}
	for _, input := range cases {
		_, err := svc.AssignPlan(context.Background(), primitive.NewObjectID(), input)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %+v", input)
	}
}

func TestResetPlanThenGetPlanReturnsNotFound(t *testing.T) {
	tmpl := pplTemplate()
	svc := NewPlanService(newMockPlanRepo(), newMockTemplateRepo(tmpl), nil)
	userID := primitive.NewObjectID()

	_, err := svc.AssignPlan(context.Background(), userID, domain.AssignmentInput{
		Goal: domain.GoalMuscle, Level: domain.LevelAdvanced, DaysPerWeek: 6, SessionDuration: 60,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPlan(context.Background(), userID))
	_, err = svc.GetPlan(context.Background(), userID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Resetting again is not an error.
	assert.NoError(t, svc.ResetPlan(context.Background(), userID))
}

func TestPreviewDoesNotPersist(t *testing.T) {
	planRepo := newMockPlanRepo()
	svc := NewPlanService(planRepo, newMockTemplateRepo(pplTemplate()), nil)

	preview := svc.Preview(domain.AssignmentInput{
		Goal: domain.GoalStrength, Level: domain.LevelAdvanced, DaysPerWeek: 4, SessionDuration: 15,
	})
	assert.Equal(t, domain.SlugQuick30, preview.Slug)
	assert.NotEmpty(t, preview.Rationale)
	assert.Empty(t, planRepo.plans)
}
