package service

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/planner"
	"github.com/caban7m/GymRat/internal/repository"
	"github.com/caban7m/GymRat/internal/storage"
)

// --- Error Definitions ---
var (
	// ErrTemplateNotFound means the planner picked a slug with no catalog
	// row behind it means seed data is broken. Surfaced, never silently
	// substituted with a different template.
	ErrTemplateNotFound = errors.New("plan template missing from catalog")
	ErrInvalidInput     = errors.New("invalid assignment input")
)

// PlanPreview is the wizard's confirmation step: which template the
// answers resolve to and why, without persisting anything.
type PlanPreview struct {
	Slug      domain.TemplateSlug `json:"slug"`
	Rationale string              `json:"rationale"`
}

// PlanService assigns, fetches and resets the user's workout plan.
type PlanService interface {
	GetPlan(ctx context.Context, userID primitive.ObjectID) (*domain.UserPlan, error)
	AssignPlan(ctx context.Context, userID primitive.ObjectID, input domain.AssignmentInput) (*domain.UserPlan, error)
	ResetPlan(ctx context.Context, userID primitive.ObjectID) error
	Preview(input domain.AssignmentInput) PlanPreview
}

// planService implements PlanService on top of the plan and template
// repositories.
type planService struct {
	planRepo     repository.PlanRepository
	templateRepo repository.TemplateRepository
	fileStorage  storage.FileStorage
}

// NewPlanService creates a new instance of planService. fileStorage may
// be nil in tests; exercise images then come back without URLs.
func NewPlanService(
	planRepo repository.PlanRepository,
	templateRepo repository.TemplateRepository,
	fileStorage storage.FileStorage,
) PlanService {
	return &planService{
		planRepo:     planRepo,
		templateRepo: templateRepo,
		fileStorage:  fileStorage,
	}
}

// GetPlan fetches the user's plan with the template fully hydrated:
// days ascending by day number, exercises ascending by order index.
// Returns repository.ErrNotFound when the user has no plan.
func (s *planService) GetPlan(ctx context.Context, userID primitive.ObjectID) (*domain.UserPlan, error) {
	plan, err := s.planRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tmpl, err := s.templateRepo.GetHydrated(ctx, plan.TemplateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Plan row points at a template that no longer exists.
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	s.resolveImageURLs(ctx, tmpl)
	plan.Template = tmpl
	return plan, nil
}

// AssignPlan resolves the best template for the wizard answers and
// replaces the user's plan with it. The previous assignment is fully
// discarded (one plan per user, keyed by user identity).
func (s *planService) AssignPlan(ctx context.Context, userID primitive.ObjectID, input domain.AssignmentInput) (*domain.UserPlan, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	slug := planner.SelectTemplate(input)
	tmpl, err := s.templateRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("ERROR: no template row for slug %q, catalog seed is incomplete", slug)
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	plan := &domain.UserPlan{
		UserID:          userID,
		TemplateID:      tmpl.ID,
		Goal:            input.Goal,
		Level:           input.Level,
		DaysPerWeek:     input.DaysPerWeek,
		SessionDuration: input.SessionDuration,
		AssignedAt:      time.Now().UTC(),
	}
	if err := s.planRepo.Upsert(ctx, plan); err != nil {
		return nil, err
	}

	// Not transactional with a concurrent reset by the same user; last
	// writer wins, which is fine because a user acts on their own plan
	// serially from one client.
	return s.GetPlan(ctx, userID)
}

// ResetPlan deletes the user's plan so the wizard can run again.
// Idempotent.
func (s *planService) ResetPlan(ctx context.Context, userID primitive.ObjectID) error {
	return s.planRepo.DeleteByUserID(ctx, userID)
}

// Preview returns the slug and rationale for the answers without
// touching the store.
func (s *planService) Preview(input domain.AssignmentInput) PlanPreview {
	return PlanPreview{
		Slug:      planner.SelectTemplate(input),
		Rationale: planner.ExplainAssignment(input),
	}
}

// resolveImageURLs swaps stored S3 object keys for temporary download
// URLs on every exercise in the hydrated template. URL generation
// failures are logged and the exercise simply ships without an image.
func (s *planService) resolveImageURLs(ctx context.Context, tmpl *domain.PlanTemplate) {
	if s.fileStorage == nil {
		return
	}
	for i := range tmpl.Days {
		for j := range tmpl.Days[i].Exercises {
			ex := tmpl.Days[i].Exercises[j].Exercise
			if ex == nil || ex.ImageKey == "" {
				continue
			}
			url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, ex.ImageKey, storage.DefaultPresignedURLExpiry)
			if err != nil {
				log.Printf("WARN: presigned URL for exercise %s failed: %v", ex.ID.Hex(), err)
				continue
			}
			ex.ImageURL = url
		}
	}
}

// The gin binding on the request DTO already constrains these values;
// this guards direct callers of the service.
func validateInput(input domain.AssignmentInput) error {
	switch input.Goal {
	case domain.GoalMuscle, domain.GoalStrength, domain.GoalFatLoss, domain.GoalEndurance, domain.GoalAbs:
	default:
		return ErrInvalidInput
	}
	switch input.Level {
	case domain.LevelBeginner, domain.LevelIntermediate, domain.LevelAdvanced:
	default:
		return ErrInvalidInput
	}
	if input.DaysPerWeek < 3 || input.DaysPerWeek > 6 {
		return ErrInvalidInput
	}
	switch input.SessionDuration {
	case 30, 45, 60:
	default:
		return ErrInvalidInput
	}
	return nil
}
