package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/repository"
	"github.com/caban7m/GymRat/internal/service"
)

// PlanHandler serves the training plan endpoints behind the wizard.
type PlanHandler struct {
	planService    service.PlanService
	catalogService service.CatalogService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService, catalogService service.CatalogService) *PlanHandler {
	return &PlanHandler{planService: planService, catalogService: catalogService}
}

// --- Request Structs ---

type AssignPlanRequest struct {
	Goal            domain.Goal  `json:"goal" binding:"required,oneof=muscle strength fat_loss endurance abs"`
	Level           domain.Level `json:"level" binding:"required,oneof=beginner intermediate advanced"`
	DaysPerWeek     int          `json:"daysPerWeek" binding:"required,min=3,max=6"`
	SessionDuration int          `json:"sessionDuration" binding:"required,oneof=30 45 60"`
}

func (r AssignPlanRequest) toInput() domain.AssignmentInput {
	return domain.AssignmentInput{
		Goal:            r.Goal,
		Level:           r.Level,
		DaysPerWeek:     r.DaysPerWeek,
		SessionDuration: r.SessionDuration,
	}
}

type ConfirmImageUploadRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

// --- Handler Methods ---

// GetPlan returns the caller's current plan, fully hydrated.
// 404 when no plan is assigned yet (the UI then shows the wizard).
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, "No plan assigned")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to load plan")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// AssignPlan runs the rule engine on the wizard answers and replaces the
// caller's plan with the selected template.
func (h *PlanHandler) AssignPlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	plan, err := h.planService.AssignPlan(c.Request.Context(), userID, req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			// Catalog defect: report it, don't hand out a different plan.
			abortWithError(c, http.StatusInternalServerError, "Plan template missing, please try again later")
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to assign plan")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ResetPlan deletes the caller's plan so the wizard can run again.
func (h *PlanHandler) ResetPlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	if err := h.planService.ResetPlan(c.Request.Context(), userID); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to reset plan")
		return
	}
	c.Status(http.StatusNoContent)
}

// PreviewPlan returns the template the answers resolve to plus the
// rationale, without persisting. Backs the wizard's confirmation step.
func (h *PlanHandler) PreviewPlan(c *gin.Context) {
	var req AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	c.JSON(http.StatusOK, h.planService.Preview(req.toInput()))
}

// ListTemplates returns the template catalog for the wizard.
func (h *PlanHandler) ListTemplates(c *gin.Context) {
	templates, err := h.catalogService.ListTemplates(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load templates")
		return
	}
	c.JSON(http.StatusOK, templates)
}

// GetExercise returns one exercise from the library with a temporary
// image URL when a demo image exists.
func (h *PlanHandler) GetExercise(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exercise ID")
		return
	}

	ex, err := h.catalogService.GetExercise(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrExerciseNotFound) {
			abortWithError(c, http.StatusNotFound, "Exercise not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to load exercise")
		return
	}
	c.JSON(http.StatusOK, ex)
}

// RequestExerciseImageURL mints a presigned PUT URL for an exercise
// demo image.
func (h *PlanHandler) RequestExerciseImageURL(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exercise ID")
		return
	}

	contentType := c.Query("contentType")
	resp, err := h.catalogService.RequestImageUploadURL(c.Request.Context(), id, contentType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidImageType):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrExerciseNotFound):
			abortWithError(c, http.StatusNotFound, "Exercise not found")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to generate upload URL")
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmExerciseImage records the uploaded object key on the exercise.
func (h *PlanHandler) ConfirmExerciseImage(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exercise ID")
		return
	}

	var req ConfirmImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.catalogService.ConfirmImageUpload(c.Request.Context(), id, req.ObjectKey); err != nil {
		if errors.Is(err, service.ErrExerciseNotFound) {
			abortWithError(c, http.StatusNotFound, "Exercise not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to confirm upload")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "image recorded"})
}
