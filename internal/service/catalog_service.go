package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/repository"
	"github.com/caban7m/GymRat/internal/storage"
)

// --- Error Definitions ---
var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrInvalidImageType = errors.New("invalid or missing image content type")
	ErrUploadURLError   = errors.New("failed to generate upload URL")
)

// UploadURLResponse structure for returning URL and object key
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"` // The key the caller reports back on confirm
}

// CatalogService serves the template catalog and the exercise library,
// including demo-image upload for seeding content.
type CatalogService interface {
	ListTemplates(ctx context.Context) ([]domain.PlanTemplate, error)
	GetExercise(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)

	// Image seeding: mint a presigned PUT URL, then confirm once the
	// object is uploaded so the exercise records its key.
	RequestImageUploadURL(ctx context.Context, exerciseID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	ConfirmImageUpload(ctx context.Context, exerciseID primitive.ObjectID, objectKey string) error
}

type catalogService struct {
	templateRepo repository.TemplateRepository
	exerciseRepo repository.ExerciseRepository
	fileStorage  storage.FileStorage
}

// NewCatalogService creates a new instance of catalogService.
func NewCatalogService(
	templateRepo repository.TemplateRepository,
	exerciseRepo repository.ExerciseRepository,
	fileStorage storage.FileStorage,
) CatalogService {
	return &catalogService{
		templateRepo: templateRepo,
		exerciseRepo: exerciseRepo,
		fileStorage:  fileStorage,
	}
}

// ListTemplates returns the catalog for the plan wizard.
func (s *catalogService) ListTemplates(ctx context.Context) ([]domain.PlanTemplate, error) {
	return s.templateRepo.List(ctx)
}

// GetExercise fetches one exercise with its image key resolved to a
// temporary download URL.
func (s *catalogService) GetExercise(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	ex, err := s.exerciseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	if ex.ImageKey != "" && s.fileStorage != nil {
		url, urlErr := s.fileStorage.GeneratePresignedDownloadURL(ctx, ex.ImageKey, storage.DefaultPresignedURLExpiry)
		if urlErr != nil {
			log.Printf("WARN: presigned URL for exercise %s failed: %v", ex.ID.Hex(), urlErr)
		} else {
			ex.ImageURL = url
		}
	}
	return ex, nil
}

// RequestImageUploadURL generates a pre-signed PUT URL for an exercise
// demo image.
func (s *catalogService) RequestImageUploadURL(ctx context.Context, exerciseID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	if contentType == "" || !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, ErrInvalidImageType
	}

	if _, err := s.exerciseRepo.GetByID(ctx, exerciseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}

	// Unique object key per upload so a re-upload never clobbers an image
	// a cached URL still points at.
	uniqueID := uuid.NewString()
	fileExtension := ""
	if parts := strings.Split(contentType, "/"); len(parts) == 2 {
		fileExtension = parts[1]
	}
	objectKey := path.Join("exercises", exerciseID.Hex(), fmt.Sprintf("%s.%s", uniqueID, fileExtension))

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}

	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmImageUpload records the uploaded object key on the exercise.
// Called after the client has PUT the file to storage.
func (s *catalogService) ConfirmImageUpload(ctx context.Context, exerciseID primitive.ObjectID, objectKey string) error {
	if objectKey == "" {
		return errors.New("object key is required")
	}
	err := s.exerciseRepo.SetImageKey(ctx, exerciseID, objectKey)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrExerciseNotFound
	}
	return err
}
