package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"time"

	"surveyapp/internal/models"
	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"
	"surveyapp/internal/validation"

	"github.com/gosimple/slug"
	"github.com/oapi-codegen/runtime/types"
	"go.opentelemetry.io/otel/attribute"
)

// SurveyServiceInterface defines the survey aggregate operations.
// This allows for easier mocking in tests.
type SurveyServiceInterface interface {
	Create(ctx context.Context, ownerID int, input *models.SurveyInput) (*models.Survey, error)
	Update(ctx context.Context, survey *models.Survey, input *models.SurveyInput) (*models.Survey, error)
	Delete(ctx context.Context, survey *models.Survey) error
	Get(ctx context.Context, id int) (*models.Survey, error)
	GetBySlug(ctx context.Context, slug string) (*models.Survey, error)
	ListByUser(ctx context.Context, userID, page, pageSize int) ([]models.SurveySummary, int, error)
}

// SurveyService manages surveys together with their questions and cover image
type SurveyService struct {
	repo      SurveyRepository
	questions *QuestionService
	images    ImageStore
	validator *validation.Validator
	logger    *observability.Logger
}

// nowUTC is the clock used for every stored timestamp
var nowUTC = func() time.Time {
	return time.Now().UTC()
}

// NewSurveyService creates a SurveyService
func NewSurveyService(repo SurveyRepository, questions *QuestionService, images ImageStore, validator *validation.Validator, logger *observability.Logger) *SurveyService {
	return &SurveyService{
		repo:      repo,
		questions: questions,
		images:    images,
		validator: validator,
		logger:    logger,
	}
}

// Create stores a new survey owned by ownerID together with all of its questions.
// The image is written first; it is removed again if the transaction fails.
func (s *SurveyService) Create(ctx context.Context, ownerID int, input *models.SurveyInput) (result0 *models.Survey, err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "create",
		observability.AttributeUserID(ownerID), attribute.Int("survey.questions", len(input.Questions)))
	defer observability.FinishSpan(span, &err)

	if err = s.validator.ValidateSurvey(input); err != nil {
		return nil, err
	}

	imagePath, err := s.saveImage(ctx, input.Image)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	survey := &models.Survey{
		UserID:      ownerID,
		Title:       input.Title,
		Image:       nullString(imagePath),
		Status:      input.Status,
		Description: models.NullStringFromPointer(input.Description),
		ExpireDate:  nullDate(input.ExpireDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.repo.WithTx(ctx, func(repo SurveyRepository) error {
		surveySlug, err := uniqueSlug(ctx, repo, input.Title)
		if err != nil {
			return err
		}
		survey.Slug = surveySlug

		if err := repo.InsertSurvey(ctx, survey); err != nil {
			return err
		}

		survey.Questions = make([]models.Question, 0, len(input.Questions))
		for i := range input.Questions {
			question, err := s.questions.CreateQuestion(ctx, repo, survey.ID, &input.Questions[i])
			if err != nil {
				return err
			}
			survey.Questions = append(survey.Questions, *question)
		}
		return nil
	})
	if err != nil {
		s.discardImage(ctx, imagePath)
		return nil, err
	}

	span.SetAttributes(observability.AttributeSurveyID(survey.ID), observability.AttributeSurveySlug(survey.Slug))
	observability.RecordSurveyCreated(ctx, ownerID)
	s.logger.Info(ctx, "Created survey", map[string]interface{}{
		"survey_id": survey.ID,
		"user_id":   ownerID,
		"slug":      survey.Slug,
		"questions": len(survey.Questions),
	})
	return survey, nil
}

// Update rewrites survey from input and reconciles its questions: stored questions missing
// from input are deleted, incoming questions with a stored id are updated in place and the rest
// are created. Owner and slug never change. A replaced image is deleted after commit.
func (s *SurveyService) Update(ctx context.Context, survey *models.Survey, input *models.SurveyInput) (result0 *models.Survey, err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "update",
		observability.AttributeSurveyID(survey.ID), attribute.Int("survey.questions", len(input.Questions)))
	defer observability.FinishSpan(span, &err)

	if err = s.validator.ValidateSurvey(input); err != nil {
		return nil, err
	}

	newImage, err := s.saveImage(ctx, input.Image)
	if err != nil {
		return nil, err
	}
	oldImage := survey.ImagePath()

	updated := *survey
	updated.Title = input.Title
	updated.Status = input.Status
	updated.Description = models.NullStringFromPointer(input.Description)
	updated.ExpireDate = nullDate(input.ExpireDate)
	updated.UpdatedAt = nowUTC()
	if newImage != "" {
		updated.Image = nullString(newImage)
	}

	var result *models.Survey
	err = s.repo.WithTx(ctx, func(repo SurveyRepository) error {
		if err := repo.UpdateSurvey(ctx, &updated); err != nil {
			return err
		}
		if err := s.reconcileQuestions(ctx, repo, survey.ID, input.Questions); err != nil {
			return err
		}

		fresh, err := repo.GetSurvey(ctx, survey.ID)
		if err != nil {
			return err
		}
		result = fresh
		return nil
	})
	if err != nil {
		s.discardImage(ctx, newImage)
		return nil, err
	}

	if newImage != "" && oldImage != "" && oldImage != newImage {
		s.discardImage(ctx, oldImage)
	}

	s.logger.Info(ctx, "Updated survey", map[string]interface{}{
		"survey_id": survey.ID,
		"questions": len(result.Questions),
	})
	return result, nil
}

func (s *SurveyService) reconcileQuestions(ctx context.Context, repo SurveyRepository, surveyID int, incoming []models.QuestionInput) error {
	existing, err := repo.ListQuestions(ctx, surveyID)
	if err != nil {
		return err
	}

	existingByID := make(map[int]*models.Question, len(existing))
	for i := range existing {
		existingByID[existing[i].ID] = &existing[i]
	}

	keep := make(map[int]bool, len(incoming))
	for i, q := range incoming {
		if !q.ID.Valid {
			continue
		}
		if _, ok := existingByID[q.ID.ID]; ok && keep[q.ID.ID] {
			return contextutils.NewValidationError(map[string]string{
				fmt.Sprintf("questions.%d.id", i): fmt.Sprintf("question %d appears more than once", q.ID.ID),
			})
		}
		keep[q.ID.ID] = true
	}

	toDelete := make([]int, 0)
	for _, q := range existing {
		if !keep[q.ID] {
			toDelete = append(toDelete, q.ID)
		}
	}
	if err := repo.DeleteQuestions(ctx, surveyID, toDelete); err != nil {
		return err
	}

	for i := range incoming {
		input := &incoming[i]
		if current, ok := existingByID[input.ID.ID]; ok && input.ID.Valid {
			if _, err := s.questions.UpdateQuestion(ctx, repo, current, input); err != nil {
				return err
			}
			continue
		}
		if _, err := s.questions.CreateQuestion(ctx, repo, surveyID, input); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes survey with its questions and answers, then its image file
func (s *SurveyService) Delete(ctx context.Context, survey *models.Survey) (err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "delete", observability.AttributeSurveyID(survey.ID))
	defer observability.FinishSpan(span, &err)

	if err = s.repo.DeleteSurvey(ctx, survey.ID); err != nil {
		return err
	}

	s.discardImage(ctx, survey.ImagePath())
	observability.RecordSurveyDeleted(ctx)
	s.logger.Info(ctx, "Deleted survey", map[string]interface{}{"survey_id": survey.ID})
	return nil
}

// Get loads a survey with its questions
func (s *SurveyService) Get(ctx context.Context, id int) (result0 *models.Survey, err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "get", observability.AttributeSurveyID(id))
	defer observability.FinishSpan(span, &err)

	return s.repo.GetSurvey(ctx, id)
}

// GetBySlug loads a survey with its questions by its public slug
func (s *SurveyService) GetBySlug(ctx context.Context, surveySlug string) (result0 *models.Survey, err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "get_by_slug", observability.AttributeSurveySlug(surveySlug))
	defer observability.FinishSpan(span, &err)

	return s.repo.GetSurveyBySlug(ctx, surveySlug)
}

// ListByUser returns page (1-based) of the user's surveys, newest first, with the total count
func (s *SurveyService) ListByUser(ctx context.Context, userID, page, pageSize int) (result0 []models.SurveySummary, result1 int, err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "list_by_user",
		observability.AttributeUserID(userID), observability.AttributePage(page), observability.AttributePageSize(pageSize))
	defer observability.FinishSpan(span, &err)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if limit := MaxPage(pageSize); page > limit {
		page = limit
	}
	return s.repo.ListSurveysByUser(ctx, userID, pageSize, (page-1)*pageSize)
}

// MaxPage is the highest page whose row offset still fits a 32-bit OFFSET for pages of pageSize
func MaxPage(pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	return math.MaxInt32/pageSize + 1
}

func (s *SurveyService) saveImage(ctx context.Context, image *string) (string, error) {
	if image == nil || *image == "" {
		return "", nil
	}
	return s.images.SaveImage(ctx, *image)
}

// discardImage deletes an image file; failures are logged only
func (s *SurveyService) discardImage(ctx context.Context, relativePath string) {
	if relativePath == "" {
		return
	}
	if err := s.images.DeleteImage(ctx, relativePath); err != nil {
		s.logger.Warn(ctx, "Failed to delete survey image", map[string]interface{}{
			"path":  relativePath,
			"error": err.Error(),
		})
	}
}

// uniqueSlug derives a slug from title and appends -1, -2, ... until it is unused
func uniqueSlug(ctx context.Context, repo SurveyRepository, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "survey"
	}

	candidate := base
	for i := 1; ; i++ {
		exists, err := repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d *types.Date) sql.NullTime {
	if d == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time, Valid: true}
}
