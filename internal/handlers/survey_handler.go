package handlers

import (
	"net/http"

	"surveyapp/internal/config"
	"surveyapp/internal/models"
	"surveyapp/internal/observability"
	"surveyapp/internal/services"
	contextutils "surveyapp/internal/utils"
	"surveyapp/internal/validation"

	"github.com/gin-gonic/gin"
)

// SurveyHandler serves survey authoring, guest views and answer submission
type SurveyHandler struct {
	surveyService services.SurveyServiceInterface
	answerService services.AnswerServiceInterface
	validator     *validation.Validator
	converter     *ResourceConverter
	pageSize      int
	logger        *observability.Logger
}

// NewSurveyHandler creates a new SurveyHandler
func NewSurveyHandler(
	surveyService services.SurveyServiceInterface,
	answerService services.AnswerServiceInterface,
	validator *validation.Validator,
	cfg *config.Config,
	logger *observability.Logger,
) *SurveyHandler {
	pageSize := cfg.Server.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultSurveyPageSize
	}
	return &SurveyHandler{
		surveyService: surveyService,
		answerService: answerService,
		validator:     validator,
		converter:     NewResourceConverter(cfg.Server.BackendBaseURL),
		pageSize:      pageSize,
		logger:        logger,
	}
}

// ListSurveys returns the current user's surveys, newest first
func (h *SurveyHandler) ListSurveys(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_surveys")
	defer observability.FinishSpan(span, nil)

	userID, err := GetCurrentUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	page, pageSize := ParsePagination(c, 1, h.pageSize, h.pageSize)
	span.SetAttributes(
		observability.AttributeUserID(userID),
		observability.AttributePage(page),
		observability.AttributePageSize(pageSize),
	)

	summaries, total, err := h.surveyService.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	WritePaginated(c, "data", h.converter.SurveySummaries(summaries), NewPagination(page, pageSize, total))
}

// CreateSurvey stores a new survey owned by the current user
func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_survey")
	defer observability.FinishSpan(span, nil)

	userID, err := GetCurrentUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	input, ok := bindSurveyInput(c)
	if !ok {
		return
	}

	survey, err := h.surveyService.Create(ctx, userID, input)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(observability.AttributeSurveyID(survey.ID))
	c.JSON(http.StatusCreated, gin.H{"data": h.converter.Survey(survey)})
}

// GetSurvey returns a survey to its owner
func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_survey")
	defer observability.FinishSpan(span, nil)

	survey, ok := h.loadOwnedSurvey(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.converter.Survey(survey)})
}

// GetSurveyForGuest returns a survey by id without authentication
func (h *SurveyHandler) GetSurveyForGuest(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_survey_for_guest")
	defer observability.FinishSpan(span, nil)

	survey, ok := h.loadSurvey(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.converter.Survey(survey)})
}

// GetSurveyBySlug returns a survey by its public slug
func (h *SurveyHandler) GetSurveyBySlug(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_survey_by_slug")
	defer observability.FinishSpan(span, nil)

	surveySlug := c.Param("slug")
	span.SetAttributes(observability.AttributeSurveySlug(surveySlug))

	survey, err := h.surveyService.GetBySlug(ctx, surveySlug)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.converter.Survey(survey)})
}

// UpdateSurvey replaces a survey's fields and reconciles its questions
func (h *SurveyHandler) UpdateSurvey(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_survey")
	defer observability.FinishSpan(span, nil)

	survey, ok := h.loadOwnedSurvey(c)
	if !ok {
		return
	}

	input, ok := bindSurveyInput(c)
	if !ok {
		return
	}

	updated, err := h.surveyService.Update(ctx, survey, input)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.converter.Survey(updated)})
}

// DeleteSurvey removes a survey with its questions, answers and image
func (h *SurveyHandler) DeleteSurvey(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_survey")
	defer observability.FinishSpan(span, nil)

	survey, ok := h.loadOwnedSurvey(c)
	if !ok {
		return
	}

	if err := h.surveyService.Delete(ctx, survey); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitAnswers records a guest's answers to a survey
func (h *SurveyHandler) SubmitAnswers(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_answers")
	defer observability.FinishSpan(span, nil)

	survey, ok := h.loadSurvey(c)
	if !ok {
		return
	}

	var input models.AnswerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		HandleAppError(c, invalidBody(err))
		return
	}
	if err := h.validator.ValidateAnswers(&input); err != nil {
		HandleAppError(c, err)
		return
	}

	sessionID, err := h.answerService.SubmitAnswers(ctx, survey, input.Answers)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": sessionID})
}

// loadSurvey fetches the survey named by the :id path parameter
func (h *SurveyHandler) loadSurvey(c *gin.Context) (*models.Survey, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return nil, false
	}

	survey, err := h.surveyService.Get(c.Request.Context(), id)
	if err != nil {
		HandleAppError(c, err)
		return nil, false
	}
	return survey, true
}

// loadOwnedSurvey fetches the :id survey and checks that the current user owns it
func (h *SurveyHandler) loadOwnedSurvey(c *gin.Context) (*models.Survey, bool) {
	userID, err := GetCurrentUserID(c)
	if err != nil {
		HandleAppError(c, err)
		return nil, false
	}

	survey, ok := h.loadSurvey(c)
	if !ok {
		return nil, false
	}

	if err := RequireOwner(userID, survey); err != nil {
		h.logger.Warn(c.Request.Context(), "Survey access denied", map[string]interface{}{
			"user_id":   userID,
			"survey_id": survey.ID,
		})
		HandleAppError(c, err)
		return nil, false
	}
	return survey, true
}

func bindSurveyInput(c *gin.Context) (*models.SurveyInput, bool) {
	var input models.SurveyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		HandleAppError(c, invalidBody(err))
		return nil, false
	}
	return &input, true
}

func invalidBody(err error) error {
	return contextutils.NewAppErrorWithCause(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		"Invalid request body",
		"",
		err,
	)
}
