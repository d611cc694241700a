package services

import (
	"context"

	"surveyapp/internal/config"
	"surveyapp/internal/models"
	"surveyapp/internal/observability"
)

// DashboardServiceInterface provides the owner dashboard
type DashboardServiceInterface interface {
	GetDashboard(ctx context.Context, userID int) (*models.DashboardStats, error)
}

// DashboardService aggregates an owner's surveys and answers
type DashboardService struct {
	repo SurveyRepository
}

// NewDashboardService creates a DashboardService
func NewDashboardService(repo SurveyRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboard returns total surveys, the latest survey, total answers and the latest answer sessions
func (s *DashboardService) GetDashboard(ctx context.Context, userID int) (result0 *models.DashboardStats, err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "get_dashboard", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	stats := &models.DashboardStats{}
	if stats.TotalSurveys, err = s.repo.CountSurveys(ctx, userID); err != nil {
		return nil, err
	}
	if stats.LatestSurvey, err = s.repo.LatestSurvey(ctx, userID); err != nil {
		return nil, err
	}
	if stats.TotalAnswers, err = s.repo.CountAnswerSessions(ctx, userID); err != nil {
		return nil, err
	}
	if stats.LatestAnswers, err = s.repo.LatestAnswerSessions(ctx, userID, config.DashboardLatestAnswers); err != nil {
		return nil, err
	}
	return stats, nil
}

// SurveyStats returns per-survey activity across all owners
func (s *DashboardService) SurveyStats(ctx context.Context) (result0 []models.SurveyStats, err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "survey_stats")
	defer observability.FinishSpan(span, &err)

	return s.repo.SurveyStats(ctx)
}
