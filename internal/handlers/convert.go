package handlers

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"surveyapp/internal/models"
)

const (
	// resourceTimeLayout is the wire format of created_at and updated_at
	resourceTimeLayout = "2006-01-02 15:04:05"
	// resourceDateLayout is the wire format of expire_date
	resourceDateLayout = "2006-01-02"
)

// SurveyResource is the full external view of a survey
type SurveyResource struct {
	ID          int                `json:"id"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	Status      bool               `json:"status"`
	ImageURL    *string            `json:"image_url"`
	Description *string            `json:"description"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
	ExpireDate  *string            `json:"expire_date"`
	Questions   []QuestionResource `json:"questions"`
}

// QuestionResource is the external view of a question
type QuestionResource struct {
	ID          int                 `json:"id"`
	Type        models.QuestionType `json:"type"`
	Question    string              `json:"question"`
	Description *string             `json:"description"`
	Data        interface{}         `json:"data"`
}

// SurveyListResource is the compact view used by listings and the dashboard
type SurveyListResource struct {
	ID         int     `json:"id"`
	ImageURL   *string `json:"image_url"`
	Title      string  `json:"title"`
	Slug       string  `json:"slug"`
	Status     bool    `json:"status"`
	CreatedAt  string  `json:"created_at"`
	ExpireDate *string `json:"expire_date"`
	Questions  int     `json:"questions"`
	Answers    int     `json:"answers"`
}

// AnswerSessionResource is one entry of the dashboard's latest answers
type AnswerSessionResource struct {
	ID          int    `json:"id"`
	SurveyID    int    `json:"survey_id"`
	SurveyTitle string `json:"survey_title"`
	EndDate     string `json:"end_date"`
}

// DashboardResource is the owner dashboard
type DashboardResource struct {
	TotalSurveys  int                     `json:"total_surveys"`
	LatestSurvey  *SurveyListResource     `json:"latest_survey"`
	TotalAnswers  int                     `json:"total_answers"`
	LatestAnswers []AnswerSessionResource `json:"latest_answers"`
}

// ResourceConverter turns stored models into their wire form
type ResourceConverter struct {
	baseURL string
}

// NewResourceConverter creates a converter that prefixes image paths with baseURL
func NewResourceConverter(baseURL string) *ResourceConverter {
	return &ResourceConverter{baseURL: strings.TrimRight(baseURL, "/")}
}

// Survey converts a survey with its loaded questions
func (rc *ResourceConverter) Survey(s *models.Survey) SurveyResource {
	questions := make([]QuestionResource, 0, len(s.Questions))
	for i := range s.Questions {
		questions = append(questions, convertQuestion(&s.Questions[i]))
	}
	return SurveyResource{
		ID:          s.ID,
		Title:       s.Title,
		Slug:        s.Slug,
		Status:      s.Status.IsPublished(),
		ImageURL:    rc.imageURL(s.Image),
		Description: s.DescriptionPtr(),
		CreatedAt:   formatResourceTime(s.CreatedAt),
		UpdatedAt:   formatResourceTime(s.UpdatedAt),
		ExpireDate:  formatResourceDate(s.ExpireDate),
		Questions:   questions,
	}
}

// SurveySummary converts a survey with its live counts
func (rc *ResourceConverter) SurveySummary(s *models.SurveySummary) SurveyListResource {
	return SurveyListResource{
		ID:         s.ID,
		ImageURL:   rc.imageURL(s.Image),
		Title:      s.Title,
		Slug:       s.Slug,
		Status:     s.Status.IsPublished(),
		CreatedAt:  formatResourceTime(s.CreatedAt),
		ExpireDate: formatResourceDate(s.ExpireDate),
		Questions:  s.QuestionCount,
		Answers:    s.AnswerCount,
	}
}

// SurveySummaries converts a page of listed surveys
func (rc *ResourceConverter) SurveySummaries(summaries []models.SurveySummary) []SurveyListResource {
	out := make([]SurveyListResource, 0, len(summaries))
	for i := range summaries {
		out = append(out, rc.SurveySummary(&summaries[i]))
	}
	return out
}

// Dashboard converts the aggregated dashboard statistics
func (rc *ResourceConverter) Dashboard(stats *models.DashboardStats) DashboardResource {
	res := DashboardResource{
		TotalSurveys:  stats.TotalSurveys,
		TotalAnswers:  stats.TotalAnswers,
		LatestAnswers: make([]AnswerSessionResource, 0, len(stats.LatestAnswers)),
	}
	if stats.LatestSurvey != nil {
		latest := rc.SurveySummary(stats.LatestSurvey)
		res.LatestSurvey = &latest
	}
	for _, a := range stats.LatestAnswers {
		res.LatestAnswers = append(res.LatestAnswers, AnswerSessionResource{
			ID:          a.ID,
			SurveyID:    a.SurveyID,
			SurveyTitle: a.SurveyTitle,
			EndDate:     formatResourceTime(a.EndDate),
		})
	}
	return res
}

func (rc *ResourceConverter) imageURL(image sql.NullString) *string {
	if !image.Valid || image.String == "" {
		return nil
	}
	url := rc.baseURL + "/" + strings.TrimLeft(image.String, "/")
	return &url
}

func convertQuestion(q *models.Question) QuestionResource {
	return QuestionResource{
		ID:          q.ID,
		Type:        q.Type,
		Question:    q.Question,
		Description: q.DescriptionPtr(),
		Data:        decodeQuestionData(q.Data),
	}
}

// decodeQuestionData returns stored JSON as raw JSON and any other text as a plain string
func decodeQuestionData(data sql.NullString) interface{} {
	if !data.Valid {
		return nil
	}
	if json.Valid([]byte(data.String)) {
		return json.RawMessage(data.String)
	}
	return data.String
}

func formatResourceTime(t time.Time) string {
	return t.UTC().Format(resourceTimeLayout)
}

func formatResourceDate(d sql.NullTime) *string {
	if !d.Valid {
		return nil
	}
	s := d.Time.Format(resourceDateLayout)
	return &s
}
