package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"

	"surveyapp/internal/models"
	"surveyapp/internal/observability"
	"surveyapp/internal/validation"
	contextutils "surveyapp/internal/utils"
)

// QuestionService validates and persists the questions of a survey.
// It always works through the repository it is handed so it joins the caller's transaction.
type QuestionService struct {
	validator *validation.Validator
}

// NewQuestionService creates a QuestionService
func NewQuestionService(validator *validation.Validator) *QuestionService {
	return &QuestionService{validator: validator}
}

// CreateQuestion validates input and stores it as a new question of surveyID
func (s *QuestionService) CreateQuestion(ctx context.Context, repo SurveyRepository, surveyID int, input *models.QuestionInput) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "create_question",
		observability.AttributeSurveyID(surveyID), observability.AttributeQuestionType(string(input.Type)))
	defer observability.FinishSpan(span, &err)

	data, err := s.prepare(input)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	question := &models.Question{
		SurveyID:    surveyID,
		Question:    input.Question,
		Type:        input.Type,
		Description: models.NullStringFromPointer(input.Description),
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = repo.InsertQuestion(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// UpdateQuestion validates input and rewrites existing in place, keeping its id
func (s *QuestionService) UpdateQuestion(ctx context.Context, repo SurveyRepository, existing *models.Question, input *models.QuestionInput) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "update_question",
		observability.AttributeQuestionID(existing.ID), observability.AttributeQuestionType(string(input.Type)))
	defer observability.FinishSpan(span, &err)

	data, err := s.prepare(input)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Question = input.Question
	updated.Type = input.Type
	updated.Description = models.NullStringFromPointer(input.Description)
	updated.Data = data
	updated.UpdatedAt = nowUTC()

	if err = repo.UpdateQuestion(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *QuestionService) prepare(input *models.QuestionInput) (sql.NullString, error) {
	if err := s.validator.ValidateQuestion(input); err != nil {
		return sql.NullString{}, err
	}
	data, err := SerializeQuestionData(input.Data)
	if err != nil {
		return sql.NullString{}, contextutils.NewValidationError(map[string]string{"data": "must be valid JSON"})
	}
	return data, nil
}

// SerializeQuestionData converts the JSON data payload of a question to its stored text form.
// Objects and arrays are stored as compact JSON, strings as their value, other scalars as JSON text and null as NULL.
func SerializeQuestionData(raw json.RawMessage) (sql.NullString, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return sql.NullString{}, nil
	}
	text, err := jsonValueText(trimmed)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: text, Valid: true}, nil
}

// jsonValueText renders a non-null JSON value as stored text
func jsonValueText(raw []byte) (string, error) {
	if !json.Valid(raw) {
		return "", contextutils.ErrorWithContextf("invalid JSON value")
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return string(raw), nil
	}
}
