package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"surveyapp/internal/models"
	"surveyapp/internal/observability"
	"surveyapp/internal/services"
	contextutils "surveyapp/internal/utils"

	"gopkg.in/yaml.v3"
)

// Fixtures is the YAML seed file: users, each with the surveys they own
type Fixtures struct {
	Users []FixtureUser `yaml:"users"`
}

// FixtureUser is a seeded account
type FixtureUser struct {
	Username string          `yaml:"username"`
	Password string          `yaml:"password"`
	Surveys  []FixtureSurvey `yaml:"surveys"`
}

// FixtureSurvey is a survey body in the same shape as the create request,
// plus answer sets keyed by question position
type FixtureSurvey struct {
	Body    map[string]interface{} `yaml:",inline"`
	Answers []map[int]interface{}  `yaml:"answers"`
}

// SeededSurvey records what was created for one fixture survey
type SeededSurvey struct {
	Owner    string `json:"owner"`
	ID       int    `json:"id"`
	Slug     string `json:"slug"`
	Sessions []int  `json:"sessions"`
}

// LoadFixtures reads and parses a fixture file
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to read fixtures %s", path)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes fixture YAML
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fixtures Fixtures
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, contextutils.WrapError(err, "failed to parse fixtures")
	}
	return &fixtures, nil
}

// SurveyInput converts the YAML body into the request model so fixtures go through
// the same decoding as API requests
func (f FixtureSurvey) SurveyInput() (*models.SurveyInput, error) {
	raw, err := json.Marshal(f.Body)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to encode survey fixture")
	}
	var input models.SurveyInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode survey fixture")
	}
	return &input, nil
}

// AnswerPayload maps one answer set from question positions to the created question ids
func AnswerPayload(survey *models.Survey, answers map[int]interface{}) (map[string]json.RawMessage, error) {
	payload := make(map[string]json.RawMessage, len(answers))
	for pos, value := range answers {
		if pos < 0 || pos >= len(survey.Questions) {
			return nil, contextutils.ErrorWithContextf("answer refers to question %d but survey %q has %d questions",
				pos, survey.Title, len(survey.Questions))
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to encode answer for question %d", pos)
		}
		payload[strconv.Itoa(survey.Questions[pos].ID)] = raw
	}
	return payload, nil
}

// Seed creates every fixture user, survey and answer set through the services
func Seed(ctx context.Context, fixtures *Fixtures, users services.UserServiceInterface, surveys services.SurveyServiceInterface,
	answers services.AnswerServiceInterface, logger *observability.Logger) ([]SeededSurvey, error) {
	var seeded []SeededSurvey

	for _, fu := range fixtures.Users {
		user, err := users.CreateUserWithPassword(ctx, fu.Username, fu.Password)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to create user %s", fu.Username)
		}
		logger.Info(ctx, "Created fixture user", map[string]interface{}{"username": fu.Username, "user_id": user.ID})

		for _, fs := range fu.Surveys {
			input, err := fs.SurveyInput()
			if err != nil {
				return nil, err
			}
			survey, err := surveys.Create(ctx, user.ID, input)
			if err != nil {
				return nil, contextutils.WrapErrorf(err, "failed to create survey %q", input.Title)
			}

			record := SeededSurvey{Owner: fu.Username, ID: survey.ID, Slug: survey.Slug}
			for _, set := range fs.Answers {
				payload, err := AnswerPayload(survey, set)
				if err != nil {
					return nil, err
				}
				sessionID, err := answers.SubmitAnswers(ctx, survey, payload)
				if err != nil {
					return nil, contextutils.WrapErrorf(err, "failed to submit answers for survey %q", survey.Title)
				}
				record.Sessions = append(record.Sessions, sessionID)
			}

			logger.Info(ctx, "Created fixture survey", map[string]interface{}{
				"survey_id": survey.ID,
				"slug":      survey.Slug,
				"sessions":  len(record.Sessions),
			})
			seeded = append(seeded, record)
		}
	}

	return seeded, nil
}
