package main

import (
	"context"
	"encoding/json"
	"testing"

	"surveyapp/internal/config"
	"surveyapp/internal/models"
	"surveyapp/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFixtures = `
users:
  - username: alice
    password: password123
    surveys:
      - title: Feedback
        status: published
        expire_date: "2030-01-31"
        questions:
          - question: Rating
            type: radio
            data:
              options: [one, two]
          - question: Comment
            type: text
            data: null
        answers:
          - 0: one
            1: great
`

type fakeUsers struct {
	created []string
}

func (f *fakeUsers) CreateUserWithPassword(_ context.Context, username, _ string) (*models.User, error) {
	f.created = append(f.created, username)
	return &models.User{ID: len(f.created), Username: username}, nil
}

func (f *fakeUsers) GetUserByID(context.Context, int) (*models.User, error) {
	return nil, nil
}

func (f *fakeUsers) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, nil
}

func (f *fakeUsers) AuthenticateUser(context.Context, string, string) (*models.User, error) {
	return nil, nil
}

func (f *fakeUsers) UpdateUserPassword(context.Context, int, string) error {
	return nil
}

func (f *fakeUsers) GetAllUsers(context.Context) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUsers) DeleteUser(context.Context, int) error {
	return nil
}

type fakeSurveys struct {
	inputs []*models.SurveyInput
}

func (f *fakeSurveys) Create(_ context.Context, ownerID int, input *models.SurveyInput) (*models.Survey, error) {
	f.inputs = append(f.inputs, input)
	survey := &models.Survey{ID: len(f.inputs), UserID: ownerID, Title: input.Title, Slug: "feedback"}
	for i := range input.Questions {
		survey.Questions = append(survey.Questions, models.Question{ID: 100 + i})
	}
	return survey, nil
}
func (f *fakeSurveys) Update(context.Context, *models.Survey, *models.SurveyInput) (*models.Survey, error) {
	return nil, nil
}

func (f *fakeSurveys) Delete(context.Context, *models.Survey) error {
	return nil
}

func (f *fakeSurveys) Get(context.Context, int) (*models.Survey, error) {
	return nil, nil
}

func (f *fakeSurveys) GetBySlug(context.Context, string) (*models.Survey, error) {
	return nil, nil
}

func (f *fakeSurveys) ListByUser(context.Context, int, int, int) ([]models.SurveySummary, int, error) {
	return nil, 0, nil
}

type fakeAnswers struct {
	payloads []map[string]json.RawMessage
}

func (f *fakeAnswers) SubmitAnswers(_ context.Context, _ *models.Survey, answers map[string]json.RawMessage) (int, error) {
	f.payloads = append(f.payloads, answers)
	return len(f.payloads), nil
}

func TestParseFixtures(t *testing.T) {
	fixtures, err := ParseFixtures([]byte(sampleFixtures))
	require.NoError(t, err)
	require.Len(t, fixtures.Users, 1)

	survey := fixtures.Users[0].Surveys[0]
	require.Len(t, survey.Answers, 1)
	assert.Equal(t, "great", survey.Answers[0][1])
	assert.NotContains(t, survey.Body, "answers")

	input, err := survey.SurveyInput()
	require.NoError(t, err)
	assert.Equal(t, "Feedback", input.Title)
	assert.Equal(t, models.SurveyStatusPublished, input.Status)
	require.NotNil(t, input.ExpireDate)
	assert.Equal(t, "2030-01-31", input.ExpireDate.Time.Format("2006-01-02"))
	require.Len(t, input.Questions, 2)
	assert.Equal(t, models.QuestionType("radio"), input.Questions[0].Type)
	assert.JSONEq(t, `{"options":["one","two"]}`, string(input.Questions[0].Data))
	assert.Equal(t, "null", string(input.Questions[1].Data))
}

func TestParseFixtures_Invalid(t *testing.T) {
	_, err := ParseFixtures([]byte("users: [unterminated"))
	assert.Error(t, err)
}

func TestAnswerPayload(t *testing.T) {
	survey := &models.Survey{Title: "Feedback", Questions: []models.Question{{ID: 11}, {ID: 12}}}

	payload, err := AnswerPayload(survey, map[int]interface{}{0: "yes", 1: []interface{}{"a", "b"}})
	require.NoError(t, err)
	assert.JSONEq(t, `"yes"`, string(payload["11"]))
	assert.JSONEq(t, `["a","b"]`, string(payload["12"]))

	_, err = AnswerPayload(survey, map[int]interface{}{2: "out of range"})
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	fixtures, err := ParseFixtures([]byte(sampleFixtures))
	require.NoError(t, err)

	users := &fakeUsers{}
	surveys := &fakeSurveys{}
	answers := &fakeAnswers{}
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	seeded, err := Seed(context.Background(), fixtures, users, surveys, answers, logger)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, users.created)
	require.Len(t, seeded, 1)
	assert.Equal(t, SeededSurvey{Owner: "alice", ID: 1, Slug: "feedback", Sessions: []int{1}}, seeded[0])

	require.Len(t, answers.payloads, 1)
	assert.JSONEq(t, `"one"`, string(answers.payloads[0]["100"]))
	assert.JSONEq(t, `"great"`, string(answers.payloads[0]["101"]))
}

func TestAdminURL(t *testing.T) {
	admin, name, err := adminURL("postgres://u:p@localhost:5433/survey_test_db?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "survey_test_db", name)
	assert.Equal(t, "postgres://u:p@localhost:5433/postgres?sslmode=disable", admin)

	_, _, err = adminURL("postgres://u:p@localhost:5433")
	assert.Error(t, err)
}
