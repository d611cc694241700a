package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strconv"

	"surveyapp/internal/models"
	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// AnswerServiceInterface records guest answers for a survey
type AnswerServiceInterface interface {
	SubmitAnswers(ctx context.Context, survey *models.Survey, answers map[string]json.RawMessage) (int, error)
}

// AnswerService stores answer sessions and their per-question values
type AnswerService struct {
	repo   SurveyRepository
	logger *observability.Logger
}

// NewAnswerService creates an AnswerService
func NewAnswerService(repo SurveyRepository, logger *observability.Logger) *AnswerService {
	return &AnswerService{repo: repo, logger: logger}
}

type keyedAnswer struct {
	key   string
	id    int
	value json.RawMessage
}

// SubmitAnswers records one answer session for survey. Answers are keyed by question id and
// processed in ascending id order; any id that is not a question of survey fails the whole
// submission and nothing is stored. It returns the id of the new answer session.
func (s *AnswerService) SubmitAnswers(ctx context.Context, survey *models.Survey, answers map[string]json.RawMessage) (result0 int, err error) {
	ctx, span := observability.TraceAnswerFunction(ctx, "submit_answers",
		observability.AttributeSurveyID(survey.ID), attribute.Int("answers.count", len(answers)))
	defer observability.FinishSpan(span, &err)

	ordered := orderAnswers(answers)

	var sessionID int
	err = s.repo.WithTx(ctx, func(repo SurveyRepository) error {
		questions, err := repo.ListQuestions(ctx, survey.ID)
		if err != nil {
			return err
		}
		known := make(map[int]bool, len(questions))
		for _, q := range questions {
			known[q.ID] = true
		}

		now := nowUTC()
		session := &models.AnswerSession{
			SurveyID:  survey.ID,
			StartDate: now,
			EndDate:   now,
			CreatedAt: now,
		}
		if err := repo.InsertAnswerSession(ctx, session); err != nil {
			return err
		}

		for _, a := range ordered {
			if a.id <= 0 || !known[a.id] {
				return contextutils.NewUnknownQuestionError(a.key)
			}
			text, err := answerText(a.value)
			if err != nil {
				return contextutils.NewValidationError(map[string]string{"answers." + a.key: "must be valid JSON"})
			}
			answer := &models.QuestionAnswer{
				SurveyQuestionID: sql.NullInt64{Int64: int64(a.id), Valid: true},
				SurveyAnswerID:   session.ID,
				Answer:           text,
				CreatedAt:        now,
			}
			if err := repo.InsertQuestionAnswer(ctx, answer); err != nil {
				return err
			}
		}

		sessionID = session.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	observability.RecordAnswersRecorded(ctx, survey.ID, len(ordered))
	s.logger.Info(ctx, "Recorded survey answers", map[string]interface{}{
		"survey_id":  survey.ID,
		"session_id": sessionID,
		"answers":    len(ordered),
	})
	return sessionID, nil
}

// orderAnswers sorts by numeric question id; keys that are not numbers sort first so they fail early
func orderAnswers(answers map[string]json.RawMessage) []keyedAnswer {
	ordered := make([]keyedAnswer, 0, len(answers))
	for key, value := range answers {
		id, err := strconv.Atoi(key)
		if err != nil {
			id = 0
		}
		ordered = append(ordered, keyedAnswer{key: key, id: id, value: value})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].id != ordered[j].id {
			return ordered[i].id < ordered[j].id
		}
		return ordered[i].key < ordered[j].key
	})
	return ordered
}

// answerText renders an answer value as stored text; null becomes the empty string
func answerText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	return jsonValueText(trimmed)
}
