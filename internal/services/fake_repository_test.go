package services

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sort"

	"surveyapp/internal/config"
	"surveyapp/internal/models"
	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"
)

func nopLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

// fakeRepository is an in-memory SurveyRepository. WithTx snapshots the state and restores it on error.
type fakeRepository struct {
	surveys        map[int]models.Survey
	questions      map[int]models.Question
	sessions       map[int]models.AnswerSession
	answers        map[int]models.QuestionAnswer
	nextID         int
	owners         map[int]string
	failOn         string
	failOnQuestion string
}

var errFakeFailure = errors.New("fake repository failure")

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		surveys:   map[int]models.Survey{},
		questions: map[int]models.Question{},
		sessions:  map[int]models.AnswerSession{},
		answers:   map[int]models.QuestionAnswer{},
		owners:    map[int]string{},
	}
}

func (f *fakeRepository) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeRepository) fail(op string) error {
	if f.failOn == op {
		return contextutils.WrapError(errFakeFailure, op)
	}
	return nil
}

type fakeSnapshot struct {
	surveys   map[int]models.Survey
	questions map[int]models.Question
	sessions  map[int]models.AnswerSession
	answers   map[int]models.QuestionAnswer
	nextID    int
}

func copyMap[V any](m map[int]V) map[int]V {
	out := make(map[int]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeRepository) WithTx(_ context.Context, fn func(repo SurveyRepository) error) error {
	snap := fakeSnapshot{
		surveys:   copyMap(f.surveys),
		questions: copyMap(f.questions),
		sessions:  copyMap(f.sessions),
		answers:   copyMap(f.answers),
		nextID:    f.nextID,
	}
	if err := fn(f); err != nil {
		f.surveys, f.questions, f.sessions, f.answers, f.nextID =
			snap.surveys, snap.questions, snap.sessions, snap.answers, snap.nextID
		return err
	}
	return nil
}

func (f *fakeRepository) InsertSurvey(_ context.Context, survey *models.Survey) error {
	if err := f.fail("InsertSurvey"); err != nil {
		return err
	}
	for _, s := range f.surveys {
		if s.Slug == survey.Slug {
			return contextutils.ErrRecordExists
		}
	}
	survey.ID = f.id()
	stored := *survey
	stored.Questions = nil
	f.surveys[survey.ID] = stored
	return nil
}

func (f *fakeRepository) UpdateSurvey(_ context.Context, survey *models.Survey) error {
	if err := f.fail("UpdateSurvey"); err != nil {
		return err
	}
	current, ok := f.surveys[survey.ID]
	if !ok {
		return contextutils.ErrRecordNotFound
	}
	current.Title = survey.Title
	current.Image = survey.Image
	current.Status = survey.Status
	current.Description = survey.Description
	current.ExpireDate = survey.ExpireDate
	current.UpdatedAt = survey.UpdatedAt
	f.surveys[survey.ID] = current
	return nil
}

func (f *fakeRepository) DeleteSurvey(_ context.Context, id int) error {
	if err := f.fail("DeleteSurvey"); err != nil {
		return err
	}
	if _, ok := f.surveys[id]; !ok {
		return contextutils.ErrRecordNotFound
	}
	delete(f.surveys, id)
	for qid, q := range f.questions {
		if q.SurveyID == id {
			delete(f.questions, qid)
		}
	}
	for sid, s := range f.sessions {
		if s.SurveyID != id {
			continue
		}
		delete(f.sessions, sid)
		for aid, a := range f.answers {
			if a.SurveyAnswerID == sid {
				delete(f.answers, aid)
			}
		}
	}
	return nil
}

func (f *fakeRepository) GetSurvey(ctx context.Context, id int) (*models.Survey, error) {
	s, ok := f.surveys[id]
	if !ok {
		return nil, contextutils.ErrRecordNotFound
	}
	s.Questions, _ = f.ListQuestions(ctx, id)
	return &s, nil
}

func (f *fakeRepository) GetSurveyBySlug(ctx context.Context, slug string) (*models.Survey, error) {
	for id, s := range f.surveys {
		if s.Slug == slug {
			return f.GetSurvey(ctx, id)
		}
	}
	return nil, contextutils.ErrRecordNotFound
}

func (f *fakeRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, s := range f.surveys {
		if s.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) summary(s models.Survey) models.SurveySummary {
	summary := models.SurveySummary{Survey: s}
	for _, q := range f.questions {
		if q.SurveyID == s.ID {
			summary.QuestionCount++
		}
	}
	for _, a := range f.sessions {
		if a.SurveyID == s.ID {
			summary.AnswerCount++
		}
	}
	return summary
}

func (f *fakeRepository) userSurveys(userID int) []models.Survey {
	surveys := []models.Survey{}
	for _, s := range f.surveys {
		if s.UserID == userID {
			surveys = append(surveys, s)
		}
	}
	sort.Slice(surveys, func(i, j int) bool { return surveys[i].ID > surveys[j].ID })
	return surveys
}

func (f *fakeRepository) ListSurveysByUser(_ context.Context, userID, limit, offset int) ([]models.SurveySummary, int, error) {
	if offset < 0 || offset > math.MaxInt32 {
		return nil, 0, contextutils.WrapErrorf(errFakeFailure, "OFFSET %d out of range", offset)
	}
	surveys := f.userSurveys(userID)
	page := []models.SurveySummary{}
	for i := offset; i < len(surveys) && i < offset+limit; i++ {
		page = append(page, f.summary(surveys[i]))
	}
	return page, len(surveys), nil
}

func (f *fakeRepository) ListQuestions(_ context.Context, surveyID int) ([]models.Question, error) {
	questions := []models.Question{}
	for _, q := range f.questions {
		if q.SurveyID == surveyID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (f *fakeRepository) InsertQuestion(_ context.Context, question *models.Question) error {
	if err := f.fail("InsertQuestion"); err != nil {
		return err
	}
	if f.failOnQuestion != "" && question.Question == f.failOnQuestion {
		return contextutils.WrapError(errFakeFailure, "InsertQuestion")
	}
	question.ID = f.id()
	f.questions[question.ID] = *question
	return nil
}

func (f *fakeRepository) UpdateQuestion(_ context.Context, question *models.Question) error {
	if err := f.fail("UpdateQuestion"); err != nil {
		return err
	}
	current, ok := f.questions[question.ID]
	if !ok || current.SurveyID != question.SurveyID {
		return contextutils.ErrRecordNotFound
	}
	f.questions[question.ID] = *question
	return nil
}

func (f *fakeRepository) DeleteQuestions(_ context.Context, surveyID int, ids []int) error {
	for _, id := range ids {
		if q, ok := f.questions[id]; ok && q.SurveyID == surveyID {
			delete(f.questions, id)
			for aid, a := range f.answers {
				if a.SurveyQuestionID.Valid && int(a.SurveyQuestionID.Int64) == id {
					a.SurveyQuestionID = sql.NullInt64{}
					f.answers[aid] = a
				}
			}
		}
	}
	return nil
}

func (f *fakeRepository) InsertAnswerSession(_ context.Context, session *models.AnswerSession) error {
	if err := f.fail("InsertAnswerSession"); err != nil {
		return err
	}
	session.ID = f.id()
	f.sessions[session.ID] = *session
	return nil
}

func (f *fakeRepository) InsertQuestionAnswer(_ context.Context, answer *models.QuestionAnswer) error {
	if err := f.fail("InsertQuestionAnswer"); err != nil {
		return err
	}
	answer.ID = f.id()
	f.answers[answer.ID] = *answer
	return nil
}

func (f *fakeRepository) CountSurveys(_ context.Context, userID int) (int, error) {
	return len(f.userSurveys(userID)), nil
}

func (f *fakeRepository) LatestSurvey(_ context.Context, userID int) (*models.SurveySummary, error) {
	surveys := f.userSurveys(userID)
	if len(surveys) == 0 {
		return nil, nil
	}
	summary := f.summary(surveys[0])
	return &summary, nil
}

func (f *fakeRepository) userSessions(userID int) []models.AnswerSessionSummary {
	sessions := []models.AnswerSessionSummary{}
	for _, a := range f.sessions {
		if s, ok := f.surveys[a.SurveyID]; ok && s.UserID == userID {
			sessions = append(sessions, models.AnswerSessionSummary{AnswerSession: a, SurveyTitle: s.Title})
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID > sessions[j].ID })
	return sessions
}

func (f *fakeRepository) CountAnswerSessions(_ context.Context, userID int) (int, error) {
	return len(f.userSessions(userID)), nil
}

func (f *fakeRepository) LatestAnswerSessions(_ context.Context, userID, limit int) ([]models.AnswerSessionSummary, error) {
	sessions := f.userSessions(userID)
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (f *fakeRepository) SurveyStats(_ context.Context) ([]models.SurveyStats, error) {
	ids := make([]int, 0, len(f.surveys))
	for id := range f.surveys {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	stats := make([]models.SurveyStats, 0, len(ids))
	for _, id := range ids {
		summary := f.summary(f.surveys[id])
		stats = append(stats, models.SurveyStats{
			SurveyID:      id,
			Title:         summary.Title,
			Owner:         f.owners[summary.UserID],
			Status:        summary.Status,
			QuestionCount: summary.QuestionCount,
			AnswerCount:   summary.AnswerCount,
		})
	}
	return stats, nil
}

var _ SurveyRepository = (*fakeRepository)(nil)
