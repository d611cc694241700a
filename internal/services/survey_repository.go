package services

import (
	"context"
	"database/sql"
	"errors"

	"surveyapp/internal/models"
	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// SurveyRepository is the storage contract for surveys, their questions and recorded answers.
// Lookups of missing rows return contextutils.ErrRecordNotFound.
type SurveyRepository interface {
	// WithTx runs fn against a repository bound to one transaction. The transaction
	// commits when fn returns nil and rolls back otherwise. Nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(repo SurveyRepository) error) error

	InsertSurvey(ctx context.Context, survey *models.Survey) error
	UpdateSurvey(ctx context.Context, survey *models.Survey) error
	DeleteSurvey(ctx context.Context, id int) error
	GetSurvey(ctx context.Context, id int) (*models.Survey, error)
	GetSurveyBySlug(ctx context.Context, slug string) (*models.Survey, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListSurveysByUser(ctx context.Context, userID, limit, offset int) ([]models.SurveySummary, int, error)

	ListQuestions(ctx context.Context, surveyID int) ([]models.Question, error)
	InsertQuestion(ctx context.Context, question *models.Question) error
	UpdateQuestion(ctx context.Context, question *models.Question) error
	DeleteQuestions(ctx context.Context, surveyID int, ids []int) error

	InsertAnswerSession(ctx context.Context, session *models.AnswerSession) error
	InsertQuestionAnswer(ctx context.Context, answer *models.QuestionAnswer) error

	CountSurveys(ctx context.Context, userID int) (int, error)
	LatestSurvey(ctx context.Context, userID int) (*models.SurveySummary, error)
	CountAnswerSessions(ctx context.Context, userID int) (int, error)
	LatestAnswerSessions(ctx context.Context, userID, limit int) ([]models.AnswerSessionSummary, error)
	SurveyStats(ctx context.Context) ([]models.SurveyStats, error)
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresSurveyRepository implements SurveyRepository with raw SQL over database/sql
type PostgresSurveyRepository struct {
	db     *sql.DB
	q      queryer
	inTx   bool
	logger *observability.Logger
}

// NewPostgresSurveyRepository creates a repository on top of a pooled connection
func NewPostgresSurveyRepository(db *sql.DB, logger *observability.Logger) *PostgresSurveyRepository {
	return &PostgresSurveyRepository{db: db, q: db, logger: logger}
}

// Shared query constants
const (
	surveySelectFields   = `id, user_id, title, slug, image, status, description, expire_date, created_at, updated_at`
	questionSelectFields = `id, survey_id, question, type, description, data, created_at, updated_at`

	// surveySummaryFields adds live question and answer counts to a survey row aliased as s
	surveySummaryFields = `s.id, s.user_id, s.title, s.slug, s.image, s.status, s.description, s.expire_date, s.created_at, s.updated_at,
		(SELECT COUNT(*) FROM survey_questions q WHERE q.survey_id = s.id),
		(SELECT COUNT(*) FROM survey_answers a WHERE a.survey_id = s.id)`
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSurvey(row rowScanner, extra ...interface{}) (*models.Survey, error) {
	survey := &models.Survey{}
	dest := []interface{}{
		&survey.ID, &survey.UserID, &survey.Title, &survey.Slug, &survey.Image, &survey.Status,
		&survey.Description, &survey.ExpireDate, &survey.CreatedAt, &survey.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return survey, nil
}

func scanSurveySummary(row rowScanner) (*models.SurveySummary, error) {
	var summary models.SurveySummary
	survey, err := scanSurvey(row, &summary.QuestionCount, &summary.AnswerCount)
	if err != nil {
		return nil, err
	}
	summary.Survey = *survey
	return &summary, nil
}

// WithTx runs fn inside a transaction
func (r *PostgresSurveyRepository) WithTx(ctx context.Context, fn func(repo SurveyRepository) error) (err error) {
	if r.inTx {
		return fn(r)
	}

	ctx, span := observability.TraceDatabaseFunction(ctx, "with_tx")
	defer observability.FinishSpan(span, &err)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseTransaction, contextutils.SeverityError,
			"failed to begin transaction", "", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				r.logger.Error(ctx, "Failed to rollback transaction", rollbackErr)
			}
		}
	}()

	if err = fn(&PostgresSurveyRepository{db: r.db, q: tx, inTx: true, logger: r.logger}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseTransaction, contextutils.SeverityError,
			"failed to commit transaction", "", err)
	}
	return nil
}

// InsertSurvey stores a new survey and sets its id
func (r *PostgresSurveyRepository) InsertSurvey(ctx context.Context, survey *models.Survey) error {
	query := `INSERT INTO surveys (user_id, title, slug, image, status, description, expire_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := r.q.QueryRowContext(ctx, query,
		survey.UserID, survey.Title, survey.Slug, survey.Image, string(survey.Status),
		survey.Description, survey.ExpireDate, survey.CreatedAt, survey.UpdatedAt,
	).Scan(&survey.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return contextutils.WrapErrorf(contextutils.ErrRecordExists, "survey slug %q already exists", survey.Slug)
		}
		return contextutils.WrapError(err, "failed to insert survey")
	}
	return nil
}

// UpdateSurvey writes the mutable survey columns; owner and slug are never changed
func (r *PostgresSurveyRepository) UpdateSurvey(ctx context.Context, survey *models.Survey) error {
	query := `UPDATE surveys SET title = $1, image = $2, status = $3, description = $4, expire_date = $5, updated_at = $6 WHERE id = $7`
	result, err := r.q.ExecContext(ctx, query,
		survey.Title, survey.Image, string(survey.Status), survey.Description, survey.ExpireDate, survey.UpdatedAt, survey.ID,
	)
	if err != nil {
		return contextutils.WrapError(err, "failed to update survey")
	}
	return requireAffected(result, "survey", survey.ID)
}

// DeleteSurvey removes a survey; questions and answers go with it via ON DELETE CASCADE
func (r *PostgresSurveyRepository) DeleteSurvey(ctx context.Context, id int) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM surveys WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete survey")
	}
	return requireAffected(result, "survey", id)
}

// GetSurvey loads a survey with its questions ordered by id
func (r *PostgresSurveyRepository) GetSurvey(ctx context.Context, id int) (result0 *models.Survey, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "get_survey", observability.AttributeSurveyID(id))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + surveySelectFields + ` FROM surveys WHERE id = $1`
	return r.getSurveyWhere(ctx, query, id)
}

// GetSurveyBySlug loads a survey and its questions by slug
func (r *PostgresSurveyRepository) GetSurveyBySlug(ctx context.Context, slug string) (result0 *models.Survey, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "get_survey_by_slug", observability.AttributeSurveySlug(slug))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + surveySelectFields + ` FROM surveys WHERE slug = $1`
	return r.getSurveyWhere(ctx, query, slug)
}

func (r *PostgresSurveyRepository) getSurveyWhere(ctx context.Context, query string, arg interface{}) (*models.Survey, error) {
	survey, err := scanSurvey(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "survey %v not found", arg)
		}
		return nil, contextutils.WrapError(err, "failed to load survey")
	}

	survey.Questions, err = r.ListQuestions(ctx, survey.ID)
	if err != nil {
		return nil, err
	}
	return survey, nil
}

// SlugExists reports whether any survey already uses slug
func (r *PostgresSurveyRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM surveys WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to check slug")
	}
	return exists, nil
}

// ListSurveysByUser returns one page of a user's surveys, newest first, and the total count
func (r *PostgresSurveyRepository) ListSurveysByUser(ctx context.Context, userID, limit, offset int) (result0 []models.SurveySummary, result1 int, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "list_surveys_by_user",
		observability.AttributeUserID(userID), attribute.Int("db.limit", limit), attribute.Int("db.offset", offset))
	defer observability.FinishSpan(span, &err)

	var total int
	if err = r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM surveys WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count surveys")
	}

	query := `SELECT ` + surveySummaryFields + ` FROM surveys s WHERE s.user_id = $1 ORDER BY s.created_at DESC, s.id DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list surveys")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = contextutils.WrapError(closeErr, "failed to close rows")
		}
	}()

	summaries := make([]models.SurveySummary, 0, limit)
	for rows.Next() {
		summary, scanErr := scanSurveySummary(rows)
		if scanErr != nil {
			return nil, 0, contextutils.WrapError(scanErr, "failed to scan survey")
		}
		summaries = append(summaries, *summary)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to iterate surveys")
	}
	return summaries, total, nil
}

// ListQuestions returns a survey's questions ordered by id
func (r *PostgresSurveyRepository) ListQuestions(ctx context.Context, surveyID int) (result0 []models.Question, err error) {
	query := `SELECT ` + questionSelectFields + ` FROM survey_questions WHERE survey_id = $1 ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, surveyID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list questions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = contextutils.WrapError(closeErr, "failed to close rows")
		}
	}()

	questions := []models.Question{}
	for rows.Next() {
		var q models.Question
		if err = rows.Scan(&q.ID, &q.SurveyID, &q.Question, &q.Type, &q.Description, &q.Data, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question")
		}
		questions = append(questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate questions")
	}
	return questions, nil
}

// InsertQuestion stores a new question and sets its id
func (r *PostgresSurveyRepository) InsertQuestion(ctx context.Context, question *models.Question) error {
	query := `INSERT INTO survey_questions (survey_id, question, type, description, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := r.q.QueryRowContext(ctx, query,
		question.SurveyID, question.Question, string(question.Type), question.Description, question.Data,
		question.CreatedAt, question.UpdatedAt,
	).Scan(&question.ID)
	if err != nil {
		return contextutils.WrapError(err, "failed to insert question")
	}
	return nil
}

// UpdateQuestion rewrites a question in place
func (r *PostgresSurveyRepository) UpdateQuestion(ctx context.Context, question *models.Question) error {
	query := `UPDATE survey_questions SET question = $1, type = $2, description = $3, data = $4, updated_at = $5
		WHERE id = $6 AND survey_id = $7`
	result, err := r.q.ExecContext(ctx, query,
		question.Question, string(question.Type), question.Description, question.Data, question.UpdatedAt,
		question.ID, question.SurveyID,
	)
	if err != nil {
		return contextutils.WrapError(err, "failed to update question")
	}
	return requireAffected(result, "question", question.ID)
}

// DeleteQuestions removes the given questions of a survey; their past answers keep a NULL question id
func (r *PostgresSurveyRepository) DeleteQuestions(ctx context.Context, surveyID int, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	ids64 := make([]int64, len(ids))
	for i, id := range ids {
		ids64[i] = int64(id)
	}
	_, err := r.q.ExecContext(ctx, `DELETE FROM survey_questions WHERE survey_id = $1 AND id = ANY($2)`, surveyID, pq.Array(ids64))
	if err != nil {
		return contextutils.WrapError(err, "failed to delete questions")
	}
	return nil
}

// InsertAnswerSession stores a new answer session and sets its id
func (r *PostgresSurveyRepository) InsertAnswerSession(ctx context.Context, session *models.AnswerSession) error {
	query := `INSERT INTO survey_answers (survey_id, start_date, end_date, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, session.SurveyID, session.StartDate, session.EndDate, session.CreatedAt).Scan(&session.ID)
	if err != nil {
		return contextutils.WrapError(err, "failed to insert answer session")
	}
	return nil
}

// InsertQuestionAnswer stores one answer value and sets its id
func (r *PostgresSurveyRepository) InsertQuestionAnswer(ctx context.Context, answer *models.QuestionAnswer) error {
	query := `INSERT INTO survey_question_answers (survey_question_id, survey_answer_id, answer, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, answer.SurveyQuestionID, answer.SurveyAnswerID, answer.Answer, answer.CreatedAt).Scan(&answer.ID)
	if err != nil {
		return contextutils.WrapError(err, "failed to insert question answer")
	}
	return nil
}

// CountSurveys returns how many surveys a user owns
func (r *PostgresSurveyRepository) CountSurveys(ctx context.Context, userID int) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM surveys WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, contextutils.WrapError(err, "failed to count surveys")
	}
	return count, nil
}

// LatestSurvey returns the most recently created survey of a user, or nil when there is none
func (r *PostgresSurveyRepository) LatestSurvey(ctx context.Context, userID int) (*models.SurveySummary, error) {
	query := `SELECT ` + surveySummaryFields + ` FROM surveys s WHERE s.user_id = $1 ORDER BY s.created_at DESC, s.id DESC LIMIT 1`
	summary, err := scanSurveySummary(r.q.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, contextutils.WrapError(err, "failed to load latest survey")
	}
	return summary, nil
}

// CountAnswerSessions returns how many answer sessions were recorded across a user's surveys
func (r *PostgresSurveyRepository) CountAnswerSessions(ctx context.Context, userID int) (int, error) {
	query := `SELECT COUNT(*) FROM survey_answers a JOIN surveys s ON s.id = a.survey_id WHERE s.user_id = $1`
	var count int
	if err := r.q.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, contextutils.WrapError(err, "failed to count answers")
	}
	return count, nil
}

// LatestAnswerSessions returns the newest answer sessions across a user's surveys
func (r *PostgresSurveyRepository) LatestAnswerSessions(ctx context.Context, userID, limit int) (result0 []models.AnswerSessionSummary, err error) {
	query := `SELECT a.id, a.survey_id, a.start_date, a.end_date, a.created_at, s.title
		FROM survey_answers a JOIN surveys s ON s.id = a.survey_id
		WHERE s.user_id = $1 ORDER BY a.end_date DESC, a.id DESC LIMIT $2`
	rows, err := r.q.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list answer sessions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = contextutils.WrapError(closeErr, "failed to close rows")
		}
	}()

	sessions := []models.AnswerSessionSummary{}
	for rows.Next() {
		var s models.AnswerSessionSummary
		if err = rows.Scan(&s.ID, &s.SurveyID, &s.StartDate, &s.EndDate, &s.CreatedAt, &s.SurveyTitle); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan answer session")
		}
		sessions = append(sessions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate answer sessions")
	}
	return sessions, nil
}

// SurveyStats returns per-survey activity for every survey, ordered by id
func (r *PostgresSurveyRepository) SurveyStats(ctx context.Context) (result0 []models.SurveyStats, err error) {
	query := `SELECT s.id, s.title, u.username, s.status,
			(SELECT COUNT(*) FROM survey_questions q WHERE q.survey_id = s.id),
			(SELECT COUNT(*) FROM survey_answers a WHERE a.survey_id = s.id),
			(SELECT MAX(a.end_date) FROM survey_answers a WHERE a.survey_id = s.id)
		FROM surveys s JOIN users u ON u.id = s.user_id ORDER BY s.id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load survey stats")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = contextutils.WrapError(closeErr, "failed to close rows")
		}
	}()

	stats := []models.SurveyStats{}
	for rows.Next() {
		var s models.SurveyStats
		if err = rows.Scan(&s.SurveyID, &s.Title, &s.Owner, &s.Status, &s.QuestionCount, &s.AnswerCount, &s.LastAnswerAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan survey stats")
		}
		stats = append(stats, s)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate survey stats")
	}
	return stats, nil
}

func requireAffected(result sql.Result, entity string, id int) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read affected rows")
	}
	if affected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "%s %d not found", entity, id)
	}
	return nil
}

// isDuplicateKeyError checks if the error is a duplicate key constraint violation
func isDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	// PostgreSQL error code 23505 is for unique constraint violations
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

