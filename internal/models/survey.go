package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SurveyStatus is the stored publication state of a survey
type SurveyStatus string

const (
	// SurveyStatusDraft marks a survey that is not yet published
	SurveyStatusDraft SurveyStatus = "draft"
	// SurveyStatusPublished marks a survey open for answers
	SurveyStatusPublished SurveyStatus = "published"
)

// IsPublished reports the boolean status exposed to clients: anything but draft is published
func (s SurveyStatus) IsPublished() bool {
	return s != SurveyStatusDraft
}

// StatusFromBool maps the boolean wire form onto a stored status
func StatusFromBool(published bool) SurveyStatus {
	if published {
		return SurveyStatusPublished
	}
	return SurveyStatusDraft
}

// UnmarshalJSON accepts true/false as well as "draft"/"published"
func (s *SurveyStatus) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = StatusFromBool(b)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("status must be a boolean or string")
	}
	switch SurveyStatus(strings.ToLower(str)) {
	case SurveyStatusDraft:
		*s = SurveyStatusDraft
	case SurveyStatusPublished:
		*s = SurveyStatusPublished
	case "true", "1":
		*s = SurveyStatusPublished
	case "false", "0":
		*s = SurveyStatusDraft
	default:
		return fmt.Errorf("invalid status %q", str)
	}
	return nil
}

// QuestionType enumerates the supported question kinds
type QuestionType string

const (
	// QuestionTypeText is a single line answer
	QuestionTypeText QuestionType = "text"
	// QuestionTypeTextarea is a multi line answer
	QuestionTypeTextarea QuestionType = "textarea"
	// QuestionTypeSelect picks one option from a drop-down
	QuestionTypeSelect QuestionType = "select"
	// QuestionTypeRadio picks one option from a radio group
	QuestionTypeRadio QuestionType = "radio"
	// QuestionTypeCheckbox picks any number of options
	QuestionTypeCheckbox QuestionType = "checkbox"
)

// QuestionTypes lists every valid question type
var QuestionTypes = []QuestionType{
	QuestionTypeText,
	QuestionTypeTextarea,
	QuestionTypeSelect,
	QuestionTypeRadio,
	QuestionTypeCheckbox,
}

// IsValid reports whether t is one of the supported question types
func (t QuestionType) IsValid() bool {
	for _, qt := range QuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// Survey is a named, owned collection of questions
type Survey struct {
	ID          int            `json:"id"`
	UserID      int            `json:"user_id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Image       sql.NullString `json:"-"`
	Status      SurveyStatus   `json:"status"`
	Description sql.NullString `json:"-"`
	ExpireDate  sql.NullTime   `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Questions   []Question     `json:"questions,omitempty"`
}

// ImagePath returns the stored relative image path, or "" when the survey has no image
func (s *Survey) ImagePath() string {
	if s.Image.Valid {
		return s.Image.String
	}
	return ""
}

// DescriptionPtr returns the description or nil when unset
func (s *Survey) DescriptionPtr() *string {
	return nullStringToPointer(s.Description)
}

// QuestionIDs returns the ids of the loaded questions in their current order
func (s *Survey) QuestionIDs() []int {
	ids := make([]int, 0, len(s.Questions))
	for _, q := range s.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// Question is a single prompt within a survey
type Question struct {
	ID          int            `json:"id"`
	SurveyID    int            `json:"survey_id"`
	Question    string         `json:"question"`
	Type        QuestionType   `json:"type"`
	Description sql.NullString `json:"-"`
	// Data is the serialized type-dependent payload, e.g. the options of a select
	Data      sql.NullString `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DescriptionPtr returns the description or nil when unset
func (q *Question) DescriptionPtr() *string {
	return nullStringToPointer(q.Description)
}

// SurveySummary is a survey with live question and answer counts
type SurveySummary struct {
	Survey
	QuestionCount int `json:"question_count"`
	AnswerCount   int `json:"answer_count"`
}

// AnswerSession is one respondent's submission for a survey
type AnswerSession struct {
	ID        int       `json:"id"`
	SurveyID  int       `json:"survey_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionAnswer is one value recorded for one question within an answer session.
// SurveyQuestionID is NULL once the question has been removed from its survey.
type QuestionAnswer struct {
	ID               int           `json:"id"`
	SurveyQuestionID sql.NullInt64 `json:"-"`
	SurveyAnswerID   int           `json:"survey_answer_id"`
	Answer           string        `json:"answer"`
	CreatedAt        time.Time     `json:"created_at"`
}

// AnswerSessionSummary is an answer session joined with the title of its survey
type AnswerSessionSummary struct {
	AnswerSession
	SurveyTitle string `json:"survey_title"`
}

// DashboardStats aggregates an owner's survey activity
type DashboardStats struct {
	TotalSurveys  int
	LatestSurvey  *SurveySummary
	TotalAnswers  int
	LatestAnswers []AnswerSessionSummary
}

// SurveyStats is a per-survey activity row used by the admin CLI
type SurveyStats struct {
	SurveyID      int
	Title         string
	Owner         string
	Status        SurveyStatus
	QuestionCount int
	AnswerCount   int
	LastAnswerAt  sql.NullTime
}

// QuestionKey is the optional id carried by an incoming question. Clients send
// numeric ids for stored questions and arbitrary strings (or nothing) for new ones.
type QuestionKey struct {
	ID    int
	Valid bool
}

// UnmarshalJSON accepts a number, a numeric string, any other string or null
func (k *QuestionKey) UnmarshalJSON(data []byte) error {
	*k = QuestionKey{}

	var n json.Number
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		return nil
	case json.Number:
		n = v
	case string:
		n = json.Number(strings.TrimSpace(v))
	default:
		return fmt.Errorf("question id must be a number or string")
	}

	id, err := strconv.Atoi(n.String())
	if err != nil || id <= 0 {
		// client side temporary ids mark new questions
		return nil
	}
	*k = QuestionKey{ID: id, Valid: true}
	return nil
}

// MarshalJSON writes the id or null
func (k QuestionKey) MarshalJSON() ([]byte, error) {
	if !k.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(k.ID)), nil
}
