package models

import (
	"encoding/json"

	"github.com/oapi-codegen/runtime/types"
)

// SurveyInput is the body of a survey create or update request
type SurveyInput struct {
	Title       string       `json:"title" validate:"required,max=1000"`
	Status      SurveyStatus `json:"status" validate:"required,oneof=draft published"`
	Description *string      `json:"description"`
	ExpireDate  *types.Date  `json:"expire_date"`
	// Image is a base64 data URI; nil keeps the current image on update
	Image     *string         `json:"image"`
	Questions []QuestionInput `json:"questions" validate:"dive"`
}

// QuestionInput is one question inside a survey request
type QuestionInput struct {
	ID          QuestionKey  `json:"id"`
	Question    string       `json:"question" validate:"required"`
	Type        QuestionType `json:"type" validate:"required,question_type"`
	Description *string      `json:"description"`
	// Data must be present in the payload; JSON null is kept as a literal "null"
	Data json.RawMessage `json:"data" validate:"required"`
}

// AnswerInput is the body of an answer submission: question id to answer value
type AnswerInput struct {
	Answers map[string]json.RawMessage `json:"answers" validate:"required"`
}

// Credentials is the body of signup and login requests
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}
