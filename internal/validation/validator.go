// Package validation checks request payloads before they reach the services.
// Schema validation runs against the raw JSON body; struct validation runs on the decoded inputs.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"surveyapp/internal/models"
	contextutils "surveyapp/internal/utils"

	"github.com/go-playground/validator/v10"
)

// Validator validates decoded request inputs
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the survey specific rules registered
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names, e.g. questions[0].type
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).IsValid()
	})

	return &Validator{validate: v}
}

// ValidateSurvey validates a survey create or update body including every question
func (v *Validator) ValidateSurvey(input *models.SurveyInput) error {
	return v.validateStruct(input)
}

// ValidateQuestion validates a single question input
func (v *Validator) ValidateQuestion(input *models.QuestionInput) error {
	return v.validateStruct(input)
}

// ValidateAnswers validates an answer submission body
func (v *Validator) ValidateAnswers(input *models.AnswerInput) error {
	return v.validateStruct(input)
}

// ValidateCredentials validates signup and login bodies
func (v *Validator) ValidateCredentials(input *models.Credentials) error {
	return v.validateStruct(input)
}

func (v *Validator) validateStruct(input interface{}) error {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return contextutils.WrapError(err, "failed to validate input")
	}

	fields := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		field := fieldPath(fe.Namespace())
		if _, exists := fields[field]; exists {
			continue
		}
		fields[field] = fieldMessage(fe)
	}
	return contextutils.NewValidationError(fields)
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "question_type":
		types := make([]string, len(models.QuestionTypes))
		for i, t := range models.QuestionTypes {
			types[i] = string(t)
		}
		return fmt.Sprintf("must be one of: %s", strings.Join(types, ", "))
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
