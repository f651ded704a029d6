package sentiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zhouzirui/astra/backend/internal/model/analysis"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// max mirrors analysis.MaxMessageLength.
type requestPayload struct {
	Message *string `json:"message" validate:"required,min=1,max=2000"`
}

type resultPayload struct {
	Summary     *string          `json:"summary" validate:"required"`
	Sentiment   *string          `json:"sentiment" validate:"required,oneof=positive neutral negative"`
	Confidence  *float64         `json:"confidence" validate:"required,gte=0,lte=1"`
	Mood        *string          `json:"mood" validate:"required"`
	Tone        *string          `json:"tone" validate:"required"`
	Highlights  []insightPayload `json:"highlights" validate:"required,min=2,dive"`
	Suggestions []*string        `json:"suggestions" validate:"required,min=2,dive,required"`
}

type insightPayload struct {
	Title  *string `json:"title" validate:"required"`
	Detail *string `json:"detail" validate:"required"`
}

// DecodeRequest reads and validates an analysis request body.
func DecodeRequest(r io.Reader) (analysis.Request, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return analysis.Request{}, NewValidationError(SourceClient, Issue{
			Code:    "unreadable_body",
			Message: fmt.Sprintf("request body could not be read: %v", err),
		})
	}

	var payload requestPayload
	if issues := decodeAndValidate(body, &payload); len(issues) > 0 {
		return analysis.Request{}, NewValidationError(SourceClient, issues...)
	}
	return analysis.Request{Message: *payload.Message}, nil
}

// DecodeResult validates parsed model output against the analysis schema.
// Violations are reported as validation errors attributed to the model.
func DecodeResult(raw json.RawMessage) (analysis.Result, error) {
	var payload resultPayload
	if issues := decodeAndValidate(raw, &payload); len(issues) > 0 {
		return analysis.Result{}, NewValidationError(SourceModel, issues...)
	}

	highlights := make([]analysis.Insight, 0, len(payload.Highlights))
	for _, item := range payload.Highlights {
		highlights = append(highlights, analysis.Insight{Title: *item.Title, Detail: *item.Detail})
	}
	suggestions := make([]string, 0, len(payload.Suggestions))
	for _, item := range payload.Suggestions {
		suggestions = append(suggestions, *item)
	}

	return analysis.Result{
		Summary:     *payload.Summary,
		Sentiment:   analysis.Sentiment(*payload.Sentiment),
		Confidence:  *payload.Confidence,
		Mood:        *payload.Mood,
		Tone:        *payload.Tone,
		Highlights:  highlights,
		Suggestions: suggestions,
	}, nil
}

func decodeAndValidate(data []byte, payload any) []Issue {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []Issue{{Code: "invalid_json", Message: "body is empty"}}
	}

	var typeIssue *Issue
	if err := json.Unmarshal(data, payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return []Issue{{Code: "invalid_json", Message: err.Error()}}
		}
		if typeErr.Field == "" {
			return []Issue{{
				Code:    "invalid_type",
				Message: fmt.Sprintf("expected object, received %s", typeErr.Value),
			}}
		}
		typeIssue = &Issue{
			Path:    typeErr.Field,
			Code:    "invalid_type",
			Message: fmt.Sprintf("expected %s, received %s", jsonTypeName(typeErr.Type), typeErr.Value),
		}
	}

	var issues []Issue
	if typeIssue != nil {
		issues = append(issues, *typeIssue)
	}

	err := validate.Struct(payload)
	var fieldErrs validator.ValidationErrors
	if err != nil && !errors.As(err, &fieldErrs) {
		return append(issues, Issue{Code: "invalid", Message: err.Error()})
	}
	for _, fe := range fieldErrs {
		issue := Issue{Path: fieldPath(fe.Namespace()), Code: fe.Tag(), Message: describe(fe)}
		// The decoder leaves a mistyped field unset; its type issue already covers it.
		if typeIssue != nil && issue.Code == "required" && rootField(issue.Path) == rootField(typeIssue.Path) {
			continue
		}
		issues = append(issues, issue)
	}
	return issues
}

// fieldPath drops the struct name validator prefixes to every namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func rootField(path string) string {
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i]
	}
	return path
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must contain at least %s character(s)", fe.Param())
		}
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must contain at most %s character(s)", fe.Param())
		}
		return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func jsonTypeName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}
