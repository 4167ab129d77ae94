package reviews

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/courserate-sg/server/internal/sanitize"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const semesterTag = "semester"

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON field names rather than Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterCustomTypeFunc(optionalStringValue, Optional[string]{})

	_ = validate.RegisterValidation(semesterTag, func(fl validator.FieldLevel) bool {
		return IsValidSemester(fl.Field().String())
	})
	_ = validate.RegisterTranslation(semesterTag, translator,
		func(t ut.Translator) error {
			return t.Add(semesterTag, "{0} must be one of: "+strings.Join(Semesters, ", "), true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(semesterTag, fe.Field())
			return msg
		},
	)
}

// ValidationError maps JSON field names to human-readable messages.
type ValidationError struct {
	Fields map[string]string
}

func (e ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return ValidationError{Fields: fields}
	}
	return err
}

// CreateInput is the request body for a new review.
type CreateInput struct {
	OverallRating    int     `json:"overall_rating" validate:"required,min=1,max=5"`
	DifficultyRating int     `json:"difficulty_rating" validate:"required,min=1,max=5"`
	WorkloadRating   int     `json:"workload_rating" validate:"required,min=1,max=5"`
	Comment          *string `json:"comment" validate:"omitempty,max=5000"`
	Semester         string  `json:"semester" validate:"required,semester"`
	Year             int     `json:"year" validate:"required,min=2000,max=2100"`
	CourseCode       string  `json:"course_code" validate:"required,max=50"`
	CourseName       *string `json:"course_name" validate:"omitempty,max=255"`
	University       string  `json:"university" validate:"required,max=255"`
	ProfessorName    *string `json:"professor_name" validate:"omitempty,max=255"`
}

// Normalize trims whitespace and strips markup from free-text fields.
// Empty optional strings become nil.
func (in CreateInput) Normalize() CreateInput {
	in.Comment = cleanOptional(in.Comment)
	in.Semester = strings.TrimSpace(in.Semester)
	in.CourseCode = sanitize.Text(strings.TrimSpace(in.CourseCode))
	in.CourseName = cleanOptional(in.CourseName)
	in.University = sanitize.Text(strings.TrimSpace(in.University))
	in.ProfessorName = cleanOptional(in.ProfessorName)
	return in
}

func (in CreateInput) Validate() error {
	return validateStruct(in)
}

// UpdateInput is a partial update; omitted fields are left unchanged.
// A comment or professor_name sent as null or blank clears the stored value.
type UpdateInput struct {
	OverallRating    *int             `json:"overall_rating" validate:"omitempty,min=1,max=5"`
	DifficultyRating *int             `json:"difficulty_rating" validate:"omitempty,min=1,max=5"`
	WorkloadRating   *int             `json:"workload_rating" validate:"omitempty,min=1,max=5"`
	Comment          Optional[string] `json:"comment" validate:"omitempty,max=5000"`
	Semester         *string          `json:"semester" validate:"omitempty,semester"`
	Year             *int             `json:"year" validate:"omitempty,min=2000,max=2100"`
	ProfessorName    Optional[string] `json:"professor_name" validate:"omitempty,max=255"`
}

func (in UpdateInput) Normalize() UpdateInput {
	if in.Semester != nil {
		semester := strings.TrimSpace(*in.Semester)
		in.Semester = &semester
	}
	return in
}

func (in UpdateInput) Validate() error {
	return validateStruct(in)
}

func (in UpdateInput) params() UpdateParams {
	params := UpdateParams{
		OverallRating:    in.OverallRating,
		DifficultyRating: in.DifficultyRating,
		WorkloadRating:   in.WorkloadRating,
		Semester:         in.Semester,
		Year:             in.Year,
	}
	if in.Comment.Set {
		params.Comment = cleanOptional(in.Comment.Value)
		params.ClearComment = params.Comment == nil
	}
	if in.ProfessorName.Set {
		params.ProfessorName = cleanOptional(in.ProfessorName.Value)
		params.ClearProfessorName = params.ProfessorName == nil
	}
	return params
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := strings.TrimSpace(sanitize.Text(*s))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
