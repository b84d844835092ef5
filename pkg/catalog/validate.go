package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(filterSetStructLevel, FilterSet{})
	})
	return validate
}

// filterSetStructLevel rejects score ranges whose bounds are inverted.
func filterSetStructLevel(sl validator.StructLevel) {
	f := sl.Current().Interface().(FilterSet)
	if f.MinScore != 0 && f.MaxScore != 0 && f.MaxScore < f.MinScore {
		sl.ReportError(f.MaxScore, "MaxScore", "MaxScore", "gtefield", "MinScore")
	}
}

// FieldError describes one rejected filter field.
type FieldError struct {
	Field string
	Tag   string
	Param string
	Value interface{}
}

func (e FieldError) Error() string {
	switch e.Tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s", e.Field, e.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", e.Field, e.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", e.Field, e.Param)
	case "gtefield":
		return fmt.Sprintf("%s must be greater than or equal to %s", e.Field, e.Param)
	default:
		return fmt.Sprintf("%s failed on %s", e.Field, e.Tag)
	}
}

// ValidationError collects every rejected field of a FilterSet.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		msgs = append(msgs, fe.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the filter set against the bounds the catalog API accepts.
func (f FilterSet) Validate() error {
	err := getValidator().Struct(f)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate filters: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return out
}
