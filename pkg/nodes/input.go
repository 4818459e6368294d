package nodes

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
)

var validate = validator.New()

// validateForms checks submitted forms against specs. Every declared form
// must be submitted once, or at least once when it is multiple; forms with
// no required input may be omitted and are filled with their defaults.
func validateForms(specs []*process.FormSpec, input []models.FormInput) ([]*models.Form, error) {
	var errs []FieldError

	known := make(map[string]*process.FormSpec, len(specs))
	for _, spec := range specs {
		known[spec.ID] = spec
	}

	counts := map[string]int{}
	submitted := map[string][]*models.Form{}

	for _, item := range input {
		spec, ok := known[item.Ref]
		if !ok {
			errs = append(errs, FieldError{Form: item.Ref, Code: "unknown", Detail: "form is not part of this node"})

			continue
		}

		counts[spec.ID]++
		if counts[spec.ID] > 1 && !spec.Multiple {
			errs = append(errs, FieldError{Form: spec.ID, Code: "multiple", Detail: "form can only be submitted once"})

			continue
		}

		form, fieldErrors := fillForm(spec, item.Data)
		errs = append(errs, fieldErrors...)
		submitted[spec.ID] = append(submitted[spec.ID], form)
	}

	forms := make([]*models.Form, 0, len(input))

	for _, spec := range specs {
		if counts[spec.ID] > 0 {
			forms = append(forms, submitted[spec.ID]...)

			continue
		}

		if hasRequired(spec) {
			errs = append(errs, FieldError{Form: spec.ID, Code: "required", Detail: "form is required"})

			continue
		}

		form, _ := fillForm(spec, nil)
		forms = append(forms, form)
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return forms, nil
}

func hasRequired(spec *process.FormSpec) bool {
	return slices.ContainsFunc(spec.Inputs, func(input *process.InputSpec) bool {
		return input.Required
	})
}

func fillForm(spec *process.FormSpec, data map[string]any) (*models.Form, []FieldError) {
	var errs []FieldError

	form := models.NewForm(spec.ID)

	for _, input := range spec.Inputs {
		raw, present := data[input.Name]

		var value any

		switch {
		case present && !isEmpty(raw):
			converted, detail := convert(input, raw)
			if detail != "" {
				errs = append(errs, FieldError{Form: spec.ID, Field: input.Name, Code: "invalid", Detail: detail})

				continue
			}

			value = converted
		case input.Required:
			errs = append(errs, FieldError{Form: spec.ID, Field: input.Name, Code: "required", Detail: "field is required"})

			continue
		case input.Default != "":
			converted, detail := convert(input, input.Default)
			if detail != "" {
				converted = input.Default
			}

			value = converted
		}

		form.Inputs.Set(input.Name, &models.Field{
			Name:  input.Name,
			Type:  input.Type,
			Label: input.Label,
			Value: value,
			State: models.StateValid,
		})
	}

	return form, errs
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []any:
		return len(typed) == 0
	}

	return false
}

// convert normalizes a submitted value to its input type. A non-empty
// detail describes why the value was refused.
func convert(input *process.InputSpec, raw any) (any, string) {
	switch input.Type {
	case "int":
		number, ok := toFloat(raw)
		if !ok || number != math.Trunc(number) {
			return nil, "must be an integer"
		}

		return int64(number), ""
	case "float":
		number, ok := toFloat(raw)
		if !ok {
			return nil, "must be a number"
		}

		return number, ""
	case "checkbox":
		return convertChoices(input, raw)
	case "file":
		file, ok := raw.(map[string]any)
		if !ok {
			return nil, "must be a file description"
		}

		return file, ""
	case inputTypeRefs:
		return convertList(raw)
	}

	text, ok := raw.(string)
	if !ok {
		return nil, "must be text"
	}

	if detail := checkFormat(input, text); detail != "" {
		return nil, detail
	}

	if input.Regex != "" {
		matched, err := regexp.MatchString(input.Regex, text)
		if err != nil || !matched {
			return nil, fmt.Sprintf("must match %s", input.Regex)
		}
	}

	return text, ""
}

func checkFormat(input *process.InputSpec, text string) string {
	switch input.Type {
	case "email":
		if validate.Var(text, "email") != nil {
			return "must be an email address"
		}
	case "date":
		if validate.Var(text, "datetime="+time.DateOnly) != nil {
			return "must be a date formatted as " + time.DateOnly
		}
	case "datetime":
		if validate.Var(text, "datetime="+time.RFC3339) != nil {
			return "must be a datetime formatted as RFC 3339"
		}
	case "select", "radio":
		if !hasOption(input, text) {
			return fmt.Sprintf("'%s' is not one of the options", text)
		}
	}

	return ""
}

func convertChoices(input *process.InputSpec, raw any) (any, string) {
	values, detail := convertList(raw)
	if detail != "" {
		return nil, detail
	}

	for _, value := range values {
		if !hasOption(input, fmt.Sprint(value)) {
			return nil, fmt.Sprintf("'%v' is not one of the options", value)
		}
	}

	return values, ""
}

func convertList(raw any) ([]any, string) {
	switch typed := raw.(type) {
	case []any:
		return typed, ""
	case []string:
		values := make([]any, 0, len(typed))
		for _, value := range typed {
			values = append(values, value)
		}

		return values, ""
	}

	return nil, "must be a list"
}

func hasOption(input *process.InputSpec, value string) bool {
	return slices.ContainsFunc(input.Options, func(option process.Option) bool {
		return option.Value == value
	})
}

func toFloat(raw any) (float64, bool) {
	switch typed := raw.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		if validate.Var(typed, "numeric") != nil {
			return 0, false
		}

		number, err := strconv.ParseFloat(typed, 64)

		return number, err == nil
	}

	return 0, false
}
