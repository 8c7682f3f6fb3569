package api

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// newValidator reports fields under their json names, so DTO errors use the
// same keys as leave.ValidationError.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkDTO runs the validate tags and returns field -> message, or nil.
func (h *Handler) checkDTO(dto any) map[string]string {
	err := h.validate.Struct(dto)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": "Invalid input"}
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		key := fieldKey(e)
		if _, seen := fields[key]; seen {
			continue
		}
		fields[key] = validationMessage(e)
	}
	return fields
}

// fieldKey is the json field name; slice elements keep their index,
// e.g. documents[2].
func fieldKey(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func validationMessage(e validator.FieldError) string {
	name := formatFieldName(e.Field())
	switch e.Tag() {
	case "required":
		return name + " is required"
	case "max":
		if e.Kind() == reflect.Slice {
			return name + " may have at most " + e.Param() + " entries"
		}
		return name + " must be at most " + e.Param() + " characters"
	case "gte":
		return name + " must be at least " + e.Param()
	case "oneof":
		return name + " must be one of " + strings.ReplaceAll(e.Param(), " ", ", ")
	case "ltefield":
		return name + " cannot exceed " + formatFieldName(lowerFirst(e.Param()))
	default:
		return name + " is invalid"
	}
}

// formatFieldName turns a json name into words: emergencyContact ->
// "Emergency Contact", documents[0] -> "Documents".
func formatFieldName(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(b.String(), "_", " "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
