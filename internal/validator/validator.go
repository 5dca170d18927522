package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError - ошибки по полям payload'а: имя из json-тега -> сообщение
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator проверяет интенты websocket и HTTP DTO
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	// клиенту отдаем имена полей из протокола, а не из Go-структур
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	registerCustomRules(v)
	return &Validator{validate: v}
}

// Validate возвращает *ValidationError, если payload не прошел проверку
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	out := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		// для вложенных полей (forwarded_from.message_id) ключ - полный путь без имени структуры
		field := fe.Namespace()
		if dot := strings.Index(field, "."); dot >= 0 {
			field = field[dot+1:]
		}
		out[field] = message(fe)
	}
	return &ValidationError{Errors: out}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("Must contain at least %s items/characters", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("Must contain at most %s items/characters", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "chat-id":
		return "Must be \"global\" or two user ids joined by ':'"
	case "message-type":
		return "Unknown message type"
	default:
		return fmt.Sprintf("Invalid value (failed on '%s')", fe.Tag())
	}
}

func isSized(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Slice || k == reflect.Map
}
