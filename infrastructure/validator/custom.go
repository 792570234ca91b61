package validator

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var studentIDRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

func validateStudentID(fl validator.FieldLevel) bool {
	return studentIDRegex.MatchString(fl.Field().String())
}

// validateBase64Image checks the payload is decodable base64, with or
// without a data url prefix. It does not decode pixels; the pipeline does.
func validateBase64Image(fl validator.FieldLevel) bool {
	payload := fl.Field().String()
	if payload == "" {
		return false
	}
	if strings.HasPrefix(payload, "data:") {
		parts := strings.SplitN(payload, ",", 2)
		if len(parts) != 2 {
			return false
		}
		payload = parts[1]
	}
	_, err := base64.StdEncoding.DecodeString(payload)
	return err == nil
}

func validateStruct(payload interface{}) *[]error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs := []error{err}
		return &errs
	}

	errs := make([]error, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		errs = append(errs, fmt.Errorf("%s failed validation on the %s rule", fieldErr.Field(), fieldErr.Tag()))
	}
	return &errs
}

func validateField(value any, rules string) error {
	return validate.Var(value, rules)
}
