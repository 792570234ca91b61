package validator

func init() {
	validate.RegisterValidation("student_id", validateStudentID)
	validate.RegisterValidation("base64image", validateBase64Image)
}

type Validator struct{}

func (v *Validator) ValidateStruct(payload interface{}) *[]error {
	return validateStruct(payload)
}

func (v *Validator) ValidateValue(value any, rules string) error {
	return validateField(value, rules)
}

var ValidatorInstance = Validator{}
