package economy

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/coinsforstudy/coins/core"
)

var (
	teachingModelTag  = "teaching_model"
	teachingModelText = "must be one of fundamental, medio, tecnico or personalizado"

	statusTag  = "activity_status"
	statusText = "must be one of pending, submitted or graded"

	roleTag  = "role"
	roleText = "must be one of student, teacher or admin"
)

// InitValidators registers the economy validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(teachingModelTag, teachingModelValidation)
	core.RegisterCustomTranslation(validate, translator, teachingModelTag, teachingModelText)

	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

// Custom Validators

func teachingModelValidation(fl validator.FieldLevel) bool {
	model := TeachingModel(fl.Field().String())
	for _, m := range TeachingModels {
		if m == model {
			return true
		}
	}
	return false
}

func statusValidation(fl validator.FieldLevel) bool {
	_, ok := statusRank[Status(fl.Field().String())]
	return ok
}

func roleValidation(fl validator.FieldLevel) bool {
	return IsRole(fl.Field().String())
}
