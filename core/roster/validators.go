package roster

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/regroup/core"
)

var (
	sexTag  = "sex"
	sexText = "sex must be one of M, F, male, female, 남, 여"

	reductionModeTag  = "reductionmode"
	reductionModeText = "reduction mode must be strict or flexible"
)

// InitValidators registers the roster validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(sexTag, sexValidation)
	core.RegisterCustomTranslation(validate, translator, sexTag, sexText)

	_ = validate.RegisterValidation(reductionModeTag, reductionModeValidation)
	core.RegisterCustomTranslation(validate, translator, reductionModeTag, reductionModeText)
}

// Custom Validators

func sexValidation(fl validator.FieldLevel) bool {
	_, err := ParseSex(fl.Field().String())
	return err == nil
}

func reductionModeValidation(fl validator.FieldLevel) bool {
	_, err := ParseQuotaMode(fl.Field().String())
	return err == nil
}
