package hours

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/score"
)

var (
	modalityTag  = "modality"
	modalityText = "invalid modality"

	entryDateTag  = "entrydate"
	entryDateText = "invalid date, expected MM/DD/YYYY"
)

// InitValidators registers the hours validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(modalityTag, modalityValidation)
	core.RegisterCustomTranslation(validate, translator, modalityTag, modalityText)

	_ = validate.RegisterValidation(entryDateTag, entryDateValidation)
	core.RegisterCustomTranslation(validate, translator, entryDateTag, entryDateText)
}

func modalityValidation(fl validator.FieldLevel) bool {
	return core.StringInSlice(fl.Field().String(), Modalities)
}

func entryDateValidation(fl validator.FieldLevel) bool {
	_, ok, err := score.ParseDate(fl.Field().String())
	return ok && err == nil
}
