package proficiency

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/score"
)

var (
	scoreCodeTag  = "scorecode"
	scoreCodeText = "invalid score, expected 0 to 5 with an optional +"

	dicodeTag  = "dicode"
	dicodeText = "unknown dicode"

	testKindTag  = "testkind"
	testKindText = "test kind must be one of DLPT, SLTE or OPI"

	testDateTag  = "testdate"
	testDateText = "invalid date, expected MM/DD/YYYY"

	missingScoresTag  = "missingscores"
	missingScoresText = "scores measured by this test are required"
)

// InitValidators registers the proficiency validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(scoreCodeTag, scoreCodeValidation)
	core.RegisterCustomTranslation(validate, translator, scoreCodeTag, scoreCodeText)

	_ = validate.RegisterValidation(dicodeTag, dicodeValidation)
	core.RegisterCustomTranslation(validate, translator, dicodeTag, dicodeText)

	_ = validate.RegisterValidation(testKindTag, testKindValidation)
	core.RegisterCustomTranslation(validate, translator, testKindTag, testKindText)

	_ = validate.RegisterValidation(testDateTag, testDateValidation)
	core.RegisterCustomTranslation(validate, translator, testDateTag, testDateText)

	validate.RegisterStructValidation(recordStructValidation, NewRecord{})
	core.RegisterCustomTranslation(validate, translator, missingScoresTag, missingScoresText)
}

func scoreCodeValidation(fl validator.FieldLevel) bool {
	return score.IsValidCode(fl.Field().String())
}

func dicodeValidation(fl validator.FieldLevel) bool {
	return core.StringInSlice(fl.Field().String(), Dicodes)
}

func testKindValidation(fl validator.FieldLevel) bool {
	return core.StringInSlice(fl.Field().String(), Kinds)
}

func testDateValidation(fl validator.FieldLevel) bool {
	_, ok, err := score.ParseDate(fl.Field().String())
	return ok && err == nil
}

// recordStructValidation requires the scores each test kind measures.
func recordStructValidation(sl validator.StructLevel) {
	nr, ok := sl.Current().Interface().(NewRecord)
	if !ok {
		return
	}
	switch Kind(nr.Kind) {
	case KindDLPT:
		if nr.Listening == "" {
			sl.ReportError(nr.Listening, "listening", "Listening", missingScoresTag, "")
		}
		if nr.Reading == "" {
			sl.ReportError(nr.Reading, "reading", "Reading", missingScoresTag, "")
		}
	case KindOPI:
		if nr.Speaking == "" {
			sl.ReportError(nr.Speaking, "speaking", "Speaking", missingScoresTag, "")
		}
	}
}
