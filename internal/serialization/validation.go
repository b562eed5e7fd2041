package serialization

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/yusing/chunkstream/internal/gperr"
)

var validate = validator.New()

var ErrValidationError = gperr.New("validation error")

// CustomValidator is implemented by types with checks that cannot be
// expressed as field tags. It runs after field tag validation passes.
type CustomValidator interface {
	Validate() gperr.Error
}

// Validate runs the field tag validation on v, a pointer to a struct,
// then its custom validator if it implements CustomValidator.
func Validate(v any) gperr.Error {
	if err := ValidateWithFieldTags(v); err != nil {
		return err
	}
	if cv, ok := v.(CustomValidator); ok {
		return cv.Validate()
	}
	return nil
}

func ValidateWithFieldTags(s any) gperr.Error {
	errs := gperr.NewBuilder()
	err := validate.Struct(s)
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		for _, e := range valErrs {
			detail := e.ActualTag()
			if e.Param() != "" {
				detail += ":" + e.Param()
			}
			if detail != "required" {
				detail = "require " + strconv.Quote(detail)
			}
			errs.Add(ErrValidationError.
				Subject(e.Namespace()).
				Withf(detail))
		}
	} else if err != nil {
		errs.Add(err)
	}
	return errs.Error()
}
