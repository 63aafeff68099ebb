package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	setupOnce  sync.Once
	translator ut.Translator
)

// Setup wires English translations and JSON-tag field naming into Gin's
// binding validator. Safe to call from both the dev server constructor
// and main; only the first call does the work.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)

		locale := en.New()
		translator, _ = ut.New(locale, locale).GetTranslator("en")
		en_translations.RegisterDefaultTranslations(v, translator)
	})
}

// jsonFieldName reports a field's json tag name so validation messages
// reference wire names, not Go identifiers.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Bind binds and validates the JSON body into dst. On failure it returns
// a field → message map ready for the error envelope; nil means success.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fieldErrors(err)
	}
	return nil
}

// fieldErrors translates a binding failure into per-field messages. A
// non-validation failure (malformed JSON) comes back under "detail".
func fieldErrors(err error) map[string]string {
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"detail": err.Error()}
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Translate(translator)
	}
	return fields
}
