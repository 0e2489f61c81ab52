package http

import (
	"fmt"
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the weekdays tag to gin's validator engine.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("weekdays", validateWeekdays)
}

// validateWeekdays accepts an integer slice of distinct values in 0..6,
// Sunday being 0.
func validateWeekdays(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return false
	}

	var seen [7]bool
	for i := range field.Len() {
		el := field.Index(i)
		if el.Kind() < reflect.Int || el.Kind() > reflect.Int64 {
			return false
		}
		wd := el.Int()
		if wd < 0 || wd > 6 || seen[wd] {
			return false
		}
		seen[wd] = true
	}
	return true
}
