package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"tapbook/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseClockTime(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
		p := domain.MembershipPlan(fl.Field().String())
		return p == domain.PlanMonthly || p == domain.PlanYearly
	})
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}
	errors := make(map[string]string)
	for _, err := range verrs {
		errors[err.Field()] = err.Tag()
	}
	return errors
}
