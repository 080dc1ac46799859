package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// pathsegment - значение используется как один сегмент пути выходного файла
	_ = validate.RegisterValidation("pathsegment", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" || s == "." || s == ".." {
			return false
		}
		return !strings.ContainsAny(s, `/\`)
	})
}

// Validate - валидация структуры
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// GetValidator - получить валидатор для кастомной конфигурации
func GetValidator() *validator.Validate {
	return validate
}
