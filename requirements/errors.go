package requirements

import (
	"errors"
	"strings"
)

// ValidationError ошибка проверки входного документа
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid requirement: " + strings.Join(e.Problems, "; ")
}

// IsValidationError проверяет, что ошибка относится к входному документу
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
