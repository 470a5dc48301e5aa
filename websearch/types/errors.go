package types

import (
	"errors"
	"fmt"
)

// ErrorKind класс ошибки источника
type ErrorKind string

const (
	// KindTransient сетевые ошибки, таймауты, превышение лимита
	KindTransient ErrorKind = "transient"
	// KindPermanent некорректный запрос, неподдерживаемая категория, неверные ключи
	KindPermanent ErrorKind = "permanent"
)

// ErrRetriesExhausted все повторные попытки исчерпаны
var ErrRetriesExhausted = errors.New("retries exhausted")

// SourceError ошибка внешнего сервиса поиска
type SourceError struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

// Error реализует интерфейс error
func (e *SourceError) Error() string {
	prefix := string(e.Kind)
	if e.Provider != "" {
		prefix = fmt.Sprintf("%s %s", e.Provider, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap возвращает исходную ошибку
func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewTransientError создает временную ошибку
func NewTransientError(provider, message string, err error) *SourceError {
	return &SourceError{Kind: KindTransient, Provider: provider, Message: message, Err: err}
}

// NewPermanentError создает постоянную ошибку
func NewPermanentError(provider, message string, err error) *SourceError {
	return &SourceError{Kind: KindPermanent, Provider: provider, Message: message, Err: err}
}

// IsTransient проверяет, что ошибка временная.
// ErrRetriesExhausted тоже считается временной.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRetriesExhausted) {
		return true
	}
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind == KindTransient
	}
	return false
}

// IsPermanent проверяет, что ошибка постоянная
func IsPermanent(err error) bool {
	if err == nil || errors.Is(err, ErrRetriesExhausted) {
		return false
	}
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind == KindPermanent
	}
	return false
}
