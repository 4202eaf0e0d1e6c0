package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError - ошибка приложения с HTTP статусом и сообщением для пользователя
type AppError struct {
	Code    int    // HTTP статус код
	Message string // Сообщение для пользователя
	Err     error  // Внутренняя ошибка, только для логов
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NewValidationError(message string, err error) *AppError {
	return newError(http.StatusBadRequest, message, err)
}

func NewUnauthorizedError(message string, err error) *AppError {
	return newError(http.StatusUnauthorized, message, err)
}

func NewForbiddenError(message string, err error) *AppError {
	return newError(http.StatusForbidden, message, err)
}

func NewNotFoundError(message string, err error) *AppError {
	return newError(http.StatusNotFound, message, err)
}

func NewConflictError(message string, err error) *AppError {
	return newError(http.StatusConflict, message, err)
}

func NewTooManyRequestsError(message string) *AppError {
	return newError(http.StatusTooManyRequests, message, nil)
}

// NewTooLargeError - тело запроса больше допустимого
func NewTooLargeError(message string, err error) *AppError {
	return newError(http.StatusRequestEntityTooLarge, message, err)
}

// NewBadGatewayError - внешний сервис ответил ошибкой
func NewBadGatewayError(message string, err error) *AppError {
	return newError(http.StatusBadGateway, message, err)
}

// NewUnavailableError - внешний сервис или база недоступны
func NewUnavailableError(message string, err error) *AppError {
	return newError(http.StatusServiceUnavailable, message, err)
}

// NewInternalError - пользователь видит общее сообщение, детали только в логах
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: "Внутренняя ошибка сервера",
		Err:     errors.Join(errors.New(message), err),
	}
}
