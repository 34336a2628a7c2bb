// Package apperr задаёт классы ошибок сервиса и их отображение в HTTP-статусы.
//
// Доменные ошибки оборачивают класс через %w, поэтому errors.Is работает
// и для конкретной ошибки, и для её класса.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Классы ошибок.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrConflict           = errors.New("conflict")
	ErrExternalDependency = errors.New("external dependency failed")
	ErrInternal           = errors.New("internal error")
)

// Доменные ошибки.
var (
	ErrBotNotFound          = fmt.Errorf("%w: bot not found", ErrNotFound)
	ErrBotInactive          = fmt.Errorf("%w: bot is inactive", ErrForbidden)
	ErrDomainNotAllowed     = fmt.Errorf("%w: domain not allowed", ErrForbidden)
	ErrSessionNotFound      = fmt.Errorf("%w: session not found", ErrNotFound)
	ErrSessionAlreadyClosed = fmt.Errorf("%w: session already closed", ErrConflict)
	ErrUserNotFound         = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrPlanNotFound         = fmt.Errorf("%w: plan not found", ErrNotFound)
	ErrNoSubscription       = fmt.Errorf("%w: no current subscription", ErrNotFound)
	ErrAlreadyOnPlan        = fmt.Errorf("%w: already on plan", ErrConflict)
	ErrUnknownCustomer      = fmt.Errorf("%w: unknown customer", ErrNotFound)
	ErrUnknownPlan          = fmt.Errorf("%w: unknown plan", ErrNotFound)
	ErrInvalidSignature     = fmt.Errorf("%w: invalid signature", ErrExternalDependency)
)

// HTTPStatus возвращает HTTP-статус для ошибки по её классу.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message возвращает текст ошибки для клиента. Внутренние детали не раскрываются.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrBotInactive):
		return "Bot is inactive"
	case errors.Is(err, ErrDomainNotAllowed):
		return "Domain not allowed"
	case errors.Is(err, ErrBotNotFound):
		return "Bot not found"
	case errors.Is(err, ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, ErrSessionAlreadyClosed):
		return "Session already closed"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	case errors.Is(err, ErrPlanNotFound):
		return "Plan not found"
	case errors.Is(err, ErrNoSubscription):
		return "No current subscription"
	case errors.Is(err, ErrAlreadyOnPlan):
		return "Already on this plan"
	case errors.Is(err, ErrInvalidSignature):
		return "Invalid signature"
	case errors.Is(err, ErrUnauthenticated):
		return "Unauthorized"
	}
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return "Invalid request"
	case http.StatusNotFound:
		return "Not found"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusConflict:
		return "Conflict"
	default:
		return "Internal server error"
	}
}
