package session

import (
	"context"
	"errors"
	"fmt"

	"route-traffic-go/pkg/models"
)

// ErrorKind класс ошибки сессии
type ErrorKind string

const (
	KindInputError      ErrorKind = "input"
	KindResolutionError ErrorKind = "resolution"
	KindRoutingError    ErrorKind = "routing"
	KindStaleResponse   ErrorKind = "stale"
)

// Категории ошибок
const (
	CategoryMissingEndpoint     = "missing-endpoint"
	CategoryInvalidEndpoint     = "invalid-endpoint"
	CategoryInvalidMode         = "invalid-mode"
	CategoryLocationUnavailable = "location-unavailable"

	CategoryNotFound     = "not-found"
	CategoryRateLimited  = "rate-limited"
	CategoryServiceError = "service-error"

	CategoryNoRoute          = "no-route-found"
	CategoryBadCredentials   = "bad-credentials"
	CategoryMalformedRequest = "malformed-request"
	CategoryOverLimits       = "over-limits"
	CategoryUnknown          = "unknown"
)

// Error ошибка, которую сессия отдает слою представления.
// Сырые ошибки провайдера сюда не попадают, только категория и подсказка.
type Error struct {
	Kind     ErrorKind             `json:"kind"`
	Category string                `json:"category"`
	Side     Side                  `json:"side,omitempty"`
	Status   models.ProviderStatus `json:"provider_status,omitempty"`
	Message  string                `json:"message"`
	Remedy   string                `json:"remedy,omitempty"`
	Err      error                 `json:"-"`
}

func (e *Error) Error() string {
	if e.Side != "" {
		return fmt.Sprintf("%s error (%s, %s): %s", e.Kind, e.Category, e.Side, e.Message)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Kind, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrSuperseded возвращается, когда результат вычисления устарел из-за более нового запроса.
// Это не ошибка для пользователя: ответ просто отбрасывается.
var ErrSuperseded = &Error{
	Kind:     KindStaleResponse,
	Category: "stale-response",
	Message:  "superseded by a newer route request",
}

// AsError извлекает ошибку сессии из цепочки
func AsError(err error) (*Error, bool) {
	var serr *Error
	if errors.As(err, &serr) {
		return serr, true
	}
	return nil, false
}

// IsStale сообщает, что результат был отброшен как устаревший
func IsStale(err error) bool {
	return errors.Is(err, ErrSuperseded)
}

func missingEndpointError(side Side) *Error {
	msg := "Please enter both start and destination locations."
	return &Error{
		Kind:     KindInputError,
		Category: CategoryMissingEndpoint,
		Side:     side,
		Message:  msg,
		Remedy:   fmt.Sprintf("Enter a %s location.", sideNoun(side)),
	}
}

func invalidEndpointError(side Side, err error) *Error {
	return &Error{
		Kind:     KindInputError,
		Category: CategoryInvalidEndpoint,
		Side:     side,
		Message:  fmt.Sprintf("Invalid %s location: %v", sideNoun(side), err),
		Remedy:   "Coordinates must be within latitude [-90, 90] and longitude [-180, 180].",
		Err:      err,
	}
}

func invalidModeError(mode models.TravelMode) *Error {
	return &Error{
		Kind:     KindInputError,
		Category: CategoryInvalidMode,
		Message:  fmt.Sprintf("Unsupported travel mode %q.", mode),
		Remedy:   "Choose driving, walking, bicycling or transit.",
	}
}

func locationUnavailableError(side Side, err error) *Error {
	return &Error{
		Kind:     KindInputError,
		Category: CategoryLocationUnavailable,
		Side:     side,
		Message:  "Current location not available.",
		Remedy:   "Please enable location services.",
		Err:      err,
	}
}

// resolutionError переводит ошибку геокодирования в таксономию сессии
func resolutionError(side Side, err error) *Error {
	serr := &Error{
		Kind:     KindResolutionError,
		Category: CategoryServiceError,
		Side:     side,
		Err:      err,
	}
	if side == SideStart {
		serr.Message = "Could not find the starting location."
	} else {
		serr.Message = "Could not find the destination."
	}

	var perr *models.ProviderError
	if errors.As(err, &perr) {
		serr.Status = perr.Status
		switch perr.Status {
		case models.StatusZeroResults, models.StatusNotFound:
			serr.Category = CategoryNotFound
			serr.Remedy = "Please check the address and try again."
			return serr
		case models.StatusOverQueryLimit, models.StatusOverDailyLimit:
			serr.Category = CategoryRateLimited
			serr.Remedy = "Too many requests. Please try again in a moment."
			return serr
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		serr.Remedy = "The geocoding service timed out. Please try again."
		return serr
	}
	serr.Remedy = "The geocoding service is unavailable. Please try again later."
	return serr
}

// routingError переводит ошибку провайдера маршрутов в таксономию сессии
func routingError(err error) *Error {
	serr := &Error{
		Kind:     KindRoutingError,
		Category: CategoryUnknown,
		Err:      err,
	}

	var perr *models.ProviderError
	if !errors.As(err, &perr) {
		serr.Message = "An error occurred while calculating the route."
		serr.Remedy = "Please try again."
		return serr
	}

	serr.Status = perr.Status
	switch perr.Status {
	case models.StatusZeroResults:
		serr.Category = CategoryNoRoute
		serr.Message = "No route could be found between these locations."
		serr.Remedy = "Try different addresses or check if they are accessible by the selected travel mode."
	case models.StatusNotFound:
		serr.Category = CategoryNoRoute
		serr.Message = "One or both locations could not be found."
		serr.Remedy = "Check the spelling and try again with more specific addresses."
	case models.StatusOverQueryLimit, models.StatusOverDailyLimit:
		serr.Category = CategoryOverLimits
		serr.Message = "Too many requests."
		serr.Remedy = "Please try again in a moment."
	case models.StatusMaxWaypointsExceeded:
		serr.Category = CategoryOverLimits
		serr.Message = "Too many waypoints in the request."
		serr.Remedy = "Remove some stops and try again."
	case models.StatusMaxRouteLengthExceeded:
		serr.Category = CategoryOverLimits
		serr.Message = "The requested route is too long."
		serr.Remedy = "Choose closer locations."
	case models.StatusRequestDenied:
		serr.Category = CategoryBadCredentials
		serr.Message = "Directions request was denied."
		serr.Remedy = "Please check the API key configuration."
	case models.StatusInvalidRequest:
		serr.Category = CategoryMalformedRequest
		serr.Message = "Invalid request."
		serr.Remedy = "Please check your start and destination locations."
	default:
		serr.Message = fmt.Sprintf("Directions request failed: %s.", perr.Status)
		serr.Remedy = "Please try again with different locations."
	}
	return serr
}

func sideNoun(side Side) string {
	if side == SideEnd {
		return "destination"
	}
	return "start"
}
