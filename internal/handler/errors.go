package handler

import (
	"errors"
	"net/http"

	"route-traffic-go/internal/repository"
	"route-traffic-go/internal/service"
	"route-traffic-go/internal/session"
	"route-traffic-go/pkg/models"

	"github.com/gin-gonic/gin"
)

// statusForError подбирает HTTP код для ошибки сервиса
func statusForError(err error) int {
	if serr, ok := session.AsError(err); ok {
		return statusForSessionError(serr)
	}

	var perr *models.ProviderError
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrPlaceNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &perr):
		return statusForProvider(perr.Status)
	default:
		return http.StatusInternalServerError
	}
}

func statusForSessionError(serr *session.Error) int {
	switch serr.Kind {
	case session.KindInputError:
		return http.StatusBadRequest
	case session.KindStaleResponse:
		return http.StatusConflict
	}

	switch serr.Category {
	case session.CategoryNotFound, session.CategoryNoRoute:
		return http.StatusUnprocessableEntity
	case session.CategoryRateLimited, session.CategoryOverLimits:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func statusForProvider(status models.ProviderStatus) int {
	switch status {
	case models.StatusZeroResults, models.StatusNotFound:
		return http.StatusNotFound
	case models.StatusOverQueryLimit, models.StatusOverDailyLimit:
		return http.StatusTooManyRequests
	case models.StatusInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func messageForProvider(status models.ProviderStatus) string {
	switch status {
	case models.StatusZeroResults, models.StatusNotFound:
		return "Поиск не дал результатов"
	case models.StatusOverQueryLimit, models.StatusOverDailyLimit:
		return "Превышен лимит запросов к картографическому сервису, повторите позже"
	case models.StatusInvalidRequest:
		return "Некорректный поисковый запрос"
	case models.StatusRequestDenied:
		return "Картографический сервис отклонил запрос, проверьте ключ API"
	default:
		return "Картографический сервис недоступен"
	}
}

// errorBody формирует тело ответа с ошибкой. Для ошибок сессии
// отдаются категория и подсказка, сырые ошибки провайдера не раскрываются.
func errorBody(err error) gin.H {
	if serr, ok := session.AsError(err); ok {
		body := gin.H{
			"error":    serr.Message,
			"kind":     serr.Kind,
			"category": serr.Category,
		}
		if serr.Remedy != "" {
			body["remedy"] = serr.Remedy
		}
		if serr.Side != "" {
			body["side"] = serr.Side
		}
		return body
	}

	var perr *models.ProviderError
	if errors.As(err, &perr) {
		return gin.H{
			"error":           messageForProvider(perr.Status),
			"provider_status": perr.Status,
		}
	}

	return gin.H{"error": err.Error()}
}

// respondError пишет ответ с ошибкой
func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), errorBody(err))
}
