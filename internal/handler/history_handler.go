package handler

import (
	"net/http"
	"strconv"

	"route-traffic-go/internal/service"
	"route-traffic-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// HealthChecker проверяет зависимости сервиса; пустой результат означает, что все в порядке
type HealthChecker interface {
	Check() map[string]error
}

// HistoryHandler отдает историю построенных маршрутов и состояние сервиса
type HistoryHandler struct {
	history  *service.RouteService
	sessions *service.SessionService
	health   HealthChecker
	logger   *logrus.Logger
}

// NewHistoryHandler создает обработчик истории
func NewHistoryHandler(history *service.RouteService, sessions *service.SessionService, health HealthChecker, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{
		history:  history,
		sessions: sessions,
		health:   health,
		logger:   logger,
	}
}

// RegisterRoutes регистрирует маршруты истории и проверки здоровья
func (h *HistoryHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		history := v1.Group("/routes")
		history.GET("", h.List)
		history.GET("/area", h.InArea)
		history.GET("/:id", h.Get)
		history.DELETE("/:id", h.Delete)

		v1.GET("/health", h.Health)
	}
}

// List отдает страницу истории, новые записи первыми
func (h *HistoryHandler) List(c *gin.Context) {
	page, size := pagination(c)

	records, total, err := h.history.ListRoutes(page, size)
	if err != nil {
		h.logger.WithError(err).Error("Не удалось прочитать историю маршрутов")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"page":  page,
		"size":  size,
		"total": total,
	}).Debug("Отдана страница истории")

	c.JSON(http.StatusOK, service.ListRoutesResponse{
		Routes: records,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// Get отдает запись истории с геометрией
func (h *HistoryHandler) Get(c *gin.Context) {
	id := c.Param("id")

	record, err := h.history.GetRouteByID(id)
	if err != nil {
		h.logger.WithField("route_id", id).WithError(err).Warn("Запись истории недоступна")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Delete удаляет запись истории
func (h *HistoryHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.history.DeleteRoute(id); err != nil {
		h.logger.WithField("route_id", id).WithError(err).Warn("Запись истории не удалена")
		respondError(c, err)
		return
	}

	h.logger.WithField("route_id", id).Info("Запись истории удалена")
	c.JSON(http.StatusOK, gin.H{"message": "Маршрут удален из истории"})
}

// InArea отдает маршруты, которые начинаются или заканчиваются в прямоугольнике
func (h *HistoryHandler) InArea(c *gin.Context) {
	northEast, southWest, ok := parseArea(c)
	if !ok {
		return
	}

	records, err := h.history.GetRoutesByArea(northEast, southWest)
	if err != nil {
		h.logger.WithError(err).Error("Не удалось выбрать маршруты по области")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, service.GetRoutesByAreaResponse{
		Routes: records,
		Total:  len(records),
	})
}

// Health проверяет состояние сервиса и его зависимостей
func (h *HistoryHandler) Health(c *gin.Context) {
	active := 0
	if h.sessions != nil {
		active = h.sessions.Count()
	}

	var failures map[string]error
	if h.health != nil {
		failures = h.health.Check()
	}

	if len(failures) > 0 {
		details := make(gin.H, len(failures))
		for name, err := range failures {
			details[name] = err.Error()
		}
		h.logger.WithField("dependencies", details).Error("Зависимости недоступны")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "unhealthy",
			"dependencies": details,
			"sessions":     active,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"message":  "Сервис работает нормально",
		"sessions": active,
		"history":  h.history.Enabled(),
	})
}

// pagination читает page и size; неверные значения заменяются значениями по умолчанию
func pagination(c *gin.Context) (page, size int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(c.Query("size"))
	if err != nil || size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size
}

// parseArea читает углы прямоугольника; при ошибке ответ уже записан
func parseArea(c *gin.Context) (northEast, southWest models.Coordinates, ok bool) {
	names := [4]string{"ne_lat", "ne_lng", "sw_lat", "sw_lng"}
	var values [4]float64
	for i, name := range names {
		raw := c.Query(name)
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Отсутствуют обязательные параметры: ne_lat, ne_lng, sw_lat, sw_lng",
			})
			return northEast, southWest, false
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат " + name})
			return northEast, southWest, false
		}
		values[i] = v
	}

	northEast = models.Coordinates{Lat: values[0], Lng: values[1]}
	southWest = models.Coordinates{Lat: values[2], Lng: values[3]}
	return northEast, southWest, true
}
