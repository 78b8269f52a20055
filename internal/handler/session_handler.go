package handler

import (
	"net/http"
	"strconv"
	"strings"

	"route-traffic-go/internal/service"
	"route-traffic-go/internal/session"
	"route-traffic-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionHandler обрабатывает HTTP запросы сессий построения маршрута
type SessionHandler struct {
	sessionService *service.SessionService
	logger         *logrus.Logger
}

// NewSessionHandler создает новый обработчик
func NewSessionHandler(sessionService *service.SessionService, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		logger:         logger,
	}
}

// EndpointRequest запрос на установку конечной точки
type EndpointRequest struct {
	Kind     session.EndpointKind `json:"kind"`
	Text     string               `json:"text"`
	Location *models.Coordinates  `json:"location"`
}

// SelectRequest выбор точки из подсказок
type SelectRequest struct {
	Label    string              `json:"label"`
	Location *models.Coordinates `json:"location" binding:"required"`
}

// ModeRequest запрос на смену режима передвижения
type ModeRequest struct {
	Mode string `json:"mode"`
}

// TrafficRequest запрос на переключение слоя загруженности
type TrafficRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// LocationRequest местоположение устройства либо причина, по которой его нет
type LocationRequest struct {
	Location *models.Coordinates `json:"location"`
	Error    string              `json:"error"`
}

// SearchRequest поисковый запрос
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
}

// SavePlaceRequest запрос на сохранение места
type SavePlaceRequest struct {
	Name     string              `json:"name"`
	Address  string              `json:"address"`
	Location *models.Coordinates `json:"location" binding:"required"`
}

// RegisterRoutes регистрирует маршруты API сессий
func (h *SessionHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/sessions")
	{
		api.POST("", h.CreateSession)
		api.GET("/:id", h.GetSession)
		api.DELETE("/:id", h.DeleteSession)
		api.PUT("/:id/endpoints/:side", h.SetEndpoint)
		api.POST("/:id/endpoints/:side/select", h.SelectEndpoint)
		api.PUT("/:id/mode", h.SetTravelMode)
		api.POST("/:id/route", h.ComputeRoute)
		api.PUT("/:id/traffic", h.SetTraffic)
		api.POST("/:id/clear", h.Clear)
		api.GET("/:id/traffic.geojson", h.TrafficGeoJSON)
		api.PUT("/:id/location", h.ReportLocation)
		api.POST("/:id/search", h.Search)
		api.GET("/:id/places/recent", h.RecentSearches)
		api.GET("/:id/places/saved", h.SavedPlaces)
		api.POST("/:id/places/saved", h.SavePlace)
		api.DELETE("/:id/places/saved/:placeId", h.RemovePlace)
		api.POST("/:id/places/saved/:placeId/use/:side", h.UseSavedPlace)
		api.GET("/:id/history", h.SessionHistory)
	}
}

// CreateSession создает новую сессию
func (h *SessionHandler) CreateSession(c *gin.Context) {
	snap := h.sessionService.CreateSession()
	c.JSON(http.StatusCreated, snap)
}

// GetSession возвращает состояние сессии
func (h *SessionHandler) GetSession(c *gin.Context) {
	snap, err := h.sessionService.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// DeleteSession удаляет сессию
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessionService.DeleteSession(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Сессия удалена"})
}

// SetEndpoint задает конечную точку (текст, координаты или текущее местоположение)
func (h *SessionHandler) SetEndpoint(c *gin.Context) {
	side, ok := h.parseSide(c)
	if !ok {
		return
	}

	var req EndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса"})
		return
	}

	var ep session.Endpoint
	switch req.Kind {
	case session.KindText, "":
		ep = session.TextEndpoint(req.Text)
	case session.KindCoordinate:
		if req.Location == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Для точки с координатами нужен location"})
			return
		}
		ep = session.CoordinateEndpoint(req.Text, *req.Location)
	case session.KindCurrentLocation:
		ep = session.CurrentLocationEndpoint()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный тип точки: " + string(req.Kind)})
		return
	}

	snap, err := h.sessionService.SetEndpoint(c.Param("id"), side, ep)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SelectEndpoint задает точку, выбранную из подсказок
func (h *SessionHandler) SelectEndpoint(c *gin.Context) {
	side, ok := h.parseSide(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Отсутствует обязательный параметр location"})
		return
	}

	snap, err := h.sessionService.SelectEndpoint(c.Param("id"), side, req.Label, *req.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SetTravelMode меняет режим передвижения
func (h *SessionHandler) SetTravelMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса"})
		return
	}

	mode, err := models.ParseTravelMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.sessionService.SetTravelMode(c.Param("id"), mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ComputeRoute строит маршрут между текущими точками
func (h *SessionHandler) ComputeRoute(c *gin.Context) {
	id := c.Param("id")

	var req ModeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса"})
			return
		}
	}

	var mode models.TravelMode
	if strings.TrimSpace(req.Mode) != "" {
		parsed, err := models.ParseTravelMode(req.Mode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		mode = parsed
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": id,
		"mode":       mode,
	}).Info("Получен запрос на построение маршрута")

	result, err := h.sessionService.ComputeRoute(c.Request.Context(), id, mode)
	if err != nil {
		body := errorBody(err)
		if result != nil {
			body["session"] = result.Snapshot
		}
		c.JSON(statusForError(err), body)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SetTraffic включает или выключает слой загруженности
func (h *SessionHandler) SetTraffic(c *gin.Context) {
	var req TrafficRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Отсутствует обязательный параметр visible"})
		return
	}

	snap, err := h.sessionService.SetTrafficVisible(c.Param("id"), *req.Visible)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Clear сбрасывает сессию
func (h *SessionHandler) Clear(c *gin.Context) {
	snap, err := h.sessionService.Clear(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// TrafficGeoJSON отдает участки загруженности как GeoJSON FeatureCollection
func (h *SessionHandler) TrafficGeoJSON(c *gin.Context) {
	fc, err := h.sessionService.TrafficGeoJSON(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		h.logger.Errorf("Ошибка сериализации GeoJSON: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка формирования GeoJSON"})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}

// ReportLocation принимает местоположение устройства
func (h *SessionHandler) ReportLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса"})
		return
	}

	id := c.Param("id")
	if req.Location == nil {
		if err := h.sessionService.ReportLocationFailure(id, req.Error); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"available": false})
		return
	}

	if err := h.sessionService.ReportLocation(id, *req.Location); err != nil {
		if _, getErr := h.sessionService.GetSession(id); getErr != nil {
			respondError(c, getErr)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": true, "location": req.Location})
}

// Search геокодирует запрос пользователя
func (h *SessionHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Отсутствует обязательный параметр query"})
		return
	}

	result, err := h.sessionService.Search(c.Request.Context(), c.Param("id"), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecentSearches возвращает последние поиски
func (h *SessionHandler) RecentSearches(c *gin.Context) {
	recent, err := h.sessionService.RecentSearches(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recent": recent})
}

// SavedPlaces возвращает сохраненные места
func (h *SessionHandler) SavedPlaces(c *gin.Context) {
	places, err := h.sessionService.SavedPlaces(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}

// SavePlace сохраняет место
func (h *SessionHandler) SavePlace(c *gin.Context) {
	var req SavePlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Отсутствует обязательный параметр location"})
		return
	}

	id := c.Param("id")
	place, err := h.sessionService.SavePlace(id, req.Name, req.Address, *req.Location)
	if err != nil {
		if _, getErr := h.sessionService.GetSession(id); getErr != nil {
			respondError(c, getErr)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, place)
}

// RemovePlace удаляет сохраненное место
func (h *SessionHandler) RemovePlace(c *gin.Context) {
	if err := h.sessionService.RemovePlace(c.Param("id"), c.Param("placeId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Место удалено"})
}

// UseSavedPlace выбирает сохраненное место как конечную точку
func (h *SessionHandler) UseSavedPlace(c *gin.Context) {
	side, ok := h.parseSide(c)
	if !ok {
		return
	}

	snap, err := h.sessionService.UseSavedPlace(c.Param("id"), c.Param("placeId"), side)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SessionHistory возвращает маршруты, построенные в сессии
func (h *SessionHandler) SessionHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	routes, err := h.sessionService.SessionHistory(c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes, "total": len(routes)})
}

// parseSide разбирает параметр :side и отвечает 400 при ошибке
func (h *SessionHandler) parseSide(c *gin.Context) (session.Side, bool) {
	side, err := session.ParseSide(c.Param("side"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return side, true
}
