package service

import (
	"errors"
	"fmt"
	"time"

	"route-traffic-go/internal/client"
	"route-traffic-go/internal/geo"
	"route-traffic-go/internal/model"
	"route-traffic-go/internal/repository"
	"route-traffic-go/internal/session"
	"route-traffic-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrHistoryDisabled история маршрутов не настроена
var ErrHistoryDisabled = errors.New("route history is disabled")

// RouteService сервис для работы с историей построенных маршрутов
type RouteService struct {
	routeRepo repository.RouteRepository
	geoCalc   *geo.Calculator
	logger    *logrus.Logger
}

// NewRouteService создает новый сервис истории. Если routeRepo равен nil,
// история отключена и сохранение маршрутов пропускается.
func NewRouteService(routeRepo repository.RouteRepository, logger *logrus.Logger) *RouteService {
	return &RouteService{
		routeRepo: routeRepo,
		geoCalc:   geo.NewCalculator(),
		logger:    logger,
	}
}

// Enabled сообщает, включена ли история
func (s *RouteService) Enabled() bool {
	return s.routeRepo != nil
}

// SaveRoute сохраняет примененный маршрут сессии и возвращает ID записи
func (s *RouteService) SaveRoute(commit session.Commit) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	if commit.Route == nil {
		return "", fmt.Errorf("commit without route")
	}

	routeID := s.GenerateRouteID()
	log := s.logger.WithFields(logrus.Fields{
		"session_id": commit.SessionID,
		"route_id":   routeID,
	})

	polyline := commit.Route.Polyline
	if polyline == "" {
		polyline = client.EncodePolyline(commit.Route.Path)
	}

	summary := commit.Route.Summary
	record := &model.RouteRecord{
		ID:                       routeID,
		SessionID:                commit.SessionID,
		Generation:               commit.Generation,
		TravelMode:               string(commit.Mode),
		StartLabel:               commit.Start.Text,
		EndLabel:                 commit.End.Text,
		StartLat:                 commit.Origin.Lat,
		StartLng:                 commit.Origin.Lng,
		EndLat:                   commit.Destination.Lat,
		EndLng:                   commit.Destination.Lng,
		Polyline:                 polyline,
		DistanceText:             summary.DistanceText,
		DistanceMeters:           summary.DistanceMeters,
		DurationText:             summary.DurationText,
		DurationSeconds:          summary.DurationSeconds,
		DurationInTrafficText:    summary.DurationInTrafficText,
		DurationInTrafficSeconds: summary.DurationInTrafficSeconds,
		PointCount:               len(commit.Route.Path),
		CreatedAt:                time.Now(),
	}

	// Преобразуем участки
	for _, seg := range commit.Segments {
		if len(seg.Path) == 0 {
			continue
		}
		record.Segments = append(record.Segments, model.SegmentRecord{
			RouteID:      routeID,
			SegmentIndex: seg.Index,
			StartIndex:   seg.StartIndex,
			EndIndex:     seg.EndIndex,
			Congestion:   string(seg.Level),
			Color:        seg.Style.Color,
			StartLat:     seg.Path[0].Lat,
			StartLng:     seg.Path[0].Lng,
			EndLat:       seg.Path[len(seg.Path)-1].Lat,
			EndLng:       seg.Path[len(seg.Path)-1].Lng,
		})
	}

	log.Infof("Сохраняем маршрут в историю. Количество участков: %d", len(record.Segments))
	if err := s.routeRepo.Create(record); err != nil {
		log.Errorf("Ошибка сохранения маршрута в БД: %v", err)
		return "", fmt.Errorf("failed to save route to database: %w", err)
	}

	return routeID, nil
}

// GetRouteByID получает маршрут по ID вместе с геометрией
func (s *RouteService) GetRouteByID(routeID string) (*RouteResponse, error) {
	if !s.Enabled() {
		return nil, ErrHistoryDisabled
	}
	s.logger.Infof("Получаем маршрут %s из истории", routeID)

	route, err := s.routeRepo.GetByID(routeID)
	if err != nil {
		s.logger.Errorf("Ошибка получения маршрута: %v", err)
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	response := s.modelToResponse(route)
	path, err := client.DecodePolyline(route.Polyline)
	if err != nil {
		s.logger.Warnf("Не удалось декодировать геометрию маршрута %s: %v", routeID, err)
	} else {
		response.Path = path
		if sw, ne, ok := s.geoCalc.Bounds(path); ok {
			response.Bounds = &RouteBounds{SouthWest: sw, NorthEast: ne}
		}
	}
	return response, nil
}

// GetRoutesByArea получает маршруты в заданной области
func (s *RouteService) GetRoutesByArea(northEast, southWest models.Coordinates) ([]RouteResponse, error) {
	if !s.Enabled() {
		return nil, ErrHistoryDisabled
	}
	s.logger.Infof("Получаем маршруты в области: NE(%.6f, %.6f) SW(%.6f, %.6f)",
		northEast.Lat, northEast.Lng, southWest.Lat, southWest.Lng)

	ne := repository.Coordinates{Lat: northEast.Lat, Lng: northEast.Lng}
	sw := repository.Coordinates{Lat: southWest.Lat, Lng: southWest.Lng}

	routes, err := s.routeRepo.GetByArea(ne, sw)
	if err != nil {
		s.logger.Errorf("Ошибка получения маршрутов по области: %v", err)
		return nil, fmt.Errorf("failed to get routes by area: %w", err)
	}

	return s.modelsToResponses(routes), nil
}

// ListRoutes получает список всех маршрутов с пагинацией
func (s *RouteService) ListRoutes(page, pageSize int) ([]RouteResponse, int64, error) {
	if !s.Enabled() {
		return nil, 0, ErrHistoryDisabled
	}
	s.logger.Infof("Получаем список маршрутов: страница %d, размер %d", page, pageSize)

	routes, total, err := s.routeRepo.List(page, pageSize)
	if err != nil {
		s.logger.Errorf("Ошибка получения списка маршрутов: %v", err)
		return nil, 0, fmt.Errorf("failed to list routes: %w", err)
	}

	return s.modelsToResponses(routes), total, nil
}

// ListSessionRoutes получает последние маршруты сессии
func (s *RouteService) ListSessionRoutes(sessionID string, limit int) ([]RouteResponse, error) {
	if !s.Enabled() {
		return nil, ErrHistoryDisabled
	}

	routes, err := s.routeRepo.ListBySession(sessionID, limit)
	if err != nil {
		s.logger.WithField("session_id", sessionID).Errorf("Ошибка получения истории сессии: %v", err)
		return nil, fmt.Errorf("failed to list session routes: %w", err)
	}

	return s.modelsToResponses(routes), nil
}

// DeleteRoute удаляет маршрут по ID
func (s *RouteService) DeleteRoute(routeID string) error {
	if !s.Enabled() {
		return ErrHistoryDisabled
	}
	s.logger.Infof("Удаляем маршрут %s", routeID)

	if err := s.routeRepo.Delete(routeID); err != nil {
		s.logger.Errorf("Ошибка удаления маршрута из БД: %v", err)
		return fmt.Errorf("failed to delete route from database: %w", err)
	}

	s.logger.Infof("Маршрут %s успешно удален", routeID)
	return nil
}

func (s *RouteService) modelsToResponses(routes []*model.RouteRecord) []RouteResponse {
	responses := make([]RouteResponse, len(routes))
	for i, route := range routes {
		responses[i] = *s.modelToResponse(route)
	}
	return responses
}

// modelToResponse преобразует модель базы данных в ответ API
func (s *RouteService) modelToResponse(route *model.RouteRecord) *RouteResponse {
	response := &RouteResponse{
		ID:         route.ID,
		SessionID:  route.SessionID,
		Mode:       models.TravelMode(route.TravelMode),
		StartLabel: route.StartLabel,
		EndLabel:   route.EndLabel,
		StartPoint: models.Coordinates{Lat: route.StartLat, Lng: route.StartLng},
		EndPoint:   models.Coordinates{Lat: route.EndLat, Lng: route.EndLng},
		Summary: models.RouteSummary{
			DistanceText:             route.DistanceText,
			DistanceMeters:           route.DistanceMeters,
			DurationText:             route.DurationText,
			DurationSeconds:          route.DurationSeconds,
			DurationInTrafficText:    route.DurationInTrafficText,
			DurationInTrafficSeconds: route.DurationInTrafficSeconds,
		},
		Polyline:   route.Polyline,
		PointCount: route.PointCount,
		Segments:   []HistorySegment{},
		CreatedAt:  route.CreatedAt,
	}

	// Преобразуем участки
	for _, seg := range route.Segments {
		response.Segments = append(response.Segments, HistorySegment{
			Index:           seg.SegmentIndex,
			StartIndex:      seg.StartIndex,
			EndIndex:        seg.EndIndex,
			Congestion:      models.CongestionLevel(seg.Congestion),
			Color:           seg.Color,
			StartCoordinate: models.Coordinates{Lat: seg.StartLat, Lng: seg.StartLng},
			EndCoordinate:   models.Coordinates{Lat: seg.EndLat, Lng: seg.EndLng},
		})
	}

	return response
}

// GenerateRouteID генерирует уникальный ID для маршрута
func (s *RouteService) GenerateRouteID() string {
	return uuid.New().String()
}
