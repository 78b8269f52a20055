package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"route-traffic-go/internal/events"
	"route-traffic-go/internal/session"
	"route-traffic-go/internal/traffic"
	"route-traffic-go/pkg/models"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// ErrSessionNotFound сессия не найдена
var ErrSessionNotFound = errors.New("session not found")

// ErrEmptyQuery пустой поисковый запрос
var ErrEmptyQuery = errors.New("search query is required")

const publishTimeout = 5 * time.Second

// SessionOptions настройки создаваемых сессий
type SessionOptions struct {
	AutoRouteDelay time.Duration
	TrafficModel   string
}

type sessionEntry struct {
	session *session.Session
	locator *session.ReportedLocation
	places  *Places
}

// SessionService реестр сессий построения маршрутов
type SessionService struct {
	geocoder  session.Geocoder
	provider  session.RouteProvider
	segmenter *traffic.Segmenter
	routes    *RouteService
	publisher events.Publisher
	logger    *logrus.Logger
	opts      SessionOptions

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionService создает сервис сессий
func NewSessionService(
	geocoder session.Geocoder,
	provider session.RouteProvider,
	segmenter *traffic.Segmenter,
	routes *RouteService,
	publisher events.Publisher,
	logger *logrus.Logger,
	opts SessionOptions,
) *SessionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &SessionService{
		geocoder:  geocoder,
		provider:  provider,
		segmenter: segmenter,
		routes:    routes,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		sessions:  make(map[string]*sessionEntry),
	}
}

// CreateSession создает новую пустую сессию
func (s *SessionService) CreateSession() session.Snapshot {
	id := uuid.New().String()
	locator := session.NewReportedLocation()

	sess := session.New(id, session.Options{
		Geocoder:       s.geocoder,
		Provider:       s.provider,
		Locator:        locator,
		Segmenter:      s.segmenter,
		Logger:         s.logger,
		AutoRouteDelay: s.opts.AutoRouteDelay,
		TrafficModel:   s.opts.TrafficModel,
		OnCommit:       s.onCommit,
	})

	s.mu.Lock()
	s.sessions[id] = &sessionEntry{
		session: sess,
		locator: locator,
		places:  NewPlaces(),
	}
	total := len(s.sessions)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"session_id": id,
		"sessions":   total,
	}).Info("Создана новая сессия")
	return sess.Snapshot()
}

func (s *SessionService) entry(id string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return e, nil
}

// GetSession возвращает текущее состояние сессии
func (s *SessionService) GetSession(id string) (session.Snapshot, error) {
	e, err := s.entry(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return e.session.Snapshot(), nil
}

// DeleteSession закрывает и удаляет сессию
func (s *SessionService) DeleteSession(id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	e.session.Close()
	s.logger.WithField("session_id", id).Info("Сессия удалена")
	return nil
}

// SetEndpoint задает конечную точку без построения маршрута
func (s *SessionService) SetEndpoint(id string, side session.Side, ep session.Endpoint) (session.Snapshot, error) {
	e, err := s.entry(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := e.session.SetEndpoint(side, ep); err != nil {
		return session.Snapshot{}, err
	}
	return e.session.Snapshot(), nil
}

// SelectEndpoint задает выбранную из подсказок точку; может запустить автоматическое построение
func (s *SessionService) SelectEndpoint(id string, side session.Side, label string, c models.Coordinates) (session.Snapshot, error) {
	e, err := s.entry(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := e.session.SelectEndpoint(side, label, c); err != nil {
		return session.Snapshot{}, err
	}
	if label != "" {
		e.places.AddRecent(label)
	}
	return e.session.Snapshot(), nil
}

// SetTravelMode меняет режим передвижения
func (s *SessionService) SetTravelMode(id string, mode models.TravelMode) (session.Snapshot, error) {
	e, err := s.entry(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := e.session.SetTravelMode(mode); err != nil {
		return session.Snapshot{}, err
	}
	return e.session.Snapshot(), nil
}

// ComputeRoute строит маршрут. Устаревший результат не считается ошибкой:
// возвращается актуальное состояние с признаком Superseded.
func (s *SessionService) ComputeRoute(ctx context.Context, id string, mode models.TravelMode) (*RouteResult, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	snap, err := e.session.ComputeRoute(ctx, mode)
	if err != nil {
		if session.IsStale(err) {
			s.logger.WithField("session_id", id).Debug("Запрос маршрута вытеснен более новым")
			return &RouteResult{Snapshot: e.session.Snapshot(), Superseded: true}, nil
		}
		return &RouteResult{Snapshot: snap}, err
	}
	return &RouteResult{Snapshot: snap}, nil
}

// SetTrafficVisible включает или выключает слой загруженности
func (s *SessionService) SetTrafficVisible(id string, visible bool) (session.Snapshot, error) {
	e, err := s.entry(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return e.session.SetTrafficVisible(visible), nil
}

// Clear сбрасывает сессию
func (s *SessionService) Clear(id string) (session.Snapshot, error) {
	e, err := s.entry(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return e.session.Clear(), nil
}

// TrafficGeoJSON возвращает участки загруженности текущего маршрута в формате GeoJSON
func (s *SessionService) TrafficGeoJSON(id string) (*geojson.FeatureCollection, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return traffic.FeatureCollection(e.session.Snapshot().Segments), nil
}

// ReportLocation сохраняет местоположение устройства, присланное клиентом
func (s *SessionService) ReportLocation(id string, c models.Coordinates) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	return e.locator.Report(c)
}

// ReportLocationFailure запоминает, что устройство не смогло определить местоположение
func (s *SessionService) ReportLocationFailure(id, reason string) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "location request failed"
	}
	e.locator.Fail(errors.New(reason))
	return nil
}

// Search геокодирует запрос и добавляет найденный адрес в последние поиски
func (s *SessionService) Search(ctx context.Context, id, query string) (*models.GeocodeResult, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	result, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"session_id": id,
			"query":      query,
		}).Warnf("Поиск не удался: %v", err)
		return nil, err
	}

	label := result.FormattedAddress
	if label == "" {
		label = query
	}
	e.places.AddRecent(label)
	return result, nil
}

// RecentSearches последние поиски сессии
func (s *SessionService) RecentSearches(id string) ([]string, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return e.places.Recent(), nil
}

// SavedPlaces сохраненные места сессии
func (s *SessionService) SavedPlaces(id string) ([]SavedPlace, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return e.places.Saved(), nil
}

// SavePlace сохраняет место
func (s *SessionService) SavePlace(id, name, address string, location models.Coordinates) (SavedPlace, error) {
	e, err := s.entry(id)
	if err != nil {
		return SavedPlace{}, err
	}
	return e.places.Save(name, address, location)
}

// RemovePlace удаляет сохраненное место
func (s *SessionService) RemovePlace(id, placeID string) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	return e.places.Remove(placeID)
}

// UseSavedPlace выбирает сохраненное место как конечную точку
func (s *SessionService) UseSavedPlace(id, placeID string, side session.Side) (session.Snapshot, error) {
	e, err := s.entry(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	place, err := e.places.Get(placeID)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := e.session.SelectEndpoint(side, place.Label(), place.Location); err != nil {
		return session.Snapshot{}, err
	}
	return e.session.Snapshot(), nil
}

// SessionHistory маршруты, построенные в сессии
func (s *SessionService) SessionHistory(id string, limit int) ([]RouteResponse, error) {
	if _, err := s.entry(id); err != nil {
		return nil, err
	}
	return s.routes.ListSessionRoutes(id, limit)
}

// Count число активных сессий
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close закрывает все сессии
func (s *SessionService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for _, e := range sessions {
		e.session.Close()
	}
	s.logger.Infof("Закрыто сессий: %d", len(sessions))
}

// onCommit сохраняет примененный маршрут в историю и публикует событие
func (s *SessionService) onCommit(commit session.Commit) {
	log := s.logger.WithFields(logrus.Fields{
		"session_id": commit.SessionID,
		"generation": commit.Generation,
	})

	historyID := ""
	if s.routes != nil {
		id, err := s.routes.SaveRoute(commit)
		if err != nil {
			log.WithError(err).Error("Не удалось сохранить маршрут в историю")
		}
		historyID = id
	}

	heavy := 0
	for _, seg := range commit.Segments {
		if seg.Level == models.CongestionHeavy {
			heavy++
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	summary := commit.Route.Summary
	err := s.publisher.PublishRouteComputed(ctx, events.RouteComputedEvent{
		SessionID:         commit.SessionID,
		HistoryID:         historyID,
		Generation:        commit.Generation,
		Mode:              string(commit.Mode),
		Origin:            commit.Origin.String(),
		Destination:       commit.Destination.String(),
		DistanceMeters:    summary.DistanceMeters,
		DurationSeconds:   summary.DurationSeconds,
		DurationInTraffic: summary.DurationInTrafficSeconds,
		SegmentCount:      len(commit.Segments),
		HeavySegments:     heavy,
		ComputedAt:        time.Now().UTC(),
	})
	if err != nil {
		log.WithError(err).Warn("Не удалось опубликовать событие о маршруте")
	}
}
