// Package session хранит состояние построения маршрута одного пользователя.
//
// Session владеет конечными точками, режимом передвижения, последним
// построенным маршрутом и производными от него участками загруженности.
// Изменять состояние можно только через методы Session, остальные
// компоненты читают его через Snapshot.
package session

import (
	"context"
	"sync"
	"time"

	"route-traffic-go/internal/traffic"
	"route-traffic-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// DefaultAutoRouteDelay пауза перед автоматическим построением маршрута
const DefaultAutoRouteDelay = 100 * time.Millisecond

const defaultAutoRouteTimeout = 30 * time.Second

// Geocoder переводит адрес в координаты
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*models.GeocodeResult, error)
}

// RouteProvider строит маршрут между двумя точками
type RouteProvider interface {
	Route(ctx context.Context, req models.RouteRequest) (*models.Route, error)
}

// Commit описывает успешно примененный результат построения маршрута
type Commit struct {
	SessionID   string
	Generation  uint64
	Mode        models.TravelMode
	Start       Endpoint
	End         Endpoint
	Origin      models.Coordinates
	Destination models.Coordinates
	Route       *models.Route
	Segments    []models.TrafficSegment
}

// Options зависимости и настройки сессии
type Options struct {
	Geocoder  Geocoder
	Provider  RouteProvider
	Locator   DeviceLocator
	Segmenter *traffic.Segmenter
	Logger    *logrus.Logger

	AutoRouteDelay   time.Duration
	AutoRouteTimeout time.Duration
	TrafficModel     string

	// OnCommit вызывается после применения нового маршрута, вне блокировки сессии
	OnCommit func(Commit)

	Now func() time.Time
}

// Snapshot неизменяемая копия состояния сессии
type Snapshot struct {
	ID             string                  `json:"id"`
	Start          Endpoint                `json:"start"`
	End            Endpoint                `json:"end"`
	Mode           models.TravelMode       `json:"mode"`
	TrafficVisible bool                    `json:"traffic_visible"`
	Route          *models.Route           `json:"route,omitempty"`
	Segments       []models.TrafficSegment `json:"segments"`
	Generation     uint64                  `json:"generation"`
	Computing      bool                    `json:"computing"`
	LastError      *Error                  `json:"last_error,omitempty"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// Summary возвращает сводку текущего маршрута
func (s Snapshot) Summary() *models.RouteSummary {
	if s.Route == nil {
		return nil
	}
	summary := s.Route.Summary
	return &summary
}

// Session состояние построения маршрута
type Session struct {
	id   string
	opts Options
	log  *logrus.Entry

	mu             sync.Mutex
	start          Endpoint
	end            Endpoint
	startRev       uint64
	endRev         uint64
	mode           models.TravelMode
	trafficVisible bool
	route          *models.Route
	segments       []models.TrafficSegment
	generation     uint64
	computing      bool
	lastError      *Error
	autoTimer      *time.Timer
	autoSeq        uint64
	closed         bool
	updatedAt      time.Time
}

// New создает пустую сессию
func New(id string, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Segmenter == nil {
		opts.Segmenter = traffic.NewSeededSegmenter(time.Now().UnixNano())
	}
	if opts.AutoRouteDelay <= 0 {
		opts.AutoRouteDelay = DefaultAutoRouteDelay
	}
	if opts.AutoRouteTimeout <= 0 {
		opts.AutoRouteTimeout = defaultAutoRouteTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		id:   id,
		opts: opts,
		log:  opts.Logger.WithField("session_id", id),
	}
	s.resetLocked()
	return s
}

// ID идентификатор сессии
func (s *Session) ID() string {
	return s.id
}

// resetLocked возвращает сессию в начальное состояние
func (s *Session) resetLocked() {
	s.start = TextEndpoint("")
	s.end = TextEndpoint("")
	s.startRev++
	s.endRev++
	s.mode = models.DefaultTravelMode
	s.trafficVisible = true
	s.route = nil
	s.segments = []models.TrafficSegment{}
	s.computing = false
	s.lastError = nil
	s.updatedAt = s.opts.Now()
}

// Snapshot возвращает копию текущего состояния
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	segments := make([]models.TrafficSegment, len(s.segments))
	copy(segments, s.segments)

	return Snapshot{
		ID:             s.id,
		Start:          s.start,
		End:            s.end,
		Mode:           s.mode,
		TrafficVisible: s.trafficVisible,
		Route:          s.route,
		Segments:       segments,
		Generation:     s.generation,
		Computing:      s.computing,
		LastError:      s.lastError,
		UpdatedAt:      s.updatedAt,
	}
}

// SetEndpoint обновляет конечную точку. Маршрут не перестраивается.
// Для текстовой точки кэш координат сбрасывается, если текст изменился.
func (s *Session) SetEndpoint(side Side, ep Endpoint) error {
	if err := ep.validate(); err != nil {
		return invalidEndpointError(side, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setEndpointLocked(side, ep)
}

func (s *Session) setEndpointLocked(side Side, ep Endpoint) error {
	current, _ := s.endpointLocked(side)

	switch ep.Kind {
	case KindText:
		if current.Kind == ep.Kind && current.Text == ep.Text && current.Resolved != nil {
			ep.Resolved = current.Resolved
		} else {
			ep.Resolved = nil
		}
	case KindCurrentLocation:
		ep.Resolved = nil
	case KindCoordinate:
		coords := *ep.Resolved
		ep.Resolved = &coords
	}

	switch side {
	case SideStart:
		s.start = ep
		s.startRev++
	case SideEnd:
		s.end = ep
		s.endRev++
	default:
		return invalidEndpointError(side, errUnknownSide)
	}
	s.updatedAt = s.opts.Now()

	s.log.WithFields(logrus.Fields{
		"side": side,
		"kind": ep.Kind,
	}).Debug("Конечная точка обновлена")
	return nil
}

// SelectEndpoint задает точку, выбранную из подсказок (адрес и координаты известны).
// Если вторая точка уже заполнена, маршрут строится автоматически после короткой паузы.
func (s *Session) SelectEndpoint(side Side, label string, c models.Coordinates) error {
	ep := CoordinateEndpoint(label, c)
	if err := ep.validate(); err != nil {
		return invalidEndpointError(side, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setEndpointLocked(side, ep); err != nil {
		return err
	}

	other := s.end
	if side == SideEnd {
		other = s.start
	}
	if !other.IsEmpty() {
		s.scheduleAutoRouteLocked()
	}
	return nil
}

// SetTravelMode меняет режим передвижения без перестроения маршрута
func (s *Session) SetTravelMode(mode models.TravelMode) error {
	if !mode.IsValid() {
		return invalidModeError(mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.updatedAt = s.opts.Now()
	return nil
}

// SetTrafficVisible включает или выключает отображение загруженности.
// При выключении участки удаляются, при включении пересчитываются из текущего маршрута.
func (s *Session) SetTrafficVisible(visible bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasVisible := s.trafficVisible
	s.trafficVisible = visible

	switch {
	case !visible:
		s.segments = []models.TrafficSegment{}
	case s.route != nil && (!wasVisible || len(s.segments) == 0):
		s.segments = s.opts.Segmenter.Segment(s.route.Path)
	}
	s.updatedAt = s.opts.Now()

	return s.snapshotLocked()
}

// Clear сбрасывает сессию в начальное состояние.
// Результаты запросов, начатых до сброса, будут отброшены.
func (s *Session) Clear() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopAutoRouteLocked()
	s.generation++
	s.resetLocked()

	s.log.Info("Сессия очищена")
	return s.snapshotLocked()
}

// Close останавливает отложенные задачи сессии
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAutoRouteLocked()
	s.generation++
	s.closed = true
}

// ComputeRoute строит маршрут между текущими точками в заданном режиме.
//
// Применяется только результат последнего вызова: если за время запроса
// был начат новый расчет или сессия очищена, возвращается ErrSuperseded.
// При ошибке маршрутизации маршрут и участки очищаются вместе.
func (s *Session) ComputeRoute(ctx context.Context, mode models.TravelMode) (Snapshot, error) {
	s.mu.Lock()
	// Любой вызов, даже с неверными входными данными, вытесняет предыдущие
	s.generation++
	gen := s.generation
	s.computing = false
	if mode == "" {
		mode = s.mode
	}
	if !mode.IsValid() {
		serr := invalidModeError(mode)
		s.lastError = serr
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, serr
	}
	s.mode = mode

	for _, side := range []Side{SideStart, SideEnd} {
		if ep, _ := s.endpointLocked(side); ep.IsEmpty() {
			serr := missingEndpointError(side)
			s.lastError = serr
			snap := s.snapshotLocked()
			s.mu.Unlock()
			return snap, serr
		}
	}

	s.computing = true
	start, end := s.start, s.end
	startRev, endRev := s.startRev, s.endRev
	s.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{
		"generation": gen,
		"mode":       mode,
	})
	log.Info("Начинаем построение маршрута")

	origin, serr := s.resolve(ctx, SideStart, start, startRev)
	if serr != nil {
		return s.fail(gen, serr, log)
	}
	destination, serr := s.resolve(ctx, SideEnd, end, endRev)
	if serr != nil {
		return s.fail(gen, serr, log)
	}

	route, err := s.opts.Provider.Route(ctx, models.RouteRequest{
		Origin:        origin,
		Destination:   destination,
		Mode:          mode,
		TrafficModel:  s.opts.TrafficModel,
		DepartureTime: s.opts.Now(),
	})
	if err != nil {
		return s.fail(gen, routingError(err), log)
	}
	if route == nil || len(route.Path) == 0 {
		return s.fail(gen, routingError(&models.ProviderError{Status: models.StatusZeroResults}), log)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		log.Debug("Результат устарел и отброшен")
		return s.Snapshot(), ErrSuperseded
	}

	s.route = route
	if s.trafficVisible {
		s.segments = s.opts.Segmenter.Segment(route.Path)
	} else {
		s.segments = []models.TrafficSegment{}
	}
	s.computing = false
	s.lastError = nil
	s.updatedAt = s.opts.Now()

	snap := s.snapshotLocked()
	commit := Commit{
		SessionID:   s.id,
		Generation:  gen,
		Mode:        mode,
		Start:       snap.Start,
		End:         snap.End,
		Origin:      origin,
		Destination: destination,
		Route:       route,
		Segments:    snap.Segments,
	}
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"distance": route.Summary.DistanceText,
		"segments": len(snap.Segments),
	}).Info("Маршрут построен")

	if s.opts.OnCommit != nil {
		s.opts.OnCommit(commit)
	}
	return snap, nil
}

// resolve получает координаты конечной точки
func (s *Session) resolve(ctx context.Context, side Side, ep Endpoint, rev uint64) (models.Coordinates, *Error) {
	switch {
	case ep.Kind == KindCurrentLocation:
		if s.opts.Locator == nil {
			return models.Coordinates{}, locationUnavailableError(side, ErrLocationUnavailable)
		}
		c, err := s.opts.Locator.CurrentLocation(ctx)
		if err != nil {
			return models.Coordinates{}, locationUnavailableError(side, err)
		}
		return c, nil

	case ep.Resolved != nil:
		return *ep.Resolved, nil
	}

	if s.opts.Geocoder == nil {
		return models.Coordinates{}, resolutionError(side, ErrLocationUnavailable)
	}
	res, err := s.opts.Geocoder.Geocode(ctx, ep.Text)
	if err != nil {
		return models.Coordinates{}, resolutionError(side, err)
	}
	if err := res.Location.Validate(); err != nil {
		return models.Coordinates{}, resolutionError(side, err)
	}

	s.cacheResolved(side, rev, res.Location)
	return res.Location, nil
}

// cacheResolved сохраняет координаты, если точка не менялась с начала запроса
func (s *Session) cacheResolved(side Side, rev uint64, c models.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coords := c
	switch {
	case side == SideStart && s.startRev == rev:
		s.start.Resolved = &coords
	case side == SideEnd && s.endRev == rev:
		s.end.Resolved = &coords
	}
}

// fail применяет ошибку расчета, если он еще актуален
func (s *Session) fail(gen uint64, serr *Error, log *logrus.Entry) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		log.Debug("Ошибка устаревшего расчета отброшена")
		return s.snapshotLocked(), ErrSuperseded
	}

	s.computing = false
	s.lastError = serr
	if serr.Kind == KindRoutingError {
		s.route = nil
		s.segments = []models.TrafficSegment{}
	}
	s.updatedAt = s.opts.Now()

	log.WithFields(logrus.Fields{
		"kind":     serr.Kind,
		"category": serr.Category,
		"side":     serr.Side,
		"status":   serr.Status,
	}).Warn("Построение маршрута завершилось ошибкой")

	return s.snapshotLocked(), serr
}

func (s *Session) endpointLocked(side Side) (Endpoint, bool) {
	switch side {
	case SideStart:
		return s.start, true
	case SideEnd:
		return s.end, true
	default:
		return Endpoint{}, false
	}
}

func (s *Session) scheduleAutoRouteLocked() {
	if s.closed {
		return
	}
	s.stopAutoRouteLocked()
	seq := s.autoSeq
	s.autoTimer = time.AfterFunc(s.opts.AutoRouteDelay, func() { s.runAutoRoute(seq) })
}

// stopAutoRouteLocked отменяет отложенный запуск, в том числе уже сработавший таймер
func (s *Session) stopAutoRouteLocked() {
	s.autoSeq++
	if s.autoTimer != nil {
		s.autoTimer.Stop()
		s.autoTimer = nil
	}
}

// runAutoRoute выполняется таймером автоматического построения.
// Запуск с устаревшим seq ничего не делает: его таймер был заменен или отменен.
func (s *Session) runAutoRoute(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.autoSeq {
		s.mu.Unlock()
		return
	}
	s.autoTimer = nil
	mode := s.mode
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.AutoRouteTimeout)
	defer cancel()

	if _, err := s.ComputeRoute(ctx, mode); err != nil && !IsStale(err) {
		s.log.WithError(err).Warn("Автоматическое построение маршрута не удалось")
	}
}
