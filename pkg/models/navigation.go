package models

import (
	"fmt"
	"strings"
	"time"
)

// Coordinates представляет географические координаты
type Coordinates struct {
	Lat float64 `json:"lat"` // Широта
	Lng float64 `json:"lng"` // Долгота
}

// Validate проверяет, что координаты лежат в допустимых диапазонах
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %.6f out of range [-90, 90]", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %.6f out of range [-180, 180]", c.Lng)
	}
	return nil
}

// String возвращает координаты в формате "lat,lng"
func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// GeocodeResult результат геокодирования адреса
type GeocodeResult struct {
	Location         Coordinates `json:"location"`
	FormattedAddress string      `json:"formatted_address"`
	PlaceID          string      `json:"place_id,omitempty"`
}

// TravelMode способ передвижения
type TravelMode string

const (
	ModeDriving   TravelMode = "DRIVING"
	ModeWalking   TravelMode = "WALKING"
	ModeBicycling TravelMode = "BICYCLING"
	ModeTransit   TravelMode = "TRANSIT"
)

// DefaultTravelMode используется, если режим не указан
const DefaultTravelMode = ModeDriving

// IsValid проверяет, что режим поддерживается
func (m TravelMode) IsValid() bool {
	switch m {
	case ModeDriving, ModeWalking, ModeBicycling, ModeTransit:
		return true
	default:
		return false
	}
}

// ParseTravelMode разбирает режим без учета регистра; пустая строка дает режим по умолчанию
func ParseTravelMode(s string) (TravelMode, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultTravelMode, nil
	}
	mode := TravelMode(strings.ToUpper(strings.TrimSpace(s)))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid travel mode %q: must be one of %s, %s, %s, %s",
			s, ModeDriving, ModeWalking, ModeBicycling, ModeTransit)
	}
	return mode, nil
}

// RouteRequest запрос маршрута к провайдеру
type RouteRequest struct {
	Origin        Coordinates `json:"origin"`
	Destination   Coordinates `json:"destination"`
	Mode          TravelMode  `json:"mode"`
	TrafficModel  string      `json:"traffic_model,omitempty"`  // best_guess, pessimistic, optimistic
	DepartureTime time.Time   `json:"departure_time,omitempty"` // нулевое значение означает "сейчас"
}

// RouteSummary сводка по маршруту
type RouteSummary struct {
	DistanceText             string  `json:"distance"`
	DistanceMeters           float64 `json:"distance_meters"`
	DurationText             string  `json:"duration"`
	DurationSeconds          float64 `json:"duration_seconds"`
	DurationInTrafficText    string  `json:"duration_in_traffic"`
	DurationInTrafficSeconds float64 `json:"duration_in_traffic_seconds"`
}

// RouteStep один шаг пошаговой навигации
type RouteStep struct {
	Number       int        `json:"number"`
	Instruction  string     `json:"instruction"`
	DistanceText string     `json:"distance"`
	DurationText string     `json:"duration"`
	Mode         TravelMode `json:"mode"`
}

// Route результат построения маршрута
type Route struct {
	Summary  RouteSummary  `json:"summary"`
	Path     []Coordinates `json:"path"`     // Упрощенная геометрия маршрута
	Polyline string        `json:"polyline"` // Та же геометрия в формате encoded polyline
	Steps    []RouteStep   `json:"steps"`
	Mode     TravelMode    `json:"mode"`
}

// CongestionLevel уровень загруженности участка
type CongestionLevel string

const (
	CongestionLight    CongestionLevel = "light"
	CongestionModerate CongestionLevel = "moderate"
	CongestionHeavy    CongestionLevel = "heavy"
)

// SegmentStyle параметры отрисовки участка
type SegmentStyle struct {
	Color   string  `json:"color"`
	Weight  int     `json:"weight"`
	Opacity float64 `json:"opacity"`
	ZIndex  int     `json:"z_index"`
}

// TrafficSegment участок маршрута с уровнем загруженности
type TrafficSegment struct {
	Index      int             `json:"index"`
	StartIndex int             `json:"start_index"` // Индекс первой точки в пути маршрута
	EndIndex   int             `json:"end_index"`   // Индекс последней точки (включительно)
	Path       []Coordinates   `json:"path"`
	Level      CongestionLevel `json:"level"`
	Style      SegmentStyle    `json:"style"`
}

// ProviderStatus код статуса внешнего картографического провайдера
type ProviderStatus string

const (
	StatusOK                     ProviderStatus = "OK"
	StatusZeroResults            ProviderStatus = "ZERO_RESULTS"
	StatusNotFound               ProviderStatus = "NOT_FOUND"
	StatusOverQueryLimit         ProviderStatus = "OVER_QUERY_LIMIT"
	StatusOverDailyLimit         ProviderStatus = "OVER_DAILY_LIMIT"
	StatusRequestDenied          ProviderStatus = "REQUEST_DENIED"
	StatusInvalidRequest         ProviderStatus = "INVALID_REQUEST"
	StatusMaxWaypointsExceeded   ProviderStatus = "MAX_WAYPOINTS_EXCEEDED"
	StatusMaxRouteLengthExceeded ProviderStatus = "MAX_ROUTE_LENGTH_EXCEEDED"
	StatusUnknownError           ProviderStatus = "UNKNOWN_ERROR"
	// StatusTransportError выставляется клиентом, если ответ провайдера не получен или не разобран
	StatusTransportError ProviderStatus = "TRANSPORT_ERROR"
)

// ProviderError ошибка, возвращенная провайдером геокодирования или маршрутов
type ProviderError struct {
	Status  ProviderStatus
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("maps provider: %s: %s", e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("maps provider: %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("maps provider: %s", e.Status)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
