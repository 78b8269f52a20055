package session

import (
	"errors"
	"fmt"
	"strings"

	"route-traffic-go/pkg/models"
)

var errUnknownSide = errors.New("unknown side")

// Side сторона маршрута
type Side string

const (
	SideStart Side = "start"
	SideEnd   Side = "end"
)

// ParseSide разбирает сторону маршрута
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideStart, "origin", "from":
		return SideStart, nil
	case SideEnd, "destination", "to":
		return SideEnd, nil
	default:
		return "", fmt.Errorf("invalid side %q: must be start or end", s)
	}
}

// EndpointKind тип конечной точки
type EndpointKind string

const (
	KindText            EndpointKind = "text"
	KindCoordinate      EndpointKind = "coordinate"
	KindCurrentLocation EndpointKind = "current-location"
)

// CurrentLocationLabel подпись, под которой текущее местоположение показывается пользователю
const CurrentLocationLabel = "Your location"

// Endpoint конечная точка маршрута.
// Resolved кэширует координаты после геокодирования.
type Endpoint struct {
	Kind     EndpointKind        `json:"kind"`
	Text     string              `json:"text"`
	Resolved *models.Coordinates `json:"resolved,omitempty"`
}

// TextEndpoint точка, заданная произвольным адресом
func TextEndpoint(text string) Endpoint {
	return Endpoint{Kind: KindText, Text: text}
}

// CoordinateEndpoint точка с уже известными координатами
func CoordinateEndpoint(label string, c models.Coordinates) Endpoint {
	if strings.TrimSpace(label) == "" {
		label = fmt.Sprintf("%g,%g", c.Lat, c.Lng)
	}
	coords := c
	return Endpoint{Kind: KindCoordinate, Text: label, Resolved: &coords}
}

// CurrentLocationEndpoint точка "текущее местоположение устройства"
func CurrentLocationEndpoint() Endpoint {
	return Endpoint{Kind: KindCurrentLocation, Text: CurrentLocationLabel}
}

// IsEmpty сообщает, что точка не задана
func (e Endpoint) IsEmpty() bool {
	switch e.Kind {
	case KindCurrentLocation:
		return false
	case KindCoordinate:
		return e.Resolved == nil
	default:
		return strings.TrimSpace(e.Text) == ""
	}
}

func (e Endpoint) validate() error {
	switch e.Kind {
	case KindText, KindCurrentLocation:
		return nil
	case KindCoordinate:
		if e.Resolved == nil {
			return fmt.Errorf("coordinate endpoint without coordinates")
		}
		return e.Resolved.Validate()
	default:
		return fmt.Errorf("unknown endpoint kind %q", e.Kind)
	}
}
