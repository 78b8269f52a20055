package service

import (
	"time"

	"route-traffic-go/internal/session"
	"route-traffic-go/pkg/models"
)

// RouteResult ответ на запрос построения маршрута
type RouteResult struct {
	session.Snapshot
	// Superseded выставляется, если результат запроса отброшен из-за более нового
	Superseded bool `json:"superseded"`
}

// HistorySegment участок маршрута из истории
type HistorySegment struct {
	Index           int                    `json:"index"`
	StartIndex      int                    `json:"start_index"`
	EndIndex        int                    `json:"end_index"`
	Congestion      models.CongestionLevel `json:"congestion"`
	Color           string                 `json:"color"`
	StartCoordinate models.Coordinates     `json:"start_coordinate"`
	EndCoordinate   models.Coordinates     `json:"end_coordinate"`
}

// RouteResponse ответ с информацией о маршруте из истории
type RouteResponse struct {
	ID         string               `json:"id"`
	SessionID  string               `json:"session_id"`
	Mode       models.TravelMode    `json:"mode"`
	StartLabel string               `json:"start_label"`
	EndLabel   string               `json:"end_label"`
	StartPoint models.Coordinates   `json:"start_point"`
	EndPoint   models.Coordinates   `json:"end_point"`
	Summary    models.RouteSummary  `json:"summary"`
	Polyline   string               `json:"polyline"`
	Path       []models.Coordinates `json:"path,omitempty"`
	Bounds     *RouteBounds         `json:"bounds,omitempty"`
	PointCount int                  `json:"point_count"`
	Segments   []HistorySegment     `json:"segments"`
	CreatedAt  time.Time            `json:"created_at"`
}

// RouteBounds прямоугольник, охватывающий геометрию маршрута
type RouteBounds struct {
	SouthWest models.Coordinates `json:"south_west"`
	NorthEast models.Coordinates `json:"north_east"`
}

// ListRoutesResponse ответ со списком маршрутов
type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
	Total  int64           `json:"total"`
	Page   int             `json:"page"`
	Size   int             `json:"size"`
}

// GetRoutesByAreaResponse ответ со списком маршрутов в области
type GetRoutesByAreaResponse struct {
	Routes []RouteResponse `json:"routes"`
	Total  int             `json:"total"`
}
