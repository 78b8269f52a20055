package model

import (
	"time"

	"gorm.io/gorm"
)

// RouteRecord представляет построенный маршрут в истории
type RouteRecord struct {
	ID         string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID  string  `gorm:"type:varchar(36);not null;index" json:"session_id"`
	Generation uint64  `gorm:"not null;default:0" json:"generation"`
	TravelMode string  `gorm:"type:varchar(16);not null" json:"travel_mode"`
	StartLabel string  `gorm:"type:varchar(500)" json:"start_label"`
	EndLabel   string  `gorm:"type:varchar(500)" json:"end_label"`
	StartLat   float64 `gorm:"not null" json:"start_lat"`
	StartLng   float64 `gorm:"not null" json:"start_lng"`
	EndLat     float64 `gorm:"not null" json:"end_lat"`
	EndLng     float64 `gorm:"not null" json:"end_lng"`
	Polyline   string  `gorm:"type:text" json:"polyline"`

	// Сводка маршрута
	DistanceText             string  `gorm:"type:varchar(64)" json:"distance"`
	DistanceMeters           float64 `gorm:"not null;default:0" json:"distance_meters"`
	DurationText             string  `gorm:"type:varchar(64)" json:"duration"`
	DurationSeconds          float64 `gorm:"not null;default:0" json:"duration_seconds"`
	DurationInTrafficText    string  `gorm:"type:varchar(64)" json:"duration_in_traffic"`
	DurationInTrafficSeconds float64 `gorm:"not null;default:0" json:"duration_in_traffic_seconds"`
	PointCount               int     `gorm:"not null;default:0" json:"point_count"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Связь с участками загруженности
	Segments []SegmentRecord `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE" json:"segments"`
}

// SegmentRecord представляет участок загруженности маршрута в истории
type SegmentRecord struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	RouteID      string  `gorm:"type:varchar(36);not null;index" json:"route_id"`
	SegmentIndex int     `gorm:"not null" json:"segment_index"`
	StartIndex   int     `gorm:"not null" json:"start_index"`
	EndIndex     int     `gorm:"not null" json:"end_index"`
	Congestion   string  `gorm:"type:varchar(16);not null" json:"congestion"`
	Color        string  `gorm:"type:varchar(16)" json:"color"`
	StartLat     float64 `gorm:"not null" json:"start_lat"`
	StartLng     float64 `gorm:"not null" json:"start_lng"`
	EndLat       float64 `gorm:"not null" json:"end_lat"`
	EndLng       float64 `gorm:"not null" json:"end_lng"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Обратная связь с маршрутом
	Route RouteRecord `gorm:"foreignKey:RouteID;references:ID" json:"-"`
}

// TableName указывает имя таблицы для RouteRecord
func (RouteRecord) TableName() string {
	return "route_history"
}

// TableName указывает имя таблицы для SegmentRecord
func (SegmentRecord) TableName() string {
	return "route_history_segments"
}
