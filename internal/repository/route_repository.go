package repository

import (
	"errors"
	"fmt"

	"route-traffic-go/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound запись истории не найдена
var ErrNotFound = errors.New("route not found")

// RouteRepository интерфейс для работы с историей маршрутов
type RouteRepository interface {
	Create(route *model.RouteRecord) error
	GetByID(id string) (*model.RouteRecord, error)
	ListBySession(sessionID string, limit int) ([]*model.RouteRecord, error)
	GetByArea(northEast, southWest Coordinates) ([]*model.RouteRecord, error)
	List(page, pageSize int) ([]*model.RouteRecord, int64, error)
	Delete(id string) error
}

// Coordinates угол прямоугольника для выборки по области
type Coordinates struct {
	Lat float64
	Lng float64
}

// routeRepository хранит историю в PostgreSQL
type routeRepository struct {
	db *gorm.DB
}

// NewRouteRepository создает репозиторий истории поверх gorm
func NewRouteRepository(db *gorm.DB) RouteRepository {
	return &routeRepository{
		db: db,
	}
}

// Create сохраняет маршрут вместе с участками в одной транзакции
func (r *routeRepository) Create(route *model.RouteRecord) error {
	segments := route.Segments
	route.Segments = nil
	defer func() { route.Segments = segments }()

	return r.db.Transaction(func(tx *gorm.DB) error {
		// Запись маршрута
		if err := tx.Create(route).Error; err != nil {
			return fmt.Errorf("failed to create route: %w", err)
		}

		// Затем создаем участки
		for i := range segments {
			segments[i].ID = 0 // Обнуляем ID для auto-increment
			segments[i].RouteID = route.ID
			if err := tx.Create(&segments[i]).Error; err != nil {
				return fmt.Errorf("failed to create segment %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetByID получает маршрут по ID
func (r *routeRepository) GetByID(id string) (*model.RouteRecord, error) {
	var route model.RouteRecord
	err := r.db.Preload("Segments", func(db *gorm.DB) *gorm.DB {
		return db.Order("segment_index ASC")
	}).Where("id = ?", id).First(&route).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("route with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return &route, nil
}

// ListBySession получает последние маршруты сессии
func (r *routeRepository) ListBySession(sessionID string, limit int) ([]*model.RouteRecord, error) {
	var routes []*model.RouteRecord

	query := r.db.Where("session_id = ?", sessionID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("failed to list session routes: %w", err)
	}
	return routes, nil
}

// GetByArea получает маршруты, у которых начало или конец лежит в заданной области
func (r *routeRepository) GetByArea(northEast, southWest Coordinates) ([]*model.RouteRecord, error) {
	var routes []*model.RouteRecord

	err := r.db.Preload("Segments").
		Where("(start_lat BETWEEN ? AND ? AND start_lng BETWEEN ? AND ?) OR "+
			"(end_lat BETWEEN ? AND ? AND end_lng BETWEEN ? AND ?)",
			southWest.Lat, northEast.Lat, southWest.Lng, northEast.Lng,
			southWest.Lat, northEast.Lat, southWest.Lng, northEast.Lng).
		Order("created_at DESC").
		Find(&routes).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get routes by area: %w", err)
	}

	return routes, nil
}

// List получает список маршрутов с пагинацией
func (r *routeRepository) List(page, pageSize int) ([]*model.RouteRecord, int64, error) {
	var routes []*model.RouteRecord
	var total int64

	// Всего записей
	if err := r.db.Model(&model.RouteRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count routes: %w", err)
	}

	// Страница, новые первыми
	offset := (page - 1) * pageSize
	err := r.db.Preload("Segments").
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&routes).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list routes: %w", err)
	}

	return routes, total, nil
}

// Delete удаляет маршрут по ID
func (r *routeRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Сначала удаляем участки
		if err := tx.Where("route_id = ?", id).Delete(&model.SegmentRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete segments: %w", err)
		}

		// Запись маршрута последней
		result := tx.Where("id = ?", id).Delete(&model.RouteRecord{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete route: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("route with id %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
