package session

import (
	"context"
	"errors"
	"sync"

	"route-traffic-go/pkg/models"
)

// ErrLocationUnavailable местоположение устройства неизвестно
var ErrLocationUnavailable = errors.New("device location unavailable")

// DeviceLocator однократный запрос текущего местоположения устройства
type DeviceLocator interface {
	CurrentLocation(ctx context.Context) (models.Coordinates, error)
}

// ReportedLocation хранит последнее местоположение, присланное клиентом
type ReportedLocation struct {
	mu       sync.RWMutex
	location *models.Coordinates
	err      error
}

// NewReportedLocation создает пустое хранилище местоположения
func NewReportedLocation() *ReportedLocation {
	return &ReportedLocation{}
}

// Report сохраняет местоположение устройства
func (r *ReportedLocation) Report(c models.Coordinates) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.location = &c
	r.err = nil
	return nil
}

// Fail запоминает отказ устройства (нет разрешения, сервис недоступен)
func (r *ReportedLocation) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.location = nil
	r.err = err
}

// CurrentLocation возвращает последнее известное местоположение
func (r *ReportedLocation) CurrentLocation(ctx context.Context) (models.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinates{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.location == nil {
		if r.err != nil {
			return models.Coordinates{}, errors.Join(ErrLocationUnavailable, r.err)
		}
		return models.Coordinates{}, ErrLocationUnavailable
	}
	return *r.location, nil
}
