package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"route-traffic-go/pkg/models"

	"github.com/google/uuid"
)

// MaxRecentSearches сколько последних поисков хранится в сессии
const MaxRecentSearches = 7

// ErrPlaceNotFound сохраненное место не найдено
var ErrPlaceNotFound = errors.New("saved place not found")

// SavedPlace место, сохраненное пользователем
type SavedPlace struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Address   string             `json:"address"`
	Location  models.Coordinates `json:"location"`
	CreatedAt time.Time          `json:"created_at"`
}

// Label подпись места для поля ввода
func (p SavedPlace) Label() string {
	if p.Address != "" {
		return p.Address
	}
	return p.Name
}

// Places последние поиски и сохраненные места одной сессии
type Places struct {
	mu     sync.RWMutex
	recent []string
	saved  []SavedPlace
}

// NewPlaces создает пустое хранилище мест
func NewPlaces() *Places {
	return &Places{
		recent: []string{},
		saved:  []SavedPlace{},
	}
}

// AddRecent добавляет запрос в начало списка последних поисков.
// Повторный запрос поднимается наверх, список ограничен MaxRecentSearches.
func (p *Places) AddRecent(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	recent := make([]string, 0, MaxRecentSearches)
	recent = append(recent, query)
	for _, q := range p.recent {
		if q == query {
			continue
		}
		if len(recent) == MaxRecentSearches {
			break
		}
		recent = append(recent, q)
	}
	p.recent = recent
}

// Recent возвращает последние поиски, самый свежий первым
func (p *Places) Recent() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, len(p.recent))
	copy(out, p.recent)
	return out
}

// Save сохраняет место
func (p *Places) Save(name, address string, location models.Coordinates) (SavedPlace, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" && address == "" {
		return SavedPlace{}, fmt.Errorf("place name or address is required")
	}
	if err := location.Validate(); err != nil {
		return SavedPlace{}, fmt.Errorf("invalid place location: %w", err)
	}
	if name == "" {
		name = address
	}

	place := SavedPlace{
		ID:        uuid.New().String(),
		Name:      name,
		Address:   address,
		Location:  location,
		CreatedAt: time.Now(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, place)
	return place, nil
}

// Saved возвращает сохраненные места в порядке добавления
func (p *Places) Saved() []SavedPlace {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]SavedPlace, len(p.saved))
	copy(out, p.saved)
	return out
}

// Get возвращает сохраненное место по ID
func (p *Places) Get(id string) (SavedPlace, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, place := range p.saved {
		if place.ID == id {
			return place, nil
		}
	}
	return SavedPlace{}, fmt.Errorf("place %s: %w", id, ErrPlaceNotFound)
}

// Remove удаляет сохраненное место
func (p *Places) Remove(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, place := range p.saved {
		if place.ID == id {
			p.saved = append(p.saved[:i], p.saved[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("place %s: %w", id, ErrPlaceNotFound)
}
