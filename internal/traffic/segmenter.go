// Package traffic строит имитацию загруженности дорог вдоль маршрута.
//
// Реальных данных о трафике нет: каждому участку назначается случайный
// уровень загруженности. Источник случайности внедряется, поэтому
// результат воспроизводим в тестах.
package traffic

import (
	"math/rand"
	"sync"

	"route-traffic-go/pkg/models"
)

// MaxSegments максимальное число участков, на которое делится маршрут
const MaxSegments = 8

const (
	heavyThreshold    = 0.7
	moderateThreshold = 0.4
)

// Цвета и толщины линий
const (
	defaultColor = "#4285F4"
	heavyColor   = "#EA4335"
	lineOpacity  = 0.8
	lineZIndex   = 1000
)

// RandomSource источник равномерно распределенных чисел в [0, 1)
type RandomSource interface {
	Float64() float64
}

// Segmenter делит путь маршрута на участки и назначает им загруженность
type Segmenter struct {
	mu  sync.Mutex
	src RandomSource
}

// NewSegmenter создает сегментатор с заданным источником случайности
func NewSegmenter(src RandomSource) *Segmenter {
	return &Segmenter{src: src}
}

// NewSeededSegmenter создает сегментатор на основе math/rand с фиксированным зерном
func NewSeededSegmenter(seed int64) *Segmenter {
	return NewSegmenter(rand.New(rand.NewSource(seed)))
}

// Stride возвращает шаг разбиения пути из n точек
func Stride(n int) int {
	s := (n + MaxSegments - 1) / MaxSegments
	if s < 1 {
		return 1
	}
	return s
}

// Segment разбивает путь на не более чем MaxSegments участков.
// Соседние участки делят граничную точку. Для пути короче двух точек
// возвращается пустой срез.
func (s *Segmenter) Segment(path []models.Coordinates) []models.TrafficSegment {
	n := len(path)
	if n < 2 {
		return []models.TrafficSegment{}
	}

	stride := Stride(n)
	segments := make([]models.TrafficSegment, 0, MaxSegments)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < n-1; i += stride {
		end := i + stride
		if end > n-1 {
			end = n - 1
		}
		if end-i+1 < 2 {
			continue
		}

		points := make([]models.Coordinates, end-i+1)
		copy(points, path[i:end+1])

		level := LevelFor(s.src.Float64())
		segments = append(segments, models.TrafficSegment{
			Index:      len(segments),
			StartIndex: i,
			EndIndex:   end,
			Path:       points,
			Level:      level,
			Style:      StyleFor(level),
		})
	}

	return segments
}

// LevelFor переводит случайное значение в уровень загруженности
func LevelFor(draw float64) models.CongestionLevel {
	switch {
	case draw >= heavyThreshold:
		return models.CongestionHeavy
	case draw >= moderateThreshold:
		return models.CongestionModerate
	default:
		return models.CongestionLight
	}
}

// StyleFor возвращает параметры отрисовки для уровня загруженности
func StyleFor(level models.CongestionLevel) models.SegmentStyle {
	style := models.SegmentStyle{
		Color:   defaultColor,
		Weight:  6,
		Opacity: lineOpacity,
		ZIndex:  lineZIndex,
	}

	switch level {
	case models.CongestionHeavy:
		style.Color = heavyColor
		style.Weight = 8
	case models.CongestionModerate:
		style.Weight = 7
	}

	return style
}
