package geo

import (
	"fmt"
	"math"

	"route-traffic-go/pkg/models"
)

const earthRadiusKm = 6371.0

// Calculator для географических вычислений
type Calculator struct{}

// NewCalculator создает новый калькулятор
func NewCalculator() *Calculator {
	return &Calculator{}
}

// DistanceMeters вычисляет расстояние между двумя точками в метрах
// Использует формулу гаверсинуса
func (c *Calculator) DistanceMeters(point1, point2 models.Coordinates) float64 {
	lat1Rad := point1.Lat * math.Pi / 180
	lon1Rad := point1.Lng * math.Pi / 180
	lat2Rad := point2.Lat * math.Pi / 180
	lon2Rad := point2.Lng * math.Pi / 180

	deltaLat := lat2Rad - lat1Rad
	deltaLon := lon2Rad - lon1Rad

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	chord := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * chord * 1000
}

// PathLengthMeters суммирует длины звеньев ломаной
func (c *Calculator) PathLengthMeters(path []models.Coordinates) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += c.DistanceMeters(path[i-1], path[i])
	}
	return total
}

// Bounds возвращает юго-западный и северо-восточный углы ограничивающего прямоугольника
func (c *Calculator) Bounds(path []models.Coordinates) (southWest, northEast models.Coordinates, ok bool) {
	if len(path) == 0 {
		return models.Coordinates{}, models.Coordinates{}, false
	}

	southWest, northEast = path[0], path[0]
	for _, p := range path[1:] {
		southWest.Lat = math.Min(southWest.Lat, p.Lat)
		southWest.Lng = math.Min(southWest.Lng, p.Lng)
		northEast.Lat = math.Max(northEast.Lat, p.Lat)
		northEast.Lng = math.Max(northEast.Lng, p.Lng)
	}
	return southWest, northEast, true
}

// FormatDistance форматирует расстояние в метрической системе ("850 m", "5.2 km")
func (c *Calculator) FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	km := meters / 1000
	if km >= 100 {
		return fmt.Sprintf("%.0f km", km)
	}
	return fmt.Sprintf("%.1f km", km)
}

// FormatDuration форматирует длительность ("14 mins", "1 hour 5 mins")
func (c *Calculator) FormatDuration(seconds float64) string {
	totalMinutes := int(math.Round(seconds / 60))
	hours := totalMinutes / 60
	minutes := totalMinutes % 60

	if hours == 0 {
		if minutes == 1 {
			return "1 min"
		}
		return fmt.Sprintf("%d mins", minutes)
	}

	hourPart := fmt.Sprintf("%d hours", hours)
	if hours == 1 {
		hourPart = "1 hour"
	}
	switch minutes {
	case 0:
		return hourPart
	case 1:
		return hourPart + " 1 min"
	default:
		return fmt.Sprintf("%s %d mins", hourPart, minutes)
	}
}
