package client

import (
	"fmt"

	"github.com/twpayne/go-polyline"

	"route-traffic-go/pkg/models"
)

// DecodePolyline разбирает encoded polyline (точность 5 знаков) в список координат
func DecodePolyline(encoded string) ([]models.Coordinates, error) {
	if encoded == "" {
		return []models.Coordinates{}, nil
	}

	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after polyline", len(rest))
	}

	path := make([]models.Coordinates, len(coords))
	for i, c := range coords {
		path[i] = models.Coordinates{Lat: c[0], Lng: c[1]}
	}
	return path, nil
}

// EncodePolyline кодирует список координат в encoded polyline
func EncodePolyline(path []models.Coordinates) string {
	coords := make([][]float64, len(path))
	for i, p := range path {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}
