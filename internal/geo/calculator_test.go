package geo

import (
	"math"
	"testing"

	"route-traffic-go/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name             string
		a, b             models.Coordinates
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name:             "London to Paris",
			a:                models.Coordinates{Lat: 51.5074, Lng: -0.1278},
			b:                models.Coordinates{Lat: 48.8566, Lng: 2.3522},
			wantMeters:       343_500,
			tolerancePercent: 1,
		},
		{
			name:             "Thrissur to Kochi",
			a:                models.Coordinates{Lat: 10.5276, Lng: 76.2144},
			b:                models.Coordinates{Lat: 9.9312, Lng: 76.2673},
			wantMeters:       66_500,
			tolerancePercent: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.DistanceMeters(tt.a, tt.b)
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			assert.LessOrEqualf(t, diff, tt.tolerancePercent, "distance = %f m, want ~%f m", got, tt.wantMeters)
		})
	}

	same := models.Coordinates{Lat: 10.5, Lng: 76.2}
	assert.Zero(t, calc.DistanceMeters(same, same))
}

func TestPathLengthMeters(t *testing.T) {
	calc := NewCalculator()
	a := models.Coordinates{Lat: 10.0, Lng: 76.0}
	b := models.Coordinates{Lat: 10.01, Lng: 76.0}
	c := models.Coordinates{Lat: 10.02, Lng: 76.0}

	assert.Zero(t, calc.PathLengthMeters(nil))
	assert.Zero(t, calc.PathLengthMeters([]models.Coordinates{a}))
	assert.InDelta(t, calc.DistanceMeters(a, b)+calc.DistanceMeters(b, c),
		calc.PathLengthMeters([]models.Coordinates{a, b, c}), 1e-9)
}

func TestBounds(t *testing.T) {
	calc := NewCalculator()

	_, _, ok := calc.Bounds(nil)
	assert.False(t, ok)

	sw, ne, ok := calc.Bounds([]models.Coordinates{
		{Lat: 10.5, Lng: 76.3},
		{Lat: 10.1, Lng: 76.9},
		{Lat: 10.7, Lng: 76.1},
	})
	assert.True(t, ok)
	assert.Equal(t, models.Coordinates{Lat: 10.1, Lng: 76.1}, sw)
	assert.Equal(t, models.Coordinates{Lat: 10.7, Lng: 76.9}, ne)
}

func TestFormatDistance(t *testing.T) {
	calc := NewCalculator()
	assert.Equal(t, "850 m", calc.FormatDistance(850))
	assert.Equal(t, "5.0 km", calc.FormatDistance(5000))
	assert.Equal(t, "12.3 km", calc.FormatDistance(12_340))
	assert.Equal(t, "250 km", calc.FormatDistance(250_000))
}

func TestFormatDuration(t *testing.T) {
	calc := NewCalculator()
	assert.Equal(t, "1 min", calc.FormatDuration(60))
	assert.Equal(t, "10 mins", calc.FormatDuration(600))
	assert.Equal(t, "1 hour", calc.FormatDuration(3600))
	assert.Equal(t, "1 hour 1 min", calc.FormatDuration(3660))
	assert.Equal(t, "2 hours 5 mins", calc.FormatDuration(7500))
}
