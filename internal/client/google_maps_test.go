package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"route-traffic-go/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *GoogleMapsClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGoogleMapsClient(srv.URL, "test-key", 5*time.Second, testLogger())
}

func TestDecodePolyline_GoogleExample(t *testing.T) {
	path, err := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, path, 3)

	assert.InDelta(t, 38.5, path[0].Lat, 1e-9)
	assert.InDelta(t, -120.2, path[0].Lng, 1e-9)
	assert.InDelta(t, 40.7, path[1].Lat, 1e-9)
	assert.InDelta(t, -120.95, path[1].Lng, 1e-9)
	assert.InDelta(t, 43.252, path[2].Lat, 1e-9)
	assert.InDelta(t, -126.453, path[2].Lng, 1e-9)
}

func TestPolyline_RoundTrip(t *testing.T) {
	path := []models.Coordinates{
		{Lat: 10.52761, Lng: 76.21443},
		{Lat: 10.5301, Lng: 76.2201},
		{Lat: 9.93123, Lng: 76.26731},
	}

	decoded, err := DecodePolyline(EncodePolyline(path))
	require.NoError(t, err)
	require.Len(t, decoded, len(path))
	for i := range path {
		assert.InDelta(t, path[i].Lat, decoded[i].Lat, 1e-5)
		assert.InDelta(t, path[i].Lng, decoded[i].Lng, 1e-5)
	}

	empty, err := DecodePolyline("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGeocode_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "Infopark Campus Kochi", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = io.WriteString(w, `{
			"status": "OK",
			"results": [{
				"formatted_address": "Infopark Campus, Kakkanad, Kochi, Kerala",
				"place_id": "abc",
				"geometry": {"location": {"lat": 10.0101, "lng": 76.3637}}
			}]
		}`)
	})

	res, err := client.Geocode(context.Background(), "Infopark Campus Kochi")
	require.NoError(t, err)
	assert.Equal(t, models.Coordinates{Lat: 10.0101, Lng: 76.3637}, res.Location)
	assert.Equal(t, "Infopark Campus, Kakkanad, Kochi, Kerala", res.FormattedAddress)
	assert.Equal(t, "abc", res.PlaceID)
}

func TestGeocode_ProviderStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		httpStatus int
		want       models.ProviderStatus
	}{
		{"zero results", `{"status":"ZERO_RESULTS","results":[]}`, http.StatusOK, models.StatusZeroResults},
		{"over limit", `{"status":"OVER_QUERY_LIMIT","error_message":"slow down"}`, http.StatusOK, models.StatusOverQueryLimit},
		{"denied", `{"status":"REQUEST_DENIED","error_message":"bad key"}`, http.StatusOK, models.StatusRequestDenied},
		{"http 429", `too many`, http.StatusTooManyRequests, models.StatusOverQueryLimit},
		{"http 500", `boom`, http.StatusInternalServerError, models.StatusUnknownError},
		{"broken json", `{`, http.StatusOK, models.StatusTransportError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.httpStatus)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.Geocode(context.Background(), "nowhere")
			require.Error(t, err)

			var perr *models.ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.want, perr.Status)
		})
	}
}

func TestRoute_Success(t *testing.T) {
	path := make([]models.Coordinates, 10)
	for i := range path {
		path[i] = models.Coordinates{Lat: 10.5 + float64(i)*0.01, Lng: 76.2 + float64(i)*0.01}
	}
	encoded := EncodePolyline(path)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/directions/json", r.URL.Path)
		assert.Equal(t, "driving", q.Get("mode"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "now", q.Get("departure_time"))
		assert.Equal(t, "best_guess", q.Get("traffic_model"))
		assert.Equal(t, "10.500000,76.200000", q.Get("origin"))

		_, _ = io.WriteString(w, `{
			"status": "OK",
			"routes": [{
				"overview_polyline": {"points": "`+encoded+`"},
				"legs": [{
					"distance": {"text": "5 km", "value": 5000},
					"duration": {"text": "10 min", "value": 600},
					"duration_in_traffic": {"text": "14 min", "value": 840},
					"steps": [
						{"html_instructions": "Head <b>north</b> on <b>NH544</b>", "distance": {"text": "1 km", "value": 1000}, "duration": {"text": "2 mins", "value": 120}, "travel_mode": "DRIVING"}
					]
				}]
			}]
		}`)
	})

	route, err := client.Route(context.Background(), models.RouteRequest{
		Origin:      path[0],
		Destination: path[9],
		Mode:        models.ModeDriving,
	})
	require.NoError(t, err)

	assert.Equal(t, "5 km", route.Summary.DistanceText)
	assert.Equal(t, 5000.0, route.Summary.DistanceMeters)
	assert.Equal(t, "10 min", route.Summary.DurationText)
	assert.Equal(t, "14 min", route.Summary.DurationInTrafficText)
	assert.Equal(t, 840.0, route.Summary.DurationInTrafficSeconds)
	assert.Len(t, route.Path, 10)
	assert.Equal(t, encoded, route.Polyline)
	require.Len(t, route.Steps, 1)
	assert.Equal(t, "Head north on NH544", route.Steps[0].Instruction)
	assert.Equal(t, models.ModeDriving, route.Steps[0].Mode)
}

func TestRoute_WalkingWithoutTrafficDuration(t *testing.T) {
	encoded := EncodePolyline([]models.Coordinates{{Lat: 10, Lng: 76}, {Lat: 10.001, Lng: 76.001}})

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "walking", q.Get("mode"))
		assert.Empty(t, q.Get("departure_time"))
		assert.Empty(t, q.Get("traffic_model"))

		_, _ = io.WriteString(w, `{
			"status": "OK",
			"routes": [{
				"overview_polyline": {"points": "`+encoded+`"},
				"legs": [{"distance": {"value": 150}, "duration": {"text": "2 mins", "value": 120}}]
			}]
		}`)
	})

	route, err := client.Route(context.Background(), models.RouteRequest{Mode: models.ModeWalking})
	require.NoError(t, err)
	assert.Equal(t, "150 m", route.Summary.DistanceText)
	assert.Equal(t, "2 mins", route.Summary.DurationInTrafficText)
	assert.Equal(t, route.Summary.DurationSeconds, route.Summary.DurationInTrafficSeconds)
}

func TestRoute_ProviderStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ZERO_RESULTS","routes":[]}`)
	})

	_, err := client.Route(context.Background(), models.RouteRequest{Mode: models.ModeTransit})
	require.Error(t, err)

	var perr *models.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, models.StatusZeroResults, perr.Status)
}

func TestRoute_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"OK"}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Route(ctx, models.RouteRequest{})
	var perr *models.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, models.StatusTransportError, perr.Status)
	assert.ErrorIs(t, err, context.Canceled)
}
