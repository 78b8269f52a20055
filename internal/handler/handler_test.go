package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"route-traffic-go/internal/service"
	"route-traffic-go/internal/traffic"
	"route-traffic-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

type stubGeocoder map[string]models.Coordinates

func (g stubGeocoder) Geocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	c, ok := g[address]
	if !ok {
		return nil, &models.ProviderError{Status: models.StatusZeroResults}
	}
	return &models.GeocodeResult{Location: c, FormattedAddress: address + ", Moscow"}, nil
}

type stubProvider struct {
	err error
}

func (p *stubProvider) Route(ctx context.Context, req models.RouteRequest) (*models.Route, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &models.Route{
		Summary: models.RouteSummary{
			DistanceText:          "5 km",
			DurationText:          "10 mins",
			DurationInTrafficText: "14 mins",
		},
		Path: []models.Coordinates{
			{Lat: 55.75, Lng: 37.61}, {Lat: 55.76, Lng: 37.62}, {Lat: 55.77, Lng: 37.63},
			{Lat: 55.78, Lng: 37.64}, {Lat: 55.79, Lng: 37.65},
		},
		Mode: req.Mode,
	}, nil
}

type stubHealth map[string]error

func (h stubHealth) Check() map[string]error { return h }

type testServer struct {
	router   *gin.Engine
	provider *stubProvider
}

func newTestServer(t *testing.T, health HealthChecker) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	provider := &stubProvider{}
	geocoder := stubGeocoder{
		"A": {Lat: 55.75, Lng: 37.61},
		"B": {Lat: 55.79, Lng: 37.65},
	}

	routes := service.NewRouteService(nil, logger)
	sessions := service.NewSessionService(geocoder, provider, traffic.NewSegmenter(fixedSource(0.5)),
		routes, nil, logger, service.SessionOptions{})
	t.Cleanup(sessions.Close)

	router := gin.New()
	NewSessionHandler(sessions, logger).RegisterRoutes(router)
	NewHistoryHandler(routes, sessions, health, logger).RegisterRoutes(router)

	return &testServer{router: router, provider: provider}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := decode(t, w)["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func (s *testServer) setText(t *testing.T, id, side, text string) {
	t.Helper()
	w := s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/endpoints/"+side,
		gin.H{"kind": "text", "text": text})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSessionHandler_CreateAndGet(t *testing.T) {
	srv := newTestServer(t, nil)
	id := srv.createSession(t)

	w := srv.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "DRIVING", body["mode"])
	assert.Equal(t, true, body["traffic_visible"])

	w = srv.do(t, http.MethodGet, "/api/v1/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = srv.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_ComputeRoute(t *testing.T) {
	srv := newTestServer(t, nil)
	id := srv.createSession(t)
	srv.setText(t, id, "start", "A")
	srv.setText(t, id, "end", "B")

	w := srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/route", gin.H{"mode": "walking"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "WALKING", body["mode"])
	assert.Equal(t, false, body["superseded"])

	route, ok := body["route"].(map[string]interface{})
	require.True(t, ok)
	summary := route["summary"].(map[string]interface{})
	assert.Equal(t, "5 km", summary["distance"])
	assert.Equal(t, "14 mins", summary["duration_in_traffic"])

	segments, ok := body["segments"].([]interface{})
	require.True(t, ok)
	assert.Len(t, segments, 4)

	w = srv.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/traffic.geojson", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))
	geo := decode(t, w)
	assert.Equal(t, "FeatureCollection", geo["type"])
	assert.Len(t, geo["features"], 4)
}

func TestSessionHandler_ComputeRouteErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	id := srv.createSession(t)

	// нет конечных точек
	w := srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/route", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "input", body["kind"])
	assert.Equal(t, "missing-endpoint", body["category"])
	assert.Equal(t, "start", body["side"])

	// адрес не найден
	srv.setText(t, id, "start", "A")
	srv.setText(t, id, "end", "Atlantis")
	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/route", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body = decode(t, w)
	assert.Equal(t, "resolution", body["kind"])
	assert.Equal(t, "not-found", body["category"])
	assert.Contains(t, body, "session")

	// провайдер отказал
	srv.setText(t, id, "end", "B")
	srv.provider.err = &models.ProviderError{Status: models.StatusRequestDenied, Message: "key revoked"}
	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/route", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body = decode(t, w)
	assert.Equal(t, "routing", body["kind"])
	assert.Equal(t, "bad-credentials", body["category"])
	assert.NotContains(t, w.Body.String(), "key revoked")

	// неизвестный режим
	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/route", gin.H{"mode": "flying"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_EndpointValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	id := srv.createSession(t)

	w := srv.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/endpoints/middle", gin.H{"text": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/endpoints/start",
		gin.H{"kind": "coordinate", "location": gin.H{"lat": 120, "lng": 0}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/endpoints/start", gin.H{"kind": "current-location"})
	require.Equal(t, http.StatusOK, w.Code)
	start := decode(t, w)["start"].(map[string]interface{})
	assert.Equal(t, "Your location", start["text"])

	w = srv.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/mode", gin.H{"mode": "bicycling"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BICYCLING", decode(t, w)["mode"])
}

func TestSessionHandler_TrafficToggleAndClear(t *testing.T) {
	srv := newTestServer(t, nil)
	id := srv.createSession(t)
	srv.setText(t, id, "start", "A")
	srv.setText(t, id, "end", "B")

	w := srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/route", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/traffic", gin.H{"visible": false})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["traffic_visible"])
	assert.Empty(t, body["segments"])

	w = srv.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/traffic", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Nil(t, body["route"])
	assert.Equal(t, true, body["traffic_visible"])
}

func TestSessionHandler_PlacesAndSearch(t *testing.T) {
	srv := newTestServer(t, nil)
	id := srv.createSession(t)

	w := srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/search", gin.H{"query": "A"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A, Moscow", decode(t, w)["formatted_address"])

	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/search", gin.H{"query": "Atlantis"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/places/recent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"A, Moscow"}, decode(t, w)["recent"])

	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/places/saved",
		gin.H{"name": "Office", "location": gin.H{"lat": 55.76, "lng": 37.61}})
	require.Equal(t, http.StatusCreated, w.Code)
	placeID := decode(t, w)["id"].(string)

	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/places/saved/"+placeID+"/use/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	start := decode(t, w)["start"].(map[string]interface{})
	assert.Equal(t, "Office", start["text"])
	assert.Equal(t, "coordinate", start["kind"])

	w = srv.do(t, http.MethodDelete, "/api/v1/sessions/"+id+"/places/saved/"+placeID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = srv.do(t, http.MethodDelete, "/api/v1/sessions/"+id+"/places/saved/"+placeID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_ReportLocation(t *testing.T) {
	srv := newTestServer(t, nil)
	id := srv.createSession(t)

	w := srv.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/location", gin.H{"error": "permission denied"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["available"])

	w = srv.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/location", gin.H{"location": gin.H{"lat": 95, "lng": 0}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPut, "/api/v1/sessions/missing/location", gin.H{"location": gin.H{"lat": 1, "lng": 1}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryHandler_HistoryDisabledAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodGet, "/api/v1/routes", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/routes/area?ne_lat=1&ne_lng=1&sw_lat=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["history"])
}

func TestHistoryHandler_UnhealthyDependency(t *testing.T) {
	srv := newTestServer(t, stubHealth{"database": errors.New("connection refused")})

	w := srv.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "unhealthy", body["status"])
	deps := body["dependencies"].(map[string]interface{})
	assert.Equal(t, "connection refused", deps["database"])
}
