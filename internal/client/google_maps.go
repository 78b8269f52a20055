package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"route-traffic-go/internal/geo"
	"route-traffic-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL базовый адрес Google Maps Web Services
const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

const (
	geocodeEndpoint    = "/geocode/json"
	directionsEndpoint = "/directions/json"

	defaultTrafficModel = "best_guess"
)

// GoogleMapsClient клиент для Geocoding и Directions API
type GoogleMapsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	geoCalc    *geo.Calculator
	logger     *logrus.Logger
}

// NewGoogleMapsClient создает новый клиент для Google Maps
func NewGoogleMapsClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *GoogleMapsClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GoogleMapsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		geoCalc: geo.NewCalculator(),
		logger:  logger,
	}
}

type textValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		PlaceID          string `json:"place_id"`
		Geometry         struct {
			Location latLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Summary          string `json:"summary"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance          textValue  `json:"distance"`
			Duration          textValue  `json:"duration"`
			DurationInTraffic *textValue `json:"duration_in_traffic"`
			Steps             []struct {
				HTMLInstructions string    `json:"html_instructions"`
				Distance         textValue `json:"distance"`
				Duration         textValue `json:"duration"`
				TravelMode       string    `json:"travel_mode"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// Geocode переводит адрес в координаты
func (c *GoogleMapsClient) Geocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", c.apiKey)

	var resp geocodeResponse
	if err := c.get(ctx, geocodeEndpoint, params, &resp); err != nil {
		return nil, err
	}

	if resp.Status != string(models.StatusOK) {
		return nil, &models.ProviderError{Status: models.ProviderStatus(resp.Status), Message: resp.ErrorMessage}
	}
	if len(resp.Results) == 0 {
		return nil, &models.ProviderError{Status: models.StatusZeroResults}
	}

	first := resp.Results[0]
	c.logger.WithFields(logrus.Fields{
		"address": address,
		"results": len(resp.Results),
	}).Debug("Адрес геокодирован")

	return &models.GeocodeResult{
		Location:         models.Coordinates{Lat: first.Geometry.Location.Lat, Lng: first.Geometry.Location.Lng},
		FormattedAddress: first.FormattedAddress,
		PlaceID:          first.PlaceID,
	}, nil
}

// Route строит маршрут между двумя точками
func (c *GoogleMapsClient) Route(ctx context.Context, req models.RouteRequest) (*models.Route, error) {
	mode := req.Mode
	if mode == "" {
		mode = models.DefaultTravelMode
	}

	params := url.Values{}
	params.Set("origin", req.Origin.String())
	params.Set("destination", req.Destination.String())
	params.Set("mode", strings.ToLower(string(mode)))
	params.Set("units", "metric")
	params.Set("key", c.apiKey)

	// departure_time поддерживается только для авто и общественного транспорта
	if mode == models.ModeDriving || mode == models.ModeTransit {
		departure := "now"
		if !req.DepartureTime.IsZero() {
			departure = strconv.FormatInt(req.DepartureTime.Unix(), 10)
		}
		params.Set("departure_time", departure)
	}
	if mode == models.ModeDriving {
		trafficModel := req.TrafficModel
		if trafficModel == "" {
			trafficModel = defaultTrafficModel
		}
		params.Set("traffic_model", trafficModel)
	}

	var resp directionsResponse
	if err := c.get(ctx, directionsEndpoint, params, &resp); err != nil {
		return nil, err
	}

	if resp.Status != string(models.StatusOK) {
		return nil, &models.ProviderError{Status: models.ProviderStatus(resp.Status), Message: resp.ErrorMessage}
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, &models.ProviderError{Status: models.StatusZeroResults}
	}

	first := resp.Routes[0]
	leg := first.Legs[0]

	path, err := DecodePolyline(first.OverviewPolyline.Points)
	if err != nil {
		return nil, &models.ProviderError{Status: models.StatusTransportError, Err: fmt.Errorf("decode overview polyline: %w", err)}
	}
	if len(path) == 0 {
		return nil, &models.ProviderError{Status: models.StatusZeroResults, Message: "route has no geometry"}
	}

	summary := models.RouteSummary{
		DistanceText:    leg.Distance.Text,
		DistanceMeters:  leg.Distance.Value,
		DurationText:    leg.Duration.Text,
		DurationSeconds: leg.Duration.Value,
	}
	if summary.DistanceMeters == 0 {
		summary.DistanceMeters = c.geoCalc.PathLengthMeters(path)
	}
	if summary.DistanceText == "" {
		summary.DistanceText = c.geoCalc.FormatDistance(summary.DistanceMeters)
	}
	if summary.DurationText == "" {
		summary.DurationText = c.geoCalc.FormatDuration(summary.DurationSeconds)
	}
	// Без данных о пробках время в пути совпадает с обычным
	summary.DurationInTrafficText = summary.DurationText
	summary.DurationInTrafficSeconds = summary.DurationSeconds
	if leg.DurationInTraffic != nil {
		summary.DurationInTrafficText = leg.DurationInTraffic.Text
		summary.DurationInTrafficSeconds = leg.DurationInTraffic.Value
	}

	steps := make([]models.RouteStep, 0, len(leg.Steps))
	for i, s := range leg.Steps {
		stepMode := models.TravelMode(s.TravelMode)
		if !stepMode.IsValid() {
			stepMode = mode
		}
		steps = append(steps, models.RouteStep{
			Number:       i + 1,
			Instruction:  stripHTML(s.HTMLInstructions),
			DistanceText: s.Distance.Text,
			DurationText: s.Duration.Text,
			Mode:         stepMode,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"mode":     mode,
		"distance": summary.DistanceText,
		"points":   len(path),
	}).Info("Маршрут получен от провайдера")

	return &models.Route{
		Summary:  summary,
		Path:     path,
		Polyline: first.OverviewPolyline.Points,
		Steps:    steps,
		Mode:     mode,
	}, nil
}

// get выполняет GET запрос и разбирает JSON ответ
func (c *GoogleMapsClient) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &models.ProviderError{Status: models.StatusTransportError, Err: fmt.Errorf("create request: %w", err)}
	}

	c.logger.Debugf("Отправка GET запроса на %s", c.baseURL+endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.ProviderError{Status: models.StatusTransportError, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.ProviderError{Status: models.StatusTransportError, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Errorf("Провайдер карт вернул статус %d", resp.StatusCode)
		return &models.ProviderError{
			Status:  statusFromHTTP(resp.StatusCode),
			Message: fmt.Sprintf("http status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &models.ProviderError{Status: models.StatusTransportError, Err: fmt.Errorf("parse response: %w", err)}
	}

	return nil
}

func statusFromHTTP(code int) models.ProviderStatus {
	switch code {
	case http.StatusTooManyRequests:
		return models.StatusOverQueryLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.StatusRequestDenied
	case http.StatusBadRequest:
		return models.StatusInvalidRequest
	default:
		return models.StatusUnknownError
	}
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// stripHTML убирает разметку из инструкций навигации
func stripHTML(s string) string {
	text := htmlTag.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(text), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
