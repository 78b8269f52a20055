package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	baseURL := os.Getenv("ROUTE_TRAFFIC_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := &http.Client{Timeout: 1 * time.Minute}

	// Проверяем health endpoint
	fmt.Println("Проверяем health endpoint...")
	status, body, err := call(client, http.MethodGet, baseURL+"/api/v1/health", nil)
	if err != nil {
		fmt.Printf("Ошибка при обращении к health endpoint: %v\n", err)
		return
	}
	fmt.Printf("Health check ответ (статус %d):\n%s\n\n", status, body)

	// Если заданы адреса, строим маршрут между ними
	if len(os.Args) < 3 {
		fmt.Println("Для построения маршрута запустите: go run ./cmd/routeclient <откуда> <куда> [режим]")
		return
	}

	mode := "DRIVING"
	if len(os.Args) > 3 {
		mode = os.Args[3]
	}

	if err := testRoute(client, baseURL, os.Args[1], os.Args[2], mode); err != nil {
		fmt.Printf("Ошибка при построении маршрута: %v\n", err)
	}
}

func testRoute(client *http.Client, baseURL, from, to, mode string) error {
	status, body, err := call(client, http.MethodPost, baseURL+"/api/v1/sessions", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	if status != http.StatusCreated {
		return fmt.Errorf("ошибка создания сессии (статус %d): %s", status, body)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return fmt.Errorf("ошибка разбора ответа: %w", err)
	}
	sessionURL := baseURL + "/api/v1/sessions/" + created.ID
	fmt.Printf("Создана сессия %s\n", created.ID)

	endpoints := map[string]string{"start": from, "end": to}
	for _, side := range []string{"start", "end"} {
		payload := map[string]string{"kind": "text", "text": endpoints[side]}
		status, body, err := call(client, http.MethodPut, sessionURL+"/endpoints/"+side, payload)
		if err != nil {
			return fmt.Errorf("ошибка установки точки %s: %w", side, err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("ошибка установки точки %s (статус %d): %s", side, status, body)
		}
	}

	fmt.Println("Отправляем запрос на построение маршрута...")
	status, body, err = call(client, http.MethodPost, sessionURL+"/route", map[string]string{"mode": mode})
	if err != nil {
		return fmt.Errorf("ошибка отправки запроса: %w", err)
	}
	fmt.Printf("Ответ (статус %d):\n%s\n\n", status, body)
	if status != http.StatusOK {
		return nil
	}

	status, body, err = call(client, http.MethodGet, sessionURL+"/traffic.geojson", nil)
	if err != nil {
		return fmt.Errorf("ошибка получения слоя загруженности: %w", err)
	}
	fmt.Printf("Слой загруженности (статус %d, %d байт)\n", status, len(body))
	return nil
}

func call(client *http.Client, method, url string, payload interface{}) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	return resp.StatusCode, body, nil
}
