package integrationtest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/alicebob/miniredis/v2"
	"github.com/fakhrymubarak/weather-viewer/internal/config"
)

const (
	mockAPIKey       = "test_api_key"
	mockForecastPath = "/data/2.5/forecast/daily"
	mockIconPath     = "/img/w/"
)

const bostonForecast = `{
  "city": {"name": "Boston", "country": "US"},
  "cod": "200",
  "cnt": 2,
  "list": [
    {"dt": 1500000000, "temp": {"day": 70.1, "min": 60.2, "max": 75.8}, "humidity": 50,
     "weather": [{"id": 800, "main": "Clear", "description": "Clear", "icon": "01d"}]},
    {"dt": 1500086400, "temp": {"day": 66.0, "min": 58.5, "max": 70.5}, "humidity": 81,
     "weather": [{"id": 500, "main": "Rain", "description": "Light rain", "icon": "10d"}]}
  ]
}`

// createMockRedisServer starts miniredis on the configured test port.
func createMockRedisServer() *miniredis.Miniredis {
	m := miniredis.NewMiniRedis()
	if err := m.StartAddr(config.GetTestRedisMockPort()); err != nil {
		panic(err)
	}
	return m
}

func iconPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	img.Set(25, 25, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// mockOWMApi imitates the daily forecast and icon endpoints.
// Cities: Boston answers normally, Broken with a 500, Garbled with a non-JSON body,
// anything else with a 404. Icons 01d and 10d exist.
func mockOWMApi() *httptest.Server {
	icon := iconPNG()
	mux := http.NewServeMux()
	mux.HandleFunc(mockForecastPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("APPID") != mockAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
			return
		}
		switch r.URL.Query().Get("q") {
		case "Boston":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(bostonForecast))
		case "Broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"cod":"500","message":"internal error"}`))
		case "Garbled":
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
		}
	})
	mux.HandleFunc(mockIconPath, func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, mockIconPath) {
		case "01d.png", "10d.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(icon)
		case "13d.png":
			_, _ = w.Write([]byte("not an image"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return httptest.NewServer(mux)
}
