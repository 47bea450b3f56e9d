package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fakhrymubarak/weather-viewer/internal/model"
	"github.com/fakhrymubarak/weather-viewer/internal/repository"
	"github.com/fakhrymubarak/weather-viewer/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockController struct {
	seq       uint64
	submitErr error
	snap      service.Snapshot
	snapErr   error
	cities    []string
}

func (m *mockController) Submit(city string) (uint64, error) {
	m.cities = append(m.cities, city)
	return m.seq, m.submitErr
}

func (m *mockController) Snapshot(context.Context) (service.Snapshot, error) {
	return m.snap, m.snapErr
}

type mockIcons struct {
	icons map[string]*model.Icon
	err   error
}

func (m *mockIcons) Get(_ context.Context, iconID string) (*model.Icon, error) {
	if iconID == "" {
		return nil, repository.ErrInvalidRequest
	}
	if m.err != nil {
		return nil, m.err
	}
	icon, ok := m.icons[iconID]
	if !ok {
		return nil, &repository.RemoteError{StatusCode: http.StatusNotFound}
	}
	return icon, nil
}

func (m *mockIcons) Stats() repository.CacheStats {
	return repository.CacheStats{Hits: 3, Misses: 1, Fetches: 1}
}

// Ensure the mocks satisfy the handler's dependencies
var (
	_ Controller = (*mockController)(nil)
	_ Icons      = (*mockIcons)(nil)
)

type decoded struct {
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
	Message string          `json:"message"`
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, decoded) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var body decoded
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr, body
}

func TestForecastHandler_Submit(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		submitErr      error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Accepted",
			target:         "/forecast?city=Boston",
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "Invalid city",
			target:         "/forecast?city=",
			submitErr:      fmt.Errorf("%w: empty city", repository.ErrInvalidRequest),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Please enter a valid city name",
		},
		{
			name:           "Closed controller",
			target:         "/forecast?city=Boston",
			submitErr:      service.ErrControllerClosed,
			expectedStatus: http.StatusServiceUnavailable,
			expectedError:  "Service is shutting down",
		},
		{
			name:           "Unexpected error",
			target:         "/forecast?city=Boston",
			submitErr:      errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Failed to fetch weather data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &mockController{seq: 7, submitErr: tt.submitErr}
			h := NewForecastHandler(ctrl, NewPresenter(), &mockIcons{}).Routes()

			rr, body := do(t, h, http.MethodPost, tt.target)
			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedError != "" {
				require.NotNil(t, body.Error)
				assert.Equal(t, tt.expectedError, *body.Error)
				assert.Equal(t, "Error", body.Message)
				return
			}
			assert.Equal(t, "Accepted", body.Message)
			assert.JSONEq(t, `{"sequence":7}`, string(body.Data))
			assert.Equal(t, []string{"Boston"}, ctrl.cities)
		})
	}
}

func TestForecastHandler_Forecast(t *testing.T) {
	days := []model.Forecast{day("Monday", "01d")}
	ctrl := &mockController{snap: service.Snapshot{Version: 2, City: "Boston", Days: days}}
	presenter := NewPresenter()
	presenter.OnForecastChanged(days)
	presenter.OnIconReady("01d", &model.Icon{ID: "01d"})
	h := NewForecastHandler(ctrl, presenter, &mockIcons{}).Routes()

	rr, body := do(t, h, http.MethodGet, "/forecast")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Success", body.Message)
	assert.JSONEq(t, `{
		"version": 2,
		"city": "Boston",
		"loaded": true,
		"last_error": null,
		"days": [{
			"day_of_week": "Monday",
			"min_temp": "60°F",
			"max_temp": "76°F",
			"humidity_percent": "50%",
			"description": "Clear",
			"icon_id": "01d",
			"icon_url": "/icons/01d",
			"icon_state": "ready"
		}]
	}`, string(body.Data))
}

func TestForecastHandler_ForecastKeepsDaysOnFailure(t *testing.T) {
	days := []model.Forecast{day("Monday", "01d")}
	ctrl := &mockController{snap: service.Snapshot{Version: 1, City: "Boston", Days: days}}
	presenter := NewPresenter()
	presenter.OnForecastChanged(days)
	presenter.OnFetchFailed(repository.KindRemote, &repository.RemoteError{StatusCode: 500})
	h := NewForecastHandler(ctrl, presenter, &mockIcons{}).Routes()

	_, body := do(t, h, http.MethodGet, "/forecast")
	var view ForecastView
	require.NoError(t, json.Unmarshal(body.Data, &view))
	assert.Len(t, view.Days, 1)
	require.NotNil(t, view.LastError)
	assert.Equal(t, "The weather service returned an error (status 500)", *view.LastError)
}

func TestForecastHandler_ForecastSnapshotError(t *testing.T) {
	ctrl := &mockController{snapErr: service.ErrControllerClosed}
	h := NewForecastHandler(ctrl, NewPresenter(), &mockIcons{}).Routes()

	rr, body := do(t, h, http.MethodGet, "/forecast")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.NotNil(t, body.Error)
}

func TestForecastHandler_Icon(t *testing.T) {
	icons := &mockIcons{icons: map[string]*model.Icon{
		"01d": {ID: "01d", Format: "png", Data: []byte("\x89PNG")},
	}}
	h := NewForecastHandler(&mockController{}, NewPresenter(), icons).Routes()

	rr, _ := do(t, h, http.MethodGet, "/icons/01d")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rr.Body.String())

	rr, body := do(t, h, http.MethodGet, "/icons/99x")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, IconUnavailable, *body.Error)

	icons.err = fmt.Errorf("%w: bad bytes", repository.ErrImageDecode)
	rr, _ = do(t, h, http.MethodGet, "/icons/01d")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestForecastHandler_MethodNotAllowed(t *testing.T) {
	h := NewForecastHandler(&mockController{}, NewPresenter(), &mockIcons{}).Routes()

	req := httptest.NewRequest(http.MethodDelete, "/forecast", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestForecastHandler_RateLimitedSubmitOnly(t *testing.T) {
	blocked := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	h := NewForecastHandler(&mockController{}, NewPresenter(), &mockIcons{}).Routes(blocked)

	rr, _ := do(t, h, http.MethodPost, "/forecast?city=Boston")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr, _ = do(t, h, http.MethodGet, "/forecast")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestForecastHandler_Health(t *testing.T) {
	h := NewForecastHandler(&mockController{}, NewPresenter(), &mockIcons{}).Routes()

	rr, body := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","icon_cache":{"hits":3,"misses":1,"fetches":1}}`, string(body.Data))
}
