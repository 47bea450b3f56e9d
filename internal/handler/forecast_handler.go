package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fakhrymubarak/weather-viewer/internal/config"
	"github.com/fakhrymubarak/weather-viewer/internal/model"
	"github.com/fakhrymubarak/weather-viewer/internal/repository"
	"github.com/fakhrymubarak/weather-viewer/internal/service"
	"github.com/go-chi/chi/v5"
)

// Controller is the part of the forecast controller the HTTP layer drives.
type Controller interface {
	Submit(city string) (uint64, error)
	Snapshot(ctx context.Context) (service.Snapshot, error)
}

// Icons serves cached icons.
type Icons interface {
	Get(ctx context.Context, iconID string) (*model.Icon, error)
	Stats() repository.CacheStats
}

// ForecastView is the body of GET /forecast.
type ForecastView struct {
	Version   uint64  `json:"version"`
	City      string  `json:"city"`
	Loaded    bool    `json:"loaded"`
	Days      []Row   `json:"days"`
	LastError *string `json:"last_error"`
}

type ForecastHandler struct {
	Controller Controller
	Presenter  *Presenter
	Icons      Icons
}

func NewForecastHandler(controller Controller, presenter *Presenter, icons Icons) *ForecastHandler {
	return &ForecastHandler{
		Controller: controller,
		Presenter:  presenter,
		Icons:      icons,
	}
}

// Routes mounts the API. limit wraps the forecast endpoints only.
func (h *ForecastHandler) Routes(limit ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", h.HandleHealth)
	r.Group(func(r chi.Router) {
		r.Use(limit...)
		r.Post("/forecast", h.HandleSubmit)
	})
	r.Get("/forecast", h.HandleForecast)
	r.Get("/icons/{id}", h.HandleIcon)
	return r
}

func (h *ForecastHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		config.GetLogger().Errorw("could not encode json", "error", err)
	}
}

func (h *ForecastHandler) writeError(w http.ResponseWriter, statusCode int, errMsg string) {
	h.writeJSONResponse(w, statusCode, model.Response{
		Error:   &errMsg,
		Message: "Error",
	})
}

// HandleSubmit starts a fetch for ?city= and answers before it completes.
func (h *ForecastHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	seq, err := h.Controller.Submit(r.URL.Query().Get("city"))
	switch {
	case errors.Is(err, repository.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, FailureMessage(repository.KindInvalidRequest, err))
		return
	case errors.Is(err, service.ErrControllerClosed):
		h.writeError(w, http.StatusServiceUnavailable, "Service is shutting down")
		return
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch weather data")
		return
	}

	h.writeJSONResponse(w, http.StatusAccepted, model.Response{
		Data:    map[string]uint64{"sequence": seq},
		Message: "Accepted",
	})
}

// HandleForecast returns the displayed forecast with per-row icon state.
func (h *ForecastHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Controller.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "Forecast unavailable")
		return
	}

	status := h.Presenter.Status()
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data: ForecastView{
			Version:   snap.Version,
			City:      snap.City,
			Loaded:    status.Loaded,
			Days:      h.Presenter.Rows(snap.Days),
			LastError: status.LastError,
		},
		Message: "Success",
	})
}

// HandleIcon serves icon bytes from the cache, fetching on a miss.
func (h *ForecastHandler) HandleIcon(w http.ResponseWriter, r *http.Request) {
	iconID := chi.URLParam(r, "id")
	icon, err := h.Icons.Get(r.Context(), iconID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidRequest) {
			h.writeError(w, http.StatusBadRequest, "Invalid icon id")
			return
		}
		config.GetLogger().Warnw("Icon unavailable", "icon", iconID, "kind", repository.KindOf(err).String(), "error", err)
		h.writeError(w, http.StatusBadGateway, IconUnavailable)
		return
	}

	w.Header().Set("Content-Type", icon.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(icon.Data)
}

func (h *ForecastHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data: map[string]interface{}{
			"status":     "ok",
			"icon_cache": h.Icons.Stats(),
		},
		Message: "Success",
	})
}
