package handler

import (
	"fmt"
	"sync"

	"github.com/fakhrymubarak/weather-viewer/internal/model"
	"github.com/fakhrymubarak/weather-viewer/internal/repository"
	"github.com/fakhrymubarak/weather-viewer/internal/service"
)

// Icon states shown per row.
const (
	IconLoading     = "loading"
	IconReady       = "ready"
	IconUnavailable = "image unavailable"
)

// IconRequester asks for an icon to be resolved asynchronously.
type IconRequester interface {
	RequestIcon(iconID string)
}

// Row is one rendered forecast day.
type Row struct {
	model.Forecast
	IconURL   string `json:"icon_url"`
	IconState string `json:"icon_state"`
}

// Status summarizes what the presenter has been told so far.
type Status struct {
	Loaded       bool    `json:"loaded"`
	LastError    *string `json:"last_error,omitempty"`
	PendingIcons int     `json:"pending_icons"`
}

// Presenter is the listener side of the controller: it tracks the last
// failure message and the state of each row icon, and requests icons for
// every new forecast.
type Presenter struct {
	mu        sync.RWMutex
	requester IconRequester
	loaded    bool
	lastError *string
	icons     map[string]string
	updates   chan struct{}
}

// NewPresenter creates a presenter. Attach must be called before forecasts arrive.
func NewPresenter() *Presenter {
	return &Presenter{
		icons:   make(map[string]string),
		updates: make(chan struct{}, 1),
	}
}

// Attach sets where icon requests go.
func (p *Presenter) Attach(r IconRequester) {
	p.mu.Lock()
	p.requester = r
	p.mu.Unlock()
}

// Updates is signalled after every notification. Signals are coalesced.
func (p *Presenter) Updates() <-chan struct{} {
	return p.updates
}

func (p *Presenter) signal() {
	select {
	case p.updates <- struct{}{}:
	default:
	}
}

func (p *Presenter) OnForecastChanged(days []model.Forecast) {
	p.mu.Lock()
	p.loaded = true
	p.lastError = nil
	var request []string
	for _, day := range days {
		if state, ok := p.icons[day.IconID]; ok && state != IconUnavailable {
			continue
		}
		p.icons[day.IconID] = IconLoading
		request = append(request, day.IconID)
	}
	requester := p.requester
	p.mu.Unlock()

	if requester != nil {
		for _, id := range request {
			requester.RequestIcon(id)
		}
	}
	p.signal()
}

func (p *Presenter) OnFetchFailed(kind repository.ErrorKind, err error) {
	msg := FailureMessage(kind, err)
	p.mu.Lock()
	p.lastError = &msg
	p.mu.Unlock()
	p.signal()
}

func (p *Presenter) OnIconReady(iconID string, _ *model.Icon) {
	p.setIcon(iconID, IconReady)
}

func (p *Presenter) OnIconFailed(iconID string, _ repository.ErrorKind, _ error) {
	p.setIcon(iconID, IconUnavailable)
}

func (p *Presenter) setIcon(iconID, state string) {
	p.mu.Lock()
	p.icons[iconID] = state
	p.mu.Unlock()
	p.signal()
}

// Status returns the current summary.
func (p *Presenter) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Status{Loaded: p.loaded}
	if p.lastError != nil {
		msg := *p.lastError
		s.LastError = &msg
	}
	for _, state := range p.icons {
		if state == IconLoading {
			s.PendingIcons++
		}
	}
	return s
}

// Rows decorates days with their icon location and state.
func (p *Presenter) Rows(days []model.Forecast) []Row {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rows := make([]Row, 0, len(days))
	for _, day := range days {
		state, ok := p.icons[day.IconID]
		if !ok {
			state = IconLoading
		}
		rows = append(rows, Row{
			Forecast:  day,
			IconURL:   "/icons/" + day.IconID,
			IconState: state,
		})
	}
	return rows
}

// FailureMessage returns the user-facing text for a failed fetch.
func FailureMessage(kind repository.ErrorKind, err error) string {
	switch kind {
	case repository.KindInvalidRequest:
		return "Please enter a valid city name"
	case repository.KindTransport:
		return "Unable to connect to the weather service"
	case repository.KindRemote:
		return fmt.Sprintf("The weather service returned an error (status %d)", repository.StatusCode(err))
	case repository.KindMalformedResponse:
		return "The weather service returned an unreadable forecast"
	default:
		return "Failed to fetch weather data"
	}
}

var _ service.Listener = (*Presenter)(nil)
