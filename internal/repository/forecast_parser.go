package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fakhrymubarak/weather-viewer/internal/config"
	"github.com/fakhrymubarak/weather-viewer/internal/model"
)

// ForecastParser turns a daily forecast envelope into display models.
type ForecastParser struct {
	Units    model.Units
	Location *time.Location
}

// NewForecastParser creates a parser using the configured time zone.
func NewForecastParser(units model.Units) *ForecastParser {
	return &ForecastParser{
		Units:    units,
		Location: config.GetTimeZone(),
	}
}

// Parse returns one forecast per element of the envelope's list, in order.
// Any shape mismatch fails the whole parse with ErrMalformedResponse.
func (p *ForecastParser) Parse(raw []byte) ([]model.Forecast, error) {
	var envelope model.OpenWeatherMapDailyResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if envelope.List == nil {
		return nil, fmt.Errorf("%w: missing list", ErrMalformedResponse)
	}

	days := make([]model.Forecast, 0, len(*envelope.List))
	for i, day := range *envelope.List {
		f, err := p.parseDay(day)
		if err != nil {
			return nil, fmt.Errorf("%w: list[%d]: %v", ErrMalformedResponse, i, err)
		}
		days = append(days, f)
	}
	return days, nil
}

func (p *ForecastParser) parseDay(day model.OpenWeatherMapDay) (model.Forecast, error) {
	switch {
	case day.Dt == nil:
		return model.Forecast{}, fmt.Errorf("missing dt")
	case day.Temp == nil:
		return model.Forecast{}, fmt.Errorf("missing temp")
	case day.Temp.Min == nil || day.Temp.Max == nil:
		return model.Forecast{}, fmt.Errorf("missing temp.min or temp.max")
	case day.Humidity == nil:
		return model.Forecast{}, fmt.Errorf("missing humidity")
	case len(day.Weather) == 0:
		return model.Forecast{}, fmt.Errorf("empty weather")
	case day.Weather[0].Description == nil || day.Weather[0].Icon == nil:
		return model.Forecast{}, fmt.Errorf("missing weather[0].description or weather[0].icon")
	}

	return model.NewForecast(
		*day.Dt,
		*day.Temp.Min,
		*day.Temp.Max,
		*day.Humidity,
		*day.Weather[0].Description,
		*day.Weather[0].Icon,
		p.Units,
		p.Location,
	), nil
}
