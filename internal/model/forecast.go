package model

import (
	"fmt"
	"math"
	"time"
)

// Units is the unit system literal understood by the forecast API.
type Units string

const (
	Imperial Units = "imperial"
	Metric   Units = "metric"
	Standard Units = "standard"
)

// ParseUnits validates a unit system name.
func ParseUnits(s string) (Units, error) {
	switch u := Units(s); u {
	case Imperial, Metric, Standard:
		return u, nil
	}
	return "", fmt.Errorf("unknown unit system %q", s)
}

// Suffix returns the label appended to formatted temperatures.
func (u Units) Suffix() string {
	switch u {
	case Metric:
		return "°C"
	case Standard:
		return "K"
	default:
		return "°F"
	}
}

// Forecast is one day of a forecast, formatted for display.
// Values are computed once by NewForecast; treat them as read-only.
type Forecast struct {
	DayOfWeek       string `json:"day_of_week"`
	MinTemp         string `json:"min_temp"`
	MaxTemp         string `json:"max_temp"`
	HumidityPercent string `json:"humidity_percent"`
	Description     string `json:"description"`
	IconID          string `json:"icon_id"`
}

// NewForecast derives the display fields of one day.
// timestamp is in seconds since the epoch, humidity on a 0-100 scale.
func NewForecast(timestamp int64, minTemp, maxTemp, humidity float64, description, iconID string, units Units, loc *time.Location) Forecast {
	if loc == nil {
		loc = time.Local
	}
	return Forecast{
		DayOfWeek:       time.Unix(timestamp, 0).In(loc).Weekday().String(),
		MinTemp:         FormatTemperature(minTemp, units),
		MaxTemp:         FormatTemperature(maxTemp, units),
		HumidityPercent: FormatPercent(humidity / 100),
		Description:     description,
		IconID:          iconID,
	}
}

// FormatTemperature rounds to whole degrees (half to even) and appends the unit suffix.
func FormatTemperature(v float64, units Units) string {
	return fmt.Sprintf("%d%s", wholeNumber(v), units.Suffix())
}

// FormatPercent formats a 0-1 fraction as a whole percentage.
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%d%%", wholeNumber(fraction*100))
}

func wholeNumber(v float64) int64 {
	// -0.4 must print as 0, not -0.
	return int64(math.RoundToEven(v))
}
