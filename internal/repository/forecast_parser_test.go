package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/fakhrymubarak/weather-viewer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bostonEnvelope = `{
  "city": {"name": "Boston"},
  "cnt": 1,
  "list": [
    {"dt": 1500000000, "temp": {"day": 70.1, "min": 60.2, "max": 75.8}, "humidity": 50,
     "weather": [{"id": 800, "main": "Clear", "description": "Clear", "icon": "01d"}]}
  ]
}`

func newUTCParser() *ForecastParser {
	return &ForecastParser{Units: model.Imperial, Location: time.UTC}
}

func TestForecastParser_Boston(t *testing.T) {
	days, err := newUTCParser().Parse([]byte(bostonEnvelope))
	require.NoError(t, err)
	require.Len(t, days, 1)

	assert.Equal(t, model.Forecast{
		DayOfWeek:       time.Unix(1500000000, 0).UTC().Weekday().String(),
		MinTemp:         "60°F",
		MaxTemp:         "76°F",
		HumidityPercent: "50%",
		Description:     "Clear",
		IconID:          "01d",
	}, days[0])
}

func TestForecastParser_RoundingAndHumidity(t *testing.T) {
	raw := `{"list":[{"dt":0,"temp":{"min":73.6,"max":73.6},"humidity":45,"weather":[{"description":"rain","icon":"10d"}]}]}`
	days, err := newUTCParser().Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "74°F", days[0].MinTemp)
	assert.Equal(t, "45%", days[0].HumidityPercent)
	assert.Equal(t, "Thursday", days[0].DayOfWeek)
}

func TestForecastParser_EmptyList(t *testing.T) {
	days, err := newUTCParser().Parse([]byte(`{"list":[]}`))
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestForecastParser_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `not-json`},
		{"json null", `null`},
		{"array", `[]`},
		{"missing list", `{"cnt":1}`},
		{"list wrong type", `{"list":{}}`},
		{"missing dt", `{"list":[{"temp":{"min":1,"max":2},"humidity":3,"weather":[{"description":"a","icon":"b"}]}]}`},
		{"dt wrong type", `{"list":[{"dt":"x","temp":{"min":1,"max":2},"humidity":3,"weather":[{"description":"a","icon":"b"}]}]}`},
		{"missing temp", `{"list":[{"dt":1,"humidity":3,"weather":[{"description":"a","icon":"b"}]}]}`},
		{"missing max", `{"list":[{"dt":1,"temp":{"min":1},"humidity":3,"weather":[{"description":"a","icon":"b"}]}]}`},
		{"missing humidity", `{"list":[{"dt":1,"temp":{"min":1,"max":2},"weather":[{"description":"a","icon":"b"}]}]}`},
		{"empty weather", `{"list":[{"dt":1,"temp":{"min":1,"max":2},"humidity":3,"weather":[]}]}`},
		{"missing icon", `{"list":[{"dt":1,"temp":{"min":1,"max":2},"humidity":3,"weather":[{"description":"a"}]}]}`},
		{"icon wrong type", `{"list":[{"dt":1,"temp":{"min":1,"max":2},"humidity":3,"weather":[{"description":"a","icon":7}]}]}`},
		{"second element bad", `{"list":[{"dt":1,"temp":{"min":1,"max":2},"humidity":3,"weather":[{"description":"a","icon":"b"}]},{"dt":2}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, err := newUTCParser().Parse([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Nil(t, days, "no partial list on failure")
		})
	}
}

type fakeDay struct {
	Dt   int64 `json:"dt"`
	Temp struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
	Humidity float64 `json:"humidity"`
	Weather  []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

func fakeEnvelope(t *testing.T, faker *gofakeit.Faker, n int) ([]fakeDay, []byte) {
	t.Helper()
	start := faker.Int64() % 2000000000
	if start < 0 {
		start = -start
	}
	days := make([]fakeDay, n)
	for i := range days {
		d := &days[i]
		d.Dt = start + int64(i)*86400
		d.Temp.Min = faker.Float64Range(-40, 40)
		d.Temp.Max = d.Temp.Min + faker.Float64Range(0, 30)
		d.Humidity = float64(faker.IntRange(0, 100))
		d.Weather = append(d.Weather, struct {
			Description string `json:"description"`
			Icon        string `json:"icon"`
		}{faker.Word() + " " + faker.Word(), fmt.Sprintf("%02d%s", faker.IntRange(1, 50), faker.RandomString([]string{"d", "n"}))})
	}
	raw, err := json.Marshal(map[string]any{"city": map[string]string{"name": faker.City()}, "list": days})
	require.NoError(t, err)
	return days, raw
}

func TestForecastParser_GeneratedEnvelopes(t *testing.T) {
	faker := gofakeit.New(42)
	p := &ForecastParser{Units: model.Metric, Location: time.UTC}

	for round := 0; round < 50; round++ {
		n := faker.IntRange(0, 16)
		want, raw := fakeEnvelope(t, faker, n)

		got, err := p.Parse(raw)
		require.NoError(t, err)
		require.Len(t, got, n)
		for i, day := range want {
			assert.Equal(t, time.Unix(day.Dt, 0).UTC().Weekday().String(), got[i].DayOfWeek)
			assert.Equal(t, fmt.Sprintf("%d°C", int64(math.RoundToEven(day.Temp.Min))), got[i].MinTemp)
			assert.Equal(t, fmt.Sprintf("%d°C", int64(math.RoundToEven(day.Temp.Max))), got[i].MaxTemp)
			assert.Equal(t, fmt.Sprintf("%d%%", int64(day.Humidity)), got[i].HumidityPercent)
			assert.Equal(t, day.Weather[0].Description, got[i].Description)
			assert.Equal(t, day.Weather[0].Icon, got[i].IconID)
		}

		again, err := p.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, got, again, "parsing is idempotent")
	}
}

func TestNewForecastParser_UsesConfiguredZone(t *testing.T) {
	p := NewForecastParser(model.Imperial)
	assert.Equal(t, "UTC", p.Location.String())
}
