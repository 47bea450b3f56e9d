package model

// OpenWeatherMapDailyResponse is the forecast envelope returned by the daily forecast endpoint.
// Pointer fields distinguish a missing value from a zero value.
type OpenWeatherMapDailyResponse struct {
	List *[]OpenWeatherMapDay `json:"list"`
}

type OpenWeatherMapDay struct {
	Dt   *int64 `json:"dt"`
	Temp *struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	} `json:"temp"`
	Humidity *float64 `json:"humidity"`
	Weather  []struct {
		Description *string `json:"description"`
		Icon        *string `json:"icon"`
	} `json:"weather"`
}
