package weather

// apiResponse mirrors the open-meteo forecast payload.
type apiResponse struct {
	Current struct {
		Temperature2m      float64 `json:"temperature_2m"`
		WindSpeed10m       float64 `json:"wind_speed_10m"`
		RelativeHumidity2m float64 `json:"relative_humidity_2m"`
		WeatherCode        int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Time             []string  `json:"time"`
		Temperature2mMax []float64 `json:"temperature_2m_max"`
		Temperature2mMin []float64 `json:"temperature_2m_min"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

type Current struct {
	Temperature float64 // °C
	Humidity    float64 // % RH
	WindSpeed   float64
	WeatherCode int
}

// Daily holds parallel arrays, one entry per forecast day.
type Daily struct {
	Dates            []string
	TempMax          []float64
	TempMin          []float64
	PrecipitationSum []float64
}

type Forecast struct {
	Current Current
	Daily   Daily
}

// Day is one row of Daily.
type Day struct {
	Date          string
	TempMax       float64
	TempMin       float64
	Precipitation float64
}

// Days zips the daily arrays, stopping at the shortest one.
func (d Daily) Days() []Day {
	n := min(len(d.Dates), len(d.TempMax), len(d.TempMin), len(d.PrecipitationSum))
	out := make([]Day, n)
	for i := range n {
		out[i] = Day{
			Date:          d.Dates[i],
			TempMax:       d.TempMax[i],
			TempMin:       d.TempMin[i],
			Precipitation: d.PrecipitationSum[i],
		}
	}
	return out
}
