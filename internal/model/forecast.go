package model

import "time"

// Forecast is the result of one forecast run. Points are in ascending date
// order and contain trading days only.
type Forecast struct {
	LastKnown  Observation     `json:"last_known"`
	EndDate    time.Time       `json:"end_date"`
	HorizonEnd time.Time       `json:"horizon_end"`
	WindowSize int             `json:"window_size"`
	Points     []ForecastPoint `json:"points"`
}

// Final returns the last forecast point, or false when the run produced none.
func (f *Forecast) Final() (ForecastPoint, bool) {
	if f == nil || len(f.Points) == 0 {
		return ForecastPoint{}, false
	}
	return f.Points[len(f.Points)-1], true
}
