package types

// Station is a measurement site with validated coordinates.
type Station struct {
	StationID   string   `json:"station_id"`
	DisplayName string   `json:"display_name"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Elevation   *float64 `json:"elevation,omitempty"`
}
