package entity

import "time"

// Safety evaluation results
const (
	CheckResultSafe     = "SAFE"
	CheckResultMarginal = "MARGINAL"
	CheckResultUnsafe   = "UNSAFE"
)

// WeatherReading is a normalized observation from the weather provider.
// Pointer fields are nil when the provider had no data for a dimension.
type WeatherReading struct {
	Airport       string    `json:"airport" bson:"airport"`
	VisibilitySM  *float64  `json:"visibilitySm,omitempty" bson:"visibilitySm,omitempty"`
	CeilingFt     *float64  `json:"ceilingFt,omitempty" bson:"ceilingFt,omitempty"`
	WindSpeedKt   *float64  `json:"windSpeedKt,omitempty" bson:"windSpeedKt,omitempty"`
	WindGustKt    *float64  `json:"windGustKt,omitempty" bson:"windGustKt,omitempty"`
	WindDirection *float64  `json:"windDirection,omitempty" bson:"windDirection,omitempty"`
	CrosswindKt   *float64  `json:"crosswindKt,omitempty" bson:"crosswindKt,omitempty"`
	TemperatureC  *float64  `json:"temperatureC,omitempty" bson:"temperatureC,omitempty"`
	Conditions    []string  `json:"conditions,omitempty" bson:"conditions,omitempty"`
	ObservedAt    time.Time `json:"observedAt" bson:"observedAt"`
	RawMETAR      string    `json:"rawMetar,omitempty" bson:"rawMetar,omitempty"`
}

// WeatherCheck is the immutable record of one safety evaluation.
// Created only by the safety evaluator, never updated.
type WeatherCheck struct {
	ID         string         `bson:"_id,omitempty"`
	FlightID   string         `bson:"flightId"`
	Reading    WeatherReading `bson:"reading"`
	Minimums   Minimums       `bson:"minimums"`
	Result     string         `bson:"result"`
	Confidence int            `bson:"confidence"`
	Reasons    []string       `bson:"reasons"`
	CheckedAt  time.Time      `bson:"checkedAt"`
}
