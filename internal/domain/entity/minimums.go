package entity

// Minimums are the weather thresholds a flight must clear, keyed by
// student training level, aircraft type and flight type.
type Minimums struct {
	TrainingLevel   string  `bson:"trainingLevel"`
	AircraftType    string  `bson:"aircraftType"`
	FlightType      string  `bson:"flightType"`
	VisibilitySM    float64 `bson:"visibilitySm"`
	CeilingFt       float64 `bson:"ceilingFt"`
	MaxWindKt       float64 `bson:"maxWindKt"`
	MaxGustKt       float64 `bson:"maxGustKt"`
	MaxCrosswindKt  float64 `bson:"maxCrosswindKt"`
	MinTemperatureC float64 `bson:"minTemperatureC"`
}
