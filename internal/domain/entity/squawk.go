package entity

import "time"

// Squawk severity values
const (
	SeverityMinor     = "MINOR"
	SeverityMajor     = "MAJOR"
	SeverityGrounding = "GROUNDING"
)

// Squawk status values
const (
	SquawkStatusOpen     = "OPEN"
	SquawkStatusResolved = "RESOLVED"
)

// Squawk is an aircraft defect report. GROUNDING severity is the only
// one with side effects on other entities; ImpactedFlightIDs is the
// snapshot of flights the grounding cascade cancelled.
type Squawk struct {
	ID                string    `bson:"_id,omitempty"`
	AircraftID        string    `bson:"aircraftId"`
	ReportedBy        string    `bson:"reportedBy"`
	Severity          string    `bson:"severity"`
	Status            string    `bson:"status"`
	Description       string    `bson:"description"`
	ImpactedFlightIDs []string  `bson:"impactedFlightIds,omitempty"`
	CreatedAt         time.Time `bson:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt"`
}
