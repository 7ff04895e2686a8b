package entity

import "time"

// Aircraft status values
const (
	AircraftStatusAvailable   = "AVAILABLE"
	AircraftStatusGrounded    = "GROUNDED"
	AircraftStatusMaintenance = "MAINTENANCE"
)

// Aircraft is a training aircraft identified by tail number
type Aircraft struct {
	ID         string    `bson:"_id,omitempty"`
	TailNumber string    `bson:"tailNumber"`
	Type       string    `bson:"type"`
	SchoolID   string    `bson:"schoolId"`
	Status     string    `bson:"status"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}
