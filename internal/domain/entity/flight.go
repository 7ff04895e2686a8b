package entity

import "time"

// Flight status values
const (
	FlightStatusPending              = "PENDING"
	FlightStatusConfirmed            = "CONFIRMED"
	FlightStatusWeatherCancelled     = "WEATHER_CANCELLED"
	FlightStatusMaintenanceCancelled = "MAINTENANCE_CANCELLED"
	FlightStatusReschedulePending    = "RESCHEDULE_PENDING"
	FlightStatusRescheduled          = "RESCHEDULED"
	FlightStatusRescheduleConfirmed  = "RESCHEDULE_CONFIRMED"
	FlightStatusCompleted            = "COMPLETED"
)

// Flight represents a scheduled training session
type Flight struct {
	ID                string     `bson:"_id,omitempty"`
	SchoolID          string     `bson:"schoolId"`
	StudentID         string     `bson:"studentId"`
	InstructorID      string     `bson:"instructorId"`
	AircraftID        string     `bson:"aircraftId"`
	AircraftType      string     `bson:"aircraftType"`
	LessonCode        string     `bson:"lessonCode"`
	FlightType        string     `bson:"flightType"`
	TrainingLevel     string     `bson:"trainingLevel"`
	DepartureAirport  string     `bson:"departureAirport"`
	ScheduledStart    time.Time  `bson:"scheduledStart"`
	ScheduledEnd      time.Time  `bson:"scheduledEnd"`
	BriefingStart     *time.Time `bson:"briefingStart,omitempty"`
	DebriefEnd        *time.Time `bson:"debriefEnd,omitempty"`
	Status            string     `bson:"status"`
	RescheduledFromID string     `bson:"rescheduledFromId,omitempty"`
	WeatherOverride   bool       `bson:"weatherOverride"`
	OverrideReason    string     `bson:"overrideReason,omitempty"`
	OverrideBy        string     `bson:"overrideBy,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt"`
}

// CancellableStatuses are the statuses a grounding cascade may pull a
// future flight out of.
func CancellableStatuses() []string {
	return []string{
		FlightStatusPending,
		FlightStatusConfirmed,
		FlightStatusReschedulePending,
		FlightStatusRescheduleConfirmed,
	}
}
